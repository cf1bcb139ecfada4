package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/novatech-assistant/internal/dynamic"
	"github.com/wolfman30/novatech-assistant/internal/knowledge"
)

func TestDynamicHandlerLatest(t *testing.T) {
	src := &stubDynamic{latest: map[string]knowledge.Value{
		dynamic.CategoryMarket: knowledge.Map(knowledge.F("quotes", knowledge.List())),
	}}
	h := NewDynamicHandler(src, nil)
	r := chi.NewRouter()
	r.Get("/api/dynamic/{category}", h.Latest)

	tests := []struct {
		path string
		want int
	}{
		{"/api/dynamic/market", http.StatusOK},
		{"/api/dynamic/news", http.StatusNotFound},
		{"/api/dynamic/weather", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dynamic/market", nil))
	body := decodeBody(t, rec)
	assert.Equal(t, dynamic.CategoryMarket, body["category"])
	require.Contains(t, body, "data")

	src.latestErr = errors.New("redis gone")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dynamic/market", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
