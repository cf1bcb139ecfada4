package knowledge

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string]string
	err     error
	keys    []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.keys = append(f.keys, key)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("not found")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3SyncDownloadsAndSkipsOptional(t *testing.T) {
	dir := t.TempDir()
	client := &fakeS3{objects: map[string]string{
		"kb/company_info.json": `{"name": "NovaTech"}`,
		"kb/products.json":     `{"products": []}`,
		"kb/leadership.json":   `{"leadership": {}}`,
	}}

	syncer := NewS3Syncer(client, "bucket", "kb/", dir, testSpecs, nil)
	report, err := syncer.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"company_info", "products", "leadership"}, report.Downloaded)
	assert.Equal(t, []string{"news"}, report.Missing)
	assert.Equal(t, []string{"kb/company_info.json", "kb/products.json", "kb/leadership.json", "kb/news.json"}, client.keys)

	data, err := os.ReadFile(filepath.Join(dir, "company_info.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "NovaTech"}`, string(data))

	l := newTestLoader(t, dir)
	_, ok := l.Snapshot().Category("company_info")
	assert.True(t, ok)
}

func TestS3SyncFailures(t *testing.T) {
	tests := []struct {
		name    string
		client  *fakeS3
		wantErr string
	}{
		{
			name:    "required object missing",
			client:  &fakeS3{objects: map[string]string{"company_info.json": `{}`}},
			wantErr: "required object",
		},
		{
			name: "invalid json",
			client: &fakeS3{objects: map[string]string{
				"company_info.json": `{"name": `,
			}},
			wantErr: "not valid JSON",
		},
		{
			name:    "transport error",
			client:  &fakeS3{err: errors.New("connection reset")},
			wantErr: "connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			_, err := NewS3Syncer(tt.client, "bucket", "", dir, testSpecs, nil).Sync(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
