package knowledge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueJSONKeepsOrder(t *testing.T) {
	doc := `{"zeta":1,"alpha":{"b":[1,2.5,"x",true,null],"a":"y"},"mid":[]}`

	var v Value
	require.NoError(t, json.Unmarshal([]byte(doc), &v))

	require.Equal(t, KindMap, v.Kind())
	keys := []string{}
	for _, f := range v.Fields() {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, keys)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(out))
	assert.Equal(t, doc, string(out))
}

func TestValueAccessors(t *testing.T) {
	v := Map(
		F("name", String("NovaCRM")),
		F("price", Number(25)),
		F("tags", List(String("a"), String("b"), String("c"), String("d"))),
		F("live", Bool(true)),
	)

	name, ok := v.Get("name")
	require.True(t, ok)
	assert.Equal(t, "NovaCRM", name.Str())

	_, ok = v.Get("missing")
	assert.False(t, ok)

	price, _ := v.Get("price")
	assert.Equal(t, "25", price.Text())
	assert.Equal(t, 4, v.Len())
	assert.True(t, price.IsLeaf())
	assert.Equal(t, "{name: NovaCRM, price: 25, tags: [a, b, c], live: true}", v.Compact(3))
	assert.Equal(t, "{name: NovaCRM, price: 25, tags: [a, b, c, d], live: true}", v.Compact(0))
}

func TestValueNumberKeepsSourceSpelling(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`[2015, 0.50, 1e3]`), &v))
	items := v.Items()
	assert.Equal(t, "2015", items[0].Text())
	assert.Equal(t, "0.50", items[1].Text())
	assert.Equal(t, 1000.0, items[2].Num())
}

func TestValueRejectsInvalidJSON(t *testing.T) {
	var v Value
	assert.Error(t, v.UnmarshalJSON([]byte(`{"a":`)))
	assert.Error(t, v.UnmarshalJSON([]byte(`{} {}`)))
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(map[string]any{"b": 1, "a": []string{"x"}})
	require.NoError(t, err)
	require.Equal(t, 2, v.Len())
	assert.Equal(t, "a", v.Fields()[0].Key)
}
