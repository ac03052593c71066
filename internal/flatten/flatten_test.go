package flatten_test

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/saruyev/flexkit/internal/flatten"
)

func TestFlattenNestedDocument(t *testing.T) {
	t.Parallel()

	got := flatten.Flatten([]byte(`{"a":{"b":1},"c":[true,"x"]}`), "")

	want := map[string]string{
		"a:b": "1",
		"c:0": "true",
		"c:1": "x",
	}
	assert.Equal(t, want, got)
}

func TestFlattenWithPrefix(t *testing.T) {
	t.Parallel()

	got := flatten.Flatten([]byte(`{"host":"localhost","port":5432}`), "database")

	assert.Equal(t, map[string]string{
		"database:host": "localhost",
		"database:port": "5432",
	}, got)
}

func TestFlattenScalars(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string", `"hello"`, "hello"},
		{"integer", `42`, "42"},
		{"float keeps raw text", `3.1400`, "3.1400"},
		{"large number keeps raw text", `12345678901234567890`, "12345678901234567890"},
		{"bool true", `true`, "true"},
		{"bool false", `false`, "false"},
		{"null", `null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := flatten.Flatten([]byte(tt.raw), "key")
			assert.Equal(t, map[string]string{"key": tt.want}, got)
		})
	}
}

func TestFlattenInvalidJSONStoresVerbatim(t *testing.T) {
	t.Parallel()

	raw := "not json at {all"
	got := flatten.Flatten([]byte(raw), "secret")
	assert.Equal(t, map[string]string{"secret": raw}, got)
}

func TestFlattenTrailingGarbageStoresVerbatim(t *testing.T) {
	t.Parallel()

	raw := `{"a":1} extra`
	got := flatten.Flatten([]byte(raw), "secret")
	assert.Equal(t, map[string]string{"secret": raw}, got)
}

func TestFlattenDeterministic(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"z":1,"a":{"m":[1,2,3],"b":"x"},"k":null}`)
	first := flatten.Flatten(raw, "p")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, flatten.Flatten(raw, "p"))
	}
}

func TestIsJSON(t *testing.T) {
	t.Parallel()

	assert.True(t, flatten.IsJSON([]byte(`{"a":1}`)))
	assert.True(t, flatten.IsJSON([]byte(` [1,2] `)))
	assert.False(t, flatten.IsJSON([]byte(`42`)))
	assert.False(t, flatten.IsJSON([]byte(`"quoted"`)))
	assert.False(t, flatten.IsJSON([]byte(`plain-password`)))
	assert.False(t, flatten.IsJSON([]byte(`{"a":`)))
	assert.False(t, flatten.IsJSON(nil))
}

// TestFlattenRoundTrip checks that flattening then re-nesting by delimiter
// split reconstructs an equivalent value tree. Leaves are restricted to
// strings so equality is exact rather than modulo number formatting.
func TestFlattenRoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		doc := genObject(3).Draw(t, "doc")
		raw, err := json.Marshal(doc)
		require.NoError(t, err)

		flat := flatten.Flatten(raw, "")
		assert.Equal(t, map[string]interface{}(doc), renest(flat))
	})
}

var genKey = rapid.StringMatching(`[a-z][a-z0-9]{0,5}`)

var genLeaf = rapid.StringMatching(`[ -~]{0,12}`).AsAny()

func genNode(depth int) *rapid.Generator[interface{}] {
	if depth <= 0 {
		return genLeaf
	}
	return rapid.OneOf(
		genLeaf,
		genObject(depth-1).AsAny(),
		rapid.SliceOfN(genNode(depth-1), 1, 4).AsAny(),
	)
}

func genObject(depth int) *rapid.Generator[map[string]interface{}] {
	return rapid.MapOfN(genKey, genNode(depth), 1, 4)
}

// renest splits flat keys on the delimiter and rebuilds the value tree,
// converting contiguous zero-based numeric children back into arrays.
func renest(flat map[string]string) interface{} {
	root := make(map[string]interface{})
	for key, value := range flat {
		segments := strings.Split(key, ":")
		node := root
		for _, seg := range segments[:len(segments)-1] {
			child, ok := node[seg].(map[string]interface{})
			if !ok {
				child = make(map[string]interface{})
				node[seg] = child
			}
			node = child
		}
		node[segments[len(segments)-1]] = value
	}
	return liftArrays(root)
}

func liftArrays(node interface{}) interface{} {
	m, ok := node.(map[string]interface{})
	if !ok {
		return node
	}
	for k, v := range m {
		m[k] = liftArrays(v)
	}
	if arr, ok := asArray(m); ok {
		return arr
	}
	return m
}

func asArray(m map[string]interface{}) ([]interface{}, bool) {
	if len(m) == 0 {
		return nil, false
	}
	arr := make([]interface{}, len(m))
	for k, v := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(m) {
			return nil, false
		}
		arr[i] = v
	}
	return arr, true
}
