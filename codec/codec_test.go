package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testDoc struct {
	Name    string   `json:"name"`
	Keys    []int    `json:"keys"`
	Methods []string `json:"methods,omitempty"`
}

func TestByName(t *testing.T) {
	c, ok := ByName("json")
	require.True(t, ok)
	require.Equal(t, "json", c.Name())

	c, ok = ByName("go-json")
	require.True(t, ok)
	require.Equal(t, "go-json", c.Name())

	_, ok = ByName("msgpack")
	require.False(t, ok)
}

func TestCodecs_Interchangeable(t *testing.T) {
	doc := testDoc{
		Name:    "royalty",
		Keys:    []int{0, 1, 2, 255},
		Methods: []string{"offer(uint64,byte[])void"},
	}

	// Documents written by one codec must load with the other.
	stdOut, err := JSON{}.Marshal(doc)
	require.NoError(t, err)

	var viaGo testDoc
	require.NoError(t, GoJSON{}.Unmarshal(stdOut, &viaGo))
	require.Equal(t, doc, viaGo)

	goOut, err := GoJSON{}.Marshal(doc)
	require.NoError(t, err)

	var viaStd testDoc
	require.NoError(t, JSON{}.Unmarshal(goOut, &viaStd))
	require.Equal(t, doc, viaStd)
}

func TestGoJSON_Append(t *testing.T) {
	prefix := []byte("doc: ")
	out, err := GoJSON{}.Append(prefix, testDoc{Name: "x"})
	require.NoError(t, err)
	require.Equal(t, "doc: ", string(out[:5]))
	require.Contains(t, string(out), `"name":"x"`)
}

func TestMustMarshal(t *testing.T) {
	// nil codec falls back to the package default.
	out := MustMarshal(nil, testDoc{Name: "x"})
	require.Contains(t, string(out), `"name":"x"`)

	require.Panics(t, func() {
		MustMarshal(JSON{}, make(chan int))
	})
}
