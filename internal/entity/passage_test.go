package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocator_JSON(t *testing.T) {
	data, err := json.Marshal([]Source{
		{Source: "book.pdf", Page: PageLocator(12)},
		{Source: "book.pdf"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"source":"book.pdf","page":12},{"source":"book.pdf","page":"unknown"}]`, string(data))

	var decoded []Source
	require.NoError(t, json.Unmarshal([]byte(`[{"source":"a","page":7},{"source":"b","page":"9"},{"source":"c","page":"unknown"}]`), &decoded))
	assert.Equal(t, PageLocator(7), decoded[0].Page)
	assert.Equal(t, PageLocator(9), decoded[1].Page)
	assert.Equal(t, Locator{}, decoded[2].Page)
}

func TestLocator_String(t *testing.T) {
	assert.Equal(t, "0", PageLocator(0).String())
	assert.Equal(t, "unknown", Locator{}.String())
}

func TestPassage_Citation(t *testing.T) {
	p := Passage{Text: "t", Source: "book.pdf", Locator: PageLocator(45)}
	assert.Equal(t, Source{Source: "book.pdf", Page: PageLocator(45)}, p.Citation())
}
