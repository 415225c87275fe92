package style

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog(t *testing.T) {
	t.Run("rejects empty id", func(t *testing.T) {
		_, err := NewCatalog(Preset{Label: "Nameless"})
		assert.Error(t, err)
	})

	t.Run("rejects duplicate ids regardless of case", func(t *testing.T) {
		_, err := NewCatalog(Preset{ID: "anime"}, Preset{ID: " Anime "})
		assert.ErrorContains(t, err, "duplicate")
	})

	t.Run("label defaults to id", func(t *testing.T) {
		c, err := NewCatalog(Preset{ID: "sketch", Suffix: "pencil sketch"})
		require.NoError(t, err)
		p, ok := c.Lookup("sketch")
		require.True(t, ok)
		assert.Equal(t, "sketch", p.Label)
	})
}

func TestCatalog_Lookup(t *testing.T) {
	c := DefaultCatalog()

	p, ok := c.Lookup("ANIME")
	require.True(t, ok)
	assert.Equal(t, "anime", p.ID)
	assert.Contains(t, p.Suffix, "Studio Ghibli")

	_, ok = c.Lookup("vaporwave")
	assert.False(t, ok)

	var nilCatalog *Catalog
	_, ok = nilCatalog.Lookup("anime")
	assert.False(t, ok)
}

func TestCatalog_ListKeepsOrderAndIsACopy(t *testing.T) {
	c := DefaultCatalog()
	ids := lo.Map(c.List(), func(p Preset, _ int) string { return p.ID })
	assert.Equal(t, []string{
		"none", "anime", "realistic", "digital-art", "watercolor", "oil-painting", "cyberpunk", "fantasy",
	}, ids)

	list := c.List()
	list[0].Suffix = "mutated"
	p, _ := c.Lookup("none")
	assert.Empty(t, p.Suffix)
}
