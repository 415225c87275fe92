package style

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

type Preset struct {
	ID             string `json:"id" yaml:"id"`
	Label          string `json:"label" yaml:"label"`
	Suffix         string `json:"suffix" yaml:"suffix"`
	NegativePrompt string `json:"negative_prompt,omitempty" yaml:"negative_prompt,omitempty"`
}

// Catalog is read-only once built. Lookups are case-insensitive on the id.
type Catalog struct {
	presets []Preset
	byID    map[string]int
}

func NewCatalog(presets ...Preset) (*Catalog, error) {
	c := &Catalog{
		presets: make([]Preset, 0, len(presets)),
		byID:    make(map[string]int, len(presets)),
	}
	for _, p := range presets {
		key := normalize(p.ID)
		if key == "" {
			return nil, fmt.Errorf("style preset %q has an empty id", p.Label)
		}
		if _, ok := c.byID[key]; ok {
			return nil, fmt.Errorf("duplicate style preset id %q", p.ID)
		}
		p.ID = key
		p.Label = lo.Ternary(p.Label != "", p.Label, p.ID)
		c.byID[key] = len(c.presets)
		c.presets = append(c.presets, p)
	}
	return c, nil
}

func (c *Catalog) Lookup(id string) (Preset, bool) {
	if c == nil {
		return Preset{}, false
	}
	idx, ok := c.byID[normalize(id)]
	if !ok {
		return Preset{}, false
	}
	return c.presets[idx], true
}

// List returns the presets in the order they were registered.
func (c *Catalog) List() []Preset {
	if c == nil {
		return nil
	}
	return append([]Preset(nil), c.presets...)
}

func normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
