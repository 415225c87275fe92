package prompt

import (
	"errors"
	"strings"

	"github.com/dmorgan81/imagine/internal/style"
)

// Separator joins the user's prompt and a style suffix.
const Separator = " , "

var ErrEmptyPrompt = errors.New("prompt is empty")

type Composed struct {
	Prompt         string
	NegativePrompt string
}

type Composer struct {
	catalog *style.Catalog
}

func NewComposer(catalog *style.Catalog) *Composer {
	return &Composer{catalog: catalog}
}

// Compose merges the user's prompt with a style preset. It has no side effects:
// identical inputs always produce identical output, and the trimmed user prompt
// always leads the result.
func (c *Composer) Compose(text, styleID, negative string) (Composed, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Composed{}, ErrEmptyPrompt
	}

	preset, ok := c.catalog.Lookup(styleID)
	out := Composed{Prompt: text, NegativePrompt: strings.TrimSpace(negative)}
	if !ok {
		return out, nil
	}
	if suffix := strings.TrimSpace(preset.Suffix); suffix != "" {
		out.Prompt = text + Separator + suffix
	}
	if out.NegativePrompt == "" {
		out.NegativePrompt = strings.TrimSpace(preset.NegativePrompt)
	}
	return out, nil
}
