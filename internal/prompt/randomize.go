package prompt

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/dmorgan81/imagine/internal/log"
	"github.com/samber/do"
	"github.com/samber/lo"
)

// Inspiration is used when no prompt list is configured.
var Inspiration = []string{
	"A cyberpunk city at sunset with neon lights reflecting on wet streets",
	"A magical forest with glowing mushrooms and floating fireflies, fantasy art",
	"A cute robot reading a book in a cozy library, digital art",
	"An astronaut riding a horse on Mars, cinematic lighting",
	"A steampunk airship flying over snowy mountains at dawn",
	"A cat wearing a wizard hat casting sparkly spells, whimsical art",
	"A futuristic sports car racing through a neon tunnel, cyberpunk style",
	"A cozy treehouse in autumn with warm golden lighting, studio ghibli style",
	"A friendly dragon sleeping on a pile of ancient books, fantasy illustration",
	"An underwater city with bioluminescent plants and glass domes",
	"A phoenix rising from flames against a starry night sky, epic art",
	"A samurai standing in a field of cherry blossoms, dramatic lighting",
	"A floating island with waterfalls and ancient ruins, fantasy landscape",
	"A friendly ghost serving tea in a haunted Victorian mansion",
	"A cosmic whale swimming through a nebula filled with stars",
}

var errNoPrompts = errors.New("no prompts to choose from")

type Randomizer struct {
	prompts []string
	rnd     *rand.Rand
}

func NewRandomizer(i *do.Injector) (*Randomizer, error) {
	prompts := do.MustInvokeNamed[[]string](i, "prompts")
	rnd := rand.New(rand.NewSource(time.Now().UTC().UnixNano()))
	return NewRandomizerWithSource(prompts, rnd), nil
}

func NewRandomizerWithSource(prompts []string, rnd *rand.Rand) *Randomizer {
	prompts = lo.Filter(lo.Map(prompts, func(p string, _ int) string {
		return strings.TrimSpace(p)
	}), func(p string, _ int) bool {
		return p != ""
	})
	return &Randomizer{
		prompts: lo.Ternary(len(prompts) > 0, prompts, Inspiration),
		rnd:     rnd,
	}
}

func (r *Randomizer) Randomize(ctx context.Context) (string, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("randomizer")
	log.Info("picking random prompt", "choices", len(r.prompts))
	if len(r.prompts) == 0 {
		return "", errNoPrompts
	}
	return r.prompts[r.rnd.Intn(len(r.prompts))], nil
}
