package generate

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
)

type Request struct {
	Prompt         string
	StyleID        string
	NegativePrompt string
	Width          int
	Height         int
	// Reference is passed through to the endpoint untouched.
	Reference []byte
	// Seed must be set explicitly for reproducible output.
	Seed *int64
}

func (r Request) Summary() string {
	p := r.Prompt
	if utf8.RuneCountInString(p) > 80 {
		p = string([]rune(p)[:80]) + "…"
	}
	return fmt.Sprintf("%q style=%s size=%dx%d", p, lo.Ternary(r.StyleID != "", r.StyleID, "none"), r.Width, r.Height)
}

type Result struct {
	Image          []byte
	ContentType    string
	Format         string
	Model          string
	Prompt         string
	NegativePrompt string
	StyleID        string
	Width          int
	Height         int
	Seed           *int64
	Elapsed        time.Duration
	Attempts       int
}
