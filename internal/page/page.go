package page

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"sync"

	"github.com/dmorgan81/imagine/internal/config"
	"github.com/dmorgan81/imagine/internal/log"
	"github.com/samber/do"
)

//go:embed assets/result.html
var resultTmpl string

type Params struct {
	Title          string
	Image          string
	Prompt         string
	NegativePrompt string
	Style          string
	Model          string
	Seed           string
	Size           string
	Created        string
}

type Templator struct {
	title string
	tmpl  *template.Template
	once  sync.Once
}

func NewTemplator(i *do.Injector) (*Templator, error) {
	return &Templator{title: do.MustInvoke[*config.Config](i).Publish.Title}, nil
}

func (g *Templator) Template(ctx context.Context, params Params) ([]byte, error) {
	g.once.Do(func() {
		g.tmpl = template.Must(template.New("result").Parse(resultTmpl))
	})
	if params.Title == "" {
		params.Title = g.title
	}

	log := log.FromContextOrDiscard(ctx).WithGroup("templator")
	log.Info("generating page", "image", params.Image)

	var data bytes.Buffer
	if err := g.tmpl.Execute(&data, params); err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}
