package mock

import (
	"context"
	"sync"

	"github.com/jetwayhq/jetway/pkg/adapters/image"
)

type ImageConfig struct {
	Bytes []byte
	MIME  string
	Err   error
}

// ImageGenerator is a deterministic image adapter for tests.
type ImageGenerator struct {
	cfg  ImageConfig
	mu   sync.Mutex
	cues []string
}

func NewImageGenerator(cfg ImageConfig) *ImageGenerator {
	if cfg.Bytes == nil {
		cfg.Bytes = []byte("mock-image")
	}
	if cfg.MIME == "" {
		cfg.MIME = "image/png"
	}
	return &ImageGenerator{cfg: cfg}
}

func (g *ImageGenerator) Name() string { return "mock_image" }

func (g *ImageGenerator) Generate(ctx context.Context, cue string) (image.Image, error) {
	g.mu.Lock()
	g.cues = append(g.cues, cue)
	g.mu.Unlock()

	if g.cfg.Err != nil {
		return image.Image{}, g.cfg.Err
	}
	return image.Image{Bytes: g.cfg.Bytes, MIME: g.cfg.MIME}, nil
}

// Cues returns every cue passed to Generate.
func (g *ImageGenerator) Cues() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.cues...)
}

var _ image.Generator = (*ImageGenerator)(nil)
