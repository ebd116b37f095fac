package image

import "context"

// Image is one generated picture, ready to hand to a transport.
type Image struct {
	Bytes []byte
	MIME  string
}

// Generator defines the contract for any image vendor implementation.
type Generator interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Generate renders an image for a short cue such as a city name.
	Generate(ctx context.Context, cue string) (Image, error)
}
