package speech

import "context"

// Audio is one synthesized clip, ready to hand to a transport.
type Audio struct {
	Bytes []byte
	MIME  string
}

// Synthesizer defines the contract for any speech vendor implementation.
type Synthesizer interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Synthesize renders spoken audio for the given text.
	Synthesize(ctx context.Context, text string) (Audio, error)
}
