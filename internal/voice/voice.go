// Package voice talks to the external text-to-speech provider.  Every
// call asks for exactly one utterance rendered as one generation.
package voice

import (
	"context"
	"errors"
)

// ErrNoAudio is returned when the provider answered without audio.
var ErrNoAudio = errors.New("voice: provider returned no audio")

// Audio is one synthesized clip.
type Audio struct {
	Data        []byte
	ContentType string
}

// Synthesizer renders text with a voice described in free text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceDescription string) (Audio, error)
}
