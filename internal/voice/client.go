package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iliyamo/playzone-reservation/internal/config"
)

// Client calls an HTTP text-to-speech endpoint that accepts a list of
// utterances with voice descriptions and returns base64 audio
// generations.
type Client struct {
	url    string
	apiKey string
	format string
	http   *http.Client
}

// NewClient returns a Client for cfg.  The HTTP timeout is a backstop;
// callers bound each call with cfg.Timeout through the context.
func NewClient(cfg config.TTSConfig) *Client {
	return &Client{
		url:    cfg.APIURL,
		apiKey: cfg.APIKey,
		format: cfg.Format,
		http:   &http.Client{Timeout: cfg.Timeout + 5*time.Second},
	}
}

type utterance struct {
	Text        string `json:"text"`
	Description string `json:"description,omitempty"`
}

type synthRequest struct {
	Utterances     []utterance       `json:"utterances"`
	Format         map[string]string `json:"format"`
	NumGenerations int               `json:"num_generations"`
}

type synthResponse struct {
	Generations []struct {
		GenerationID string  `json:"generation_id"`
		Duration     float64 `json:"duration"`
		Audio        string  `json:"audio"`
	} `json:"generations"`
}

func (c *Client) Synthesize(ctx context.Context, text, voiceDescription string) (Audio, error) {
	body, err := json.Marshal(synthRequest{
		Utterances:     []utterance{{Text: text, Description: voiceDescription}},
		Format:         map[string]string{"type": c.format},
		NumGenerations: 1,
	})
	if err != nil {
		return Audio{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Audio{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hume-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Audio{}, fmt.Errorf("voice: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Audio{}, fmt.Errorf("voice: unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out synthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Audio{}, fmt.Errorf("voice: decode response: %w", err)
	}
	if len(out.Generations) == 0 || out.Generations[0].Audio == "" {
		return Audio{}, ErrNoAudio
	}
	data, err := base64.StdEncoding.DecodeString(out.Generations[0].Audio)
	if err != nil {
		return Audio{}, fmt.Errorf("voice: decode audio: %w", err)
	}
	if len(data) == 0 {
		return Audio{}, ErrNoAudio
	}
	return Audio{Data: data, ContentType: contentType(c.format)}, nil
}

func contentType(format string) string {
	switch format {
	case "wav":
		return "audio/wav"
	case "pcm":
		return "audio/L16"
	default:
		return "audio/mpeg"
	}
}
