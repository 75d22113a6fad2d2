package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ExecPlayer plays a clip by running an external command with the URL as
// its last argument, e.g. "mpg123 -q".
type ExecPlayer struct {
	name string
	args []string
}

// NewExecPlayer parses a whitespace-separated command line.
func NewExecPlayer(cmdline string) (*ExecPlayer, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return nil, errors.New("player command is empty")
	}
	if _, err := exec.LookPath(fields[0]); err != nil {
		return nil, fmt.Errorf("player %q: %w", fields[0], err)
	}
	return &ExecPlayer{name: fields[0], args: fields[1:]}, nil
}

// Play runs the command and waits for it.  Cancelling ctx kills the
// process, which stops the audio.
func (p *ExecPlayer) Play(ctx context.Context, url string) error {
	args := append(append([]string(nil), p.args...), url)
	cmd := exec.CommandContext(ctx, p.name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", p.name, err, msg)
		}
		return fmt.Errorf("%s: %w", p.name, err)
	}
	return nil
}
