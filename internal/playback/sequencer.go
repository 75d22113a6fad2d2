// Package playback plays announcement clips one after another.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/iliyamo/playzone-reservation/internal/logging"
)

var ErrPlaybackFailed = errors.New("playback failed")

// Player plays a single clip to completion.  Play must return promptly
// once ctx is cancelled.
type Player interface {
	Play(ctx context.Context, url string) error
}

// State is the sequencer's position in a run.
type State int

const (
	Idle State = iota
	PlayingFirst
	PlayingSecond
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PlayingFirst:
		return "playing_first"
	case PlayingSecond:
		return "playing_second"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Sequencer runs a Player over a list of clips.  One run at a time.
type Sequencer struct {
	player Player

	runMu sync.Mutex
	mu    sync.Mutex
	state State
}

func NewSequencer(player Player) *Sequencer {
	return &Sequencer{player: player}
}

// State returns the state of the current or most recent run.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sequencer) set(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// PlayAllSequential plays urls in order, each to completion before the
// next starts.  The first error aborts the rest and is returned wrapped
// in ErrPlaybackFailed.  No retries happen here.
func (s *Sequencer) PlayAllSequential(ctx context.Context, urls []string) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	log := logging.FromContext(ctx)
	s.set(Idle)
	for i, url := range urls {
		s.set(playingState(i))
		if err := ctx.Err(); err != nil {
			s.set(Failed)
			return fmt.Errorf("%w: clip %d not started: %v", ErrPlaybackFailed, i+1, err)
		}
		if err := s.player.Play(ctx, url); err != nil {
			s.set(Failed)
			log.WithError(err).WithField("clip", i+1).Warn("clip failed; aborting queue")
			return fmt.Errorf("%w: clip %d: %v", ErrPlaybackFailed, i+1, err)
		}
	}
	s.set(Done)
	return nil
}

func playingState(i int) State {
	if i == 0 {
		return PlayingFirst
	}
	return PlayingSecond
}
