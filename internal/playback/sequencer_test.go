package playback

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	kind string
	url  string
}

type recordingPlayer struct {
	mu     sync.Mutex
	events []event
	fail   map[string]error
	delay  time.Duration
	block  bool
}

func (p *recordingPlayer) Play(ctx context.Context, url string) error {
	p.record("start", url)
	defer p.record("end", url)
	if p.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	return p.fail[url]
}

func (p *recordingPlayer) record(kind, url string) {
	p.mu.Lock()
	p.events = append(p.events, event{kind, url})
	p.mu.Unlock()
}

func TestPlayAllSequential_Order(t *testing.T) {
	p := &recordingPlayer{delay: 5 * time.Millisecond}
	s := NewSequencer(p)

	require.NoError(t, s.PlayAllSequential(context.Background(), []string{"en.mp3", "ar.mp3"}))
	assert.Equal(t, []event{
		{"start", "en.mp3"}, {"end", "en.mp3"},
		{"start", "ar.mp3"}, {"end", "ar.mp3"},
	}, p.events)
	assert.Equal(t, Done, s.State())
}

func TestPlayAllSequential_FirstClipErrorAbortsQueue(t *testing.T) {
	p := &recordingPlayer{fail: map[string]error{"en.mp3": errors.New("decoder error")}}
	s := NewSequencer(p)

	err := s.PlayAllSequential(context.Background(), []string{"en.mp3", "ar.mp3"})
	assert.ErrorIs(t, err, ErrPlaybackFailed)
	assert.Equal(t, []event{{"start", "en.mp3"}, {"end", "en.mp3"}}, p.events)
	assert.Equal(t, Failed, s.State())
}

func TestPlayAllSequential_SecondClipError(t *testing.T) {
	p := &recordingPlayer{fail: map[string]error{"ar.mp3": errors.New("404")}}
	s := NewSequencer(p)

	err := s.PlayAllSequential(context.Background(), []string{"en.mp3", "ar.mp3"})
	assert.ErrorIs(t, err, ErrPlaybackFailed)
	assert.ErrorContains(t, err, "clip 2")
	assert.Len(t, p.events, 4)
}

func TestPlayAllSequential_CancelStopsAudio(t *testing.T) {
	p := &recordingPlayer{block: true}
	s := NewSequencer(p)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.PlayAllSequential(ctx, []string{"en.mp3", "ar.mp3"}) }()

	require.Eventually(t, func() bool { return s.State() == PlayingFirst }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrPlaybackFailed)
	case <-time.After(time.Second):
		t.Fatal("playback did not stop after cancel")
	}
	assert.Equal(t, []event{{"start", "en.mp3"}, {"end", "en.mp3"}}, p.events)
}

func TestPlayAllSequential_EmptyQueue(t *testing.T) {
	s := NewSequencer(&recordingPlayer{})
	require.NoError(t, s.PlayAllSequential(context.Background(), nil))
	assert.Equal(t, Done, s.State())
}

func TestExecPlayer(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX utilities")
	}
	ok, err := NewExecPlayer("true")
	require.NoError(t, err)
	assert.NoError(t, ok.Play(context.Background(), "https://cdn.test/a.mp3"))

	bad, err := NewExecPlayer("false")
	require.NoError(t, err)
	assert.Error(t, bad.Play(context.Background(), "https://cdn.test/a.mp3"))

	_, err = NewExecPlayer("   ")
	assert.Error(t, err)
}
