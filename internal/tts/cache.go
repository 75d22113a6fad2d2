// Package tts implements the content-addressable synthesis cache that
// sits in front of the paid voice provider.
//
// For a fixed (scope, locale, text) exactly one audio URL exists in
// steady state.  Concurrent callers in one process share a single
// provider call; callers in different processes converge through the
// create-only object store and the insert-or-ignore cache table.
package tts

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/playzone-reservation/internal/logging"
	"github.com/iliyamo/playzone-reservation/internal/metrics"
	"github.com/iliyamo/playzone-reservation/internal/storage"
	"github.com/iliyamo/playzone-reservation/internal/voice"
)

var (
	// ErrSynthesisFailed covers provider errors, timeouts and empty audio.
	// It is retryable.
	ErrSynthesisFailed = errors.New("speech synthesis failed")
	// ErrStoreUnavailable wraps cache table and object storage failures.
	ErrStoreUnavailable = errors.New("synthesis cache store unavailable")
	ErrEmptyText        = errors.New("announcement text is empty")
	ErrTextTooLong      = fmt.Errorf("announcement text exceeds %d characters", MaxTextRunes)
	ErrUnknownLocale    = errors.New("no voice configured for locale")
)

// Table is the durable key → URL mapping.
type Table interface {
	Lookup(ctx context.Context, key string) (string, bool, error)
	InsertIgnore(ctx context.Context, key, url string) error
}

// HotCache is an optional fast layer in front of Table.
type HotCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, url string) error
}

// Options configures a Cache.
type Options struct {
	// Voices maps locale to voice description.
	Voices map[string]string
	// Timeout bounds one provider call.
	Timeout time.Duration
	// Ext is the object file extension, e.g. "mp3".
	Ext string
}

// Cache resolves announcement text to a durable audio URL.
type Cache struct {
	table Table
	hot   HotCache
	store storage.Store
	synth voice.Synthesizer
	opts  Options
	group singleflight.Group
}

// New returns a Cache.  hot may be nil.
func New(table Table, hot HotCache, store storage.Store, synth voice.Synthesizer, opts Options) *Cache {
	if opts.Ext == "" {
		opts.Ext = "mp3"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Cache{table: table, hot: hot, store: store, synth: synth, opts: opts}
}

// HasLocale reports whether a voice is configured for locale.
func (c *Cache) HasLocale(locale string) bool {
	_, ok := c.opts.Voices[locale]
	return ok
}

// GetOrSynthesize returns the URL of the audio for text in locale,
// synthesizing and storing it on a cache miss.
func (c *Cache) GetOrSynthesize(ctx context.Context, scope Scope, locale, text string) (string, error) {
	normalized := NormalizeText(text)
	if normalized == "" {
		return "", ErrEmptyText
	}
	if utf8.RuneCountInString(normalized) > MaxTextRunes {
		return "", ErrTextTooLong
	}
	voiceDesc, ok := c.opts.Voices[locale]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLocale, locale)
	}
	key := CacheKey(scope, locale, normalized)
	log := logging.FromContext(ctx).WithFields(logrus.Fields{"scope": scope, "locale": locale})

	if url, ok, err := c.lookup(ctx, log, key); err != nil {
		return "", err
	} else if ok {
		return url, nil
	}

	// One provider call per key per process; a caller's cancellation
	// must not fail the others sharing the flight.
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := c.group.Do(key, func() (any, error) {
		return c.fill(flightCtx, log, scope, locale, key, normalized, voiceDesc)
	})
	if err != nil {
		return "", err
	}
	if shared {
		log.Debug("joined in-flight synthesis")
	}
	return v.(string), nil
}

func (c *Cache) lookup(ctx context.Context, log *logrus.Entry, key string) (string, bool, error) {
	if c.hot != nil {
		url, ok, err := c.hot.Get(ctx, key)
		if err != nil {
			log.WithError(err).Warn("hot cache read failed; falling back to table")
		} else if ok {
			metrics.TTSCacheHits.WithLabelValues("redis").Inc()
			return url, true, nil
		}
	}
	url, ok, err := c.table.Lookup(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("%w: lookup: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return "", false, nil
	}
	metrics.TTSCacheHits.WithLabelValues("table").Inc()
	c.remember(ctx, log, key, url)
	return url, true, nil
}

func (c *Cache) fill(ctx context.Context, log *logrus.Entry, scope Scope, locale, key, text, voiceDesc string) (string, error) {
	// A flight that finished just before this one began may already have
	// written the row.
	if url, ok, err := c.lookup(ctx, log, key); err != nil {
		return "", err
	} else if ok {
		return url, nil
	}

	path := ObjectPath(scope, locale, key, c.opts.Ext)

	// Another process may have uploaded the object without recording it
	// yet; reuse it instead of paying for a second synthesis.
	exists, err := c.store.Exists(ctx, path)
	if err != nil {
		return "", fmt.Errorf("%w: exists: %v", ErrStoreUnavailable, err)
	}

	var url string
	if exists {
		url, err = c.store.URL(ctx, path)
		if err != nil {
			return "", fmt.Errorf("%w: url: %v", ErrStoreUnavailable, err)
		}
	} else {
		url, err = c.synthesizeAndUpload(ctx, log, path, text, voiceDesc)
		if err != nil {
			return "", err
		}
	}

	if err := c.table.InsertIgnore(ctx, key, url); err != nil {
		return "", fmt.Errorf("%w: insert: %v", ErrStoreUnavailable, err)
	}
	// Converge on whatever the first writer recorded.
	if stored, ok, err := c.table.Lookup(ctx, key); err == nil && ok {
		url = stored
	}
	c.remember(ctx, log, key, url)
	return url, nil
}

func (c *Cache) synthesizeAndUpload(ctx context.Context, log *logrus.Entry, path, text, voiceDesc string) (string, error) {
	sctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	audio, err := c.synth.Synthesize(sctx, text, voiceDesc)
	cancel()
	if err == nil && len(audio.Data) == 0 {
		err = voice.ErrNoAudio
	}
	if err != nil {
		metrics.TTSSynthesis.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	metrics.TTSSynthesis.WithLabelValues("ok").Inc()
	log.WithField("bytes", len(audio.Data)).Info("synthesized announcement audio")

	url, err := c.store.Put(ctx, path, audio.Data, audio.ContentType)
	if errors.Is(err, storage.ErrAlreadyExists) {
		log.WithField("path", path).Info("audio object created concurrently; reusing it")
		url, err = c.store.URL(ctx, path)
	}
	if err != nil {
		return "", fmt.Errorf("%w: upload: %v", ErrStoreUnavailable, err)
	}
	return url, nil
}

func (c *Cache) remember(ctx context.Context, log *logrus.Entry, key, url string) {
	if c.hot == nil {
		return
	}
	if err := c.hot.Set(ctx, key, url); err != nil {
		log.WithError(err).Debug("hot cache write failed")
	}
}
