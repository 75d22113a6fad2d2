package announce

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/playzone-reservation/internal/tts"
)

var ErrEmptyName = errors.New("customer name is empty")

// AudioCache is the part of the synthesis cache the service uses.
type AudioCache interface {
	GetOrSynthesize(ctx context.Context, scope tts.Scope, locale, text string) (string, error)
	HasLocale(locale string) bool
}

// Pickup is a rendered pickup announcement.  URLs and Texts are keyed by
// locale.
type Pickup struct {
	Name  string            `json:"name"`
	Texts map[string]string `json:"texts"`
	URLs  map[string]string `json:"urls"`
}

// Service produces announcement audio.
type Service struct {
	templates *TemplateStore
	cache     AudioCache
}

func NewService(templates *TemplateStore, cache AudioCache) *Service {
	return &Service{templates: templates, cache: cache}
}

// Templates returns the current templates.
func (s *Service) Templates(ctx context.Context) (Templates, error) {
	return s.templates.Load(ctx)
}

// SaveTemplates validates and stores t, then returns the merged result.
func (s *Service) SaveTemplates(ctx context.Context, t Templates) (Templates, error) {
	if err := s.templates.Save(ctx, t); err != nil {
		return nil, err
	}
	return s.templates.Load(ctx)
}

// PickupAudio renders the pickup announcement for name in every locale
// and resolves each to an audio URL.  Locales are synthesized in
// parallel; the first failure cancels the rest.
func (s *Service) PickupAudio(ctx context.Context, name string) (Pickup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Pickup{}, ErrEmptyName
	}
	tmpl, err := s.templates.Load(ctx)
	if err != nil {
		return Pickup{}, err
	}

	p := Pickup{
		Name:  name,
		Texts: make(map[string]string, len(Locales)),
		URLs:  make(map[string]string, len(Locales)),
	}
	for _, loc := range Locales {
		p.Texts[loc] = tmpl.Render(loc, name)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, loc := range Locales {
		loc := loc
		g.Go(func() error {
			url, err := s.cache.GetOrSynthesize(gctx, tts.ScopePickup, loc, p.Texts[loc])
			if err != nil {
				return err
			}
			mu.Lock()
			p.URLs[loc] = url
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Pickup{}, err
	}
	return p, nil
}

// Callout resolves an operator phrase to audio.  Callouts share the
// synthesis cache under their own scope.
func (s *Service) Callout(ctx context.Context, locale, text string) (string, error) {
	return s.cache.GetOrSynthesize(ctx, tts.ScopeCallout, locale, text)
}

// HasLocale reports whether callouts can be synthesized in locale.
func (s *Service) HasLocale(locale string) bool { return s.cache.HasLocale(locale) }
