// Package announce renders pickup announcements from operator templates
// and resolves them to audio through the synthesis cache.
package announce

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Placeholder is replaced by the customer's display name.
const Placeholder = "{name}"

// Embedded defaults used while a locale has no stored template.
const (
	DefaultTemplateEN = "{name} is ready for pickup"
	DefaultTemplateAR = "{name} جاهز للاستلام"
)

// Locales lists the announcement locales in playback order.
var Locales = []string{"en", "ar"}

var defaults = map[string]string{
	"en": DefaultTemplateEN,
	"ar": DefaultTemplateAR,
}

var ErrInvalidTemplate = errors.New("invalid announcement template")

// Settings is the key/value store templates live in.
type Settings interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Templates maps locale to template text.
type Templates map[string]string

// Render substitutes name into the template for locale.
func (t Templates) Render(locale, name string) string {
	return strings.ReplaceAll(t[locale], Placeholder, strings.TrimSpace(name))
}

// TemplateStore reads and writes announcement templates.
type TemplateStore struct {
	settings Settings
}

func NewTemplateStore(settings Settings) *TemplateStore {
	return &TemplateStore{settings: settings}
}

func settingKey(locale string) string { return "announce.template." + locale }

// Load returns the template for every locale, falling back to the
// embedded default when a locale is unset or blank.
func (s *TemplateStore) Load(ctx context.Context) (Templates, error) {
	out := make(Templates, len(Locales))
	for _, loc := range Locales {
		v, ok, err := s.settings.Get(ctx, settingKey(loc))
		if err != nil {
			return nil, fmt.Errorf("load %s template: %w", loc, err)
		}
		if !ok || strings.TrimSpace(v) == "" {
			v = defaults[loc]
		}
		out[loc] = v
	}
	return out, nil
}

// Save stores the given templates.  Locales missing from t are left
// untouched.  Every template must contain the name placeholder.
func (s *TemplateStore) Save(ctx context.Context, t Templates) error {
	for loc, v := range t {
		if _, ok := defaults[loc]; !ok {
			return fmt.Errorf("%w: unknown locale %q", ErrInvalidTemplate, loc)
		}
		if !strings.Contains(v, Placeholder) {
			return fmt.Errorf("%w: %s template must contain %s", ErrInvalidTemplate, loc, Placeholder)
		}
	}
	for _, loc := range Locales {
		v, ok := t[loc]
		if !ok {
			continue
		}
		if err := s.settings.Set(ctx, settingKey(loc), strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("save %s template: %w", loc, err)
		}
	}
	return nil
}
