package account

import (
	"context"
	"errors"
	"fmt"
)

// ThemeKey is the storage key of the display theme.
const ThemeKey = "theme"

// Theme is the display preference.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// ErrInvalidTheme is returned for anything but light or dark.
var ErrInvalidTheme = errors.New("account: theme must be light or dark")

// Preferences keeps display settings in a Storage.
type Preferences struct {
	storage Storage
}

// NewPreferences returns Preferences over storage.
func NewPreferences(storage Storage) *Preferences {
	return &Preferences{storage: storage}
}

// Theme returns the stored theme, or fallback when none is stored or the
// stored value is unrecognised.
func (p *Preferences) Theme(ctx context.Context, fallback Theme) (Theme, error) {
	raw, err := p.storage.Get(ctx, ThemeKey)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return fallback, fmt.Errorf("account: load theme: %w", err)
	}

	switch t := Theme(raw); t {
	case Light, Dark:
		return t, nil
	default:
		return fallback, nil
	}
}

// SetTheme stores t.
func (p *Preferences) SetTheme(ctx context.Context, t Theme) error {
	if t != Light && t != Dark {
		return ErrInvalidTheme
	}
	return p.storage.Set(ctx, ThemeKey, []byte(t))
}
