package watchface

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/sunwatch/internal/adapters/transport"
	"github.com/okian/sunwatch/internal/domain/model"
)

// ErrInvalidPalette reports a palette update that cannot be applied.
var ErrInvalidPalette = errors.New("invalid palette")

// Default color names; ambient mode always draws with these.
const (
	DefaultBackground = "Black"
	DefaultHours      = "White"
	DefaultMinutes    = "White"
	DefaultSeconds    = "Gray"
)

// Palette is the set of colors the face is drawn with.
type Palette struct {
	Background string `json:"background"`
	Hours      string `json:"hours"`
	Minutes    string `json:"minutes"`
	Seconds    string `json:"seconds"`
}

// DefaultPalette returns the interactive defaults, which are also the
// ambient colors.
func DefaultPalette() Palette {
	return Palette{
		Background: DefaultBackground,
		Hours:      DefaultHours,
		Minutes:    DefaultMinutes,
		Seconds:    DefaultSeconds,
	}
}

// Merge overrides p with every valid color present in f. Keys that are
// missing or hold an unusable color keep their current value; their names
// are returned as rejected.
func (p Palette) Merge(f model.Fields) (Palette, []string) {
	var rejected []string
	set := func(key string, dst *string) {
		v, ok := f[key]
		if !ok {
			return
		}
		s, ok := v.(string)
		if !ok || !IsColor(s) {
			rejected = append(rejected, key)
			return
		}
		*dst = s
	}
	set(model.KeyBackgroundColor, &p.Background)
	set(model.KeyHoursColor, &p.Hours)
	set(model.KeyMinutesColor, &p.Minutes)
	set(model.KeySecondsColor, &p.Seconds)
	return p, rejected
}

// Fields encodes p for the palette path.
func (p Palette) Fields() model.Fields {
	return model.Fields{
		model.KeyBackgroundColor: p.Background,
		model.KeyHoursColor:      p.Hours,
		model.KeyMinutesColor:    p.Minutes,
		model.KeySecondsColor:    p.Seconds,
	}
}

// PaletteUpdate is a partial palette change; empty fields are left alone.
type PaletteUpdate struct {
	Background string `json:"background,omitempty" validate:"omitempty,watchcolor"`
	Hours      string `json:"hours,omitempty" validate:"omitempty,watchcolor"`
	Minutes    string `json:"minutes,omitempty" validate:"omitempty,watchcolor"`
	Seconds    string `json:"seconds,omitempty" validate:"omitempty,watchcolor"`
}

// Validate checks that every set field names a usable color and that at
// least one field is set.
func (u PaletteUpdate) Validate() error {
	if u == (PaletteUpdate{}) {
		return fmt.Errorf("%w: no colors given", ErrInvalidPalette)
	}
	if err := validate.Struct(u); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s: %q is not a color", ErrInvalidPalette, strings.ToLower(fe.Field()), fe.Value())
		}
		return fmt.Errorf("%w: %w", ErrInvalidPalette, err)
	}
	return nil
}

// Fields returns only the keys u sets.
func (u PaletteUpdate) Fields() model.Fields {
	f := model.Fields{}
	put := func(key, v string) {
		if v != "" {
			f[key] = v
		}
	}
	put(model.KeyBackgroundColor, u.Background)
	put(model.KeyHoursColor, u.Hours)
	put(model.KeyMinutesColor, u.Minutes)
	put(model.KeySecondsColor, u.Seconds)
	return f
}

// OverwritePalette fetches the current palette item, overwrites the keys in
// u and publishes the result. Keys u leaves empty keep their current value.
// If no palette item exists yet, one is created.
func OverwritePalette(ctx context.Context, t transport.Transport, u PaletteUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}

	merged := model.Fields{}
	cur, err := t.Fetch(ctx, model.PathPalette)
	switch {
	case err == nil:
		merged = cur.Fields.Clone()
	case errors.Is(err, transport.ErrNotFound):
	default:
		return fmt.Errorf("fetch palette: %w", err)
	}
	for k, v := range u.Fields() {
		merged[k] = v
	}

	select {
	case r := <-t.Publish(ctx, model.PathPalette, merged):
		return r.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// colorNames are the names the watch's color parser understands.
var colorNames = map[string]struct{}{
	"black": {}, "darkgray": {}, "darkgrey": {}, "gray": {}, "grey": {},
	"lightgray": {}, "lightgrey": {}, "white": {}, "red": {}, "green": {},
	"blue": {}, "yellow": {}, "cyan": {}, "magenta": {}, "aqua": {},
	"fuchsia": {}, "lime": {}, "maroon": {}, "navy": {}, "olive": {},
	"purple": {}, "silver": {}, "teal": {},
}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// IsColor reports whether s is a known color name (any case) or #RRGGBB /
// #AARRGGBB.
func IsColor(s string) bool {
	if hexColor.MatchString(s) {
		return true
	}
	_, ok := colorNames[strings.ToLower(s)]
	return ok
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("watchcolor", func(fl validator.FieldLevel) bool {
		return IsColor(fl.Field().String())
	})
	return v
}
