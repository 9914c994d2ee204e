package watchface

import (
	"fmt"
	"time"

	"github.com/okian/sunwatch/internal/domain/display"
	"github.com/okian/sunwatch/internal/domain/icon"
)

// DateLayout is how the date line is drawn, e.g. "Wed, 14 Oct 2026".
const DateLayout = "Mon, 02 Jan 2006"

// Frame modes recorded in metrics.
const (
	ModeInteractive = "interactive"
	ModeAmbient     = "ambient"
)

// Frame is everything the render surface needs to draw one tick.
type Frame struct {
	Time    string    `json:"time"`
	Date    string    `json:"date"`
	Max     string    `json:"max"`
	Min     string    `json:"min"`
	Icon    icon.Icon `json:"icon"`
	Palette Palette   `json:"palette"`
	Ambient bool      `json:"ambient"`
	At      time.Time `json:"at"`
}

// Compose builds the frame for t. The hour is on a 12-hour dial running
// 0-11; ambient drops the seconds and uses the default palette.
func Compose(t time.Time, d display.Display, p Palette, ambient bool) Frame {
	hour := t.Hour() % 12

	f := Frame{
		Date:    t.Format(DateLayout),
		Max:     d.Max,
		Min:     d.Min,
		Icon:    d.Icon,
		Palette: p,
		Ambient: ambient,
		At:      t,
	}
	if ambient {
		f.Time = fmt.Sprintf("%02d:%02d", hour, t.Minute())
		f.Palette = DefaultPalette()
	} else {
		f.Time = fmt.Sprintf("%02d:%02d:%02d", hour, t.Minute(), t.Second())
	}
	return f
}

func (f Frame) mode() string {
	if f.Ambient {
		return ModeAmbient
	}
	return ModeInteractive
}
