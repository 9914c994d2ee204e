// Package icon maps weather condition codes to display icons.
package icon

// Icon is a symbolic icon key understood by the renderer.
type Icon string

// Icon keys.
const (
	Storm       Icon = "storm"
	LightRain   Icon = "light-rain"
	Rain        Icon = "rain"
	Snow        Icon = "snow"
	Fog         Icon = "fog"
	Clear       Icon = "clear"
	LightClouds Icon = "light-clouds"
	Clouds      Icon = "clouds"
	Unknown     Icon = "unknown"
)

type rule struct {
	lo, hi int
	icon   Icon
}

// rules are evaluated in order and the first match wins. 701-761 shadows the
// storm rule for 761; keep the order.
var rules = []rule{
	{200, 232, Storm},
	{300, 321, LightRain},
	{500, 504, Rain},
	{511, 511, Snow},
	{520, 531, Rain},
	{600, 622, Snow},
	{701, 761, Fog},
	{761, 761, Storm},
	{781, 781, Storm},
	{800, 800, Clear},
	{801, 801, LightClouds},
	{802, 804, Clouds},
}

// Resolve returns the icon for code, or Unknown.
func Resolve(code int) Icon {
	if ic, ok := lookup(code); ok {
		return ic
	}
	return Unknown
}

// Known reports whether any rule covers code.
func Known(code int) bool {
	_, ok := lookup(code)
	return ok
}

func lookup(code int) (Icon, bool) {
	for _, r := range rules {
		if code >= r.lo && code <= r.hi {
			return r.icon, true
		}
	}
	return "", false
}
