package indicators

import "time"

// Session is a UTC trading-session bucket.
type Session string

const (
	SessionAsian   Session = "asian"
	SessionLondon  Session = "london"
	SessionNewYork Session = "new_york"
	SessionOff     Session = "off_hours"
)

type sessionWindow struct {
	session    Session
	start, end int // UTC hours, end exclusive
}

// Windows overlap; the later entry wins for hours they share.
var sessionWindows = []sessionWindow{
	{SessionAsian, 0, 9},
	{SessionLondon, 7, 16},
	{SessionNewYork, 13, 22},
}

// SessionAt returns the session tag for t.
func SessionAt(t time.Time) Session {
	h := t.UTC().Hour()
	tag := SessionOff
	for _, w := range sessionWindows {
		if h >= w.start && h < w.end {
			tag = w.session
		}
	}
	return tag
}

// SessionMultiplier maps a session to its configured multiplier.
func (c Config) SessionMultiplier(s Session) float64 {
	switch s {
	case SessionAsian:
		return c.AsianMultiplier
	case SessionLondon:
		return c.LondonMultiplier
	case SessionNewYork:
		return c.NewYorkMultiplier
	default:
		return 1.0
	}
}

func tagSessions(f *Frame, cfg Config) {
	for i := range f.Bars {
		s := SessionAt(f.Klines[i].OpenTime)
		f.Bars[i].Session = s
		f.Bars[i].SessionMultiplier = cfg.SessionMultiplier(s)
	}
}
