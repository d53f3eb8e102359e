package game

import "time"

// Params is the opaque configuration blob handed to an engine factory.
// Engines may normalize it during construction (for example capture a
// deal seed so a replay reproduces the same setup); after that it is
// immutable.
type Params map[string]any

// MoveTimeLimit reads the "moveTimeLimit" entry, in seconds. Zero when
// absent or malformed.
func (p Params) MoveTimeLimit() time.Duration {
	switch v := p["moveTimeLimit"].(type) {
	case float64:
		return time.Duration(v * float64(time.Second))
	case int:
		return time.Duration(v) * time.Second
	case time.Duration:
		return v
	default:
		return 0
	}
}

// Clone returns a shallow copy, so a factory can normalize params
// without mutating the caller's map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
