package source

// AssumedInputFPS is the rate live sources are assumed to deliver.
const AssumedInputFPS = 30

// Throttle drops frames with a modulo counter, keeping one of every k frames
// where k approximates AssumedInputFPS/target. The result is only accurate
// when the input really runs at AssumedInputFPS.
type Throttle struct {
	every int
	n     int
}

func NewThrottle(targetFPS int) *Throttle {
	every := 1
	if targetFPS > 0 && targetFPS < AssumedInputFPS {
		every = (AssumedInputFPS + targetFPS/2) / targetFPS
	}
	return &Throttle{every: every}
}

// Keep reports whether the next frame should be kept.
func (t *Throttle) Keep() bool {
	keep := t.n%t.every == 0
	t.n++
	return keep
}

// Every returns k.
func (t *Throttle) Every() int { return t.every }
