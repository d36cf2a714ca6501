package save

import "time"

// Poller bounds a busy-wait. Zero values leave the corresponding bound off; a Poller with both
// bounds off waits forever, as the hardware itself would.
type Poller struct {
	MaxIterations int
	Timeout       time.Duration
}

// DefaultPoller never trips on working hardware: the slowest operation, a flash chip erase, takes
// well under a second.
var DefaultPoller = Poller{Timeout: 5 * time.Second}

// Until calls done until it returns true or a bound is exceeded, and returns how many times done
// was called. Exceeding a bound returns a *TimeoutError.
func (p Poller) Until(op string, done func() bool) (int, error) {
	start := time.Now()
	for n := 1; ; n++ {
		if done() {
			return n, nil
		}
		if p.MaxIterations > 0 && n >= p.MaxIterations {
			return n, &TimeoutError{Op: op, Iterations: n, Elapsed: time.Since(start)}
		}
		if p.Timeout > 0 {
			if elapsed := time.Since(start); elapsed >= p.Timeout {
				return n, &TimeoutError{Op: op, Iterations: n, Elapsed: elapsed}
			}
		}
	}
}
