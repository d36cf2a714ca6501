package save

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/aybabtme/uniplot/histogram"
)

// WaitStats collects the poll counts of completion waits per operation so slow or flaky hardware
// shows up as a shifted distribution.
type WaitStats struct {
	mu      sync.Mutex
	samples map[string][]float64
}

func NewWaitStats() *WaitStats {
	return &WaitStats{samples: make(map[string][]float64)}
}

// Observe records one wait. It matches the WithWaitObserver callback.
func (w *WaitStats) Observe(op string, iterations int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples[op] = append(w.samples[op], float64(iterations))
}

// Ops returns the sorted names of the operations observed.
func (w *WaitStats) Ops() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ops := make([]string, 0, len(w.samples))
	for op := range w.samples {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Count returns the number of waits observed for op.
func (w *WaitStats) Count(op string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.samples[op])
}

// Fprint writes a histogram of poll counts for every observed operation.
func (w *WaitStats) Fprint(out io.Writer) error {
	for _, op := range w.Ops() {
		w.mu.Lock()
		samples := append([]float64(nil), w.samples[op]...)
		w.mu.Unlock()

		min, max := samples[0], samples[0]
		for _, v := range samples {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}

		if _, err := fmt.Fprintf(out, "%s: %d waits, %.0f-%.0f polls\n", op, len(samples), min, max); err != nil {
			return err
		}
		if min == max {
			continue
		}

		h := histogram.Hist(10, samples)
		if err := histogram.Fprint(out, h, histogram.Linear(40)); err != nil {
			return err
		}
	}
	return nil
}
