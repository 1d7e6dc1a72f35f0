// Package volatility maintains a rolling realized-volatility estimate from
// mid-price log-returns.
//
// The window is a fixed-count ring buffer (default 60 samples) standing in
// for a 60-second lookback; with an irregular update cadence the effective
// lookback drifts. Known limitation, kept for O(1) updates.
package volatility

import (
	"math"
	"sync"
	"time"
)

const DefaultWindow = 60

// Estimator holds the last W log-returns plus running sum and
// sum-of-squares, so variance is available in O(1) per observation.
type Estimator struct {
	mu sync.Mutex

	buf   []float64
	head  int
	count int
	sum   float64
	sumSq float64

	lastMid  float64
	lastTime time.Time
}

func New(window int) *Estimator {
	if window < 2 {
		window = DefaultWindow
	}
	return &Estimator{buf: make([]float64, window)}
}

// Observe records a mid-price sample. The first sample only seeds the
// previous mid; samples with a non-advancing timestamp or non-positive
// price are skipped.
func (e *Estimator) Observe(mid float64, ts time.Time) {
	if mid <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lastMid <= 0 {
		e.lastMid = mid
		e.lastTime = ts
		return
	}
	if !ts.After(e.lastTime) {
		return
	}

	r := math.Log(mid / e.lastMid)
	e.lastMid = mid
	e.lastTime = ts

	if e.count == len(e.buf) {
		old := e.buf[e.head]
		e.sum -= old
		e.sumSq -= old * old
	} else {
		e.count++
	}
	e.buf[e.head] = r
	e.head = (e.head + 1) % len(e.buf)
	e.sum += r
	e.sumSq += r * r
}

// Volatility returns sqrt of the sample variance of the buffered returns.
// ok is false until at least two returns have been observed.
func (e *Estimator) Volatility() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.count < 2 {
		return 0, false
	}
	n := float64(e.count)
	mean := e.sum / n
	variance := (e.sumSq - n*mean*mean) / (n - 1)
	if variance < 0 {
		// Floating-point cancellation can push the accumulator a hair
		// below zero.
		variance = 0
	}
	return math.Sqrt(variance), true
}

// Samples reports how many returns the window currently holds.
func (e *Estimator) Samples() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// returnsCopy exposes the raw window for cross-checking in tests.
func (e *Estimator) returnsCopy() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]float64, 0, e.count)
	start := e.head - e.count
	for i := 0; i < e.count; i++ {
		out = append(out, e.buf[(start+i+len(e.buf))%len(e.buf)])
	}
	return out
}
