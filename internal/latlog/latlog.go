// Package latlog records per-query stage timings: an in-memory stopwatch
// used by the estimator pipeline plus an hourly-rotated JSONL sink for the
// profiling consumers.
package latlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Stages measures a pipeline run. Mark closes the current stage and opens
// the next; durations are exclusive and sum to roughly TotalMs.
type Stages struct {
	start time.Time
	last  time.Time
	ms    map[string]float64
}

func StartStages() *Stages {
	now := time.Now()
	return &Stages{start: now, last: now, ms: make(map[string]float64)}
}

// Mark records the time spent since the previous mark under name.
func (s *Stages) Mark(name string) {
	now := time.Now()
	s.ms[name] += float64(now.Sub(s.last)) / float64(time.Millisecond)
	s.last = now
}

// TotalMs is the wall time since StartStages.
func (s *Stages) TotalMs() float64 {
	return float64(time.Since(s.start)) / float64(time.Millisecond)
}

// Millis returns a copy of the recorded stage durations.
func (s *Stages) Millis() map[string]float64 {
	out := make(map[string]float64, len(s.ms))
	for k, v := range s.ms {
		out[k] = v
	}
	return out
}

// Logger appends timing records as JSONL, one file per service per hour.
// A nil Logger is valid and drops everything, so callers never guard the
// disabled case.
type Logger struct {
	dir     string
	service string

	mu   sync.Mutex
	file *os.File
	hour string
}

func New(dir, service string) *Logger {
	dir = strings.TrimSpace(dir)
	service = strings.TrimSpace(service)
	if dir == "" || service == "" {
		return nil
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Logger{dir: dir, service: service}
}

func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}

// Record writes one timing record for an estimate query.
func (l *Logger) Record(symbol string, stages *Stages, fields map[string]any) {
	if l == nil || stages == nil {
		return
	}
	entry := map[string]any{
		"symbol":   symbol,
		"total_ms": stages.TotalMs(),
	}
	for name, ms := range stages.Millis() {
		entry["stage_"+name+"_ms"] = ms
	}
	for k, v := range fields {
		if k != "" {
			entry[k] = v
		}
	}
	l.log("estimate", entry)
}

func (l *Logger) log(event string, fields map[string]any) {
	now := time.Now().UTC()
	hour := now.Format("20060102-15")

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil || l.hour != hour {
		if l.file != nil {
			_ = l.file.Close()
			l.file = nil
		}
		path := filepath.Join(l.dir, fmt.Sprintf("%s-%s.jsonl", l.service, hour))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return
		}
		l.file = f
		l.hour = hour
	}

	entry := map[string]any{
		"ts":      now.Format(time.RFC3339Nano),
		"service": l.service,
		"event":   event,
	}
	for k, v := range fields {
		entry[k] = v
	}
	b, err := json.Marshal(entry)
	if err != nil || l.file == nil {
		return
	}
	_, _ = l.file.Write(append(b, '\n'))
}
