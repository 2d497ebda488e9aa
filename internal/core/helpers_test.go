package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type stubClock struct {
	t time.Time
}

func (c stubClock) Now() time.Time { return c.t }

type logEntry struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args) }

func (l *captureLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

type metricRecord struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	mu      sync.Mutex
	records []metricRecord
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, metricRecord{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.records {
		if r.op == op && r.success == success {
			return true
		}
	}
	return false
}

var day0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newBatch(number, stage string, initial, current int) Batch {
	return Batch{
		BatchNumber:    number,
		Species:        "Atlantic Salmon",
		LifecycleStage: stage,
		StartDate:      day0,
		InitialCount:   initial,
		CurrentCount:   current,
		BiomassKg:      float64(current) / 100,
	}
}

func mustCreate(svc *Service, b Batch) Batch {
	created, _, err := svc.CreateBatch(context.Background(), b)
	if err != nil {
		panic(fmt.Sprintf("create batch %s: %v", b.BatchNumber, err))
	}
	return created
}
