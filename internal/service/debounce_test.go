package service

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebounceCollapsesBurst(t *testing.T) {
	d := NewDebouncer()
	defer d.Close()

	var fired atomic.Int32
	start := time.Now()
	var firedAt atomic.Int64

	// Events at t=0, t=10ms, t=20ms with a 30ms window: exactly one review
	// fires, no earlier than 50ms.
	const window = 30 * time.Millisecond
	d.Schedule("s1/code", window, func() { t.Error("first event must never fire after being superseded") })
	time.Sleep(10 * time.Millisecond)
	d.Schedule("s1/code", window, func() { t.Error("second event must never fire after being superseded") })
	time.Sleep(10 * time.Millisecond)
	d.Schedule("s1/code", window, func() {
		fired.Add(1)
		firedAt.Store(int64(time.Since(start)))
	})

	time.Sleep(100 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Fatalf("expected exactly one fire, got %d", got)
	}
	if elapsed := time.Duration(firedAt.Load()); elapsed < 50*time.Millisecond {
		t.Fatalf("fired too early: %s (want >= 50ms)", elapsed)
	}
}

func TestDebounceIndependentKeys(t *testing.T) {
	d := NewDebouncer()
	defer d.Close()

	var a, b atomic.Int32
	d.Schedule("s1/code", 10*time.Millisecond, func() { a.Add(1) })
	d.Schedule("s2/code", 10*time.Millisecond, func() { b.Add(1) })

	time.Sleep(50 * time.Millisecond)
	if a.Load() != 1 || b.Load() != 1 {
		t.Fatalf("independent keys must both fire, got a=%d b=%d", a.Load(), b.Load())
	}
}

func TestDebounceCancel(t *testing.T) {
	d := NewDebouncer()
	defer d.Close()

	d.Schedule("s1/code", 10*time.Millisecond, func() { t.Error("cancelled action fired") })
	d.Cancel("s1/code")

	if d.Pending("s1/code") {
		t.Fatal("cancelled key must not be pending")
	}
	time.Sleep(30 * time.Millisecond)
}

func TestDebounceCloseStopsEverything(t *testing.T) {
	d := NewDebouncer()

	d.Schedule("s1/code", 10*time.Millisecond, func() { t.Error("fired after Close") })
	d.Close()
	d.Schedule("s1/code", time.Millisecond, func() { t.Error("scheduled after Close") })

	time.Sleep(30 * time.Millisecond)
}

func TestAdmitAfterQuiet(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		last   time.Time
		window time.Duration
		want   bool
	}{
		{"no window", now.Add(-time.Millisecond), 0, true},
		{"never triggered", time.Time{}, 3 * time.Second, true},
		{"inside window", now.Add(-time.Second), 3 * time.Second, false},
		{"window elapsed", now.Add(-5 * time.Second), 3 * time.Second, true},
		{"exact boundary", now.Add(-3 * time.Second), 3 * time.Second, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AdmitAfterQuiet(tt.last, tt.window, now); got != tt.want {
				t.Fatalf("AdmitAfterQuiet = %v, want %v", got, tt.want)
			}
		})
	}
}
