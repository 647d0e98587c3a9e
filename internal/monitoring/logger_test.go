package monitoring

import (
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// nil installs a no-op that must not reach the previous logger.
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logf panicked: %v", r)
		}
	}()

	Logf("test message: %s", "value")
}

func TestRecorder(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var rec Recorder
	SetLogger(rec.Logf)

	Logf("[Geometry] id=%s reset", "abc")
	Logf("[Geometry] gaps=%d", 3)

	lines := rec.Lines()
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0] != "[Geometry] id=abc reset" {
		t.Errorf("lines[0] = %q", lines[0])
	}
	if !rec.Contains("gaps=3") {
		t.Error("expected a line containing gaps=3")
	}
	if rec.Contains("pseudolayer") {
		t.Error("unexpected match for pseudolayer")
	}

	// Lines returns a copy.
	lines[0] = "mutated"
	if rec.Lines()[0] == "mutated" {
		t.Error("Lines should return a copy")
	}
}
