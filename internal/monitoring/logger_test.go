package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	Logf("[ingest] %s: %d points", "tile.las", 42)
	if len(lines) != 1 || lines[0] != "[ingest] tile.las: 42 points" {
		t.Errorf("custom logger saw %q", lines)
	}

	// nil mutes logging
	SetLogger(nil)
	Logf("[ground] muted")
	Debugf("[ground] muted")
	if len(lines) != 1 {
		t.Errorf("muted logger still forwarded: %q", lines)
	}
}

func TestLogf_Default(t *testing.T) {
	// Test that Logf is not nil by default
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}

	// Test that we can call it without panic
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logf panicked: %v", r)
		}
	}()

	Logf("test message: %s", "value")
}

func TestDebugf_OnlyWhenVerbose(t *testing.T) {
	original := Logf
	defer func() { Logf = original; SetVerbose(false) }()

	var calls int
	SetLogger(func(string, ...interface{}) { calls++ })

	SetVerbose(false)
	Debugf("cell %s", "abc")
	if calls != 0 {
		t.Errorf("Debugf logged %d lines while quiet", calls)
	}

	SetVerbose(true)
	if !Verbose() {
		t.Fatal("Verbose() = false after SetVerbose(true)")
	}
	Debugf("cell %s", "abc")
	if calls != 1 {
		t.Errorf("Debugf logged %d lines while verbose, want 1", calls)
	}
}
