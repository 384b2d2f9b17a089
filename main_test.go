package main

import (
	"log/slog"
	"os"
	"testing"
)

func TestRecoverPanic(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// A handler that panics must not crash the process.
	func() {
		defer recoverPanic(logger, "test_tool")
		panic("boom")
	}()

	// No panic: recoverPanic must be a no-op.
	func() {
		defer recoverPanic(logger, "test_tool")
	}()
}

func TestInstrument(t *testing.T) {
	done := instrument("test_tool")
	done(true)

	done = instrument("test_tool")
	done(false)
}

func TestPtr(t *testing.T) {
	b := ptr(true)
	if b == nil || !*b {
		t.Error("ptr(true) must point at true")
	}
	s := ptr("x")
	if *s != "x" {
		t.Errorf("*ptr(\"x\") = %q", *s)
	}
}
