package main

import (
	"bytes"
	"os"
	"testing"
)

func TestExitfWritesStderrAndExits(t *testing.T) {
	var buf bytes.Buffer
	code := -1
	stderr, osExit = &buf, func(c int) { code = c }
	t.Cleanup(func() {
		stderr, osExit = os.Stderr, os.Exit
	})

	exitf("failed to initialize logger: %v", "unknown level")

	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if got := buf.String(); got != "failed to initialize logger: unknown level\n" {
		t.Fatalf("unexpected stderr: %q", got)
	}
}
