package runner

import (
	"strings"
	"testing"
	"time"
)

func TestCapturedRun(t *testing.T) {
	c := Codex{Bin: "sh"}
	run := c.Run([]string{"-c", "echo out; echo err >&2"}, Options{Env: []string{"PATH=/usr/bin:/bin"}})
	if run.Err != nil || run.Code != 0 {
		t.Fatalf("run = %+v", run)
	}
	if strings.TrimSpace(run.Stdout) != "out" || strings.TrimSpace(run.Stderr) != "err" {
		t.Errorf("stdout=%q stderr=%q", run.Stdout, run.Stderr)
	}
}

func TestExitCode(t *testing.T) {
	c := Codex{Bin: "sh"}
	run := c.Run([]string{"-c", "exit 3"}, Options{Env: []string{"PATH=/usr/bin:/bin"}})
	if run.Err != nil {
		t.Fatalf("spawn error: %v", run.Err)
	}
	if run.Code != 3 {
		t.Errorf("code = %d, want 3", run.Code)
	}
}

func TestSpawnFailure(t *testing.T) {
	c := Codex{Bin: "/nonexistent/definitely-not-codex"}
	run := c.Run(nil, Options{})
	if run.Err == nil || run.Code != -1 {
		t.Errorf("run = %+v", run)
	}
}

func TestCaptureTimeout(t *testing.T) {
	c := Codex{Bin: "sh"}
	start := time.Now()
	run := c.Run([]string{"-c", "sleep 5"}, Options{
		Env:     []string{"PATH=/usr/bin:/bin"},
		Timeout: 100 * time.Millisecond,
	})
	if time.Since(start) > 3*time.Second {
		t.Fatal("timeout did not bound the run")
	}
	if run.Code == 0 {
		t.Errorf("timed-out run reported success: %+v", run)
	}
}
