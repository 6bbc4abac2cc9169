// internal/runner/runner.go - shell command execution with timeout capture
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

const stderrSeparator = "\n--- stderr ---\n"

// Result is the raw outcome of one command execution. A non-zero exit code
// is a normal result, not an error.
type Result struct {
	Output     string
	ExitCode   int
	DurationMS int64
}

// Execute runs command through the shell with a hard timeout. On timeout the
// process is killed, the exit code is -1 and a timeout marker is appended to
// whatever partial output was captured. An error is returned only when the
// command could not be launched at all.
func Execute(ctx context.Context, command string, timeout time.Duration, sudo bool) (*Result, error) {
	if sudo {
		command = "sudo " + command
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "sh", "-c", command)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	durationMS := time.Since(start).Milliseconds()

	output := combineOutput(stdout.String(), stderr.String())

	if cctx.Err() == context.DeadlineExceeded {
		output += fmt.Sprintf("\n[Command timed out after %ds]", int(timeout.Seconds()))
		return &Result{
			Output:     strings.TrimSpace(output),
			ExitCode:   -1,
			DurationMS: durationMS,
		}, nil
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			// The process never started (shell missing, fork failure, ...).
			return nil, fmt.Errorf("command execution failed: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"exit":     exitCode,
		"duration": durationMS,
	}).Debug("Command completed")

	return &Result{
		Output:     strings.TrimSpace(output),
		ExitCode:   exitCode,
		DurationMS: durationMS,
	}, nil
}

func combineOutput(stdout, stderr string) string {
	if stderr == "" {
		return stdout
	}
	if stdout == "" {
		return stderr
	}
	return stdout + stderrSeparator + stderr
}

// MaxOutputChars bounds command output before classification and storage.
const MaxOutputChars = 50000

// Truncate keeps the first and last half of the budget and notes the omitted
// character count, so both edges of long output survive verbatim. Idempotent
// for inputs already within the budget. Cut points back off to rune
// boundaries so multi-byte output never yields invalid UTF-8.
func Truncate(output string, maxChars int) string {
	if len(output) <= maxChars {
		return output
	}

	keep := maxChars / 2
	head := keep
	for head > 0 && !utf8.RuneStart(output[head]) {
		head--
	}
	tail := len(output) - keep
	for tail < len(output) && !utf8.RuneStart(output[tail]) {
		tail++
	}

	return output[:head] +
		fmt.Sprintf("\n\n[... truncated %d characters ...]\n\n", tail-head) +
		output[tail:]
}
