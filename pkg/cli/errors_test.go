package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("rules.path", "no such file")
	expected := "config error in rules.path: no such file"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestCommandError(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := NewCommandError("evaluate", underlyingErr)

	expected := "command evaluate failed: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, underlyingErr) {
		t.Error("errors.Is() should work with CommandError.Unwrap()")
	}
}

func TestExitError(t *testing.T) {
	if got := (&ExitError{Code: 3}).Error(); got != "exit status 3" {
		t.Errorf("Error() = %q, want %q", got, "exit status 3")
	}
	cause := errors.New("lint failed")
	if got := (&ExitError{Code: 1, Err: cause}).Error(); got != "lint failed" {
		t.Errorf("Error() = %q, want %q", got, "lint failed")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("boom"), 1},
		{"config", NewConfigError("server", "bad"), 2},
		{"wrapped config", fmt.Errorf("load: %w", NewConfigError("server", "bad")), 2},
		{"exit", &ExitError{Code: 4}, 4},
		{"command wrapping exit", NewCommandError("lint", &ExitError{Code: 1}), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
