package core

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "out of date", err: errors.Wrap(ErrSurfaceOutOfDate, "acquire"), want: false},
		{name: "allocation", err: errors.Wrap(ErrAllocationFailed, "buffer"), want: true},
		{name: "capability", err: fmt.Errorf("blit: %w", ErrCapabilityMissing), want: true},
		{name: "misuse", err: Misusef("double destroy of %s", "buffer"), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal(%v) = %t, want %t", tt.err, got, tt.want)
			}
		})
	}
}

func TestMisuseIsMarked(t *testing.T) {
	err := Misusef("re-entrant submit")
	if !errors.Is(err, ErrMisuse) {
		t.Fatalf("expected ErrMisuse mark on %v", err)
	}
	if !errors.HasAssertionFailure(err) {
		t.Fatalf("expected assertion failure on %v", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	if got := ParseLogLevel("DEBUG"); got != DebugLevel {
		t.Errorf("ParseLogLevel(DEBUG) = %v", got)
	}
	if got := ParseLogLevel("nonsense"); got != InfoLevel {
		t.Errorf("ParseLogLevel(nonsense) = %v", got)
	}
}
