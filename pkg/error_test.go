package pkg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeSuccess, "success"},
		{OutcomeNak, "nak"},
		{OutcomeStall, "stall"},
		{OutcomeHardwareError, "hardware error"},
		{OutcomeTimeout, "timeout"},
		{Outcome(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.outcome.String())
		})
	}
}

func TestOutcome_Err(t *testing.T) {
	tests := []struct {
		outcome Outcome
		wantErr error
	}{
		{OutcomeSuccess, nil},
		{OutcomeNak, ErrNAK},
		{OutcomeStall, ErrStall},
		{OutcomeHardwareError, ErrHardware},
		{OutcomeTimeout, ErrTimeout},
		{Outcome(99), ErrHardware},
	}

	for _, tt := range tests {
		t.Run(tt.outcome.String(), func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tt.outcome.Err())
		})
	}
}

func TestOutcome_Retryable(t *testing.T) {
	assert.True(t, OutcomeNak.Retryable())
	for _, o := range []Outcome{OutcomeSuccess, OutcomeStall, OutcomeHardwareError, OutcomeTimeout} {
		assert.False(t, o.Retryable(), o.String())
	}
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"nil", nil, OutcomeSuccess},
		{"nak", ErrNAK, OutcomeNak},
		{"wrapped stall", fmt.Errorf("data stage: %w", ErrStall), OutcomeStall},
		{"wrapped timeout", fmt.Errorf("status stage: %w", ErrTimeout), OutcomeTimeout},
		{"hardware", ErrHardware, OutcomeHardwareError},
		{"foreign", errors.New("other"), OutcomeHardwareError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutcomeOf(tt.err))
		})
	}
}

func TestErrorsDistinct(t *testing.T) {
	all := []error{
		ErrHardwareAbsent, ErrTimeout, ErrNAK, ErrStall, ErrHardware,
		ErrMalformedDescriptor, ErrNotConnected, ErrNotEnumerated, ErrInvalidParameter,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v is %v", a, b)
			}
		}
	}
}
