package testutil

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestAssertNoError(t *testing.T) {
	t.Parallel()

	AssertNoError(t, nil)
}

func TestAssertError(t *testing.T) {
	t.Parallel()

	AssertError(t, errors.New("boom"))
}

func TestAssertErrorIs(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("sentinel")
	AssertErrorIs(t, fmt.Errorf("context: %w", sentinel), sentinel)
}

func TestAssertFloatNear(t *testing.T) {
	t.Parallel()

	AssertFloatNear(t, 1000+1e-10, 1000, LengthTolerance)
	AssertFloatNear(t, 0, 0, LengthTolerance)
}

func TestDegrees(t *testing.T) {
	t.Parallel()

	tests := []struct {
		deg  float64
		want float64
	}{
		{0, 0},
		{90, math.Pi / 2},
		{180, math.Pi},
		{-45, -math.Pi / 4},
	}
	for _, tt := range tests {
		AssertFloatNear(t, Degrees(tt.deg), tt.want, 1e-15)
	}
}
