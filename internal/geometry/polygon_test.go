package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMaximumRadius_CachedMatchesDirect(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	phiOffsets := []float64{0, 0.1, math.Pi / 8, -1.3, 2 * math.Pi, 17.25}

	for n := uint(3); n <= 16; n++ {
		for _, phi0 := range phiOffsets {
			angles, err := NewAngleVector(n, phi0)
			require.NoError(t, err)
			require.Len(t, angles, int(n))

			for i := 0; i < 200; i++ {
				x := (rng.Float64() - 0.5) * 8000
				y := (rng.Float64() - 0.5) * 8000

				direct := GetMaximumRadius(n, phi0, x, y)
				cached, err := GetMaximumRadiusFromAngles(angles, x, y)
				require.NoError(t, err)

				// Bit-identical, not merely close.
				if direct != cached {
					t.Fatalf("n=%d phi0=%v (%v, %v): direct %v != cached %v", n, phi0, x, y, direct, cached)
				}
			}
		}
	}
}

func TestGetMaximumRadius_Square(t *testing.T) {
	t.Parallel()

	const halfWidth = 500.0

	t.Run("along a face normal returns x", func(t *testing.T) {
		t.Parallel()
		for _, x := range []float64{0, 1, 250, 499.5, halfWidth} {
			r := GetMaximumRadius(4, 0, x, 0)
			assert.InDelta(t, x, r, 1e-9)
		}
	})

	t.Run("points on the boundary return the half width", func(t *testing.T) {
		t.Parallel()
		for _, y := range []float64{-halfWidth, -300, 0, 125, halfWidth} {
			for _, p := range [][2]float64{{halfWidth, y}, {-halfWidth, y}, {y, halfWidth}, {y, -halfWidth}} {
				r := GetMaximumRadius(4, 0, p[0], p[1])
				assert.InDelta(t, halfWidth, r, 1e-9, "point %v", p)
			}
		}
	})

	t.Run("corner exceeds the inscribed circle", func(t *testing.T) {
		t.Parallel()
		r := GetMaximumRadius(4, 0, halfWidth, halfWidth)
		assert.InDelta(t, halfWidth, r, 1e-9)
		assert.Greater(t, math.Hypot(halfWidth, halfWidth), r)
	})
}

func TestGetMaximumRadius_CentralSymmetry(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	for _, n := range []uint{4, 6, 8, 12, 16} {
		for i := 0; i < 100; i++ {
			x := (rng.Float64() - 0.5) * 4000
			y := (rng.Float64() - 0.5) * 4000
			phi0 := rng.Float64() * 2 * math.Pi

			r1 := GetMaximumRadius(n, phi0, x, y)
			r2 := GetMaximumRadius(n, phi0, -x, -y)
			assert.InDelta(t, r1, r2, 1e-9, "n=%d (%v, %v)", n, x, y)
		}
	}
}

func TestGetMaximumRadius_RotationalSymmetry(t *testing.T) {
	t.Parallel()

	const n = 6
	x, y := 731.0, 212.0
	want := GetMaximumRadius(n, 0.2, x, y)

	for k := 1; k < n; k++ {
		s, c := math.Sincos(float64(k) * 2 * math.Pi / n)
		got := GetMaximumRadius(n, 0.2, x*c-y*s, x*s+y*c)
		assert.InDelta(t, want, got, 1e-9, "rotation %d", k)
	}
}

func TestGetMaximumRadius_Unfaceted(t *testing.T) {
	t.Parallel()

	r := GetMaximumRadius(0, 1.234, 300, 400)
	assert.Equal(t, 500.0, r)
}

func TestGetMaximumRadius_LowSymmetryOrder(t *testing.T) {
	t.Parallel()

	// Orders 1 and 2 fall back to the Euclidean radius like order 0.
	for _, n := range []uint{1, 2} {
		assert.Equal(t, 5.0, GetMaximumRadius(n, 0.7, 3, -4), "n=%d", n)
	}

	_, err := GetMaximumRadiusFromAngles(nil, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = GetMaximumRadiusFromAngles(AngleVector{{Sin: 0, Cos: 1}, {Sin: 1, Cos: 0}}, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = FillAngleVector(2, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestFillAngleVector(t *testing.T) {
	t.Parallel()

	t.Run("values", func(t *testing.T) {
		t.Parallel()
		angles, err := FillAngleVector(4, 0, nil)
		require.NoError(t, err)
		require.Len(t, angles, 4)
		want := AngleVector{{Sin: 0, Cos: 1}, {Sin: 1, Cos: 0}, {Sin: 0, Cos: -1}, {Sin: -1, Cos: 0}}
		for i := range want {
			assert.InDelta(t, want[i].Sin, angles[i].Sin, 1e-15, "face %d", i)
			assert.InDelta(t, want[i].Cos, angles[i].Cos, 1e-15, "face %d", i)
		}
		assert.Equal(t, uint(4), angles.SymmetryOrder())
	})

	t.Run("reuses backing array", func(t *testing.T) {
		t.Parallel()
		buf := make(AngleVector, 0, 16)
		first, err := FillAngleVector(12, 0.3, buf)
		require.NoError(t, err)
		second, err := FillAngleVector(8, 0.1, first)
		require.NoError(t, err)
		assert.Len(t, second, 8)
		assert.Same(t, &buf[:1][0], &second[0])
	})

	t.Run("refill is identical to fresh fill", func(t *testing.T) {
		t.Parallel()
		fresh, err := NewAngleVector(10, 0.7)
		require.NoError(t, err)
		reused, err := FillAngleVector(10, 0.7, make(AngleVector, 3, 32))
		require.NoError(t, err)
		if diff := cmp.Diff(fresh, reused); diff != "" {
			t.Errorf("refilled vector differs (-fresh +reused):\n%s", diff)
		}
	})
}

func TestPolygonVertices(t *testing.T) {
	t.Parallel()

	for _, n := range []uint{3, 4, 8, 12} {
		vertices, err := PolygonVertices(n, 0.25, 1000)
		require.NoError(t, err)
		require.Len(t, vertices, int(n))
		for i, v := range vertices {
			r := GetMaximumRadius(n, 0.25, v.X, v.Y)
			assert.InDelta(t, 1000, r, 1e-9, "n=%d vertex %d", n, i)
		}
	}

	circle, err := PolygonVertices(0, 0, 250)
	require.NoError(t, err)
	require.Len(t, circle, circleSegments)
	for _, v := range circle {
		assert.InDelta(t, 250, math.Hypot(v.X, v.Y), 1e-9)
	}

	_, err = PolygonVertices(2, 0, 10)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = PolygonVertices(8, 0, -1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func BenchmarkGetMaximumRadius(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = GetMaximumRadius(8, 0.1, 1234, 567)
	}
}

func BenchmarkGetMaximumRadiusFromAngles(b *testing.B) {
	angles, err := NewAngleVector(8, 0.1)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = GetMaximumRadiusFromAngles(angles, 1234, 567)
	}
}
