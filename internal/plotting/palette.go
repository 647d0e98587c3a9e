package plotting

import "image/color"

// generateColors returns n hues spaced evenly around the colour wheel.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := range colors {
		colors[i] = hsl(float64(i)/float64(n), 0.65, 0.45)
	}
	return colors
}

// hsl converts hue, saturation and lightness in [0, 1] to an opaque RGBA.
func hsl(h, s, l float64) color.RGBA {
	if s == 0 {
		v := uint8(l * 255)
		return color.RGBA{R: v, G: v, B: v, A: 255}
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return color.RGBA{
		R: uint8(hueChannel(p, q, h+1.0/3.0) * 255),
		G: uint8(hueChannel(p, q, h) * 255),
		B: uint8(hueChannel(p, q, h-1.0/3.0) * 255),
		A: 255,
	}
}

func hueChannel(p, q, t float64) float64 {
	switch {
	case t < 0:
		t++
	case t > 1:
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
