package animate

func split(color uint32) (r, g, b uint32) {
	return (color >> 16) & 0xff, (color >> 8) & 0xff, color & 0xff
}

// Get the same color, but with a lower or equal brightness, on a scale from 0-100, where 100 is the same as the input.
func withBrightness(color, light uint32) uint32 {
	if light >= 100 {
		return color
	}
	if light == 0 {
		return 0
	}

	r, g, b := split(color)

	red := r * light / 100
	green := g * light / 100
	blue := b * light / 100

	return (red << 16) | (green << 8) | blue
}

// getRGB walks the colour wheel, one full turn every 255 steps.
func getRGB(step int) uint32 {
	pos := uint32(step % 255)
	switch {
	case pos < 85:
		return (255-pos*3)<<16 | (pos*3)<<8
	case pos < 170:
		pos -= 85
		return (255-pos*3)<<8 | pos*3
	default:
		pos -= 170
		return (pos*3)<<16 | (255 - pos*3)
	}
}
