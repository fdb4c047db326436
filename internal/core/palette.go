package core

// Palette is the fixed colour cycle used for chart slices.
var Palette = [...]string{
	"red", "blue", "yellow", "cyan", "purple", "orange", "darkorange",
	"green", "blueviolet", "limegreen", "gold", "mediumseagreen", "crimson", "pink",
}

// ColorFor returns the palette colour for the i-th category, cycling.
func ColorFor(i int) string {
	n := len(Palette)
	return Palette[((i%n)+n)%n]
}

// Colors returns n colours in palette order.
func Colors(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = ColorFor(i)
	}
	return out
}
