package config

import "fmt"

var colormaps = map[string]bool{}

func init() {
	for _, name := range []string{
		// perceptually uniform
		"viridis", "plasma", "inferno", "magma", "cividis",
		// sequential
		"Greys", "Grays", "Purples", "Blues", "Greens", "Oranges", "Reds",
		"YlOrBr", "YlOrRd", "OrRd", "PuRd", "RdPu", "BuPu",
		"GnBu", "PuBu", "YlGnBu", "PuBuGn", "BuGn", "YlGn",
		"binary", "gist_yarg", "gist_yerg", "gist_gray", "gist_grey", "gray", "grey",
		"bone", "pink", "spring", "summer", "autumn", "winter", "cool",
		"Wistia", "hot", "afmhot", "gist_heat", "copper",
		// diverging
		"PiYG", "PRGn", "BrBG", "PuOr", "RdGy", "RdBu", "RdYlBu", "RdYlGn",
		"Spectral", "coolwarm", "bwr", "seismic", "berlin", "managua", "vanimo",
		// cyclic
		"twilight", "twilight_shifted", "hsv",
		// qualitative
		"Pastel1", "Pastel2", "Paired", "Accent", "Dark2",
		"Set1", "Set2", "Set3", "tab10", "tab20", "tab20b", "tab20c",
		// miscellaneous
		"flag", "prism", "ocean", "gist_earth", "terrain", "gist_stern",
		"gnuplot", "gnuplot2", "CMRmap", "cubehelix", "brg", "gist_rainbow",
		"rainbow", "jet", "turbo", "nipy_spectral", "gist_ncar",
	} {
		colormaps[name] = true
		colormaps[name+"_r"] = true
	}
}

// IsColormap reports whether name is a known continuous color scale.
// Names are case-sensitive; every map has a reversed "_r" variant.
func IsColormap(name string) bool {
	return colormaps[name]
}

func isColormapValue(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v), false
	}
	return s, IsColormap(s)
}
