package config

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Single-letter base colors
var baseColors = map[string]bool{
	"b": true, "g": true, "r": true, "c": true,
	"m": true, "y": true, "k": true, "w": true,
}

// Tableau palette colors, addressed as tab:<name>
var tableauColors = map[string]string{
	"tab:blue":   "#1f77b4",
	"tab:orange": "#ff7f0e",
	"tab:green":  "#2ca02c",
	"tab:red":    "#d62728",
	"tab:purple": "#9467bd",
	"tab:brown":  "#8c564b",
	"tab:pink":   "#e377c2",
	"tab:gray":   "#7f7f7f",
	"tab:grey":   "#7f7f7f",
	"tab:olive":  "#bcbd22",
	"tab:cyan":   "#17becf",
}

// IsColorLike reports whether v is a color specification that the
// dashboard renderer understands: a CSS color name, a base color letter,
// a tab: palette name, a C<n> color cycle reference, a grayscale string
// in [0, 1], a hex string, or an RGB(A) sequence of numbers in [0, 1].
//
// The xkcd: color survey names are not recognized. Browsers have no names
// for them, so a graph color must use one of the other forms (a hex string
// works for any xkcd color).
func IsColorLike(v any) bool {
	if seq, ok := asSequence(v); ok {
		return isRGBATuple(seq)
	}

	s, ok := v.(string)
	if !ok {
		return false
	}
	return isColorString(s)
}

func isRGBATuple(seq []any) bool {
	if len(seq) != 3 && len(seq) != 4 {
		return false
	}
	for _, c := range seq {
		f, ok := asFloat(c)
		if !ok || f < 0 || f > 1 {
			return false
		}
	}
	return true
}

func isColorString(s string) bool {
	if s == "" {
		return false
	}

	if strings.HasPrefix(s, "#") {
		return isHexColor(s[1:])
	}

	lower := strings.ToLower(s)
	if lower == "none" || baseColors[lower] {
		return true
	}
	if _, ok := colornames.Map[lower]; ok {
		return true
	}
	if _, ok := tableauColors[lower]; ok {
		return true
	}

	// C0, C1, ... color cycle references
	if len(s) > 1 && s[0] == 'C' {
		if _, err := strconv.ParseUint(s[1:], 10, 32); err == nil {
			return true
		}
	}

	// Grayscale intensity, e.g. "0.75"
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f >= 0 && f <= 1
	}

	return false
}

func isHexColor(h string) bool {
	switch len(h) {
	case 3, 4, 6, 8:
	default:
		return false
	}
	_, err := strconv.ParseUint(h, 16, 32)
	return err == nil
}

// CSSColor converts a validated color specification into a form browsers
// accept. Names and hex strings pass through; RGB(A) sequences become
// rgb()/rgba() strings.
func CSSColor(v any) string {
	if seq, ok := asSequence(v); ok && isRGBATuple(seq) {
		var c [4]float64
		c[3] = 1
		for i, x := range seq {
			c[i], _ = asFloat(x)
		}
		r, g, b := int(c[0]*255+0.5), int(c[1]*255+0.5), int(c[2]*255+0.5)
		if len(seq) == 4 {
			return fmt.Sprintf("rgba(%d,%d,%d,%s)", r, g, b, strconv.FormatFloat(c[3], 'f', -1, 64))
		}
		return fmt.Sprintf("rgb(%d,%d,%d)", r, g, b)
	}

	s := fmt.Sprint(v)
	if hex, ok := tableauColors[strings.ToLower(s)]; ok {
		return hex
	}
	return s
}
