package accessibility

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// namedColors is the fixed table of CSS named colors the spec requires
// (spec §4.C.4); extended with the handful that appear in common
// fixtures rather than the full CSS Color Module list.
var namedColors = map[string][3]int{
	"black":   {0, 0, 0},
	"white":   {255, 255, 255},
	"red":     {255, 0, 0},
	"green":   {0, 128, 0},
	"blue":    {0, 0, 255},
	"gray":    {128, 128, 128},
	"grey":    {128, 128, 128},
	"silver":  {192, 192, 192},
	"yellow":  {255, 255, 0},
	"orange":  {255, 165, 0},
	"purple":  {128, 0, 128},
	"navy":    {0, 0, 128},
	"teal":    {0, 128, 128},
	"maroon":  {128, 0, 0},
	"olive":   {128, 128, 0},
	"lime":    {0, 255, 0},
	"aqua":    {0, 255, 255},
	"fuchsia": {255, 0, 255},
}

var (
	hexShort = regexp.MustCompile(`^#([0-9a-fA-F])([0-9a-fA-F])([0-9a-fA-F])$`)
	hexLong  = regexp.MustCompile(`^#([0-9a-fA-F]{2})([0-9a-fA-F]{2})([0-9a-fA-F]{2})$`)
	rgbFunc  = regexp.MustCompile(`rgba?\(\s*([\d.]+)\s*,\s*([\d.]+)\s*,\s*([\d.]+)\s*(?:,\s*([\d.]+)\s*)?\)`)
)

// RGB is an 8-bit-per-channel color, alpha already composited against
// white where applicable.
type RGB struct{ R, G, B float64 }

// ParseColor parses a CSS color value in any of the forms spec §4.C.4
// names: #rgb, #rrggbb, rgb(), rgba() (alpha composited against white),
// or a named color. Returns false if the value is not recognized.
func ParseColor(value string) (RGB, bool) {
	v := strings.TrimSpace(value)
	if m := hexShort.FindStringSubmatch(v); m != nil {
		return RGB{hexChan(m[1] + m[1]), hexChan(m[2] + m[2]), hexChan(m[3] + m[3])}, true
	}
	if m := hexLong.FindStringSubmatch(v); m != nil {
		return RGB{hexChan(m[1]), hexChan(m[2]), hexChan(m[3])}, true
	}
	if m := rgbFunc.FindStringSubmatch(v); m != nil {
		r, _ := strconv.ParseFloat(m[1], 64)
		g, _ := strconv.ParseFloat(m[2], 64)
		b, _ := strconv.ParseFloat(m[3], 64)
		alpha := 1.0
		if m[4] != "" {
			alpha, _ = strconv.ParseFloat(m[4], 64)
		}
		// composite against white
		r = r*alpha + 255*(1-alpha)
		g = g*alpha + 255*(1-alpha)
		b = b*alpha + 255*(1-alpha)
		return RGB{r, g, b}, true
	}
	if c, ok := namedColors[strings.ToLower(v)]; ok {
		return RGB{float64(c[0]), float64(c[1]), float64(c[2])}, true
	}
	return RGB{}, false
}

func hexChan(h string) float64 {
	n, _ := strconv.ParseInt(h, 16, 64)
	return float64(n)
}

// linearize applies the sRGB electro-optical transfer function to one
// 0-255 channel, per spec §4.C.4's exact formula.
func linearize(channel float64) float64 {
	c := channel / 255.0
	if c <= 0.03928 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

// RelativeLuminance computes WCAG relative luminance for a color.
func RelativeLuminance(c RGB) float64 {
	r := linearize(c.R)
	g := linearize(c.G)
	b := linearize(c.B)
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// ContrastRatio computes the WCAG contrast ratio between two colors,
// order-independent.
func ContrastRatio(fg, bg RGB) float64 {
	l1 := RelativeLuminance(fg)
	l2 := RelativeLuminance(bg)
	lMax, lMin := l1, l2
	if lMin > lMax {
		lMax, lMin = lMin, lMax
	}
	return (lMax + 0.05) / (lMin + 0.05)
}

// RequiredRatio returns the WCAG 2.1 AA threshold for the given text
// size/weight: 3:1 for large text (>=18pt, or >=14pt bold), 4.5:1
// otherwise.
func RequiredRatio(fontSizePt float64, bold bool) float64 {
	if fontSizePt >= 18 || (fontSizePt >= 14 && bold) {
		return 3.0
	}
	return 4.5
}
