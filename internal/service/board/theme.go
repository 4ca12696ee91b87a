package board

import (
	"image/color"
	"strings"
)

// Theme is a board palette: Light and Dark squares, with coordinates drawn in
// the light tone.
type Theme struct {
	Name  string
	Light color.RGBA
	Dark  color.RGBA
}

const DefaultTheme = "green"

var themes = map[string][2]string{
	"blue":          {"#DEE3E6", "#788a94"},
	"blue2":         {"#97b2c7", "#546f82"},
	"blue3":         {"#d9e0e6", "#315991"},
	"canvas":        {"#d7daeb", "#547388"},
	"wood":          {"#d8a45b", "#9b4d0f"},
	"wood2":         {"#a38b5d", "#6c5017"},
	"wood3":         {"#d0ceca", "#755839"},
	"wood4":         {"#caaf7d", "#7b5330"},
	"maple":         {"#e8ceab", "#bc7944"},
	"maple2":        {"#E2C89F", "#996633"},
	"leather":       {"#d1d1c9", "#c28e16"},
	"green":         {"#FFFFDD", "#6d8753"},
	"brown":         {"#F0D9B5", "#946f51"},
	"pink":          {"#E8E9B7", "#ED7272"},
	"marble":        {"#93ab91", "#4f644e"},
	"blue-marble":   {"#EAE6DD", "#7C7F87"},
	"green-plastic": {"#f2f9bb", "#59935d"},
	"grey":          {"#b8b8b8", "#7d7d7d"},
	"metal":         {"#c9c9c9", "#727272"},
	"olive":         {"#b8b19f", "#6d6655"},
	"newspaper":     {"#fff", "#8d8d8d"},
	"purple":        {"#9f90b0", "#7d4a8d"},
	"purple-diag":   {"#E5DAF0", "#957AB0"},
	"ic":            {"#ececec", "#c1c18e"},
	"horsey":        {"#F0D9B5", "#946f51"},
}

// LookupTheme resolves a theme by name. Board-family prefixes such as
// "chess-" are ignored; unknown names fall back to DefaultTheme.
func LookupTheme(name string) Theme {
	key := strings.ToLower(strings.TrimSpace(name))
	if i := strings.IndexByte(key, '-'); i > 0 {
		if _, ok := themes[key]; !ok {
			key = key[i+1:]
		}
	}
	pair, ok := themes[key]
	if !ok {
		key = DefaultTheme
		pair = themes[key]
	}
	return Theme{Name: key, Light: parseHex(pair[0]), Dark: parseHex(pair[1])}
}

// ThemeNames lists the known palettes.
func ThemeNames() []string {
	out := make([]string, 0, len(themes))
	for k := range themes {
		out = append(out, k)
	}
	return out
}

func parseHex(s string) color.RGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: hexByte(s[0:2]), G: hexByte(s[2:4]), B: hexByte(s[4:6]), A: 255}
}

func hexByte(s string) uint8 {
	var v uint8
	for i := 0; i < len(s); i++ {
		v <<= 4
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			v |= c - '0'
		case c >= 'a' && c <= 'f':
			v |= c - 'a' + 10
		case c >= 'A' && c <= 'F':
			v |= c - 'A' + 10
		}
	}
	return v
}
