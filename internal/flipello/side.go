package flipello

import (
	"fmt"
	"strings"
)

// Side identifies one of the two competing players.
type Side uint8

const (
	SideNone Side = iota
	SideFirst
	SideSecond
)

func (s Side) String() string {
	switch s {
	case SideFirst:
		return "first"
	case SideSecond:
		return "second"
	default:
		return "none"
	}
}

// Opponent returns the other side. SideNone has no opponent.
func (s Side) Opponent() Side {
	switch s {
	case SideFirst:
		return SideSecond
	case SideSecond:
		return SideFirst
	default:
		return SideNone
	}
}

func (s Side) Valid() bool { return s == SideFirst || s == SideSecond }

// ParseSide accepts the canonical names plus the disc-colour aliases used in chat.
func ParseSide(v string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "first", "f", "black", "b", "1":
		return SideFirst, true
	case "second", "s", "white", "w", "2":
		return SideSecond, true
	default:
		return SideNone, false
	}
}

// symbol is the one-byte encoding used by Board.Encode.
func (s Side) symbol() byte {
	switch s {
	case SideFirst:
		return 'x'
	case SideSecond:
		return 'o'
	default:
		return '.'
	}
}

func sideFromSymbol(c byte) (Side, bool) {
	switch c {
	case 'x', 'X', 'b', 'B':
		return SideFirst, true
	case 'o', 'O', 'w', 'W':
		return SideSecond, true
	case '.', '-', '_':
		return SideNone, true
	default:
		return SideNone, false
	}
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(b []byte) error {
	v := string(b)
	if v == "" || v == "none" {
		*s = SideNone
		return nil
	}
	parsed, ok := ParseSide(v)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidSide, v)
	}
	*s = parsed
	return nil
}
