package pvp

import (
	"strings"
	"time"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/flipello"
)

// SideChoice is the side a challenger asks to play.
type SideChoice string

const (
	SideFirst  SideChoice = "first"
	SideSecond SideChoice = "second"
	SideRandom SideChoice = "random"
)

func ParseSideChoice(s string) SideChoice {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "first", "f", "black", "b", "흑", "선":
		return SideFirst
	case "second", "s", "white", "w", "백", "후":
		return SideSecond
	default:
		return SideRandom
	}
}

// Resolve maps the choice to a concrete board side. coin is consulted only
// for SideRandom.
func (c SideChoice) Resolve(coin func() bool) flipello.Side {
	switch c {
	case SideFirst:
		return flipello.SideFirst
	case SideSecond:
		return flipello.SideSecond
	default:
		if coin != nil && coin() {
			return flipello.SideSecond
		}
		return flipello.SideFirst
	}
}

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusDeclined Status = "DECLINED"
)

type Challenge struct {
	ID           string
	OriginRoom   string
	ResolveRoom  string
	ChallengerID string
	TargetID     string
	Side         SideChoice
	Variant      flipello.Variant
	CreatedAt    time.Time
	Status       Status
}
