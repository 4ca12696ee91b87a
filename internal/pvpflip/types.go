package pvpflip

import (
	"time"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/flipello"
)

// Status represents a PvP game lifecycle state.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
	StatusResigned Status = "RESIGNED"
	StatusDraw     Status = "DRAW"
	StatusAborted  Status = "ABORTED"
	StatusTimeout  Status = "TIMEOUT"
)

// Finish methods recorded in Game.Method and the result archive.
const (
	MethodVariantEnd = "variantEnd"
	MethodResign     = "resign"
	MethodTimeout    = "timeout"
	MethodAborted    = "aborted"
)

// Game is the persisted state of a PvP match.
type Game struct {
	ID          string           `json:"id"`
	Variant     flipello.Variant `json:"variant"`
	Board       string           `json:"board"`
	Moves       []string         `json:"moves"`
	Flipped     []string         `json:"flipped,omitempty"`
	Passes      int              `json:"passes"`
	Turn        flipello.Side    `json:"turn"`
	Status      Status           `json:"status"`
	FirstID     string           `json:"first_id"`
	FirstName   string           `json:"first_name"`
	SecondID    string           `json:"second_id"`
	SecondName  string           `json:"second_name"`
	OriginRoom  string           `json:"origin_room"`
	ResolveRoom string           `json:"resolve_room"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Winner      string           `json:"winner,omitempty"`
	Outcome     string           `json:"outcome,omitempty"`
	Method      string           `json:"method,omitempty"`
}

func (g *Game) Active() bool { return g != nil && g.Status == StatusActive }

// SideOf returns the side the user plays, SideNone for spectators.
func (g *Game) SideOf(userID string) flipello.Side {
	switch {
	case g == nil || userID == "":
		return flipello.SideNone
	case g.FirstID == userID:
		return flipello.SideFirst
	case g.SecondID == userID:
		return flipello.SideSecond
	default:
		return flipello.SideNone
	}
}

func (g *Game) PlayerID(s flipello.Side) string {
	switch s {
	case flipello.SideFirst:
		return g.FirstID
	case flipello.SideSecond:
		return g.SecondID
	default:
		return ""
	}
}

func (g *Game) PlayerName(s flipello.Side) string {
	switch s {
	case flipello.SideFirst:
		return g.FirstName
	case flipello.SideSecond:
		return g.SecondName
	default:
		return ""
	}
}

func (g *Game) InRoom(room string) bool {
	return room != "" && (g.OriginRoom == room || g.ResolveRoom == room)
}

// BoardState decodes the stored position.
func (g *Game) BoardState() (*flipello.Board, error) {
	return flipello.DecodeBoard(g.Board)
}

// LastMove is the most recent placement key, if any.
func (g *Game) LastMove() string {
	if n := len(g.Moves); n > 0 {
		return g.Moves[n-1]
	}
	return ""
}

// StatusName maps the lifecycle state onto the status vocabulary the
// presenter formats.
func (g *Game) StatusName() string {
	switch g.Status {
	case StatusActive:
		return "started"
	case StatusAborted:
		return "aborted"
	case StatusResigned:
		return "resign"
	case StatusTimeout:
		return "timeout"
	case StatusFinished, StatusDraw:
		if g.Method == MethodVariantEnd {
			return "variantEnd"
		}
		if g.Status == StatusDraw {
			return "draw"
		}
		return "unknownFinish"
	default:
		return string(g.Status)
	}
}

func (g *Game) final() bool {
	switch g.Status {
	case StatusFinished, StatusResigned, StatusDraw, StatusTimeout, StatusAborted:
		return true
	default:
		return false
	}
}
