package flipdto

import "time"

type Score struct {
	First  int
	Second int
}

type Player struct {
	ID   string
	Name string
	Side string
}

// SessionState is the presenter's view of one game.
type SessionState struct {
	GameID     string
	Variant    string
	Board      string
	Width      int
	Height     int
	Moves      []string
	Flipped    []string
	LastMove   string
	MoveCount  int
	Passes     int
	Score      Score
	Turn       string
	TurnName   string
	First      Player
	Second     Player
	Status     string
	StatusName string
	Outcome    string
	Method     string
	WinnerName string
	LoserName  string
	BoardImage []byte
	UpdatedAt  time.Time
}

// Finished reports whether the game has left the playing state.
func (s *SessionState) Finished() bool {
	return s != nil && s.StatusName != "" && s.StatusName != "started"
}

type HintSuggestion struct {
	Move     string
	Captures []string
}
