package profile

import "errors"

var ErrProfileNotFound = errors.New("flip profile not found")

// Outcome is a rated game result from the first side's point of view.
type Outcome string

const (
	OutcomeFirstWin  Outcome = "first"
	OutcomeSecondWin Outcome = "second"
	OutcomeDraw      Outcome = "draw"
)

// PlayerRef names one participant of a finished game.
type PlayerRef struct {
	ID   string
	Name string
}

const (
	defaultPlayerRating = 1200
	kFactor             = 24.0
	provisionalGames    = 3
	defaultHistoryLimit = 10
)

const (
	streakWin  = "win"
	streakLoss = "loss"
	streakDraw = "draw"
)
