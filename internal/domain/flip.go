package domain

import "time"

// FlipGame is an archived PvP result row.
type FlipGame struct {
	ID           int64
	GameID       string
	Variant      string
	FirstID      string
	FirstName    string
	SecondID     string
	SecondName   string
	OriginRoom   string
	ResolveRoom  string
	Result       string
	ResultMethod string
	Moves        []string
	FinalBoard   string
	FirstDiscs   int
	SecondDiscs  int
	StartedAt    time.Time
	EndedAt      time.Time
	Duration     time.Duration
}

// FlipProfile aggregates a player's rated results.
type FlipProfile struct {
	PlayerID          string
	DisplayName       string
	Rating            int
	GamesPlayed       int
	Wins              int
	Losses            int
	Draws             int
	OpponentRatingSum int64
	Streak            int
	StreakType        string
	LastPlayedAt      time.Time
	UpdatedAt         time.Time
	CreatedAt         time.Time
}
