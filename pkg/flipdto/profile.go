package flipdto

import "time"

type Profile struct {
	Rank            int
	PlayerID        string
	DisplayName     string
	Rating          int
	GamesPlayed     int
	Wins            int
	Losses          int
	Draws           int
	WinRate         int
	Performance     int
	AverageOpponent int
	Streak          int
	StreakType      string
	LastPlayedAt    time.Time
	Provisional     bool
}

type HistoryEntry struct {
	GameID       string
	Variant      string
	Opponent     string
	Side         string
	Result       string
	ResultMethod string
	Score        Score
	EndedAt      time.Time
}
