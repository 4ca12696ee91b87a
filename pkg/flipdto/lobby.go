package flipdto

import "time"

// LobbyEntry is one open lobby as listed to chat.
type LobbyEntry struct {
	Code        string
	CreatorName string
	Variant     string
	Side        string
	CreatedAt   time.Time
}
