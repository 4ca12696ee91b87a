package pvpchan

import (
	"time"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/flipello"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/pvp"
)

// ChannelState represents the lifecycle of a PvP channel.
type ChannelState string

const (
	StateLobby    ChannelState = "LOBBY"
	StateActive   ChannelState = "ACTIVE"
	StateFinished ChannelState = "FINISHED"
	StateAborted  ChannelState = "ABORTED"
)

// ChannelMeta is stored as JSON in Redis under ch:<code>.
type ChannelMeta struct {
	ID        string           `json:"id"`
	State     ChannelState     `json:"state"`
	CreatedAt time.Time        `json:"created_at"`
	Variant   flipello.Variant `json:"variant"`
	// Side is the creator's seating preference.
	Side pvp.SideChoice `json:"side"`

	CreatorID   string `json:"creator_id"`
	CreatorName string `json:"creator_name"`
	CreatorRoom string `json:"creator_room"`

	FirstID    string `json:"first_id,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	SecondID   string `json:"second_id,omitempty"`
	SecondName string `json:"second_name,omitempty"`

	GameID string `json:"game_id,omitempty"`
}

type MakeResult struct {
	Code string
	Meta *ChannelMeta
}

type JoinResult struct {
	Started bool
	GameID  string
	Meta    *ChannelMeta
}

var (
	ErrInvalidArgs   = errf("invalid arguments")
	ErrChannelGone   = errf("channel not found or expired")
	ErrChannelActive = errf("channel already active")
	ErrFull          = errf("channel already has two participants")
	ErrAlreadyJoined = errf("user already joined this channel")
	// 플레이어가 동일 방에서 이미 진행 중인 대국이 있는 경우
	ErrPlayerBusyInRoom = errf("player has active game in this room")
	// 동일 사용자가 동시에 2개 이상 대기방 생성 불가
	ErrCreatorHasLobby = errf("user already has a lobby")
	ErrNoLobby         = errf("user has no open lobby")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
