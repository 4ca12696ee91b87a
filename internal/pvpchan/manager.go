package pvpchan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/flipello"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/obslog"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/pvp"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/pvpflip"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Manager struct {
	rdb   *redis.Client
	store *Store
	games *pvpflip.Manager
	now   func() time.Time
}

func NewManager(rdb *redis.Client, games *pvpflip.Manager) *Manager {
	return &Manager{rdb: rdb, store: NewStore(rdb), games: games, now: time.Now}
}

// Make opens a lobby in room. side is the creator's seating preference and
// is applied when the second player joins.
func (m *Manager) Make(ctx context.Context, room, userID, userName string, side pvp.SideChoice, variant flipello.Variant) (*MakeResult, error) {
	room, userID = strings.TrimSpace(room), strings.TrimSpace(userID)
	if room == "" || userID == "" {
		return nil, ErrInvalidArgs
	}
	if variant == "" {
		variant = flipello.VariantFlipello
	}
	if _, ok := flipello.ParseVariant(string(variant)); !ok {
		return nil, ErrInvalidArgs
	}
	// 동시성: 플레이어가 동일 방에서 이미 진행 중인 대국이 있으면 채널 생성 금지
	if g, _ := m.games.GetActiveGameByUserInRoom(ctx, userID, room); g != nil {
		return nil, ErrPlayerBusyInRoom
	}
	if err := m.checkCreator(ctx, userID); err != nil {
		return nil, err
	}

	for i := 0; i < 5; i++ {
		c, err := codeGen()
		if err != nil {
			return nil, err
		}
		// only set if key doesn't exist
		ok, err := m.rdb.SetNX(ctx, m.store.keyMeta(c), []byte("{}"), ttlChannel).Result()
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		claimed, err := m.store.ClaimCreator(ctx, userID, c)
		if err != nil {
			return nil, err
		}
		if !claimed {
			_ = m.rdb.Del(ctx, m.store.keyMeta(c)).Err()
			return nil, ErrCreatorHasLobby
		}
		meta := &ChannelMeta{
			ID:          c,
			State:       StateLobby,
			CreatedAt:   m.now(),
			Variant:     variant,
			Side:        side,
			CreatorID:   userID,
			CreatorName: strings.TrimSpace(userName),
			CreatorRoom: room,
		}
		if err := m.store.SaveMeta(ctx, c, meta); err != nil {
			return nil, err
		}
		if err := m.store.AddRoom(ctx, c, room); err != nil {
			return nil, err
		}
		// creator is the first participant so the next join starts the game
		if err := m.store.AddParticipant(ctx, c, userID); err != nil {
			return nil, err
		}
		if err := m.store.AddLobby(ctx, c); err != nil {
			return nil, err
		}
		obslog.L().Info("lobby_make", zap.String("code", c), zap.String("room", room), zap.String("creator_id", userID), zap.String("variant", string(variant)))
		return &MakeResult{Code: c, Meta: meta}, nil
	}
	return nil, fmt.Errorf("failed to allocate channel code")
}

// checkCreator rejects users who still hold a waiting lobby and clears stale
// reservations.
func (m *Manager) checkCreator(ctx context.Context, userID string) error {
	code, err := m.store.CreatorCode(ctx, userID)
	if err != nil || code == "" {
		return err
	}
	meta, err := m.store.LoadMeta(ctx, code)
	if err != nil {
		return err
	}
	if meta != nil && meta.State == StateLobby {
		return ErrCreatorHasLobby
	}
	return m.store.ReleaseCreator(ctx, userID)
}

// Join adds the user to a lobby. The second participant starts the game.
func (m *Manager) Join(ctx context.Context, room, code, userID, userName string) (*JoinResult, error) {
	room, code, userID = strings.TrimSpace(room), strings.ToUpper(strings.TrimSpace(code)), strings.TrimSpace(userID)
	if room == "" || code == "" || userID == "" {
		return nil, ErrInvalidArgs
	}
	meta, err := m.store.LoadMeta(ctx, code)
	if err != nil {
		return nil, err
	}
	if meta == nil || meta.ID == "" {
		return nil, ErrChannelGone
	}
	if meta.State != StateLobby {
		return nil, ErrChannelActive
	}
	if meta.CreatorID == userID {
		return nil, ErrAlreadyJoined
	}
	// 방 기준 중복 대국 금지: 참가자/생성자 각각 자신의 방에서 ACTIVE 대국이 있는지 검사
	if busy, _ := m.games.GetActiveGameByUserInRoom(ctx, userID, room); busy != nil {
		return nil, ErrPlayerBusyInRoom
	}
	if busy, _ := m.games.GetActiveGameByUserInRoom(ctx, meta.CreatorID, meta.CreatorRoom); busy != nil {
		return nil, ErrPlayerBusyInRoom
	}

	// WATCH participants to prevent race joins
	partKey := m.store.keyParticipants(code)
	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cnt, err := tx.SCard(ctx, partKey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if cnt >= 2 {
			return ErrFull
		}
		pipe := tx.TxPipeline()
		pipe.SAdd(ctx, partKey, userID)
		pipe.Expire(ctx, partKey, ttlChannel)
		pipe.SAdd(ctx, m.store.keyRooms(code), room)
		pipe.Expire(ctx, m.store.keyRooms(code), ttlChannel)
		pipe.SAdd(ctx, m.store.keyUserIdx(userID), code)
		pipe.Expire(ctx, m.store.keyUserIdx(userID), ttlChannel)
		_, pErr := pipe.Exec(ctx)
		return pErr
	}, partKey)
	if err != nil {
		obslog.L().Warn("lobby_join_error", zap.String("code", code), zap.String("room", room), zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	meta, err = m.store.LoadMeta(ctx, code)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrChannelGone
	}
	cnt, _ := m.store.ParticipantCount(ctx, code)
	if cnt < 2 || meta.GameID != "" {
		obslog.L().Info("lobby_join", zap.String("code", code), zap.String("room", room), zap.String("user_id", userID), zap.String("reason", "queued"))
		return &JoinResult{Started: false, GameID: meta.GameID, Meta: meta}, nil
	}

	g, err := m.games.CreateGame(ctx, meta.CreatorRoom, room, meta.CreatorID, meta.CreatorName, userID, strings.TrimSpace(userName), string(meta.Side), meta.Variant)
	if err != nil {
		m.undoJoin(ctx, code, room, userID, meta.CreatorRoom)
		obslog.L().Warn("lobby_start_error", zap.String("code", code), zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	meta.FirstID, meta.FirstName = g.FirstID, g.FirstName
	meta.SecondID, meta.SecondName = g.SecondID, g.SecondName
	meta.State = StateActive
	meta.GameID = g.ID
	if err := m.store.SaveMeta(ctx, code, meta); err != nil {
		return nil, err
	}
	_ = m.store.RemoveLobby(ctx, code)
	_ = m.store.ReleaseCreator(ctx, meta.CreatorID)
	obslog.L().Info("lobby_start_game", zap.String("code", code), zap.String("game_id", g.ID), zap.String("first_id", g.FirstID), zap.String("second_id", g.SecondID))
	return &JoinResult{Started: true, GameID: g.ID, Meta: meta}, nil
}

// undoJoin takes the joiner back out so the lobby stays open for another try.
func (m *Manager) undoJoin(ctx context.Context, code, room, userID, creatorRoom string) {
	pipe := m.rdb.TxPipeline()
	pipe.SRem(ctx, m.store.keyParticipants(code), userID)
	pipe.SRem(ctx, m.store.keyUserIdx(userID), code)
	if room != creatorRoom {
		pipe.SRem(ctx, m.store.keyRooms(code), room)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		obslog.L().Error("lobby_join_undo_error", zap.String("code", code), zap.String("user_id", userID), zap.Error(err))
	}
}

// Cancel closes the user's waiting lobby.
func (m *Manager) Cancel(ctx context.Context, userID string) (*ChannelMeta, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidArgs
	}
	code, err := m.store.CreatorCode(ctx, userID)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, ErrNoLobby
	}
	meta, err := m.store.LoadMeta(ctx, code)
	if err != nil {
		return nil, err
	}
	_ = m.store.ReleaseCreator(ctx, userID)
	if meta == nil || meta.State != StateLobby {
		return nil, ErrNoLobby
	}
	meta.State = StateAborted
	if err := m.store.SaveMeta(ctx, code, meta); err != nil {
		return nil, err
	}
	_ = m.store.RemoveLobby(ctx, code)
	obslog.L().Info("lobby_cancel", zap.String("code", code), zap.String("creator_id", userID))
	return meta, nil
}

func (m *Manager) Rooms(ctx context.Context, code string) ([]string, error) {
	return m.store.Rooms(ctx, code)
}

// RoomsByUserAndGame finds channel rooms for a user where its channel binds the given game.
func (m *Manager) RoomsByUserAndGame(ctx context.Context, userID, gameID string) ([]string, error) {
	codes, err := m.store.CodesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range codes {
		meta, _ := m.store.LoadMeta(ctx, c)
		if meta != nil && meta.GameID == gameID {
			return m.store.Rooms(ctx, c)
		}
	}
	return nil, nil
}

// ListLobby returns lobby (waiting) channels' metadata for listing.
func (m *Manager) ListLobby(ctx context.Context) ([]*ChannelMeta, error) {
	return m.store.ListLobby(ctx)
}
