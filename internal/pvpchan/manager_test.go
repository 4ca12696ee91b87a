package pvpchan

import (
	"context"
	"errors"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/flipello"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/pvp"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/pvpflip"
	"github.com/redis/go-redis/v9"
)

func newTestManagers(t *testing.T) (*Manager, *pvpflip.Manager) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	// game manager shares the same Redis
	games, err := pvpflip.NewManager(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("pvpflip.NewManager: %v", err)
	}
	t.Cleanup(func() { _ = games.Close() })

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewManager(rdb, games), games
}

func TestMakeJoinStartsGame(t *testing.T) {
	m, games := newTestManagers(t)
	ctx := context.Background()

	mr, err := m.Make(ctx, "roomA", "u1", "Alice", pvp.SideRandom, "")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if len(mr.Code) != len("CH-XXXXXX") || mr.Meta.Variant != flipello.VariantFlipello {
		t.Fatalf("unexpected make result: %+v", mr.Meta)
	}

	jr, err := m.Join(ctx, "roomB", mr.Code, "u2", "Bob")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !jr.Started || jr.Meta.GameID == "" || jr.Meta.State != StateActive {
		t.Fatalf("expected game to start on second join: started=%v game=%q", jr.Started, jr.Meta.GameID)
	}

	g, err := games.GetActiveGameByUser(ctx, "u1")
	if err != nil || g == nil {
		t.Fatalf("GetActiveGameByUser: %v", err)
	}
	if g.ID != jr.Meta.GameID {
		t.Fatalf("gameID mismatch: %q vs %q", g.ID, jr.Meta.GameID)
	}
	if g.OriginRoom != "roomA" || g.ResolveRoom != "roomB" {
		t.Fatalf("rooms = %s/%s", g.OriginRoom, g.ResolveRoom)
	}

	rooms, err := m.Rooms(ctx, mr.Code)
	if err != nil {
		t.Fatalf("Rooms: %v", err)
	}
	if len(rooms) != 2 || rooms[0] != "roomA" || rooms[1] != "roomB" {
		t.Fatalf("expected 2 rooms, got %v", rooms)
	}
	lobby, _ := m.ListLobby(ctx)
	if len(lobby) != 0 {
		t.Fatalf("started channel still listed: %d", len(lobby))
	}
}

func TestCreatorSidePreferenceApplied(t *testing.T) {
	m, games := newTestManagers(t)
	ctx := context.Background()

	mr, err := m.Make(ctx, "roomA", "u1", "Alice", pvp.SideSecond, flipello.VariantFlipello10)
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if _, err := m.Join(ctx, "roomA", mr.Code, "u2", "Bob"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	g, _ := games.GetActiveGameByUser(ctx, "u2")
	if g == nil || g.FirstID != "u2" || g.SecondID != "u1" {
		t.Fatalf("creator asked for second: %+v", g)
	}
	if g.FirstName != "Bob" || g.SecondName != "Alice" || g.Variant != flipello.VariantFlipello10 {
		t.Fatalf("names/variant = %s/%s %s", g.FirstName, g.SecondName, g.Variant)
	}
}

func TestThirdJoinRejected(t *testing.T) {
	m, _ := newTestManagers(t)
	ctx := context.Background()

	mr, err := m.Make(ctx, "roomA", "u1", "u1", pvp.SideRandom, "")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if _, err := m.Join(ctx, "roomB", mr.Code, "u2", "u2"); err != nil {
		t.Fatalf("Join#1: %v", err)
	}
	if _, err := m.Join(ctx, "roomC", mr.Code, "u3", "u3"); !errors.Is(err, ErrChannelActive) {
		t.Fatalf("third join err = %v, want ErrChannelActive", err)
	}
}

func TestFailedStartReopensLobby(t *testing.T) {
	m, games := newTestManagers(t)
	ctx := context.Background()

	games.SetMaxActive(1)
	if _, err := games.CreateGame(ctx, "roomZ", "roomZ", "u8", "u8", "u9", "u9", "first", ""); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	mr, err := m.Make(ctx, "roomA", "u1", "u1", pvp.SideRandom, "")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if _, err := m.Join(ctx, "roomB", mr.Code, "u2", "u2"); !errors.Is(err, pvpflip.ErrTooManyGames) {
		t.Fatalf("join at cap err = %v, want ErrTooManyGames", err)
	}
	if n, _ := m.store.ParticipantCount(ctx, mr.Code); n != 1 {
		t.Fatalf("participants after failed start = %d, want 1", n)
	}
	rooms, _ := m.Rooms(ctx, mr.Code)
	if len(rooms) != 1 || rooms[0] != "roomA" {
		t.Fatalf("rooms after failed start = %v", rooms)
	}

	games.SetMaxActive(0)
	jr, err := m.Join(ctx, "roomB", mr.Code, "u2", "u2")
	if err != nil || !jr.Started {
		t.Fatalf("retry join = %+v %v", jr, err)
	}
	if list, _ := m.ListLobby(ctx); len(list) != 0 {
		t.Fatalf("lobby still listed after start: %d", len(list))
	}
}

func TestJoinOwnLobbyAndUnknownCode(t *testing.T) {
	m, _ := newTestManagers(t)
	ctx := context.Background()

	mr, err := m.Make(ctx, "roomA", "u1", "u1", pvp.SideRandom, "")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if _, err := m.Join(ctx, "roomA", mr.Code, "u1", "u1"); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("self join err = %v", err)
	}
	if _, err := m.Join(ctx, "roomA", "CH-NOPE00", "u2", "u2"); !errors.Is(err, ErrChannelGone) {
		t.Fatalf("unknown code err = %v", err)
	}
	if _, err := m.Join(ctx, "", mr.Code, "u2", "u2"); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("empty room err = %v", err)
	}
}

func TestRoomsByUserAndGame(t *testing.T) {
	m, games := newTestManagers(t)
	ctx := context.Background()

	mr, err := m.Make(ctx, "roomA", "u1", "u1", pvp.SideRandom, "")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	jr, err := m.Join(ctx, "roomB", mr.Code, "u2", "u2")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !jr.Started {
		t.Fatalf("game not started")
	}

	g, err := games.GetActiveGameByUser(ctx, "u2")
	if err != nil || g == nil {
		t.Fatalf("GetActiveGameByUser: %v", err)
	}
	rooms, err := m.RoomsByUserAndGame(ctx, "u2", g.ID)
	if err != nil {
		t.Fatalf("RoomsByUserAndGame: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d (%v)", len(rooms), rooms)
	}
	if none, _ := m.RoomsByUserAndGame(ctx, "u2", "flip-other"); len(none) != 0 {
		t.Fatalf("unexpected rooms for unknown game: %v", none)
	}
}

func TestMakeBlockedIfActiveGameInSameRoom(t *testing.T) {
	m, games := newTestManagers(t)
	ctx := context.Background()

	if _, err := games.CreateGame(ctx, "roomA", "roomB", "u1", "u1", "u2", "u2", "random", ""); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if _, err := m.Make(ctx, "roomA", "u1", "u1", pvp.SideRandom, ""); !errors.Is(err, ErrPlayerBusyInRoom) {
		t.Fatalf("Make err = %v, want ErrPlayerBusyInRoom", err)
	}
	// another room is fine
	if _, err := m.Make(ctx, "roomC", "u1", "u1", pvp.SideRandom, ""); err != nil {
		t.Fatalf("Make in free room: %v", err)
	}
}

func TestJoinBlockedIfUserActiveInSameRoom(t *testing.T) {
	m, games := newTestManagers(t)
	ctx := context.Background()

	if _, err := games.CreateGame(ctx, "roomX", "roomB", "x1", "x1", "u2", "u2", "random", ""); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	mr, err := m.Make(ctx, "roomA", "u1", "u1", pvp.SideRandom, "")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if _, err := m.Join(ctx, "roomB", mr.Code, "u2", "u2"); !errors.Is(err, ErrPlayerBusyInRoom) {
		t.Fatalf("Join err = %v, want ErrPlayerBusyInRoom", err)
	}
	// the rejected join must not consume the seat
	if jr, err := m.Join(ctx, "roomA", mr.Code, "u3", "u3"); err != nil || !jr.Started {
		t.Fatalf("Join by free player = %+v, %v", jr, err)
	}
}

func TestMakeRestrictedDuplicateCreator(t *testing.T) {
	m, _ := newTestManagers(t)
	ctx := context.Background()

	if _, err := m.Make(ctx, "roomA", "u1", "u1", pvp.SideRandom, ""); err != nil {
		t.Fatalf("first Make: %v", err)
	}
	if _, err := m.Make(ctx, "roomB", "u1", "u1", pvp.SideRandom, ""); !errors.Is(err, ErrCreatorHasLobby) {
		t.Fatalf("duplicate Make err = %v, want ErrCreatorHasLobby", err)
	}
}

func TestCancelLobby(t *testing.T) {
	m, _ := newTestManagers(t)
	ctx := context.Background()

	mr, err := m.Make(ctx, "roomA", "u1", "u1", pvp.SideRandom, "")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if lobby, _ := m.ListLobby(ctx); len(lobby) != 1 || lobby[0].ID != mr.Code {
		t.Fatalf("lobby listing = %v", lobby)
	}
	meta, err := m.Cancel(ctx, "u1")
	if err != nil || meta.State != StateAborted {
		t.Fatalf("Cancel = %+v, %v", meta, err)
	}
	if lobby, _ := m.ListLobby(ctx); len(lobby) != 0 {
		t.Fatalf("cancelled lobby still listed")
	}
	if _, err := m.Join(ctx, "roomB", mr.Code, "u2", "u2"); !errors.Is(err, ErrChannelActive) {
		t.Fatalf("join cancelled lobby err = %v", err)
	}
	if _, err := m.Cancel(ctx, "u1"); !errors.Is(err, ErrNoLobby) {
		t.Fatalf("second cancel err = %v", err)
	}
	// the creator may open a new lobby afterwards
	if _, err := m.Make(ctx, "roomA", "u1", "u1", pvp.SideRandom, ""); err != nil {
		t.Fatalf("Make after cancel: %v", err)
	}
}
