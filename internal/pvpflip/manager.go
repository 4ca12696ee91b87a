package pvpflip

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/flipello"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/obslog"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/pvp"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/service/board"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultGameTTL     = 24 * time.Hour
	defaultMoveTimeout = 10 * time.Minute
)

var (
	ErrNotInitialized = errors.New("pvp manager not initialized")
	ErrTooManyGames   = errors.New("too many concurrent games")
	ErrGameNotFound   = errors.New("game not found")
	ErrNotParticipant = errors.New("user not in game")
)

const concurrentUpdateText = "동시 명령이 감지되어 처리되지 않았습니다. 다시 시도해주세요."

// rejection is a user-facing refusal raised inside a transaction. It is
// reported as text, never as an error.
type rejection struct{ text string }

func (r *rejection) Error() string { return r.text }

func reject(text string) error { return &rejection{text: text} }

type Manager struct {
	rdb         *redis.Client
	renderer    board.BoardRenderer
	repo        *Repository
	profiles    ProfileRecorder
	ttl         time.Duration
	maxActive   int
	moveTimeout time.Duration
	now         func() time.Time
}

func NewManager(redisURL string) (*Manager, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for PvP manager")
	}
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Manager{
		rdb:         rdb,
		renderer:    board.NewSVGBoardRenderer(board.DefaultTheme),
		ttl:         defaultGameTTL,
		moveTimeout: defaultMoveTimeout,
		now:         time.Now,
	}, nil
}

// Redis exposes the shared client so the lobby store can reuse the pool.
func (m *Manager) Redis() *redis.Client {
	if m == nil {
		return nil
	}
	return m.rdb
}

func (m *Manager) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}

// AttachRepository wires a database repository for persisting PvP results.
func (m *Manager) AttachRepository(r *Repository) {
	if m != nil {
		m.repo = r
	}
}

// AttachProfiles wires rating updates for finished games.
func (m *Manager) AttachProfiles(p ProfileRecorder) {
	if m != nil {
		m.profiles = p
	}
}

func (m *Manager) SetRenderer(r board.BoardRenderer) {
	if m != nil && r != nil {
		m.renderer = r
	}
}

func (m *Manager) SetGameTTL(d time.Duration) {
	if m != nil && d > 0 {
		m.ttl = d
	}
}

// SetMaxActive caps the number of simultaneously active games; 0 disables the cap.
func (m *Manager) SetMaxActive(n int) {
	if m != nil && n >= 0 {
		m.maxActive = n
	}
}

func (m *Manager) SetMoveTimeout(d time.Duration) {
	if m != nil && d > 0 {
		m.moveTimeout = d
	}
}

// CreateGame creates a PvP game from an accepted challenge. sideChoice is the
// challenger's preference.
func (m *Manager) CreateGame(ctx context.Context, originRoom, resolveRoom, challengerID, challengerName, targetID, targetName, sideChoice string, variant flipello.Variant) (*Game, error) {
	if m == nil || m.rdb == nil {
		return nil, ErrNotInitialized
	}
	challengerID, targetID = strings.TrimSpace(challengerID), strings.TrimSpace(targetID)
	if challengerID == "" || targetID == "" || challengerID == targetID {
		return nil, fmt.Errorf("invalid participants")
	}
	if variant == "" {
		variant = flipello.VariantFlipello
	}
	if _, ok := flipello.ParseVariant(string(variant)); !ok {
		return nil, fmt.Errorf("unknown variant %q", variant)
	}
	if m.maxActive > 0 {
		n, err := m.liveActive(ctx)
		if err != nil {
			return nil, err
		}
		if int(n) >= m.maxActive {
			return nil, ErrTooManyGames
		}
	}

	firstID, firstName := challengerID, challengerName
	secondID, secondName := targetID, targetName
	if pvp.ParseSideChoice(sideChoice).Resolve(coinFlip) == flipello.SideSecond {
		firstID, firstName, secondID, secondName = targetID, targetName, challengerID, challengerName
	}

	now := m.now()
	g := &Game{
		ID:          "flip-" + uuid.NewString(),
		Variant:     variant,
		Board:       variant.NewGameBoard().Encode(),
		Moves:       []string{},
		Turn:        flipello.SideFirst,
		Status:      StatusActive,
		FirstID:     firstID,
		FirstName:   strings.TrimSpace(firstName),
		SecondID:    secondID,
		SecondName:  strings.TrimSpace(secondName),
		OriginRoom:  strings.TrimSpace(originRoom),
		ResolveRoom: strings.TrimSpace(resolveRoom),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := m.save(ctx, g); err != nil {
		return nil, err
	}
	obslog.L().Info("flip_game_create",
		zap.String("game_id", g.ID),
		zap.String("variant", string(g.Variant)),
		zap.String("origin_room", g.OriginRoom),
		zap.String("resolve_room", g.ResolveRoom),
		zap.String("first_id", g.FirstID),
		zap.String("second_id", g.SecondID),
	)
	if err := m.indexParticipants(ctx, g.ID, g.FirstID, g.SecondID); err != nil {
		return nil, err
	}
	return g, nil
}

// GetActiveGameByUser returns the latest active game for a user.
func (m *Manager) GetActiveGameByUser(ctx context.Context, userID string) (*Game, error) {
	return m.activeGame(ctx, userID, "")
}

// GetActiveGameByUserInRoom returns the most recent active game for the user
// in the given room. A user may play in several rooms at once.
func (m *Manager) GetActiveGameByUserInRoom(ctx context.Context, userID, room string) (*Game, error) {
	room = strings.TrimSpace(room)
	if room == "" {
		return nil, nil
	}
	return m.activeGame(ctx, userID, room)
}

func (m *Manager) activeGame(ctx context.Context, userID, room string) (*Game, error) {
	if m == nil || m.rdb == nil {
		return nil, ErrNotInitialized
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}
	ids, err := m.rdb.SMembers(ctx, idxUserKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	var list []*Game
	for _, id := range ids {
		g, gerr := m.get(ctx, id)
		if gerr != nil || g == nil || !g.Active() {
			continue
		}
		if room != "" && !g.InRoom(room) {
			continue
		}
		list = append(list, g)
	}
	if len(list) == 0 {
		return nil, nil
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list[0], nil
}

// PlayMove places a disc for the requesting user in their latest active game.
// Illegal input is answered with explanatory text and a nil error.
func (m *Manager) PlayMove(ctx context.Context, userID, key string) (*Game, string, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, "", fmt.Errorf("invalid user")
	}
	g, err := m.GetActiveGameByUser(ctx, userID)
	if err != nil || g == nil {
		return nil, "", err
	}
	return m.playMove(ctx, g, userID, "", key)
}

// PlayMoveByRoom is PlayMove restricted to the user's active game in roomID.
func (m *Manager) PlayMoveByRoom(ctx context.Context, userID, roomID, key string) (*Game, string, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(roomID) == "" {
		return nil, "", fmt.Errorf("invalid parameters")
	}
	g, err := m.GetActiveGameByUserInRoom(ctx, userID, roomID)
	if err != nil || g == nil {
		return nil, "", err
	}
	return m.playMove(ctx, g, userID, strings.TrimSpace(roomID), key)
}

func (m *Manager) playMove(ctx context.Context, g *Game, userID, room, key string) (*Game, string, error) {
	userID = strings.TrimSpace(userID)
	oldLen := len(g.Moves)
	var (
		resultText string
		res        flipello.Resolution
		passed     bool
	)

	updated, err := m.mutate(ctx, g.ID, func(cur *Game) error {
		if len(cur.Moves) != oldLen {
			return redis.TxFailedErr
		}
		if room != "" && !cur.InRoom(room) {
			return fmt.Errorf("game not in room")
		}
		side := cur.SideOf(userID)
		if side == flipello.SideNone {
			return ErrNotParticipant
		}
		if cur.Turn != side {
			return reject("지금은 상대 차례입니다.")
		}
		raw := strings.TrimSpace(key)
		if raw == "" {
			return reject("잘못된 수 입력입니다. 예: d3")
		}
		origin, perr := flipello.ParseKey(raw)
		if perr != nil {
			return reject("잘못된 수 입력입니다. 예: d3")
		}
		b, derr := cur.BoardState()
		if derr != nil {
			return derr
		}
		played, perr := flipello.Play(b, origin, side)
		switch {
		case errors.Is(perr, flipello.ErrOutOfBounds):
			return reject(fmt.Sprintf("판 밖의 좌표입니다: %s", raw))
		case errors.Is(perr, flipello.ErrOccupied):
			return reject(fmt.Sprintf("이미 돌이 놓인 칸입니다: %s", origin.Key()))
		case errors.Is(perr, flipello.ErrNoCaptures):
			return reject(fmt.Sprintf("%s 에는 뒤집을 수 있는 돌이 없습니다.", origin.Key()))
		case perr != nil:
			return perr
		}
		res = played

		cur.Board = b.Encode()
		cur.Moves = append(cur.Moves, origin.Key())
		cur.Flipped = res.Keys()
		cur.UpdatedAt = m.now()

		next, didPass, over := flipello.NextTurn(b, side)
		passed = didPass
		if didPass {
			cur.Passes++
		}
		cur.Turn = next
		if over {
			finishByScore(cur, b)
		}
		resultText = fmt.Sprintf("%s: %s (%d개 뒤집음)", cur.PlayerName(side), origin.Key(), len(res.Captures))
		if passed {
			resultText += fmt.Sprintf("\n%s 님은 둘 곳이 없어 차례를 넘깁니다.", cur.PlayerName(side.Opponent()))
		}
		return nil
	})
	if err != nil {
		var rej *rejection
		switch {
		case errors.As(err, &rej):
			return g, rej.text, nil
		case errors.Is(err, redis.TxFailedErr):
			return g, concurrentUpdateText, nil
		}
		return nil, "", err
	}

	obslog.L().Info("flip_move",
		zap.String("game_id", updated.ID),
		zap.String("room_id", room),
		zap.String("user_id", userID),
		zap.String("move", updated.LastMove()),
		zap.Int("flipped", len(res.Captures)),
		zap.Bool("passed", passed),
		zap.String("turn", updated.Turn.String()),
		zap.String("status", string(updated.Status)),
		zap.String("outcome", updated.Outcome),
	)
	if updated.final() {
		m.onFinish(ctx, updated)
	}
	return updated, resultText, nil
}

// finishByScore ends the game when neither side can move.
func finishByScore(g *Game, b *flipello.Board) {
	g.Method = MethodVariantEnd
	g.Turn = flipello.SideNone
	switch w := flipello.Winner(b); w {
	case flipello.SideNone:
		g.Status = StatusDraw
		g.Outcome = "draw"
		g.Winner = ""
	default:
		g.Status = StatusFinished
		g.Outcome = w.String()
		g.Winner = g.PlayerID(w)
	}
}

func (m *Manager) Resign(ctx context.Context, userID string) (*Game, string, error) {
	g, err := m.GetActiveGameByUser(ctx, userID)
	if err != nil || g == nil {
		return nil, "", err
	}
	return m.resign(ctx, g, strings.TrimSpace(userID), "")
}

// ResignByRoom resigns the user's active game in roomID only.
func (m *Manager) ResignByRoom(ctx context.Context, userID, roomID string) (*Game, string, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(roomID) == "" {
		return nil, "", fmt.Errorf("invalid parameters")
	}
	g, err := m.GetActiveGameByUserInRoom(ctx, userID, roomID)
	if err != nil || g == nil {
		return nil, "", err
	}
	return m.resign(ctx, g, strings.TrimSpace(userID), strings.TrimSpace(roomID))
}

func (m *Manager) resign(ctx context.Context, g *Game, userID, room string) (*Game, string, error) {
	updated, err := m.mutate(ctx, g.ID, func(cur *Game) error {
		if room != "" && !cur.InRoom(room) {
			return fmt.Errorf("game not in room")
		}
		side := cur.SideOf(userID)
		if side == flipello.SideNone {
			return ErrNotParticipant
		}
		cur.Status = StatusResigned
		cur.Method = MethodResign
		cur.Outcome = side.Opponent().String()
		cur.Winner = cur.PlayerID(side.Opponent())
		cur.Turn = flipello.SideNone
		cur.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, "", fmt.Errorf("game no longer active")
		}
		return nil, "", err
	}
	obslog.L().Info("flip_resign",
		zap.String("game_id", updated.ID),
		zap.String("room_id", room),
		zap.String("resigner", userID),
		zap.String("winner", updated.Winner),
	)
	m.onFinish(ctx, updated)
	return updated, "기권", nil
}

// Abort cancels a game before any disc has been placed. Games already in
// progress must be resigned instead.
func (m *Manager) Abort(ctx context.Context, userID, roomID string) (*Game, string, error) {
	g, err := m.activeGame(ctx, userID, strings.TrimSpace(roomID))
	if err != nil || g == nil {
		return nil, "", err
	}
	userID = strings.TrimSpace(userID)
	updated, err := m.mutate(ctx, g.ID, func(cur *Game) error {
		if cur.SideOf(userID) == flipello.SideNone {
			return ErrNotParticipant
		}
		if len(cur.Moves) > 0 {
			return reject("이미 수가 진행되어 중단할 수 없습니다. 기권을 이용해주세요.")
		}
		cur.Status = StatusAborted
		cur.Method = MethodAborted
		cur.Turn = flipello.SideNone
		cur.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		var rej *rejection
		if errors.As(err, &rej) {
			return g, rej.text, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			return g, concurrentUpdateText, nil
		}
		return nil, "", err
	}
	obslog.L().Info("flip_abort", zap.String("game_id", updated.ID), zap.String("user_id", userID))
	m.onFinish(ctx, updated)
	return updated, "대국이 중단되었습니다.", nil
}

// ClaimTimeout awards the game to userID when the opponent has not moved
// within the move timeout.
func (m *Manager) ClaimTimeout(ctx context.Context, userID, roomID string) (*Game, string, error) {
	g, err := m.activeGame(ctx, userID, strings.TrimSpace(roomID))
	if err != nil || g == nil {
		return nil, "", err
	}
	userID = strings.TrimSpace(userID)
	updated, err := m.mutate(ctx, g.ID, func(cur *Game) error {
		side := cur.SideOf(userID)
		if side == flipello.SideNone {
			return ErrNotParticipant
		}
		if cur.Turn == side {
			return reject("지금은 본인 차례입니다.")
		}
		idle := m.now().Sub(cur.UpdatedAt)
		if idle < m.moveTimeout {
			left := (m.moveTimeout - idle).Round(time.Second)
			return reject(fmt.Sprintf("아직 시간이 남아 있습니다. %s 후에 다시 시도해주세요.", left))
		}
		cur.Status = StatusTimeout
		cur.Method = MethodTimeout
		cur.Outcome = side.String()
		cur.Winner = userID
		cur.Turn = flipello.SideNone
		cur.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		var rej *rejection
		if errors.As(err, &rej) {
			return g, rej.text, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			return g, concurrentUpdateText, nil
		}
		return nil, "", err
	}
	obslog.L().Info("flip_timeout", zap.String("game_id", updated.ID), zap.String("claimer", userID))
	m.onFinish(ctx, updated)
	return updated, "시간 초과 승리", nil
}

// Hint suggests the move flipping the most discs for the user, who must be
// the side to move. roomID may be empty.
func (m *Manager) Hint(ctx context.Context, userID, roomID string) (*Game, flipello.Resolution, bool, error) {
	g, err := m.activeGame(ctx, userID, strings.TrimSpace(roomID))
	if err != nil || g == nil {
		return nil, flipello.Resolution{}, false, err
	}
	side := g.SideOf(strings.TrimSpace(userID))
	if side == flipello.SideNone || g.Turn != side {
		return g, flipello.Resolution{}, false, nil
	}
	b, err := g.BoardState()
	if err != nil {
		return nil, flipello.Resolution{}, false, err
	}
	res, ok := flipello.Hint(b, side)
	return g, res, ok, nil
}

// mutate runs fn on the stored game inside a WATCH transaction and writes the
// result back. fn only runs on active games.
func (m *Manager) mutate(ctx context.Context, id string, fn func(cur *Game) error) (*Game, error) {
	if m == nil || m.rdb == nil {
		return nil, ErrNotInitialized
	}
	gameK := gameKey(id)
	var out *Game
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, gameK).Bytes()
		if err == redis.Nil {
			return ErrGameNotFound
		}
		if err != nil {
			return err
		}
		var cur Game
		if jerr := json.Unmarshal(raw, &cur); jerr != nil {
			return jerr
		}
		if !cur.Active() {
			return redis.TxFailedErr
		}
		if err := fn(&cur); err != nil {
			return err
		}
		newRaw, err := json.Marshal(&cur)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, gameK, newRaw, m.ttl)
		if cur.final() {
			pipe.SRem(ctx, activeKey(), cur.ID)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		out = &cur
		return nil
	}, gameK)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Manager) onFinish(ctx context.Context, g *Game) {
	_ = m.persistIfFinal(ctx, g)
	m.recordProfiles(ctx, g)
}

func coinFlip() bool {
	n, err := rand.Int(rand.Reader, big.NewInt(2))
	return err == nil && n.Int64() == 1
}

// Persistence
func (m *Manager) save(ctx context.Context, g *Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	pipe := m.rdb.TxPipeline()
	pipe.Set(ctx, gameKey(g.ID), raw, m.ttl)
	if g.Active() {
		pipe.SAdd(ctx, activeKey(), g.ID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (m *Manager) get(ctx context.Context, id string) (*Game, error) {
	raw, err := m.rdb.Get(ctx, gameKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var g Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// LoadGame returns the game by ID, nil when it does not exist or has expired.
func (m *Manager) LoadGame(ctx context.Context, id string) (*Game, error) {
	if m == nil || m.rdb == nil {
		return nil, ErrNotInitialized
	}
	return m.get(ctx, id)
}

// ActiveCount reports the number of games currently in play.
func (m *Manager) ActiveCount(ctx context.Context) (int64, error) {
	if m == nil || m.rdb == nil {
		return 0, ErrNotInitialized
	}
	return m.liveActive(ctx)
}

// liveActive drops active-set members whose game key has expired and returns
// how many remain. Abandoned games leave the set only this way.
func (m *Manager) liveActive(ctx context.Context) (int64, error) {
	ids, err := m.rdb.SMembers(ctx, activeKey()).Result()
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	pipe := m.rdb.Pipeline()
	exists := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		exists[i] = pipe.Exists(ctx, gameKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	var stale []any
	for i, cmd := range exists {
		if cmd.Val() == 0 {
			stale = append(stale, ids[i])
		}
	}
	if len(stale) > 0 {
		if err := m.rdb.SRem(ctx, activeKey(), stale...).Err(); err != nil {
			return 0, err
		}
		obslog.L().Info("flip_active_prune", zap.Int("expired", len(stale)))
	}
	return int64(len(ids) - len(stale)), nil
}

func (m *Manager) indexParticipants(ctx context.Context, id string, users ...string) error {
	for _, u := range users {
		if strings.TrimSpace(u) == "" {
			continue
		}
		key := idxUserKey(u)
		if err := m.rdb.SAdd(ctx, key, id).Err(); err != nil {
			return err
		}
		// the index expires together with the games it points to
		_ = m.rdb.Expire(ctx, key, m.ttl).Err()
	}
	return nil
}

func gameKey(id string) string        { return "flip:game:" + strings.TrimSpace(id) }
func idxUserKey(userID string) string { return "flip:index:user:" + strings.TrimSpace(userID) }
func activeKey() string               { return "flip:active" }

// ParseRedisURL converts a redis:// or rediss:// URL into client options.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}

// persistIfFinal saves the final game result to the repository if available.
func (m *Manager) persistIfFinal(ctx context.Context, g *Game) error {
	if m == nil || m.repo == nil || g == nil || !g.final() {
		return nil
	}
	if err := m.repo.SaveResult(ctx, g); err != nil {
		obslog.L().Error("flip_result_persist_error", zap.String("game_id", g.ID), zap.String("outcome", g.Outcome), zap.Error(err))
		return err
	}
	obslog.L().Info("flip_result_persist", zap.String("game_id", g.ID), zap.String("outcome", g.Outcome), zap.String("method", g.Method))
	return nil
}
