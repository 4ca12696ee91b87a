package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/adapter/flippresenter"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/appbuilder"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/config"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/flipello"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/irisfast"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/obslog"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/pvp"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/pvpchan"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/pvpflip"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/service/profile"
	"github.com/park285/Flipello-KakaoTalk-bot/pkg/flipdto"
)

const commandTimeout = 15 * time.Second

type bot struct {
	cfg       *config.AppConfig
	deps      *appbuilder.Deps
	presenter *flippresenter.Presenter
	formatter *flippresenter.Formatter
}

func newBot(cfg *config.AppConfig, deps *appbuilder.Deps, egress irisfast.Egress) *bot {
	send := func(room, message string) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return egress.SendText(ctx, room, message)
	}
	sendImage := func(room, imageBase64 string) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return egress.SendImage(ctx, room, imageBase64)
	}
	return &bot{
		cfg:       cfg,
		deps:      deps,
		presenter: flippresenter.NewPresenter(send, sendImage),
		formatter: deps.Formatter,
	}
}

// accepts filters relay events down to prefixed commands in allowed rooms.
func (b *bot) accepts(msg *irisfast.Message) bool {
	if msg == nil || strings.TrimSpace(msg.Msg) == "" {
		return false
	}
	if !b.cfg.RoomAllowed(msg.Room) {
		obslog.L().Debug("room_not_allowed", zap.String("room", msg.Room))
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(msg.Msg), b.cfg.BotPrefix)
}

func (b *bot) handle(ctx context.Context, msg *irisfast.Message) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(msg.Msg), b.cfg.BotPrefix))
	user := strings.TrimSpace(msg.UserID())
	if raw == "" {
		b.reply(msg.Room, b.formatter.Help())
		return
	}
	if user == "" {
		b.reply(msg.Room, "사용자를 확인할 수 없습니다.")
		return
	}
	parts := strings.Fields(raw)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	obslog.L().Info("bot_command", zap.String("room", msg.Room), zap.String("user_id", user), zap.String("cmd", cmd))

	switch cmd {
	case "도움", "help":
		b.reply(msg.Room, b.formatter.Help())
	case "방만들기", "make":
		b.makeLobby(ctx, msg, user, args)
	case "참가", "join":
		b.joinLobby(ctx, msg, user, args)
	case "방목록", "lobby":
		b.listLobby(ctx, msg)
	case "방취소":
		b.cancelLobby(ctx, msg, user)
	case "도전", "pvp":
		b.challenge(ctx, msg, user, args)
	case "현황", "status":
		b.status(ctx, msg, user)
	case "힌트", "hint":
		b.hint(ctx, msg, user)
	case "기권", "resign":
		b.finishCommand(ctx, msg, user, b.deps.Games.ResignByRoom)
	case "취소", "abort":
		b.finishCommand(ctx, msg, user, b.deps.Games.Abort)
	case "시간승", "timeout":
		b.finishCommand(ctx, msg, user, b.deps.Games.ClaimTimeout)
	case "프로필", "profile":
		b.showProfile(ctx, msg, user)
	case "랭킹", "rank":
		b.leaderboard(ctx, msg, args)
	case "기록", "history":
		b.history(ctx, msg, user, args)
	default:
		if _, err := flipello.ParseKey(cmd); err != nil {
			b.reply(msg.Room, fmt.Sprintf("알 수 없는 명령입니다. `%s 도움`을 확인하세요.", b.formatter.Prefix()))
			return
		}
		b.move(ctx, msg, user, cmd)
	}
}

func (b *bot) reply(room, text string) {
	if err := b.presenter.Text(room, text); err != nil {
		obslog.L().Warn("reply_error", zap.String("room", room), zap.Error(err))
	}
}

// parseGameOptions reads an optional side and variant in any order.
func parseGameOptions(args []string, fallback flipello.Variant) (pvp.SideChoice, flipello.Variant) {
	side := pvp.SideRandom
	variant := fallback
	for _, a := range args {
		if v, ok := flipello.ParseVariant(a); ok && strings.TrimSpace(a) != "" {
			variant = v
			continue
		}
		side = pvp.ParseSideChoice(a)
	}
	return side, variant
}

func (b *bot) makeLobby(ctx context.Context, msg *irisfast.Message, user string, args []string) {
	side, variant := parseGameOptions(args, b.cfg.FlipVariant)
	res, err := b.deps.Lobby.Make(ctx, msg.Room, user, msg.SenderName(), side, variant)
	if err != nil {
		b.reply(msg.Room, lobbyErrorText(err))
		return
	}
	b.reply(msg.Room, b.formatter.LobbyMade(res.Code))
}

func (b *bot) joinLobby(ctx context.Context, msg *irisfast.Message, user string, args []string) {
	if len(args) < 1 {
		b.reply(msg.Room, fmt.Sprintf("용법: `%s 참가 <코드>`", b.formatter.Prefix()))
		return
	}
	code := strings.ToUpper(strings.TrimSpace(args[0]))
	res, err := b.deps.Lobby.Join(ctx, msg.Room, code, user, msg.SenderName())
	if err != nil {
		b.reply(msg.Room, lobbyErrorText(err))
		return
	}
	if !res.Started {
		b.reply(msg.Room, fmt.Sprintf("대기방 %s 에 참가했습니다.", code))
		return
	}
	g, err := b.deps.Games.LoadGame(ctx, res.GameID)
	if err != nil || g == nil {
		b.reply(msg.Room, "대국을 불러오지 못했습니다.")
		return
	}
	rooms, _ := b.deps.Lobby.Rooms(ctx, code)
	b.broadcastStart(ctx, g, rooms)
}

func (b *bot) listLobby(ctx context.Context, msg *irisfast.Message) {
	metas, err := b.deps.Lobby.ListLobby(ctx)
	if err != nil {
		b.reply(msg.Room, "대기방 목록을 불러오지 못했습니다.")
		return
	}
	entries := make([]flipdto.LobbyEntry, 0, len(metas))
	for _, m := range metas {
		entries = append(entries, flipdto.LobbyEntry{
			Code:        m.ID,
			CreatorName: m.CreatorName,
			Variant:     string(m.Variant),
			Side:        string(m.Side),
			CreatedAt:   m.CreatedAt,
		})
	}
	b.reply(msg.Room, b.formatter.Lobby(entries))
}

func (b *bot) cancelLobby(ctx context.Context, msg *irisfast.Message, user string) {
	meta, err := b.deps.Lobby.Cancel(ctx, user)
	if err != nil {
		b.reply(msg.Room, lobbyErrorText(err))
		return
	}
	b.reply(msg.Room, b.formatter.LobbyCancelled(meta.ID))
}

func (b *bot) challenge(ctx context.Context, msg *irisfast.Message, user string, args []string) {
	if len(args) < 1 || !strings.HasPrefix(args[0], "@") {
		b.reply(msg.Room, fmt.Sprintf("용법: `%s 도전 @상대 [흑|백|랜덤] [8x8|10x10]`", b.formatter.Prefix()))
		return
	}
	target := strings.TrimSpace(strings.TrimPrefix(args[0], "@"))
	if target == "" {
		b.reply(msg.Room, "상대를 확인할 수 없습니다.")
		return
	}
	if busy, _ := b.deps.Games.GetActiveGameByUserInRoom(ctx, user, msg.Room); busy != nil {
		b.reply(msg.Room, lobbyErrorText(pvpchan.ErrPlayerBusyInRoom))
		return
	}
	side, variant := parseGameOptions(args[1:], b.cfg.FlipVariant)
	ch, err := b.deps.Challenges.CreateChallenge(msg.Room, user, target, side, variant)
	if err != nil {
		b.reply(msg.Room, challengeErrorText(err))
		return
	}
	g, err := b.deps.Games.CreateGame(ctx, ch.OriginRoom, ch.ResolveRoom, ch.ChallengerID, msg.SenderName(), ch.TargetID, target, string(ch.Side), ch.Variant)
	if err != nil {
		b.reply(msg.Room, gameErrorText(err))
		return
	}
	b.broadcastStart(ctx, g, nil)
}

func (b *bot) broadcastStart(ctx context.Context, g *pvpflip.Game, extraRooms []string) {
	state, err := b.deps.Games.ToDTO(ctx, g)
	if err != nil {
		obslog.L().Error("render_error", zap.String("game_id", g.ID), zap.Error(err))
		return
	}
	b.broadcast(g, extraRooms, b.formatter.Start(state), state)
}

func (b *bot) broadcast(g *pvpflip.Game, extraRooms []string, text string, state *flipdto.SessionState) {
	rooms := append([]string{g.OriginRoom, g.ResolveRoom}, extraRooms...)
	if err := b.presenter.Broadcast(rooms, text, state); err != nil {
		obslog.L().Warn("broadcast_error", zap.String("game_id", g.ID), zap.Error(err))
	}
}

func (b *bot) status(ctx context.Context, msg *irisfast.Message, user string) {
	g, err := b.deps.Games.GetActiveGameByUserInRoom(ctx, user, msg.Room)
	if err != nil || g == nil {
		b.reply(msg.Room, b.formatter.NoGame())
		return
	}
	state, err := b.deps.Games.ToDTOForViewer(ctx, g, user)
	if err != nil {
		b.reply(msg.Room, "표시 오류")
		return
	}
	_ = b.presenter.Board(msg.Room, b.formatter.Board(state), state)
}

func (b *bot) hint(ctx context.Context, msg *irisfast.Message, user string) {
	g, res, ok, err := b.deps.Games.Hint(ctx, user, msg.Room)
	if err != nil || g == nil {
		b.reply(msg.Room, b.formatter.NoGame())
		return
	}
	if !ok {
		if g.Turn != g.SideOf(user) {
			b.reply(msg.Room, "지금은 상대 차례입니다.")
			return
		}
		b.reply(msg.Room, b.formatter.Hint(nil))
		return
	}
	b.reply(msg.Room, b.formatter.Hint(&flipdto.HintSuggestion{Move: res.Origin.Key(), Captures: res.Keys()}))
}

func (b *bot) move(ctx context.Context, msg *irisfast.Message, user, key string) {
	before, err := b.deps.Games.GetActiveGameByUserInRoom(ctx, user, msg.Room)
	if err != nil || before == nil {
		b.reply(msg.Room, b.formatter.NoGame())
		return
	}
	g, text, err := b.deps.Games.PlayMoveByRoom(ctx, user, msg.Room, key)
	if err != nil || g == nil {
		obslog.L().Warn("move_error", zap.String("user_id", user), zap.Error(err))
		b.reply(msg.Room, "이동 실패")
		return
	}
	if g.Active() && len(g.Moves) == len(before.Moves) {
		b.reply(msg.Room, text)
		return
	}
	state, err := b.deps.Games.ToDTO(ctx, g)
	if err != nil {
		b.reply(msg.Room, "표시 오류")
		return
	}
	b.broadcast(g, b.channelRooms(ctx, user, g.ID), b.formatter.Move(state, text), state)
}

type finishFunc func(ctx context.Context, userID, roomID string) (*pvpflip.Game, string, error)

func (b *bot) finishCommand(ctx context.Context, msg *irisfast.Message, user string, fn finishFunc) {
	g, text, err := fn(ctx, user, msg.Room)
	if err != nil || g == nil {
		if err != nil {
			obslog.L().Warn("finish_command_error", zap.String("user_id", user), zap.Error(err))
		}
		b.reply(msg.Room, b.formatter.NoGame())
		return
	}
	if g.Active() {
		b.reply(msg.Room, text)
		return
	}
	state, err := b.deps.Games.ToDTO(ctx, g)
	if err != nil {
		b.reply(msg.Room, "표시 오류")
		return
	}
	b.broadcast(g, b.channelRooms(ctx, user, g.ID), b.formatter.Finish(state), state)
}

func (b *bot) channelRooms(ctx context.Context, user, gameID string) []string {
	rooms, err := b.deps.Lobby.RoomsByUserAndGame(ctx, user, gameID)
	if err != nil {
		return nil
	}
	return rooms
}

func (b *bot) showProfile(ctx context.Context, msg *irisfast.Message, user string) {
	p, err := b.deps.Profiles.Profile(ctx, user)
	if err != nil && !errors.Is(err, profile.ErrProfileNotFound) {
		b.reply(msg.Room, "프로필 조회 실패")
		return
	}
	b.reply(msg.Room, b.formatter.PlayerInfo(p))
}

func (b *bot) leaderboard(ctx context.Context, msg *irisfast.Message, args []string) {
	list, err := b.deps.Profiles.Leaderboard(ctx, limitArg(args, 10))
	if err != nil {
		b.reply(msg.Room, "랭킹 조회 실패")
		return
	}
	b.reply(msg.Room, b.formatter.Leaderboard(list))
}

func (b *bot) history(ctx context.Context, msg *irisfast.Message, user string, args []string) {
	list, err := b.deps.Profiles.History(ctx, user, limitArg(args, b.cfg.FlipHistoryLimit))
	if err != nil {
		b.reply(msg.Room, "기록 조회 실패")
		return
	}
	b.reply(msg.Room, b.formatter.History(list))
}

func limitArg(args []string, def int) int {
	if len(args) >= 1 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 && n <= 50 {
			return n
		}
	}
	if def <= 0 {
		return 10
	}
	return def
}

func lobbyErrorText(err error) string {
	switch {
	case errors.Is(err, pvpchan.ErrChannelGone):
		return "대기방을 찾을 수 없거나 만료되었습니다."
	case errors.Is(err, pvpchan.ErrChannelActive), errors.Is(err, pvpchan.ErrFull):
		return "이미 대국이 시작된 방입니다."
	case errors.Is(err, pvpchan.ErrAlreadyJoined):
		return "이미 참가한 방입니다."
	case errors.Is(err, pvpchan.ErrPlayerBusyInRoom):
		return "이 방에서 이미 진행 중인 대국이 있습니다."
	case errors.Is(err, pvpchan.ErrCreatorHasLobby):
		return "이미 만든 대기방이 있습니다. 먼저 방취소를 해주세요."
	case errors.Is(err, pvpchan.ErrNoLobby):
		return "열려 있는 대기방이 없습니다."
	case errors.Is(err, pvpchan.ErrInvalidArgs):
		return "잘못된 입력입니다."
	default:
		return gameErrorText(err)
	}
}

func challengeErrorText(err error) string {
	switch {
	case errors.Is(err, pvp.ErrSelfChallenge):
		return "자기 자신에게는 도전할 수 없습니다."
	case errors.Is(err, pvp.ErrAlreadyPending):
		return "상대에게 이미 대기 중인 도전이 있습니다."
	default:
		return "도전을 만들 수 없습니다."
	}
}

func gameErrorText(err error) string {
	if errors.Is(err, pvpflip.ErrTooManyGames) {
		return "동시에 진행 중인 대국이 너무 많습니다. 잠시 후 다시 시도해주세요."
	}
	obslog.L().Error("game_error", zap.Error(err))
	return "대국을 시작할 수 없습니다."
}
