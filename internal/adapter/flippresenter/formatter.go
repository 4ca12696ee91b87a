package flippresenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/msgcat"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/util"
	"github.com/park285/Flipello-KakaoTalk-bot/pkg/flipdto"
)

const (
	helpInstruction        = "⚫ 플립엘로 명령어 안내"
	historyInstruction     = "📜 최근 대국"
	profileInstruction     = "⚫ 플립엘로 프로필"
	leaderboardInstruction = "🏅 플립엘로 랭킹"
)

// PrefixProvider exposes the Prefix that Kakao messages should use.
type PrefixProvider interface {
	Prefix() string
}

// Formatter renders game DTOs into Kakao-friendly text blocks. Templates
// come from the message catalog; every call has a built-in fallback.
type Formatter struct {
	prefixProvider PrefixProvider
	catalog        *msgcat.Catalog
}

func NewFormatter(provider PrefixProvider, catalog *msgcat.Catalog) *Formatter {
	return &Formatter{prefixProvider: provider, catalog: catalog}
}

func (f *Formatter) Prefix() string {
	if f == nil || f.prefixProvider == nil {
		return ""
	}
	return strings.TrimSpace(f.prefixProvider.Prefix())
}

func (f *Formatter) render(key string, data map[string]any, fallback string) string {
	if f == nil || f.catalog == nil {
		return fallback
	}
	return f.catalog.RenderOr(key, data, fallback)
}

// Status is the one-line description of where the game stands.
func (f *Formatter) Status(state *flipdto.SessionState) string {
	if state == nil {
		return ""
	}
	loser := map[string]any{"Loser": state.LoserName}
	switch state.StatusName {
	case "started":
		return f.render("status.started", nil, "대국 진행 중")
	case "aborted":
		return f.render("status.aborted", nil, "대국이 취소되었습니다")
	case "resign":
		return f.render("status.resign", loser, state.LoserName+" 님이 기권했습니다")
	case "timeout":
		if state.WinnerName != "" {
			return f.render("status.timeout", loser, state.LoserName+" 님이 대국을 떠났습니다")
		}
		return f.render("status.timeoutDraw", nil, "무승부")
	case "draw":
		return f.render("status.draw", nil, "무승부")
	case "variantEnd":
		return f.render("status.variantEnd", map[string]any{"First": state.Score.First, "Second": state.Score.Second},
			fmt.Sprintf("더 이상 둘 곳이 없어 대국이 끝났습니다 (%d : %d)", state.Score.First, state.Score.Second))
	case "unknownFinish":
		return f.render("status.unknownFinish", nil, "Finished")
	default:
		return state.StatusName
	}
}

// Board is the caption sent with a status request.
func (f *Formatter) Board(state *flipdto.SessionState) string {
	if state == nil {
		return f.NoGame()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⚫ %s vs %s\n", playerName(state.First, "흑"), playerName(state.Second, "백")))
	sb.WriteString("• ")
	sb.WriteString(f.Status(state))
	sb.WriteString("\n• ")
	sb.WriteString(f.score(state.Score))
	sb.WriteString(fmt.Sprintf("\n• 진행 %d수", state.MoveCount))
	if state.LastMove != "" {
		sb.WriteString(fmt.Sprintf(" (최근 %s)", state.LastMove))
	}
	if !state.Finished() {
		sb.WriteString("\n• ")
		sb.WriteString(f.turn(state))
	}
	return sb.String()
}

func (f *Formatter) Start(state *flipdto.SessionState) string {
	if state == nil {
		return fmt.Sprintf("대국을 시작할 수 없습니다. `%s 방만들기`를 다시 시도해주세요.", f.Prefix())
	}
	data := map[string]any{
		"First":   playerName(state.First, "흑"),
		"Second":  playerName(state.Second, "백"),
		"Variant": fmt.Sprintf("%dx%d", state.Width, state.Height),
		"Prefix":  f.Prefix(),
		"Example": "d3",
	}
	fallback := fmt.Sprintf("⚫ 플립엘로 대국 시작\n• 흑(선공): %s\n• 백(후공): %s\n• 판: %s\n\n착수: `%s <좌표>` (예: d3)",
		data["First"], data["Second"], data["Variant"], data["Prefix"])
	return f.render("game.start", data, fallback) + "\n" + f.turn(state)
}

// Move composes the caption after a placement: the manager's move line,
// then either whose turn it is or the final result.
func (f *Formatter) Move(state *flipdto.SessionState, moveText string) string {
	var parts []string
	if t := strings.TrimSpace(moveText); t != "" {
		parts = append(parts, t)
	}
	if state != nil {
		if state.Finished() {
			parts = append(parts, f.Finish(state))
		} else {
			parts = append(parts, f.turn(state))
		}
	}
	return strings.Join(parts, "\n")
}

func (f *Formatter) Finish(state *flipdto.SessionState) string {
	if state == nil {
		return ""
	}
	var head string
	switch {
	case state.StatusName == "aborted":
		head = f.render("game.aborted", nil, "대국이 취소되어 기록되지 않습니다.")
	case state.Outcome == "draw" || state.WinnerName == "":
		head = f.render("game.draw", nil, "🤝 무승부로 종료되었습니다.")
	default:
		head = f.render("game.win", map[string]any{"Winner": state.WinnerName}, "🏆 "+state.WinnerName+" 님 승리!")
	}
	lines := []string{head, "• " + f.Status(state), "• " + f.score(state.Score)}
	return strings.Join(lines, "\n")
}

func (f *Formatter) Hint(h *flipdto.HintSuggestion) string {
	if h == nil || strings.TrimSpace(h.Move) == "" {
		return f.render("game.noHint", nil, "지금은 둘 수 있는 칸이 없습니다.")
	}
	data := map[string]any{"Move": h.Move, "Count": len(h.Captures)}
	return f.render("game.hint", data, fmt.Sprintf("💡 추천 수: %s (%d개 뒤집기)", h.Move, len(h.Captures)))
}

func (f *Formatter) NoGame() string {
	p := f.Prefix()
	return f.render("game.noGame", map[string]any{"Prefix": p},
		fmt.Sprintf("진행 중인 대국이 없습니다. `%s 방만들기`로 상대를 모집하세요.", p))
}

func (f *Formatter) LobbyMade(code string) string {
	p := f.Prefix()
	return f.render("lobby.made", map[string]any{"Code": code, "Prefix": p},
		fmt.Sprintf("🟢 대기방 %s 을(를) 만들었습니다.\n참가: `%s 참가 %s`", code, p, code))
}

func (f *Formatter) LobbyCancelled(code string) string {
	return f.render("lobby.cancelled", map[string]any{"Code": code}, fmt.Sprintf("대기방 %s 을(를) 닫았습니다.", code))
}

func (f *Formatter) Lobby(entries []flipdto.LobbyEntry) string {
	if len(entries) == 0 {
		p := f.Prefix()
		return f.render("lobby.empty", map[string]any{"Prefix": p},
			fmt.Sprintf("대기 중인 방이 없습니다. `%s 방만들기`로 새 방을 여세요.", p))
	}
	var sb strings.Builder
	sb.WriteString(f.render("lobby.header", nil, "📋 대기방 목록"))
	for _, e := range entries {
		data := map[string]any{
			"Code":    e.Code,
			"Creator": e.CreatorName,
			"Variant": e.Variant,
			"Side":    sideChoiceLabel(e.Side),
		}
		sb.WriteByte('\n')
		sb.WriteString(f.render("lobby.item", data,
			fmt.Sprintf("• %s %s (%s, %s)", e.Code, e.CreatorName, e.Variant, data["Side"])))
	}
	return sb.String()
}

// PlayerInfo renders the player panel: title, rating, performance with a
// provisional marker, games, win rate, average opponent and streak.
func (f *Formatter) PlayerInfo(p *flipdto.Profile) string {
	if p == nil {
		return f.render("profile.empty", nil, "저장된 프로필이 없습니다.")
	}
	var sb strings.Builder
	sb.WriteString(profileInstruction)
	sb.WriteByte('\n')
	sb.WriteString(playerTitle(p))
	sb.WriteByte('\n')
	sb.WriteString(f.render("profile.rating", map[string]any{"Rating": p.Rating}, fmt.Sprintf("• 레이팅: %d", p.Rating)))
	sb.WriteByte('\n')
	if p.Performance > 0 {
		perf := fmt.Sprintf("%d", p.Performance)
		if p.Provisional {
			perf += "?"
		}
		sb.WriteString(f.render("profile.performance", map[string]any{"Performance": perf}, "• 퍼포먼스: "+perf))
		sb.WriteByte('\n')
	}
	sb.WriteString(f.render("profile.games", map[string]any{"Games": p.GamesPlayed}, fmt.Sprintf("• 대국 수: %d", p.GamesPlayed)))
	sb.WriteByte('\n')
	if p.GamesPlayed > 0 {
		record := map[string]any{"Wins": p.Wins, "Losses": p.Losses, "Draws": p.Draws}
		sb.WriteString(f.render("profile.record", record, fmt.Sprintf("• 전적: %d승 %d패 %d무", p.Wins, p.Losses, p.Draws)))
		sb.WriteByte('\n')
		sb.WriteString(f.render("profile.winRate", map[string]any{"WinRate": p.WinRate}, fmt.Sprintf("• 승률: %d%%", p.WinRate)))
		sb.WriteByte('\n')
		sb.WriteString(f.render("profile.averageOpponent", map[string]any{"AverageOpponent": p.AverageOpponent},
			fmt.Sprintf("• 평균 상대 레이팅: %d", p.AverageOpponent)))
		sb.WriteByte('\n')
	}
	if p.Streak > 1 {
		sb.WriteString(fmt.Sprintf("• 연속 기록: %d%s 진행 중\n", p.Streak, formatStreakSuffix(p.StreakType)))
	}
	if !p.LastPlayedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("• 마지막 대국: %s\n", formatShortTime(p.LastPlayedAt)))
	}
	prefix := f.Prefix()
	sb.WriteString(fmt.Sprintf("\n기록: `%s 기록`, 랭킹: `%s 랭킹`", prefix, prefix))

	return util.SeeMore(sb.String(), profileInstruction)
}

func (f *Formatter) Leaderboard(list []flipdto.Profile) string {
	if len(list) == 0 {
		return f.render("leaderboard.empty", nil, "아직 기록된 대국이 없습니다.")
	}
	var sb strings.Builder
	sb.WriteString(leaderboardInstruction)
	for _, p := range list {
		data := map[string]any{
			"Rank":   p.Rank,
			"Name":   profileName(&p),
			"Rating": p.Rating,
			"Wins":   p.Wins,
			"Losses": p.Losses,
			"Draws":  p.Draws,
		}
		sb.WriteByte('\n')
		sb.WriteString(f.render("leaderboard.item", data,
			fmt.Sprintf("%d. %s %d (%d승 %d패 %d무)", p.Rank, data["Name"], p.Rating, p.Wins, p.Losses, p.Draws)))
	}
	return util.SeeMore(sb.String(), leaderboardInstruction)
}

// History lists recent games with the result glyphs 1, 0, ½ and *.
func (f *Formatter) History(entries []flipdto.HistoryEntry) string {
	if len(entries) == 0 {
		return f.render("history.empty", nil, "최근 대국 기록이 없습니다.")
	}
	var sb strings.Builder
	sb.WriteString(historyInstruction)
	for _, e := range entries {
		data := map[string]any{
			"Result":   resultSymbol(e.Result),
			"Opponent": e.Opponent,
			"First":    e.Score.First,
			"Second":   e.Score.Second,
			"Date":     formatShortTime(e.EndedAt),
		}
		sb.WriteByte('\n')
		sb.WriteString(f.render("history.item", data,
			fmt.Sprintf("• %s vs %s %d:%d %s", data["Result"], e.Opponent, e.Score.First, e.Score.Second, data["Date"])))
	}
	return util.SeeMore(sb.String(), historyInstruction)
}

func (f *Formatter) Help() string {
	p := f.Prefix()
	fallback := fmt.Sprintf(`%s
• %s 방만들기 [흑|백|랜덤] [8x8|10x10]
• %s 참가 <코드>
• %s <좌표> (예: d3)
• %s 현황 / %s 힌트 / %s 기권`, helpInstruction, p, p, p, p, p, p)
	content := f.render("help", map[string]any{"Prefix": p}, fallback)
	return util.SeeMore(content, helpInstruction)
}

func (f *Formatter) score(s flipdto.Score) string {
	return f.render("game.score", map[string]any{"First": s.First, "Second": s.Second},
		fmt.Sprintf("● %d : %d ○", s.First, s.Second))
}

func (f *Formatter) turn(state *flipdto.SessionState) string {
	name := state.TurnName
	if name == "" {
		name = sideLabel(state.Turn)
	}
	data := map[string]any{"Name": name, "Side": sideLabel(state.Turn)}
	return f.render("game.turn", data, fmt.Sprintf("%s 님 차례입니다 (%s)", name, data["Side"]))
}

func playerTitle(p *flipdto.Profile) string {
	if p.Rank > 0 {
		return fmt.Sprintf("%d. %s", p.Rank, profileName(p))
	}
	return profileName(p)
}

func profileName(p *flipdto.Profile) string {
	if n := strings.TrimSpace(p.DisplayName); n != "" {
		return n
	}
	return p.PlayerID
}

func playerName(p flipdto.Player, fallback string) string {
	if n := strings.TrimSpace(p.Name); n != "" {
		return n
	}
	return fallback
}

func sideLabel(side string) string {
	switch side {
	case "first":
		return "흑"
	case "second":
		return "백"
	default:
		return "-"
	}
}

func sideChoiceLabel(choice string) string {
	switch strings.ToLower(strings.TrimSpace(choice)) {
	case "first":
		return "흑"
	case "second":
		return "백"
	default:
		return "랜덤"
	}
}

func resultSymbol(result string) string {
	switch result {
	case "win":
		return "1"
	case "loss":
		return "0"
	case "draw":
		return "½"
	default:
		return "*"
	}
}

func formatStreakSuffix(streakType string) string {
	switch strings.ToLower(strings.TrimSpace(streakType)) {
	case "win":
		return "연승"
	case "loss":
		return "연패"
	case "draw":
		return "연속 무승부"
	default:
		return "연속 기록"
	}
}

func formatShortTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return util.FormatKST(t, "2006-01-02 15:04")
}
