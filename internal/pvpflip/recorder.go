package pvpflip

import (
	"context"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/domain"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/obslog"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/service/profile"
	"go.uber.org/zap"
)

// ProfileRecorder receives rated results of finished games.
type ProfileRecorder interface {
	RecordResult(ctx context.Context, first, second profile.PlayerRef, outcome profile.Outcome) error
}

// gameArchiver is implemented by recorders that also keep game history.
// It is used only when no result repository is attached.
type gameArchiver interface {
	RecordGame(ctx context.Context, rec *domain.FlipGame) error
}

func (m *Manager) recordProfiles(ctx context.Context, g *Game) {
	if m == nil || m.profiles == nil || g == nil || !g.final() {
		return
	}
	if m.repo == nil {
		if a, ok := m.profiles.(gameArchiver); ok {
			if err := a.RecordGame(ctx, ArchiveRecord(g)); err != nil {
				obslog.L().Warn("flip_history_record_error", zap.String("game_id", g.ID), zap.Error(err))
			}
		}
	}
	outcome, ok := profileOutcome(g)
	if !ok {
		return
	}
	first := profile.PlayerRef{ID: g.FirstID, Name: g.FirstName}
	second := profile.PlayerRef{ID: g.SecondID, Name: g.SecondName}
	if err := m.profiles.RecordResult(ctx, first, second, outcome); err != nil {
		obslog.L().Warn("flip_profile_record_error", zap.String("game_id", g.ID), zap.Error(err))
	}
}

// profileOutcome maps a final game onto a rated outcome. Aborted games are
// not rated.
func profileOutcome(g *Game) (profile.Outcome, bool) {
	if g.Status == StatusAborted {
		return "", false
	}
	switch g.Outcome {
	case "first":
		return profile.OutcomeFirstWin, true
	case "second":
		return profile.OutcomeSecondWin, true
	case "draw":
		return profile.OutcomeDraw, true
	default:
		return "", false
	}
}
