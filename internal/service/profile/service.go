package profile

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/domain"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/obslog"
	"github.com/park285/Flipello-KakaoTalk-bot/pkg/flipdto"
	"go.uber.org/zap"
)

// Service keeps player ratings and result history.
type Service struct {
	repo Repository
	// serializes read-modify-write of profile pairs
	mu  sync.Mutex
	now func() time.Time
}

func NewService(repo Repository) *Service {
	if repo == nil {
		repo = NewMemoryRepository()
	}
	return &Service{repo: repo, now: time.Now}
}

// RecordResult applies a rated result to both players.
func (s *Service) RecordResult(ctx context.Context, first, second PlayerRef, outcome Outcome) error {
	first.ID, second.ID = strings.TrimSpace(first.ID), strings.TrimSpace(second.ID)
	if first.ID == "" || second.ID == "" || first.ID == second.ID {
		return fmt.Errorf("invalid players for result")
	}
	var firstScore float64
	switch outcome {
	case OutcomeFirstWin:
		firstScore = 1
	case OutcomeSecondWin:
		firstScore = 0
	case OutcomeDraw:
		firstScore = 0.5
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	fp, err := s.loadOrNew(ctx, first, now)
	if err != nil {
		return err
	}
	sp, err := s.loadOrNew(ctx, second, now)
	if err != nil {
		return err
	}

	firstBefore, secondBefore := fp.Rating, sp.Rating
	firstDelta := applyGameResult(fp, firstBefore, secondBefore, firstScore, now)
	secondDelta := applyGameResult(sp, secondBefore, firstBefore, 1-firstScore, now)

	if err := s.repo.UpsertProfile(ctx, fp); err != nil {
		return err
	}
	if err := s.repo.UpsertProfile(ctx, sp); err != nil {
		return err
	}
	obslog.L().Info("flip_profile_update",
		zap.String("first_id", fp.PlayerID),
		zap.Int("first_rating", fp.Rating),
		zap.Int("first_delta", firstDelta),
		zap.String("second_id", sp.PlayerID),
		zap.Int("second_rating", sp.Rating),
		zap.Int("second_delta", secondDelta),
		zap.String("outcome", string(outcome)),
	)
	return nil
}

// RecordGame stores a finished game for History.
func (s *Service) RecordGame(ctx context.Context, rec *domain.FlipGame) error {
	if rec == nil || strings.TrimSpace(rec.GameID) == "" {
		return fmt.Errorf("invalid game record")
	}
	return s.repo.InsertGame(ctx, rec)
}

func (s *Service) loadOrNew(ctx context.Context, ref PlayerRef, now time.Time) (*domain.FlipProfile, error) {
	p, err := s.repo.GetProfile(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &domain.FlipProfile{
			PlayerID:  ref.ID,
			Rating:    defaultPlayerRating,
			CreatedAt: now,
		}
	}
	if name := strings.TrimSpace(ref.Name); name != "" {
		p.DisplayName = name
	}
	return p, nil
}

// applyGameResult updates the profile for one game scored 1, 0.5 or 0 and
// returns the rating change. Ratings are the values before the game.
func applyGameResult(p *domain.FlipProfile, rating, opponent int, score float64, endedAt time.Time) int {
	p.GamesPlayed++
	p.OpponentRatingSum += int64(opponent)
	p.LastPlayedAt = endedAt
	p.UpdatedAt = endedAt

	resultType := streakDraw
	switch score {
	case 1:
		p.Wins++
		resultType = streakWin
	case 0:
		p.Losses++
		resultType = streakLoss
	default:
		p.Draws++
	}
	if p.StreakType == resultType {
		p.Streak++
	} else {
		p.Streak = 1
		p.StreakType = resultType
	}

	expected := 1 / (1 + math.Pow(10, float64(opponent-rating)/400))
	p.Rating = int(math.Round(float64(rating) + kFactor*(score-expected)))
	return p.Rating - rating
}

func (s *Service) Profile(ctx context.Context, playerID string) (*flipdto.Profile, error) {
	p, err := s.repo.GetProfile(ctx, strings.TrimSpace(playerID))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	out := ToDTO(p)
	return &out, nil
}

// Leaderboard returns the highest rated players with Rank filled in.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]flipdto.Profile, error) {
	list, err := s.repo.TopProfiles(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]flipdto.Profile, 0, len(list))
	for i, p := range list {
		dto := ToDTO(p)
		dto.Rank = i + 1
		out = append(out, dto)
	}
	return out, nil
}

// History lists the player's most recent games, newest first.
func (s *Service) History(ctx context.Context, playerID string, limit int) ([]flipdto.HistoryEntry, error) {
	playerID = strings.TrimSpace(playerID)
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	games, err := s.repo.GetRecentGames(ctx, playerID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]flipdto.HistoryEntry, 0, len(games))
	for _, g := range games {
		out = append(out, historyEntry(g, playerID))
	}
	return out, nil
}

func historyEntry(g *domain.FlipGame, playerID string) flipdto.HistoryEntry {
	e := flipdto.HistoryEntry{
		GameID:       g.GameID,
		Variant:      g.Variant,
		ResultMethod: g.ResultMethod,
		Score:        flipdto.Score{First: g.FirstDiscs, Second: g.SecondDiscs},
		EndedAt:      g.EndedAt,
	}
	side := "second"
	e.Opponent = g.FirstName
	if g.FirstID == playerID {
		side = "first"
		e.Opponent = g.SecondName
	}
	e.Side = side
	switch g.Result {
	case "draw":
		e.Result = streakDraw
	case "":
		e.Result = ""
	case side:
		e.Result = streakWin
	default:
		e.Result = streakLoss
	}
	return e
}

// ToDTO derives the player-info panel values from a stored profile.
func ToDTO(p *domain.FlipProfile) flipdto.Profile {
	out := flipdto.Profile{
		PlayerID:     p.PlayerID,
		DisplayName:  p.DisplayName,
		Rating:       p.Rating,
		GamesPlayed:  p.GamesPlayed,
		Wins:         p.Wins,
		Losses:       p.Losses,
		Draws:        p.Draws,
		Streak:       p.Streak,
		StreakType:   p.StreakType,
		LastPlayedAt: p.LastPlayedAt,
		Provisional:  Provisional(p.GamesPlayed),
	}
	if p.GamesPlayed > 0 {
		out.WinRate = int(math.Round(float64(p.Wins) * 100 / float64(p.GamesPlayed)))
		out.AverageOpponent = int(math.Round(float64(p.OpponentRatingSum) / float64(p.GamesPlayed)))
		out.Performance = out.AverageOpponent + int(math.Round(400*float64(p.Wins-p.Losses)/float64(p.GamesPlayed)))
	}
	return out
}

// Provisional reports whether a performance figure rests on too few games.
func Provisional(gamesPlayed int) bool { return gamesPlayed < provisionalGames }
