package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/domain"
)

type Repository interface {
	GetProfile(ctx context.Context, playerID string) (*domain.FlipProfile, error)
	UpsertProfile(ctx context.Context, profile *domain.FlipProfile) error
	TopProfiles(ctx context.Context, limit int) ([]*domain.FlipProfile, error)
	InsertGame(ctx context.Context, game *domain.FlipGame) error
	GetRecentGames(ctx context.Context, playerID string, limit int) ([]*domain.FlipGame, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetProfile(ctx context.Context, playerID string) (*domain.FlipProfile, error) {
	const query = `
		SELECT
			player_id,
			display_name,
			rating,
			games_played,
			wins,
			losses,
			draws,
			opponent_rating_sum,
			streak,
			streak_type,
			last_played_at,
			updated_at,
			created_at
		FROM flip_profiles
		WHERE player_id = $1
		LIMIT 1`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, playerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select flip profile: %w", err)
	}
	return p, nil
}

func (r *repository) UpsertProfile(ctx context.Context, profile *domain.FlipProfile) error {
	if profile == nil {
		return fmt.Errorf("nil flip profile payload")
	}
	const query = `
		INSERT INTO flip_profiles (
			player_id,
			display_name,
			rating,
			games_played,
			wins,
			losses,
			draws,
			opponent_rating_sum,
			streak,
			streak_type,
			last_played_at,
			updated_at,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (player_id)
		DO UPDATE SET
			display_name = EXCLUDED.display_name,
			rating = EXCLUDED.rating,
			games_played = EXCLUDED.games_played,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			draws = EXCLUDED.draws,
			opponent_rating_sum = EXCLUDED.opponent_rating_sum,
			streak = EXCLUDED.streak,
			streak_type = EXCLUDED.streak_type,
			last_played_at = EXCLUDED.last_played_at,
			updated_at = NOW()`

	_, err := r.db.ExecContext(
		ctx,
		query,
		profile.PlayerID,
		profile.DisplayName,
		profile.Rating,
		profile.GamesPlayed,
		profile.Wins,
		profile.Losses,
		profile.Draws,
		profile.OpponentRatingSum,
		profile.Streak,
		profile.StreakType,
		profile.LastPlayedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert flip profile: %w", err)
	}
	return nil
}

func (r *repository) TopProfiles(ctx context.Context, limit int) ([]*domain.FlipProfile, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	const query = `
		SELECT
			player_id,
			display_name,
			rating,
			games_played,
			wins,
			losses,
			draws,
			opponent_rating_sum,
			streak,
			streak_type,
			last_played_at,
			updated_at,
			created_at
		FROM flip_profiles
		WHERE games_played > 0
		ORDER BY rating DESC, games_played DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select flip profiles: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.FlipProfile, 0, limit)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flip profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertGame archives a result row; an existing game_id is left untouched.
func (r *repository) InsertGame(ctx context.Context, game *domain.FlipGame) error {
	if game == nil {
		return fmt.Errorf("nil flip game payload")
	}
	moves, err := json.Marshal(game.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}
	const query = `
		INSERT INTO flip_games (
			game_id,
			variant,
			first_id,
			first_name,
			second_id,
			second_name,
			origin_room,
			resolve_room,
			result,
			result_method,
			moves,
			final_board,
			first_discs,
			second_discs,
			started_at,
			ended_at,
			duration_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (game_id) DO NOTHING`

	_, err = r.db.ExecContext(
		ctx,
		query,
		game.GameID,
		game.Variant,
		game.FirstID,
		game.FirstName,
		game.SecondID,
		game.SecondName,
		game.OriginRoom,
		game.ResolveRoom,
		game.Result,
		game.ResultMethod,
		moves,
		game.FinalBoard,
		game.FirstDiscs,
		game.SecondDiscs,
		game.StartedAt,
		game.EndedAt,
		game.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert flip game: %w", err)
	}
	return nil
}

func (r *repository) GetRecentGames(ctx context.Context, playerID string, limit int) ([]*domain.FlipGame, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	const query = `
		SELECT
			id,
			game_id,
			variant,
			first_id,
			first_name,
			second_id,
			second_name,
			origin_room,
			resolve_room,
			result,
			result_method,
			moves,
			final_board,
			first_discs,
			second_discs,
			started_at,
			ended_at,
			duration_ms
		FROM flip_games
		WHERE first_id = $1 OR second_id = $1
		ORDER BY ended_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("select flip games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.FlipGame, 0, limit)
	for rows.Next() {
		var (
			game       domain.FlipGame
			movesJSON  []byte
			durationMS sql.NullInt64
		)
		if err := rows.Scan(
			&game.ID,
			&game.GameID,
			&game.Variant,
			&game.FirstID,
			&game.FirstName,
			&game.SecondID,
			&game.SecondName,
			&game.OriginRoom,
			&game.ResolveRoom,
			&game.Result,
			&game.ResultMethod,
			&movesJSON,
			&game.FinalBoard,
			&game.FirstDiscs,
			&game.SecondDiscs,
			&game.StartedAt,
			&game.EndedAt,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan flip game: %w", err)
		}
		if durationMS.Valid {
			game.Duration = time.Duration(durationMS.Int64) * time.Millisecond
		}
		if len(movesJSON) > 0 {
			if err := json.Unmarshal(movesJSON, &game.Moves); err != nil {
				return nil, fmt.Errorf("unmarshal moves: %w", err)
			}
		}
		games = append(games, &game)
	}
	return games, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.FlipProfile, error) {
	var (
		p          domain.FlipProfile
		lastPlayed sql.NullTime
	)
	if err := row.Scan(
		&p.PlayerID,
		&p.DisplayName,
		&p.Rating,
		&p.GamesPlayed,
		&p.Wins,
		&p.Losses,
		&p.Draws,
		&p.OpponentRatingSum,
		&p.Streak,
		&p.StreakType,
		&lastPlayed,
		&p.UpdatedAt,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	if lastPlayed.Valid {
		p.LastPlayedAt = lastPlayed.Time
	}
	return &p, nil
}
