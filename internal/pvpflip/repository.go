package pvpflip

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/domain"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/flipello"

	_ "github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

// NewRepositoryWithDB wraps an already opened pool, shared with the profile store.
func NewRepositoryWithDB(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the pool so other stores can reuse the connection.
func (r *Repository) DB() *sql.DB {
	if r == nil {
		return nil
	}
	return r.db
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts a final PvP game result into flip_games.
func (r *Repository) SaveResult(ctx context.Context, g *Game) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}
	rec := ArchiveRecord(g)
	movesRaw, err := json.Marshal(rec.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}

	const q = `INSERT INTO flip_games (
		game_id, variant, first_id, first_name, second_id, second_name,
		origin_room, resolve_room, result, result_method, moves, final_board,
		first_discs, second_discs, started_at, ended_at, duration_ms
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11::jsonb,$12,$13,$14,$15,$16,$17
	) ON CONFLICT (game_id) DO UPDATE SET
		result=EXCLUDED.result,
		result_method=EXCLUDED.result_method,
		moves=EXCLUDED.moves,
		final_board=EXCLUDED.final_board,
		first_discs=EXCLUDED.first_discs,
		second_discs=EXCLUDED.second_discs,
		ended_at=EXCLUDED.ended_at,
		duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		rec.GameID, rec.Variant,
		rec.FirstID, rec.FirstName,
		rec.SecondID, rec.SecondName,
		rec.OriginRoom, rec.ResolveRoom,
		rec.Result, rec.ResultMethod, string(movesRaw), rec.FinalBoard,
		rec.FirstDiscs, rec.SecondDiscs,
		rec.StartedAt, rec.EndedAt, rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("upsert flip game: %w", err)
	}
	return nil
}

// ArchiveRecord flattens a finished game into the archived row shape.
// Result is "first", "second", "draw" or "" for aborted games.
func ArchiveRecord(g *Game) *domain.FlipGame {
	rec := &domain.FlipGame{
		GameID:       g.ID,
		Variant:      string(g.Variant),
		FirstID:      g.FirstID,
		FirstName:    g.FirstName,
		SecondID:     g.SecondID,
		SecondName:   g.SecondName,
		OriginRoom:   g.OriginRoom,
		ResolveRoom:  g.ResolveRoom,
		Result:       strings.TrimSpace(g.Outcome),
		ResultMethod: g.Method,
		Moves:        append([]string(nil), g.Moves...),
		FinalBoard:   g.Board,
		StartedAt:    g.CreatedAt,
		EndedAt:      g.UpdatedAt,
	}
	if rec.Moves == nil {
		rec.Moves = []string{}
	}
	if b, err := g.BoardState(); err == nil {
		s := flipello.CountScore(b)
		rec.FirstDiscs, rec.SecondDiscs = s.First, s.Second
	}
	if d := g.UpdatedAt.Sub(g.CreatedAt); d > 0 {
		rec.Duration = d
	}
	return rec
}
