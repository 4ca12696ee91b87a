package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/adapter/flippresenter"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/flipello"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/pvpflip"
	"github.com/park285/Flipello-KakaoTalk-bot/pkg/flipdto"
)

// GameStore is the slice of the game manager the HTTP surface reads from.
type GameStore interface {
	LoadGame(ctx context.Context, id string) (*pvpflip.Game, error)
	ToDTOForViewer(ctx context.Context, g *pvpflip.Game, viewerID string) (*flipdto.SessionState, error)
	ActiveCount(ctx context.Context) (int64, error)
}

type Server struct {
	games     GameStore
	formatter *flippresenter.Formatter
	logger    *zap.Logger
}

func NewServer(games GameStore, formatter *flippresenter.Formatter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{games: games, formatter: formatter, logger: logger}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Get("/games/{id}", s.game)
	r.Get("/games/{id}/board.png", s.boardPNG)
	r.Post("/preview/captures", s.previewCaptures)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http_listen", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"ok": true}
	if s.games != nil {
		if n, err := s.games.ActiveCount(r.Context()); err == nil {
			resp["active_games"] = n
		} else {
			resp["ok"] = false
			resp["error"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type playerJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type gameJSON struct {
	ID         string     `json:"id"`
	Variant    string     `json:"variant"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	Board      string     `json:"board"`
	Turn       string     `json:"turn"`
	Status     string     `json:"status"`
	StatusText string     `json:"status_text"`
	Score      [2]int     `json:"score"`
	Moves      []string   `json:"moves"`
	LastMove   string     `json:"last_move,omitempty"`
	Flipped    []string   `json:"flipped,omitempty"`
	First      playerJSON `json:"first"`
	Second     playerJSON `json:"second"`
	Outcome    string     `json:"outcome,omitempty"`
	Method     string     `json:"method,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (s *Server) loadGame(w http.ResponseWriter, r *http.Request) *pvpflip.Game {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	g, err := s.games.LoadGame(r.Context(), id)
	if err != nil {
		s.logger.Error("http_game_load_error", zap.String("game_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, flipdto.DomainError{Code: "game_lookup", Message: "game lookup failed", Retryable: true})
		return nil
	}
	if g == nil {
		writeError(w, http.StatusNotFound, flipdto.DomainError{Code: "not_found", Message: "game not found"})
		return nil
	}
	return g
}

func (s *Server) game(w http.ResponseWriter, r *http.Request) {
	g := s.loadGame(w, r)
	if g == nil {
		return
	}
	b, err := g.BoardState()
	if err != nil {
		writeError(w, http.StatusInternalServerError, flipdto.DomainError{Code: "corrupt_board", Message: "corrupt board"})
		return
	}
	state := pvpflip.StateOf(g, b, nil)
	writeJSON(w, http.StatusOK, gameJSON{
		ID:         state.GameID,
		Variant:    state.Variant,
		Width:      state.Width,
		Height:     state.Height,
		Board:      state.Board,
		Turn:       state.Turn,
		Status:     state.StatusName,
		StatusText: s.formatter.Status(state),
		Score:      [2]int{state.Score.First, state.Score.Second},
		Moves:      state.Moves,
		LastMove:   state.LastMove,
		Flipped:    state.Flipped,
		First:      playerJSON{ID: state.First.ID, Name: state.First.Name},
		Second:     playerJSON{ID: state.Second.ID, Name: state.Second.Name},
		Outcome:    state.Outcome,
		Method:     state.Method,
		UpdatedAt:  state.UpdatedAt,
	})
}

func (s *Server) boardPNG(w http.ResponseWriter, r *http.Request) {
	g := s.loadGame(w, r)
	if g == nil {
		return
	}
	state, err := s.games.ToDTOForViewer(r.Context(), g, r.URL.Query().Get("viewer"))
	if err != nil || state == nil || len(state.BoardImage) == 0 {
		s.logger.Error("http_board_render_error", zap.String("game_id", g.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, flipdto.DomainError{Code: "render", Message: "render failed", Retryable: true})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(state.BoardImage)
}

type capturesRequest struct {
	Board string `json:"board"`
	At    string `json:"at"`
	Side  string `json:"side"`
}

type capturesResponse struct {
	Origin   string   `json:"origin"`
	Side     string   `json:"side"`
	Captures []string `json:"captures"`
}

func (s *Server) previewCaptures(w http.ResponseWriter, r *http.Request) {
	var req capturesRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, flipdto.DomainError{Code: "invalid_payload", Message: "invalid payload"})
		return
	}
	board, err := flipello.DecodeBoard(req.Board)
	if err != nil {
		writeError(w, http.StatusBadRequest, flipdto.DomainError{Code: "invalid_board", Message: err.Error()})
		return
	}
	origin, err := flipello.ParseKey(req.At)
	if err != nil {
		writeError(w, http.StatusBadRequest, flipdto.DomainError{Code: "invalid_key", Message: err.Error()})
		return
	}
	side, ok := flipello.ParseSide(req.Side)
	if !ok {
		writeError(w, http.StatusBadRequest, flipdto.DomainError{Code: "invalid_side", Message: "side must be first or second"})
		return
	}
	res, err := flipello.Resolve(origin, side, board)
	if err != nil {
		writeError(w, http.StatusBadRequest, flipdto.DomainError{Code: "out_of_bounds", Message: err.Error()})
		return
	}
	keys := res.Keys()
	sort.Strings(keys)
	writeJSON(w, http.StatusOK, capturesResponse{Origin: origin.Key(), Side: side.String(), Captures: keys})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, e flipdto.DomainError) {
	writeJSON(w, status, map[string]flipdto.DomainError{"error": e})
}
