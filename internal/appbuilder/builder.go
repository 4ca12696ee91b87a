package appbuilder

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/adapter/flippresenter"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/config"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/msgcat"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/pvp"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/pvpchan"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/pvpflip"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/service/board"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/service/profile"
)

type Deps struct {
	Games      *pvpflip.Manager
	Lobby      *pvpchan.Manager
	Challenges *pvp.Manager
	Profiles   *profile.Service
	Repo       *pvpflip.Repository
	Catalog    *msgcat.Catalog
	Formatter  *flippresenter.Formatter
}

type prefixProvider struct{ prefix string }

func (p prefixProvider) Prefix() string { return p.prefix }

// New wires the game services from config. Redis is required; Postgres is
// optional and profiles fall back to an in-memory store without it.
func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required for game sessions")
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	games, err := pvpflip.NewManager(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("init game manager: %w", err)
	}
	games.SetRenderer(board.NewSVGBoardRenderer(cfg.BoardTheme))
	games.SetGameTTL(cfg.GameTTL())
	games.SetMaxActive(cfg.MaxConcurrentGames)
	games.SetMoveTimeout(cfg.FlipMoveTimeout)

	deps := &Deps{
		Games:      games,
		Lobby:      pvpchan.NewManager(games.Redis(), games),
		Challenges: pvp.NewManager(),
		Catalog:    catalog,
		Formatter:  flippresenter.NewFormatter(prefixProvider{prefix: cfg.BotPrefix}, catalog),
	}

	var profileRepo profile.Repository
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err := pvpflip.NewRepository(cfg.DatabaseURL)
		if err != nil {
			_ = games.Close()
			return nil, fmt.Errorf("init repository: %w", err)
		}
		games.AttachRepository(repo)
		deps.Repo = repo
		profileRepo = profile.NewRepository(repo.DB())
		logger.Info("flip_storage", zap.String("backend", "postgres"))
	} else {
		profileRepo = profile.NewMemoryRepository()
		logger.Warn("flip_storage", zap.String("backend", "memory"))
	}
	deps.Profiles = profile.NewService(profileRepo)
	games.AttachProfiles(deps.Profiles)

	return deps, nil
}

// Close releases Redis and Postgres handles.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Games != nil {
		errs = append(errs, d.Games.Close())
	}
	if d.Repo != nil {
		errs = append(errs, d.Repo.Close())
	}
	return errors.Join(errs...)
}
