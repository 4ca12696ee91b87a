package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/flipello"
)

type AppConfig struct {
	IrisBaseURL string
	IrisWSURL   string

	BotPrefix string

	XUserID    string
	XUserEmail string
	XSessionID string

	RedisURL    string
	DatabaseURL string

	MaxConcurrentGames int
	AllowedRooms       []string

	FlipVariant      flipello.Variant
	FlipGameTTLSec   int
	FlipMoveTimeout  time.Duration
	FlipHistoryLimit int
	BoardTheme       string

	MessagesDir string
	HTTPAddr    string

	EgressMode   string // http | ws | auto
	EgressDryRun bool
}

// GameTTL is the Redis lifetime of a game record.
func (c *AppConfig) GameTTL() time.Duration {
	return time.Duration(c.FlipGameTTLSec) * time.Second
}

// RoomAllowed reports whether the bot answers in room. An empty list allows all rooms.
func (c *AppConfig) RoomAllowed(room string) bool {
	if len(c.AllowedRooms) == 0 {
		return true
	}
	room = strings.TrimSpace(room)
	for _, r := range c.AllowedRooms {
		if r == room {
			return true
		}
	}
	return false
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		MaxConcurrentGames: 200,
		FlipVariant:        flipello.VariantFlipello,
		FlipGameTTLSec:     86400,
		FlipMoveTimeout:    10 * time.Minute,
		FlipHistoryLimit:   10,
		BoardTheme:         "green",
		EgressMode:         "auto",
	}

	cfg.IrisBaseURL = strings.TrimSpace(os.Getenv("IRIS_BASE_URL"))
	cfg.IrisWSURL = strings.TrimSpace(os.Getenv("IRIS_WS_URL"))
	cfg.BotPrefix = strings.TrimSpace(os.Getenv("BOT_PREFIX"))

	cfg.XUserID = strings.TrimSpace(os.Getenv("X_USER_ID"))
	cfg.XUserEmail = strings.TrimSpace(os.Getenv("X_USER_EMAIL"))
	cfg.XSessionID = strings.TrimSpace(os.Getenv("X_SESSION_ID"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	cfg.AllowedRooms = splitList(os.Getenv("ALLOWED_ROOMS"))

	if v := strings.TrimSpace(os.Getenv("MAX_CONCURRENT_GAMES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrentGames = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("FLIP_VARIANT")); v != "" {
		variant, ok := flipello.ParseVariant(v)
		if !ok {
			return nil, fmt.Errorf("FLIP_VARIANT: unknown variant %q", v)
		}
		cfg.FlipVariant = variant
	}
	if v := strings.TrimSpace(os.Getenv("FLIP_GAME_TTL")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FlipGameTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("FLIP_MOVE_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.FlipMoveTimeout = d
		} else if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FlipMoveTimeout = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("FLIP_HISTORY_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FlipHistoryLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("BOARD_THEME")); v != "" {
		cfg.BoardTheme = v
	}

	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))
	cfg.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("EGRESS_MODE"))); v != "" {
		switch v {
		case "http", "ws", "auto":
			cfg.EgressMode = v
		default:
			return nil, fmt.Errorf("EGRESS_MODE: expected http|ws|auto, got %q", v)
		}
	}
	if v := strings.TrimSpace(os.Getenv("EGRESS_DRYRUN")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EgressDryRun = b
		}
	}

	if cfg.IrisBaseURL == "" {
		return nil, errors.New("IRIS_BASE_URL is required")
	}
	if cfg.IrisWSURL == "" {
		return nil, errors.New("IRIS_WS_URL is required")
	}
	if cfg.BotPrefix == "" {
		return nil, errors.New("BOT_PREFIX is required")
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
