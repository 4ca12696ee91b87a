package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/irisfast"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/obslog"
)

// relaycheck probes the Iris relay: GET /config over HTTP, then watches the
// WebSocket feed for a short window. Set RELAYCHECK_ROOM to also send a
// test reply through the configured egress.
func main() {
	if err := obslog.InitFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer obslog.Sync()
	logger := obslog.L()

	baseURL := strings.TrimSpace(os.Getenv("IRIS_BASE_URL"))
	wsURL := strings.TrimSpace(os.Getenv("IRIS_WS_URL"))
	if baseURL == "" {
		logger.Error("relaycheck_missing_env", zap.String("name", "IRIS_BASE_URL"))
		obslog.Sync()
		os.Exit(1)
	}
	watch := 10 * time.Second
	if v := strings.TrimSpace(os.Getenv("RELAYCHECK_WATCH")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			watch = d
		}
	}

	headers := func() map[string]string {
		m := map[string]string{}
		if v := os.Getenv("X_USER_ID"); v != "" {
			m["X-User-Id"] = v
		}
		if v := os.Getenv("X_USER_EMAIL"); v != "" {
			m["X-User-Email"] = v
		}
		if v := os.Getenv("X_SESSION_ID"); v != "" {
			m["X-Session-Id"] = v
		}
		return m
	}

	client := irisfast.NewClient(baseURL,
		irisfast.WithHeaderProvider(headers),
		irisfast.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cfg, err := client.GetConfig(ctx); err != nil {
		logger.Warn("relaycheck_config_error", zap.Error(err))
	} else {
		logger.Info("relaycheck_config_ok",
			zap.String("bot_name", cfg.BotName),
			zap.Int("port", cfg.Port),
			zap.Int("polling", cfg.PollingSpeed),
			zap.Int("rate", cfg.MessageRate),
			zap.String("endpoint", cfg.WebserverEndpoint),
		)
	}

	if wsURL == "" {
		logger.Info("relaycheck_ws_skipped", zap.String("reason", "IRIS_WS_URL not set"))
		return
	}

	ws := irisfast.NewWebSocket(wsURL, 5, time.Second)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		logger.Info("relaycheck_ws_state", zap.String("state", string(state)))
	})
	ws.OnMessage(func(msg *irisfast.Message) {
		logger.Info("relaycheck_ws_message",
			zap.String("room", msg.Room),
			zap.String("user_id", msg.UserID()),
			zap.String("sender", msg.SenderName()),
			zap.String("text", msg.Msg),
		)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		logger.Warn("relaycheck_ws_connect_error", zap.Error(err))
		return
	}

	if room := strings.TrimSpace(os.Getenv("RELAYCHECK_ROOM")); room != "" {
		mode := strings.TrimSpace(os.Getenv("EGRESS_MODE"))
		if mode == "" {
			mode = "auto"
		}
		egress := irisfast.NewEgress(mode, false, client, ws, logger)
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := egress.SendText(sctx, room, "relaycheck "+time.Now().Format(time.RFC3339)); err != nil {
			logger.Warn("relaycheck_send_error", zap.String("room", room), zap.Error(err))
		}
		scancel()
	}

	<-time.After(watch)
	_ = ws.Close(context.Background())
}
