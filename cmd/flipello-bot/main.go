package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/appbuilder"
	appcfg "github.com/park285/Flipello-KakaoTalk-bot/internal/config"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/httpapi"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/irisfast"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/obslog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "flipello-bot: %v\n", err)
		obslog.Sync()
		os.Exit(1)
	}
}

func run() error {
	if err := obslog.InitFromEnv(); err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	headers := func() map[string]string {
		h := map[string]string{}
		if cfg.XUserID != "" {
			h["X-User-Id"] = cfg.XUserID
		}
		if cfg.XUserEmail != "" {
			h["X-User-Email"] = cfg.XUserEmail
		}
		if cfg.XSessionID != "" {
			h["X-Session-Id"] = cfg.XSessionID
		}
		return h
	}

	client := irisfast.NewClient(cfg.IrisBaseURL, irisfast.WithHeaderProvider(headers))
	ws := irisfast.NewWebSocket(cfg.IrisWSURL, 5, time.Second)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		logger.Info("iris_ws_state", zap.String("state", string(state)))
	})

	deps, err := appbuilder.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("close_error", zap.Error(err))
		}
	}()

	egress := irisfast.NewEgress(cfg.EgressMode, cfg.EgressDryRun, client, ws, logger)
	b := newBot(cfg, deps, egress)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ws.OnMessage(func(msg *irisfast.Message) {
		if !b.accepts(msg) {
			return
		}
		// keep the read loop free
		go func() {
			cctx, cancel := context.WithTimeout(ctx, commandTimeout)
			defer cancel()
			b.handle(cctx, msg)
		}()
	})

	if strings.TrimSpace(cfg.HTTPAddr) != "" {
		srv := httpapi.NewServer(deps.Games, deps.Formatter, logger)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
				logger.Error("http_server_error", zap.Error(err))
			}
		}()
		logger.Info("http_server_listen", zap.String("addr", cfg.HTTPAddr))
	}

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = ws.Connect(cctx)
	cancel()
	if err != nil {
		return fmt.Errorf("ws connect: %w", err)
	}
	logger.Info("bot_started", zap.String("prefix", cfg.BotPrefix), zap.String("egress", cfg.EgressMode))

	<-ctx.Done()
	logger.Info("bot_stopping")

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	return ws.Close(sctx)
}
