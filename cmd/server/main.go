package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/realtime-voice/internal/adapters/http"
	"github.com/dkeye/realtime-voice/internal/adapters/host"
	"github.com/dkeye/realtime-voice/internal/adapters/openai"
	"github.com/dkeye/realtime-voice/internal/adapters/rtc"
	"github.com/dkeye/realtime-voice/internal/app"
	"github.com/dkeye/realtime-voice/internal/app/events"
	"github.com/dkeye/realtime-voice/internal/app/orch"
	"github.com/dkeye/realtime-voice/internal/app/tools"
	"github.com/dkeye/realtime-voice/internal/config"
	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/dkeye/realtime-voice/internal/domain"
	"github.com/dkeye/realtime-voice/internal/gesture"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if cfg.OpenAI.APIKey == "" {
		log.Fatal().Msg("OPENAI_API_KEY is not set")
	}

	settings, err := domain.NewSessionSettings(cfg.OpenAI.Model, domain.Voice(cfg.OpenAI.Voice), cfg.OpenAI.Speed, cfg.OpenAI.Instructions)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid session settings")
	}

	toolbox := tools.NewRegistry(tools.DefaultTimeout)
	if err := toolbox.Register(tools.CurrentTime(time.Now)); err != nil {
		log.Fatal().Err(err).Msg("register tool")
	}

	dialer := &app.Dialer{
		RTC:          rtc.Configuration(cfg.Media.ICEServers),
		Label:        cfg.Media.DataChannelLabel,
		Device:       rtc.Device{Path: cfg.Media.CaptureFile, Loop: cfg.Media.CaptureLoop},
		PlaybackFile: cfg.Media.PlaybackFile,
		Timeout:      cfg.Media.ConnectTimeout,
	}

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Dialer:   dialer,
		Minter:   openai.NewSecretMinter(ctx, cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey),
		Signalers: func(token string) core.Signaler {
			return openai.NewSignaler(ctx, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, token)
		},
		Policy:   app.PolicyFor(cfg.Host.OnBackpressure),
		Events:   events.NewEmitter(),
		Tools:    toolbox,
		Settings: *settings,
		GestureOptions: []gesture.Option{
			gesture.WithHoldDelay(cfg.Gesture.HoldDelay),
			gesture.WithClickSuppressWindow(cfg.Gesture.ClickSuppressWindow),
			gesture.WithKey(cfg.Gesture.Key),
		},
	}
	dialer.OnPeerClosed = o.OnPeerClosed
	defer o.BindEvents(ctx)()

	ctl := host.NewHostWSController(o, host.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		SendBuffer: cfg.Host.SendBuffer,
		SendRate:   cfg.Host.SendRate,
		SendBurst:  cfg.Host.SendBurst,
	})

	r := router.SetupRouter(ctx, cfg, ctl, o)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("model", cfg.OpenAI.Model).Msg("realtime voice server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		if sid, _, ok := o.Registry.Active(); ok {
			o.OnDisconnect(sid)
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
	}
	log.Info().Msg("Server exited gracefully")
}
