package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/cod-verifier/internal/api"
	"github.com/akylbek/payment-system/cod-verifier/internal/backend"
	"github.com/akylbek/payment-system/cod-verifier/internal/config"
	"github.com/akylbek/payment-system/cod-verifier/internal/device"
	"github.com/akylbek/payment-system/cod-verifier/internal/eventloop"
	"github.com/akylbek/payment-system/cod-verifier/internal/events"
	"github.com/akylbek/payment-system/cod-verifier/internal/interfaces"
	"github.com/akylbek/payment-system/cod-verifier/internal/lock"
	"github.com/akylbek/payment-system/cod-verifier/internal/models"
	"github.com/akylbek/payment-system/cod-verifier/internal/repository"
	"github.com/akylbek/payment-system/cod-verifier/internal/service"
	"github.com/akylbek/payment-system/cod-verifier/internal/telemetry"
	"github.com/akylbek/payment-system/cod-verifier/internal/ui"
)

const natsSubjectPrefix = "cod.verification"

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize telemetry
	if err := telemetry.InitTelemetry("cod-verifier", cfg.JaegerEndpoint, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Logger.Info("Starting COD Verifier", zap.Bool("test_mode", cfg.TestMode))

	if cfg.UPIPayeeAddress == config.PlaceholderPayeeAddress {
		telemetry.Logger.Warn("UPI_PAYEE_ADDRESS not set, QR payments go to a placeholder payee",
			zap.String("payee", cfg.UPIPayeeAddress),
		)
	}

	// Transition sinks, each optional
	var sinks events.Fanout
	var repo interfaces.TransitionRepository

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		transitionRepo := repository.NewTransitionRepository(db)
		if err := transitionRepo.InitDB(); err != nil {
			telemetry.Logger.Fatal("Failed to initialize database", zap.Error(err))
		}
		repo = transitionRepo
		sinks = append(sinks, events.NewRepositoryPublisher(transitionRepo))
	}

	if cfg.KafkaBrokers != "" {
		sinks = append(sinks, events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic))
	}

	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL)
		if err != nil {
			telemetry.Logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer nc.Close()
		sinks = append(sinks, events.NewNATSPublisher(nc, natsSubjectPrefix))
	}

	var publisher interfaces.EventPublisher
	if len(sinks) > 0 {
		publisher = sinks
	}

	// In-flight request guard
	var guard interfaces.RequestGuard = lock.NewMemoryGuard()
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisURL,
		})
		defer redisClient.Close()
		guard = lock.NewRedisGuard(redisClient, lock.DefaultTTL)
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	loop := eventloop.NewRunner(256)
	go loop.Run(loopCtx)

	view := ui.NewTerminal(os.Stdout)
	ctrl := service.NewController(service.Deps{
		Loop:       loop,
		Backend:    backend.NewClient(cfg.BackendURL, cfg.BackendNonce, cfg.BackendTimeout),
		View:       view,
		Form:       view,
		Popup:      view,
		Guard:      guard,
		Publisher:  publisher,
		Classifier: device.Default(),
	}, service.Settings{
		OTPCooldownSeconds: cfg.OTPTimerDuration,
		TestMode:           cfg.TestMode,
		RequireOTP:         cfg.RequireOTP,
		RequireToken:       cfg.RequireToken,
		Currency:           cfg.TokenCurrency,
		PayeeAddress:       cfg.UPIPayeeAddress,
		PayeeName:          cfg.UPIPayeeName,
		FallbackKey:        cfg.GatewayFallbackKey,
		Device:             device.Info{ViewportWidth: cfg.ViewportWidth, UserAgent: cfg.UserAgent},
	})

	// Setup HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(ctrl, repo, view),
	}

	// Start server in goroutine
	go func() {
		telemetry.Logger.Info("COD Verifier starting",
			zap.String("port", cfg.Port),
			zap.String("session_id", ctrl.SessionID()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	consoleDone := make(chan struct{})
	go readConsole(ctrl, consoleDone)

	select {
	case <-quit:
	case <-consoleDone:
	}

	telemetry.Logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// The loop is FIFO, so a snapshot read returning means unload has been handled.
	if err := ctrl.Dispatch(models.Intent{Kind: models.IntentUnload}); err != nil {
		telemetry.Logger.Error("Failed to dispatch unload", zap.Error(err))
	} else if _, err := ctrl.Snapshot(ctx); err != nil {
		telemetry.Logger.Error("Unload did not complete", zap.Error(err))
	}
	stopLoop()
	<-loop.Done()
	ctrl.Close()

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			telemetry.Logger.Error("Failed to close transition sinks", zap.Error(err))
		}
	}

	telemetry.Logger.Info("Server exited")
}

// readConsole turns stdin lines into intents. done is closed on quit; EOF only stops
// reading so the process keeps serving HTTP when stdin is not a terminal.
func readConsole(ctrl *service.Controller, done chan<- struct{}) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		intent, quit, err := ui.ParseCommand(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if quit {
			close(done)
			return
		}
		if err := ctrl.Dispatch(intent); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}
