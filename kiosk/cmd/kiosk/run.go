package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Krimson/triage-kiosk/kiosk/docs"
	"github.com/Krimson/triage-kiosk/kiosk/internal/batch"
	"github.com/Krimson/triage-kiosk/kiosk/internal/config"
	"github.com/Krimson/triage-kiosk/kiosk/internal/console"
	"github.com/Krimson/triage-kiosk/kiosk/internal/display"
	"github.com/Krimson/triage-kiosk/kiosk/internal/health"
	"github.com/Krimson/triage-kiosk/kiosk/internal/metrics"
	"github.com/Krimson/triage-kiosk/kiosk/internal/runner"
	"github.com/Krimson/triage-kiosk/kiosk/internal/session"
	"github.com/Krimson/triage-kiosk/kiosk/internal/sim"
	"github.com/Krimson/triage-kiosk/kiosk/internal/transport"
	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
	"github.com/Krimson/triage-kiosk/kiosk/internal/websocket"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the kiosk",
	Long:  `Starts the session loop, the kiosk web server, the ops server (websocket mirror, metrics and Swagger UI) and gRPC health.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		headless, _ := cmd.Flags().GetBool("headless")
		logFile, _ := cmd.Flags().GetString("log-file")
		return run(path, headless, logFile)
	},
}

func init() {
	runCmd.Flags().Bool("headless", false, "Run without the console; display frames go to the log")
	runCmd.Flags().String("log-file", "kiosk.log", "Log file used while the console is active")
	rootCmd.AddCommand(runCmd)
}

func run(configPath string, headless bool, logFile string) error {
	if !headless {
		f, err := tea.LogToFile(logFile, "kiosk")
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}
		defer f.Close()
	}

	log.Printf("[INFO] Starting kiosk %s...", Version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log.Printf("[INFO] Configuration loaded: http_port=%s ops_port=%s grpc_port=%s triage_mode=%s validation_mode=%s",
		cfg.HTTPPort, cfg.OpsPort, cfg.GRPCPort, cfg.TriageMode, cfg.ValidationMode)

	ppg := sim.NewPPG(cfg.SimHeartRateMissing, cfg.Seed)
	colorSensor := sim.NewColorSensor(cfg.SimColorMissing)

	kioskMetrics := metrics.New()
	healthServer := health.NewHealthServer()
	observers := session.Observers{kioskMetrics, health.NewSensorObserver(healthServer)}

	var consoleSink *console.Sink
	var sinks []display.Sink
	if headless {
		sinks = append(sinks, display.LogSink{})
	} else {
		consoleSink = console.NewSink()
		sinks = append(sinks, consoleSink)
	}

	k, err := runner.Build(cfg, runner.Sensors{HeartRate: ppg, Color: colorSensor}, observers, sinks...)
	if err != nil {
		return err
	}

	var sink batch.Sink = &batch.LogSink{}
	if cfg.RedisAddr != "" {
		redisSink := batch.NewRedisSink(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisChannel)
		defer redisSink.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisSink.Ping(pingCtx); err != nil {
			log.Printf("[WARN] Redis at %s unavailable, batches will be retried per flush: %v", cfg.RedisAddr, err)
		} else {
			log.Printf("[INFO] Publishing session batches to Redis channel %s", cfg.RedisChannel)
		}
		cancel()
		sink = batch.MultiSink{sink, redisSink}
	}
	batcher := batch.NewBatcher(batch.Config{
		MaxRecords:    cfg.BatchMaxRecords,
		FlushInterval: config.Ms(cfg.FlushIntervalMS),
	}, sink)

	loop := runner.New(config.Ms(cfg.TickMS), k.Latch, k.Machine, k.Stats, batcher)

	handler := transport.NewHTTPHandler(k.Stats, k.Mirror, k.Survey, transport.Options{
		Mode:       triage.Mode(cfg.TriageMode),
		MaxChunk:   cfg.MaxChunk,
		SendWindow: cfg.SendWindow,
		Observer:   kioskMetrics,
	})
	kioskServer, err := transport.Listen(":"+cfg.HTTPPort, handler.Router())
	if err != nil {
		return err
	}

	hub := websocket.NewHub(k.Mirror)
	// Эндпоинты из документации живут на порту киоска
	docs.SwaggerInfo.Host = "localhost:" + cfg.HTTPPort
	opsServer := &http.Server{
		Addr:              ":" + cfg.OpsPort,
		Handler:           newOpsRouter(hub.HandleWebSocket, cfg.MetricsPath, kioskMetrics.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	grpcAddress := ":" + cfg.GRPCPort
	grpcListener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrChan := make(chan error, 4)

	go hub.Run(ctx)

	go func() {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrChan <- fmt.Errorf("kiosk loop error: %w", err)
		}
	}()

	go func() {
		if err := kioskServer.Serve(); err != nil {
			serverErrChan <- err
		}
	}()

	go func() {
		log.Printf("[INFO] Ops server listening on %s (ws=/ws metrics=%s swagger=/swagger/)", opsServer.Addr, cfg.MetricsPath)
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("ops server error: %w", err)
		}
	}()

	go func() {
		log.Printf("[INFO] gRPC health server listening on %s", grpcAddress)
		if err := grpcServer.Serve(grpcListener); err != nil {
			serverErrChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	healthServer.SetServingStatus(health.ServiceKiosk)

	var runErr error
	if headless {
		select {
		case err := <-serverErrChan:
			runErr = err
		case <-ctx.Done():
			log.Printf("[INFO] Received shutdown signal, starting graceful shutdown...")
		}
	} else {
		frame, _ := k.Mirror.Frame()
		model := console.New(k.Latch, ppg, colorSensor, consoleSink, frame)
		runErr = runConsole(ctx, model, serverErrChan)
	}
	stop()

	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := kioskServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] Kiosk HTTP server shutdown: %v", err)
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] Ops server shutdown: %v", err)
	}
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		log.Printf("[WARN] Graceful shutdown timeout, forcing gRPC stop")
		grpcServer.Stop()
	}

	batcher.Stop()

	ticks, commits := loop.GetStats()
	opened, submitted, _, _ := k.Survey.GetStats()
	log.Printf("[STATS] ticks=%d commits=%d surveys_opened=%d surveys_submitted=%d",
		ticks, commits, opened, submitted)

	if runErr != nil {
		log.Printf("[ERROR] Kiosk stopped with error: %v", runErr)
		return runErr
	}
	log.Printf("[INFO] Kiosk stopped")
	return nil
}

// runConsole держит консоль до выхода пользователя, сигнала или отказа сервера
func runConsole(ctx context.Context, model console.Model, serverErrChan <-chan error) error {
	p := tea.NewProgram(model, tea.WithAltScreen())

	failed := make(chan error, 1)
	go func() {
		select {
		case <-ctx.Done():
		case err := <-serverErrChan:
			failed <- err
		}
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("console failed: %w", err)
	}

	select {
	case err := <-failed:
		return err
	default:
		return nil
	}
}
