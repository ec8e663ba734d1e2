package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lambdv/gungame/internal/api"
	"github.com/lambdv/gungame/internal/config"
	"github.com/lambdv/gungame/internal/game"
	"github.com/lambdv/gungame/internal/udp"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("🎮 starting gungame server")

	cfg := config.Load()
	weapons := game.LoadCatalog()
	stats := game.NewGlobalStats()

	// The single UDP socket shared by every lobby's tick loop. A bind
	// failure here is fatal: the process is useless without it.
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: cfg.Network.UDPPort})
	if err != nil {
		logger.Fatal("udp bind failed", zap.Int("port", cfg.Network.UDPPort), zap.Error(err))
	}
	logger.Info("udp socket bound", zap.Int("port", cfg.Network.UDPPort))

	sender := udp.NewSender(conn, logger)
	sender.OnSendError = api.RecordUDPSendError

	registry := game.NewRegistry(game.RegistryConfig{
		Weapons:           weapons,
		Sender:            sender,
		Stats:             stats,
		Logger:            logger,
		TickInterval:      cfg.Game.TickInterval,
		InactivityTimeout: cfg.Game.InactivityTimeout,
		WarningFraction:   cfg.Game.InactivityWarningFraction,
		CleanupInterval:   cfg.Game.CleanupInterval,
		QueueSize:         cfg.Limits.CommandQueueSize,
		OnTick:            api.RecordTick,
		OnDroppedCommand:  api.RecordCommandDropped,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Default test lobby with the reserved dummy bot, so clients have a
	// calibration target from the first shot.
	testLobby, err := registry.Create(ctx, "test", 8, "test_world")
	if err != nil {
		logger.Fatal("failed to create test lobby", zap.Error(err))
	}
	testLobby.Enqueue(game.Command{
		Kind:     game.CmdPlayerJoin,
		PlayerID: game.BotPlayerID,
		Name:     "Target Dummy",
	})
	logger.Info("created test lobby", zap.String("code", "test"))

	limiter := udp.NewAddrRateLimiter(udp.AddrLimiterConfig{
		PacketsPerSecond: cfg.Limits.UDPPacketsPerSecond,
		Burst:            cfg.Limits.UDPBurst,
	})
	defer limiter.Stop()

	udpServer := udp.NewServer(udp.ServerConfig{
		Conn:          conn,
		Registry:      registry,
		Sender:        sender,
		Limiter:       limiter,
		Logger:        logger,
		MaxPacketSize: cfg.Network.MaxPacketSize,
		OnPacket:      api.RecordUDPPacket,
		OnRejected:    api.RecordUDPRejected,
	})

	udpDone := make(chan struct{})
	go func() {
		defer close(udpDone)
		udpServer.Run(ctx)
	}()

	api.StartDebugServer(api.DefaultObservabilityConfig(), logger)

	go gaugeLoop(ctx, registry)

	router := api.NewRouter(api.RouterConfig{
		Registry:          registry,
		Stats:             stats,
		Weapons:           weapons,
		ServerIP:          "127.0.0.1",
		UDPPort:           cfg.Network.UDPPort,
		DefaultMaxPlayers: cfg.Game.DefaultMaxPlayers,
		DefaultScene:      cfg.Game.DefaultScene,
		RateLimitConfig: &api.RateLimitConfig{
			RequestsPerSecond: cfg.Limits.HTTPRequestsPerSecond,
			Burst:             cfg.Limits.HTTPBurst,
		},
		Logger: logger,
	})
	httpServer := api.NewServer(fmt.Sprintf(":%d", cfg.Network.HTTPPort), router, logger)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	logger.Info("✅ server ready",
		zap.Int("http_port", cfg.Network.HTTPPort),
		zap.Int("udp_port", cfg.Network.UDPPort))

	<-ctx.Done()
	logger.Info("🛑 shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}
	<-udpDone

	logger.Info("shutdown complete")
}

// gaugeLoop refreshes the lobby/player gauges once a second.
func gaugeLoop(ctx context.Context, registry *game.Registry) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			engines := registry.Engines()
			players := 0
			for _, engine := range engines {
				players += engine.Info("", 0).PlayerCount
			}
			api.UpdateLobbyCount(len(engines))
			api.UpdatePlayerCount(players)
		}
	}
}
