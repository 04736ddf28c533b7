package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"floorpilot/config"
	"floorpilot/device"
	"floorpilot/device/valetudo"
	"floorpilot/engine"
	"floorpilot/floors"
	"floorpilot/messaging"
	"floorpilot/shell"
	"floorpilot/store"
	"floorpilot/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "floorpilot.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("floorpilot", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("floorpilot: database open (%s)", cfg.Database.Driver)

	// Redis (snapshot cache survives restarts when available)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("floorpilot: redis not available (%v), running without cache", err)
		redisClient.Close()
		redisClient = nil
	} else {
		log.Printf("floorpilot: redis connected (%s)", cfg.Redis.Address)
		defer redisClient.Close()
	}
	cancel()

	// Robot control surface (REST) and root shell (SSH)
	adapter := valetudo.New(valetudo.Config{
		BaseURL: cfg.Robot.BaseURL,
		Timeout: cfg.Robot.Timeout,
	})
	if err := adapter.Ping(); err == nil {
		log.Printf("floorpilot: robot reachable (%s)", cfg.Robot.BaseURL)
	} else {
		log.Printf("floorpilot: robot not reachable (%v)", err)
	}

	remote := shell.NewChannel(shell.Config{
		Host:     cfg.Shell.Host,
		Port:     cfg.Shell.Port,
		User:     cfg.Shell.User,
		Password: cfg.Shell.Password,
		KeyFile:  cfg.Shell.KeyFile,
		Timeout:  cfg.Shell.Timeout,
	})
	defer remote.Close()

	// Status source: broker push reports preferred, REST polling as
	// the fallback when the push feed goes stale.
	push := valetudo.NewPushState()
	source := device.NewCompositeSource(push, adapter, cfg.Robot.PushTTL)

	// Messaging client
	msgClient := messaging.NewClient(&cfg.Messaging)
	if err := msgClient.Connect(); err != nil {
		log.Printf("floorpilot: messaging connect failed (%v)", err)
	} else {
		log.Printf("floorpilot: messaging connected (%s)", cfg.Messaging.Backend)
	}
	defer msgClient.Close()

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		Device:     adapter,
		Source:     source,
		Remote:     remote,
		MsgClient:  msgClient,
		Snapshot:   adapter.Client(),
		PushFeed:   push,
		Snapshots:  floors.NewSnapshotCache(redisClient, cfg.Robot.ID),
	})
	eng.Start()
	defer eng.Stop()

	// Outbox drainer (outbound lifecycle events)
	drainer := messaging.NewOutboxDrainer(db, msgClient, &cfg.Messaging)
	drainer.Start()
	defer drainer.Stop()

	// Web server
	handler, stopWeb := www.NewRouter(eng)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		log.Printf("floorpilot: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("floorpilot: ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("floorpilot: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("floorpilot: stopped")
}
