// Command broker wires the library packages into a running MQTT server.
// It is a thin illustrative entry point, not a full CLI framework: flag
// parsing is limited to the configuration file path, mirroring the
// teacher's own minimal cmd/ examples.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	goredis "github.com/go-redis/redis/v8"

	mqtt "github.com/byiringiro-aloys/mqtt-core-service"
	"github.com/byiringiro-aloys/mqtt-core-service/auth"
	"github.com/byiringiro-aloys/mqtt-core-service/config"
	"github.com/byiringiro-aloys/mqtt-core-service/store"
	"github.com/byiringiro-aloys/mqtt-core-service/store/badger"
	"github.com/byiringiro-aloys/mqtt-core-service/store/bbolt"
	"github.com/byiringiro-aloys/mqtt-core-service/store/memory"
	"github.com/byiringiro-aloys/mqtt-core-service/store/pebble"
	"github.com/byiringiro-aloys/mqtt-core-service/store/redis"
	"github.com/byiringiro-aloys/mqtt-core-service/transport"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file (defaults applied if omitted)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Error("broker: failed to load config", "path", *configPath, "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	persistent, err := openStore(cfg)
	if err != nil {
		log.Error("broker: failed to open persistence backend", "type", cfg.Persistence.StorageType, "err", err)
		os.Exit(1)
	}

	authProvider := auth.Provider(auth.AllowAll{})
	if cfg.Security.RequireAuth {
		// A static credential table is the simplest Provider that
		// satisfies RequireAuth without inventing a user store; real
		// deployments inject their own auth.Provider via broker.Options.
		authProvider = auth.Static{Credentials: map[string]string{}}
	}

	server := mqtt.New(mqtt.Options{
		Config:     cfg,
		Auth:       authProvider,
		Persistent: persistent,
		Log:        log,
	})

	tcpAddr := cfg.Server.Host + ":" + portString(cfg.Server.Port)
	tcpListener, err := transport.NewTCP("tcp", tcpAddr, tlsConfig(cfg))
	if err != nil {
		log.Error("broker: failed to bind tcp listener", "addr", tcpAddr, "err", err)
		os.Exit(1)
	}
	server.AddListener(tcpListener)

	if cfg.Server.WebsocketPort > 0 {
		wsAddr := cfg.Server.Host + ":" + portString(cfg.Server.WebsocketPort)
		server.AddListener(transport.NewWebSocket("ws", wsAddr, tlsConfig(cfg)))
	}

	server.Serve()
	log.Info("broker: listening", "tcp", tcpAddr, "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("broker: shutting down")
	if err := server.Close(); err != nil {
		log.Error("broker: error during shutdown", "err", err)
	}
}

func openStore(cfg *config.Options) (store.PersistentStore, error) {
	switch cfg.Persistence.StorageType {
	case "", "memory":
		return memory.New(), nil
	case "bbolt":
		return bbolt.Open(bbolt.Options{Path: cfg.Persistence.Path})
	case "badger":
		return badger.Open(cfg.Persistence.Path)
	case "pebble":
		return pebble.Open(cfg.Persistence.Path)
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.Persistence.RedisAddr})
		return redis.New(client), nil
	default:
		return memory.New(), nil
	}
}

func tlsConfig(cfg *config.Options) *tls.Config {
	if !cfg.Security.EnableTLS {
		return nil
	}
	cert, err := tls.LoadX509KeyPair(cfg.Security.CertFile, cfg.Security.KeyFile)
	if err != nil {
		return nil
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}
}

func portString(p int) string {
	return strconv.Itoa(p)
}
