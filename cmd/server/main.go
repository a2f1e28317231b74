package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/kiliankoe/pokerplanning/internal/api"
	"github.com/kiliankoe/pokerplanning/internal/config"
	"github.com/kiliankoe/pokerplanning/internal/game"
	"github.com/kiliankoe/pokerplanning/internal/store"
	"github.com/kiliankoe/pokerplanning/internal/ws"
	staticserver "github.com/kiliankoe/pokerplanning/static"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
)

var version = "dev" // Set at build time via -ldflags

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Planning Poker - Real-time estimation game

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                    Port to listen on (default: 8080)
  STORE_DRIVER            "memory", "sqlite" or "redis" (default: memory)
  SQLITE_PATH             SQLite database file (default: ./planning-poker.db)
  REDIS_ADDR              Redis address (default: localhost:6379)
  REDIS_PASSWORD          Redis password
  REDIS_DB                Redis database number (default: 0)
  SESSION_TTL             Expire idle sessions in Redis, e.g. 24h (default: never)
  CORS_ORIGINS            Comma separated origins allowed to call the API
  CHAT_LIMIT              Maximum chat messages returned (default: 200)
  DEFAULT_TIME_PER_STORY  Minutes per story when none is given (default: 5)
  DEFAULT_GAME_MODE       Game mode when none is given (default: strict)
  EXPORT_ENABLED          Append finished games to a results file (default: false)
  EXPORT_FILE             Path of the results file (default: ./planning-poker-results.txt)
  STATIC_DIR              Serve a built front-end from this directory

Variables are also read from a .env file in the working directory.

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("Planning Poker %s\n", version)
		return
	}

	_ = godotenv.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	cfg, err := config.FromEnv()
	if err != nil {
		zerologlog.Fatal().Err(err).Msg("invalid configuration")
	}
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	ctx := context.Background()
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		zerologlog.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer closeStore.Close()
	zerologlog.Info().Str("driver", cfg.StoreDriver).Msg("store ready")

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "X-Player-Name", "X-Player-Avatar"},
			ExposeHeaders:    []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	mgr := game.NewManager(st)
	mgr.SetChatLimit(cfg.ChatLimit)

	sock := ws.New(mgr)
	sio := sock.Mount(r)
	defer sio.Close()

	a := api.New(mgr, cfg)
	a.SetNotifier(sock)
	a.Mount(r)

	if cfg.StaticDir != "" {
		front := staticserver.Handler(cfg.StaticDir)
		r.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
				return
			}
			front.ServeHTTP(c.Writer, c.Request)
		})
		zerologlog.Info().Str("dir", cfg.StaticDir).Msg("serving front-end")
	} else {
		r.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		})
	}

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zerologlog.Error().Err(err).Msg("server shutdown")
		}
	}()

	zerologlog.Info().Str("port", cfg.Port).Str("version", version).Msg("listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zerologlog.Fatal().Err(err).Msg("server failed")
	}
	zerologlog.Info().Msg("server closed")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openStore(ctx context.Context, cfg config.Config) (game.Store, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		s, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.DriverRedis:
		s, err := store.OpenRedis(ctx, store.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.SessionTTL,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return store.NewMemory(), nopCloser{}, nil
	}
}
