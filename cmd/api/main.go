package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/petermazzocco/slidedeck-api/internal/auth"
	"github.com/petermazzocco/slidedeck-api/internal/config"
	"github.com/petermazzocco/slidedeck-api/internal/handlers"
	"github.com/petermazzocco/slidedeck-api/internal/llm"
	"github.com/petermazzocco/slidedeck-api/internal/metrics"
	"github.com/petermazzocco/slidedeck-api/internal/pdf"
	"github.com/petermazzocco/slidedeck-api/internal/server"
	"github.com/petermazzocco/slidedeck-api/internal/service"
	"github.com/petermazzocco/slidedeck-api/internal/storage"
	"github.com/petermazzocco/slidedeck-api/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	v   *viper.Viper
	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:           "slidedeck-api",
		Short:         "Slide deck summaries and chat API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return errors.Wrap(err, "load .env")
			}
			if err := a.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			a.cfg, a.log = cfg, log
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.Flags().String("port", "8000", "HTTP listen port")
	root.Flags().String("log_level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(*cobra.Command, []string) error {
			db, err := a.openStore()
			if err != nil {
				return err
			}
			if err := db.Migrate(); err != nil {
				return err
			}
			a.log.Info("database migrated")
			return nil
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Purge slide decks left soft-deleted by an interrupted delete",
		RunE: func(cmd *cobra.Command, _ []string) error {
			decks, _, err := a.decks(cmd.Context(), nil)
			if err != nil {
				return err
			}
			n, err := decks.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			a.log.Info("sweep finished", zap.Int("purged", n))
			return nil
		},
	})
	return root
}

func (a *app) openStore() (*store.Store, error) {
	if a.cfg.DatabaseURL == "" {
		return nil, errors.New("missing required configuration: DATABASE_URL")
	}
	return store.Open(a.cfg.DatabaseURL, store.Options{RowLevelSecurity: a.cfg.RowLevelSecurity})
}

func (a *app) decks(ctx context.Context, m *metrics.Metrics) (*service.Decks, *store.Store, error) {
	db, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	objects, err := storage.New(ctx, storage.Config{
		Endpoint:        a.cfg.S3Endpoint,
		Region:          a.cfg.S3Region,
		AccessKeyID:     a.cfg.S3AccessKeyID,
		SecretAccessKey: a.cfg.S3SecretAccessKey,
		Bucket:          a.cfg.StorageBucket,
	})
	if err != nil {
		return nil, nil, err
	}
	decks := service.NewDecks(db, objects, pdf.Counter{}, a.log)
	if m != nil {
		decks = decks.WithPurgeObserver(m)
	}
	return decks, db, nil
}

func (a *app) serve(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	var m *metrics.Metrics
	if a.cfg.MetricsEnabled {
		m = metrics.New()
	}

	decks, db, err := a.decks(ctx, m)
	if err != nil {
		return err
	}
	if err := db.Migrate(); err != nil {
		return err
	}

	completer := llm.New(llm.Config{
		APIKey:  a.cfg.OpenAIAPIKey,
		BaseURL: a.cfg.OpenAIBaseURL,
		Timeout: a.cfg.OpenAITimeout,
	}, a.log)
	if m != nil {
		completer = completer.WithObserver(m)
	}

	summaries := service.NewSummaries(db, completer, a.cfg.Limits, a.log)
	chat := service.NewChat(db, completer, a.cfg.Limits)
	h := handlers.New(decks, summaries, chat, a.log)

	router := server.NewRouter(h, a.verifier(), a.log, server.Options{
		AllowedOrigins:     a.cfg.AllowedOrigins,
		RateLimitPerMinute: a.cfg.RateLimitPerMinute,
		RequestTimeout:     a.cfg.RequestTimeout,
		Metrics:            m,
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      a.cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.SweepInterval > 0 {
		go decks.RunSweeper(ctx, a.cfg.SweepInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting API server", zap.String("addr", srv.Addr), zap.String("auth_mode", a.cfg.AuthMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

func (a *app) verifier() auth.Verifier {
	if a.cfg.AuthMode == config.AuthModeRemote {
		return auth.NewRemoteVerifier(a.cfg.SupabaseURL, a.cfg.IdentityAPIKey(), &http.Client{Timeout: 10 * time.Second})
	}
	return auth.NewJWTVerifier(a.cfg.SupabaseJWTSecret, "authenticated")
}

func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid LOG_LEVEL %q", level)
	}
	zc := zap.NewProductionConfig()
	if format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
