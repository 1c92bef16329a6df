package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MbBrainz/grantflow-dev-sub000/src/authz"
	"github.com/MbBrainz/grantflow-dev-sub000/src/config"
	"github.com/MbBrainz/grantflow-dev-sub000/src/data"
	"github.com/MbBrainz/grantflow-dev-sub000/src/multisig"
	"github.com/MbBrainz/grantflow-dev-sub000/src/notify"
	"github.com/MbBrainz/grantflow-dev-sub000/src/payout"
	"github.com/MbBrainz/grantflow-dev-sub000/src/review"
	"github.com/MbBrainz/grantflow-dev-sub000/src/webserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(parent context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := data.ConnectMySQL(cfg.MySQLDSN)
	if err != nil {
		return err
	}
	if err := data.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := cfg.ApplySettings(db); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		if rdb, err = data.ConnectRedis(cfg.RedisURL); err != nil {
			return err
		}
		defer rdb.Close()
	} else {
		log.Printf("REDIS_URL not set, notifications will not be streamed")
	}

	store := data.NewStore(db)
	checker := authz.NewChecker(store)
	notifier := notify.NewWriter(store, rdb)
	writer := payout.NewWriter(payout.Explorer{Template: cfg.ExplorerURLTemplate})

	srv := webserver.New(cfg, webserver.Deps{
		Store:    store,
		Reviews:  review.NewService(store, checker, notifier),
		Multisig: multisig.NewCoordinator(store, checker, notifier, writer),
		Payouts:  payout.NewService(store, checker, writer),
	})
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("grantflow API listening on %s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Printf("shutting down")
		return httpSrv.Shutdown(shutCtx)
	})
	return g.Wait()
}
