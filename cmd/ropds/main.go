// Command ropds runs the OPDS catalog server: load config, migrate the
// database, then either set the admin password or run a one-shot scan
// and exit, or start the scheduler and HTTP server and shut down
// gracefully on signal.
// Grounded on shishobooks-shisho/cmd/api/main.go's
// config→database→migrate→worker→server→graceful-shutdown sequence,
// with the worker/plugin system replaced by pkg/scanner+pkg/scheduler
// and --scan/--set-admin one-shot modes added per spec.md §6.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
	"github.com/urfave/cli/v2"

	"github.com/dshein-alt/ropds-go/pkg/authors"
	"github.com/dshein-alt/ropds-go/pkg/auth"
	"github.com/dshein-alt/ropds-go/pkg/books"
	"github.com/dshein-alt/ropds-go/pkg/catalogs"
	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/counters"
	"github.com/dshein-alt/ropds-go/pkg/database"
	"github.com/dshein-alt/ropds-go/pkg/genres"
	"github.com/dshein-alt/ropds-go/pkg/migrations"
	"github.com/dshein-alt/ropds-go/pkg/scanner"
	"github.com/dshein-alt/ropds-go/pkg/scheduler"
	"github.com/dshein-alt/ropds-go/pkg/series"
	"github.com/dshein-alt/ropds-go/pkg/server"
	"github.com/dshein-alt/ropds-go/pkg/version"
)

func main() {
	log := logger.New()

	app := &cli.App{
		Name:  "ropds",
		Usage: "ROPDS-Go OPDS catalog server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.toml", Usage: "path to the TOML config file"},
			&cli.BoolFlag{Name: "scan", Usage: "run one scan of the library and exit"},
			&cli.StringFlag{Name: "set-admin", Usage: "set the admin account password and exit"},
		},
		Action: func(c *cli.Context) error {
			return run(c, log)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("ropds exited with error")
	}
}

func run(c *cli.Context, log logger.Logger) error {
	ctx := context.Background()
	log.Info("starting ropds", logger.Data{"version": version.Version})

	cfg, err := config.New(c.String("config"))
	if err != nil {
		return errors.Wrap(err, "config error")
	}

	db, dialect, err := database.New(cfg)
	if err != nil {
		return errors.Wrap(err, "database error")
	}
	defer db.Close()

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		return errors.Wrap(err, "migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID})
	}

	authSvc := auth.NewService(db, cfg.Server.SessionSecret)

	if password := c.String("set-admin"); password != "" {
		if err := authSvc.SetAdminPassword(ctx, password); err != nil {
			return errors.Wrap(err, "set-admin failed")
		}
		log.Info("admin password updated")
		return nil
	}

	scanSvc := scanner.NewService(
		cfg,
		log,
		books.NewService(db, dialect),
		catalogs.NewService(db),
		authors.NewService(db, dialect),
		series.NewService(db, dialect),
		genres.NewService(db, dialect),
		counters.NewService(db, dialect),
	)

	if c.Bool("scan") {
		stats, err := scanSvc.Run(ctx)
		if err != nil {
			return errors.Wrap(err, "scan failed")
		}
		log.Info("scan complete", logger.Data{"stats": stats})
		return nil
	}

	schedSvc, err := scheduler.NewService(cfg.Scanner, func(ctx context.Context) error {
		_, err := scanSvc.Run(ctx)
		return err
	}, log)
	if err != nil {
		return errors.Wrap(err, "scheduler error")
	}

	srv, err := server.New(cfg, db, dialect, log)
	if err != nil {
		return errors.Wrap(err, "server error")
	}

	graceful := signals.Setup()

	schedCtx, cancelSched := context.WithCancel(ctx)
	defer cancelSched()
	go schedSvc.Run(schedCtx)
	log.Info("scheduler started")

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}

		actualPort := listener.Addr().(*net.TCPAddr).Port
		log.Info("server started", logger.Data{"port": actualPort})

		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	<-graceful
	log.Info("starting graceful shutdown")

	cancelSched()
	if err := srv.Shutdown(ctx); err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	return nil
}
