package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nikolayk812/cartstore/internal/catalog"
	"github.com/nikolayk812/cartstore/internal/config"
	"github.com/nikolayk812/cartstore/internal/logger"
	"github.com/nikolayk812/cartstore/internal/notify"
	"github.com/nikolayk812/cartstore/internal/port"
	"github.com/nikolayk812/cartstore/internal/repository"
	"github.com/nikolayk812/cartstore/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type openStorageFn func(ctx context.Context, cfg config.Storage) (port.Storage, func(), error)

type app struct {
	v       *viper.Viper
	cfgPath string
	open    openStorageFn

	cfg     config.Config
	logger  *slog.Logger
	store   *store.Store
	catalog *catalog.Client
	closeFn func()
}

func newApp() *app {
	return &app{v: config.New(), open: repository.Open}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "cart",
		Short:         "Storefront shopping cart",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if standalone(cmd) {
				return nil
			}
			return a.init(cmd.Context(), cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "path to a YAML config file")
	flags.String("storage", "", "storage backend: memory, file, postgres, redis, mongo")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	_ = a.v.BindPFlag("storage.backend", flags.Lookup("storage"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))

	root.AddCommand(
		newAddCmd(a),
		newRemoveCmd(a),
		newUpdateCmd(a),
		newClearCmd(a),
		newShowCmd(a),
		newServeCmd(a),
	)

	return root
}

// standalone reports whether cmd works without a cart, as help and shell
// completion do.
func standalone(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}

// close releases the storage opened by init. Safe to call more than once.
func (a *app) close() {
	if a.closeFn != nil {
		a.closeFn()
		a.closeFn = nil
	}
}

func (a *app) init(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.cfgPath)
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	a.cfg = cfg

	a.logger, err = logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger.New: %w", err)
	}

	unit, err := cfg.CurrencyUnit()
	if err != nil {
		return fmt.Errorf("cfg.CurrencyUnit: %w", err)
	}

	storage, closeFn, err := a.open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("repository.Open: %w", err)
	}
	a.closeFn = closeFn

	a.store, err = store.New(ctx, storage,
		notify.Multi(notify.NewWriter(cmd.OutOrStdout()), notify.NewLog(a.logger)),
		store.WithKey(cfg.Storage.Key),
		store.WithCurrency(unit),
		store.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("store.New: %w", err)
	}

	a.catalog = catalog.New(cfg.Catalog.BaseURL, unit, cfg.Catalog.Timeout)

	return nil
}
