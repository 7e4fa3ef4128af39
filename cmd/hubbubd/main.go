package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"hubbub/internal/admin"
	"hubbub/internal/compat"
	"hubbub/internal/config"
	"hubbub/internal/dispatch"
	"hubbub/internal/handlers"
	"hubbub/internal/logging"
	"hubbub/internal/observability"
	"hubbub/internal/server"
	"hubbub/internal/session"
	"hubbub/internal/store"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "hash":
			if len(args) != 2 {
				fmt.Fprintln(os.Stderr, "usage: hubbubd hash <password>")
				os.Exit(2)
			}
			fmt.Println(store.HashPassword(args[1]))
			return
		case "config":
			runConfig(args[1:])
			return
		case "serve":
			args = args[1:]
		}
	}

	if err := runServe(args); err != nil {
		fmt.Fprintf(os.Stderr, "hubbubd: %v\n", err)
		os.Exit(1)
	}
}

func runConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	output := fs.String("output", "hubbubd.toml", "output path for config template")
	force := fs.Bool("force", false, "overwrite existing config file")
	_ = fs.Parse(args)

	if err := config.WriteTemplate(*output, *force); err != nil {
		fmt.Fprintf(os.Stderr, "hubbubd: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote config template to %s\n", *output)
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (defaults off, built-in config)")
	_ = fs.Parse(args)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	log := logging.ConfigureRuntime("hubbubd")
	observability.RegisterMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agreement := store.NewAgreement(cfg.Agreement)
	if cfg.AgreementFile != "" {
		if err := agreement.LoadFile(cfg.AgreementFile); err != nil {
			return err
		}
		if err := agreement.Watch(ctx, cfg.AgreementFile, log); err != nil {
			return err
		}
	}

	accounts := store.NewAccountStore(configAccounts(cfg))
	board := store.NewBoard(cfg.NewsCategories)
	files := store.NewFileStore(cfg.FilesRoot)

	table := handlers.Register(dispatch.NewBuilder(), handlers.Deps{
		Accounts:  accounts,
		Board:     board,
		Files:     files,
		Agreement: agreement,
		Log:       log,
	}).Build()

	layer := compat.NewLayer(cfg.ServerName, cfg.BannerID)
	dispatcher := dispatch.NewDispatcher(table, layer, log).
		WithObserver(observability.TransactionObserver{})

	sessions := session.NewRegistry()
	srv := server.New(server.Config{
		Addr:           cfg.Listen,
		MaxPayload:     cfg.MaxPayloadBytes,
		WriteTimeout:   cfg.WriteTimeout(),
		PushQueueDepth: cfg.PushQueueDepth,
	}, dispatcher, sessions, agreement, log)

	logStartup(log, cfg, accounts)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ctx)
	})
	if cfg.Admin.Enabled {
		adm := admin.New(cfg.Admin.Addr, cfg.ServerName, cfg.Admin.CorsOrigins, sessions, log)
		g.Go(func() error {
			return adm.Serve(ctx)
		})
	}
	return g.Wait()
}

func configAccounts(cfg config.Config) []store.Account {
	out := make([]store.Account, 0, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		out = append(out, store.Account{Login: a.Login, PasswordHash: a.PasswordHash})
	}
	return out
}

func logStartup(log zerolog.Logger, cfg config.Config, accounts *store.AccountStore) {
	log.Info().
		Str("server_name", cfg.ServerName).
		Str("listen", cfg.Listen).
		Int("accounts", accounts.Len()).
		Int("categories", len(cfg.NewsCategories)).
		Bool("admin", cfg.Admin.Enabled).
		Msg("starting")
	if accounts.Len() == 0 {
		log.Warn().Msg("no accounts configured, all logins will be rejected")
	}
}
