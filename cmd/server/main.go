// Package main starts the RTS masterserver lobby service.
package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacobpatterson1549/rts-masterserver/config"
	"github.com/jacobpatterson1549/rts-masterserver/db"
	"github.com/jacobpatterson1549/rts-masterserver/db/bcrypt"
	"github.com/jacobpatterson1549/rts-masterserver/db/user"
	"github.com/jacobpatterson1549/rts-masterserver/lobby"
	"github.com/jacobpatterson1549/rts-masterserver/server"
	"github.com/jacobpatterson1549/rts-masterserver/session"
	"github.com/spf13/cobra"
)

func main() {
	l := stdlog.New(os.Stdout, "", stdlog.LstdFlags)

	cmd := config.NewCommand("rts-masterserver", l, run)
	if err := cmd.Execute(); err != nil {
		l.Printf("fatal: %v", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, loader *config.Loader) error {
	l := stdlog.New(os.Stdout, "", stdlog.LstdFlags)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	backend, err := db.NewBackend(ctx, db.Config{
		Kind:     cfg.Database.Kind,
		Host:     cfg.Database.Host,
		DBName:   cfg.Database.DBName,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Port:     cfg.Database.Port,
	})
	if err != nil {
		return err
	}

	dao, err := user.NewDao(backend, bcrypt.NewPasswordHandler())
	if err != nil {
		return err
	}

	registry := lobby.NewRegistry(l, false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go registry.Run(ctx)

	watcher, err := loader.Watch(func(newCfg config.Config) {
		l.Printf("configuration change detected; accepted version and database settings take effect on restart")
	})
	if err != nil {
		return err
	}
	if watcher != nil {
		defer watcher.Close()
	}

	srv := &server.Server{
		Port: cfg.Port,
		Log:  l,
		SessionCfg: session.Config{
			Log:             l,
			AcceptedVersion: cfg.AcceptedVersion,
			Registry:        registry,
			UserDao:         dao,
		},
	}

	done := make(chan os.Signal, 2)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	errC := make(chan error, 1)
	go func() { errC <- srv.Run(ctx) }()

	select {
	case err := <-errC:
		return err
	case sig := <-done:
		l.Printf("handled %v", sig)
		cancel()
		return <-errC
	}
}
