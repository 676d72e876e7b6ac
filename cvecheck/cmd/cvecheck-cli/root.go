package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rdecicco/cvecheckreport/cvecheck"
	"github.com/rdecicco/cvecheckreport/store"
)

var rootCmd = &cobra.Command{
	Use:   "cvecheck-cli",
	Short: "Import and query cve-check scan reports",
}

var _app app

type app struct {
	Store  *store.Store
	Config cvecheck.Config
}

func App() app {
	return _app
}

func main() {
	err := run()
	if err != nil {
		fmt.Printf("FATAL: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	var err error
	_app, err = initApp()
	if err != nil {
		return err
	}

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	err = rootCmd.Execute()
	if err != nil {
		return err
	}
	return nil
}

func initApp() (app, error) {
	var app app
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	config, err := cvecheck.ParseConfigFromFile("config/application.toml")
	if err != nil {
		return app, fmt.Errorf("error reading 'application.toml': %w", err)
	}
	app.Config = config
	st, err := store.Open(config.DBPath)
	if err != nil {
		return app, fmt.Errorf("could not open report database: %w", err)
	}
	app.Store = st

	return app, nil
}
