package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"spendbook/internal/cli"
	"spendbook/internal/config"
)

func main() {
	var dbPath string

	rootCmd := &cobra.Command{
		Use:   "spendbook",
		Short: "Interactive multi-user expense ledger",
		Long: `spendbook is an interactive shell over a SQLite expense ledger.
Users record, filter, import and export expenses; admins manage users
and the category and payment method registries.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(dbPath)
		},
	}
	rootCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides SPENDBOOK_DB_PATH)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(dbPath string) error {
	cli.LoadEnvFile()

	cfg := config.Load()
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo // Validate reports the bad value below
	}
	logger := cli.SetupLogger(level)
	if dbPath != "" {
		cfg.SQLiteDBPath = dbPath
	}
	cli.ValidateConfig(logger, cfg)

	store := cli.InitStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	in := bufio.NewReader(os.Stdin)
	router := cli.NewRouter(store, in, os.Stdout)

	if err := router.Bootstrap(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Error("Failed to bootstrap admin account", "error", err)
		return err
	}

	logger.Info("Ledger ready", "db", cfg.SQLiteDBPath)
	fmt.Println("Welcome to spendbook. Type 'login <username> <password>' to begin, 'exit' to quit.")

	for {
		fmt.Print("> ")
		line, err := in.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return fmt.Errorf("read command: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "exit" || line == "quit" {
			fmt.Println("Goodbye.")
			return nil
		}
		if err := router.Execute(ctx, line); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
