package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	_ = godotenv.Load(".env")

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nebula",
		Short: "Card reference API and new-card/news notification watchers",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(serveCmd())
	root.AddCommand(importCmd())
	root.AddCommand(watchCmd())
	root.AddCommand(runCmd())

	return root
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP query API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <cards.csv>",
		Short: "Rebuild the card database from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(args[0])
		},
	}
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run a change-notification watcher once",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "cards",
		Short: "Diff the card collection against the last snapshot and notify new cards and errata",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchCards()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "news",
		Short: "Check the news feed for entries newer than the cursor and notify them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchNews()
		},
	})

	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with HTTP server and periodic watchers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
