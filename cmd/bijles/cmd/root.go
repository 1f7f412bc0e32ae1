package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "bijles",
	Short: "Terminal client for the English tutoring backend",
	Long: `Bijles is a terminal client for an English tutoring backend. It runs
conversations with a tutor persona, generates and grades exercises and
can record spoken questions. The serve subcommand starts a local
practice backend with canned fixtures.`,
	PersistentPreRun: setup,
	SilenceUsage:     true,
	SilenceErrors:    true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		slog.Error("command failed", "error", err)
	}
	return err
}

func setup(cmd *cobra.Command, _ []string) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	// The serve subcommand logs structured JSON; interactive commands
	// keep the terminal readable with text output to stderr.
	var handler slog.Handler
	if cmd.Name() == "serve" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
