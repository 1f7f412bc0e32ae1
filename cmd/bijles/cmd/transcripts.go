package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mjansen/bijleslab/internal/config"
	"github.com/mjansen/bijleslab/internal/store"
	"github.com/mjansen/bijleslab/internal/tutor"
)

var transcriptsLimit int

var transcriptsCmd = &cobra.Command{
	Use:   "transcripts [id]",
	Short: "List saved conversations, or print one in full",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTranscripts,
}

func runTranscripts(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	if len(args) == 1 {
		return printTranscript(cmd, repo, args[0])
	}

	list, err := repo.ListTranscripts(cmd.Context(), transcriptsLimit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("Geen bewaarde gesprekken.")
		return nil
	}
	for _, t := range list {
		fmt.Printf("%s  %s  %s  thema: %s  (%d berichten)\n",
			t.ID, t.SavedAt.Format("2006-01-02 15:04"), t.Tutor, t.Theme, len(t.Messages))
	}
	return nil
}

func printTranscript(cmd *cobra.Command, repo store.Repository, id string) error {
	t, err := repo.GetTranscript(cmd.Context(), id)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("gesprek %q niet gevonden", id)
	}
	fmt.Printf("%s — %s (thema: %s)\n\n", t.ID, t.Tutor, t.Theme)
	for _, msg := range t.Messages {
		speaker := t.Tutor
		if msg.Role == tutor.RoleUser {
			speaker = "jij"
		}
		text := msg.Text
		if msg.Role == tutor.RoleExercise && msg.Exercise != nil {
			text = strings.TrimSpace(msg.Text + " " + msg.Exercise.PromptText())
		}
		fmt.Printf("%s: %s\n", speaker, text)
	}
	return nil
}

func init() {
	transcriptsCmd.Flags().IntVar(&transcriptsLimit, "limit", 20, "maximum number of conversations to list")
	rootCmd.AddCommand(transcriptsCmd)
}
