package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mjansen/bijleslab/internal/audio"
	"github.com/mjansen/bijleslab/internal/chatlog"
	"github.com/mjansen/bijleslab/internal/client"
	"github.com/mjansen/bijleslab/internal/config"
	"github.com/mjansen/bijleslab/internal/session"
	"github.com/mjansen/bijleslab/internal/store"
	"github.com/mjansen/bijleslab/internal/tutor"
	"github.com/mjansen/bijleslab/internal/ui"
)

var (
	chatTutor string
	chatTheme string
	chatSkill string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive tutoring conversation",
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(cfg.BaseURL, cfg.APIPrefix, client.WithTimeout(cfg.HTTPTimeout))

	logger, err := chatlog.New(chatlog.Config{
		Enabled:   cfg.ChatLog.Enabled,
		Dir:       cfg.ChatLog.Dir,
		QueueSize: cfg.ChatLog.QueueSize,
	}, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	var bridge *audio.Bridge
	if cfg.Audio.RecordCommand != "" {
		recorder := audio.NewRecorder(&audio.ExecCapture{
			Command: cfg.Audio.RecordCommand,
			Args:    cfg.Audio.RecordArgs,
		})
		var player audio.Player = audio.NopPlayer{}
		if cfg.Audio.PlayCommand != "" {
			player = &audio.ExecPlayer{Command: cfg.Audio.PlayCommand, Args: cfg.Audio.PlayArgs}
		}
		bridge = audio.NewBridge(api, recorder, player, slog.Default())
	}

	manager := session.NewManager(api, slog.Default(), logger)

	// Saved preferences fill in whatever the flags and environment leave
	// open; the session's final tutor and theme are written back below.
	settings, err := repo.GetSettings(ctx)
	if err != nil {
		return err
	}

	sessionCfg := tutor.DefaultConfig()
	sessionCfg.Theme = settings.Theme
	if chatTheme != "" {
		sessionCfg.Theme = chatTheme
	}
	if chatSkill != "" {
		sessionCfg.Skill = chatSkill
	}

	tutorName := chatTutor
	if tutorName == "" {
		tutorName = cfg.Tutor
	}
	if chatTutor == "" && settings.Tutor != "" {
		tutorName = settings.Tutor
	}

	chat := ui.NewChat(manager, bridge, repo, os.Stdin, os.Stdout, slog.Default())
	if err := chat.Run(ctx, tutorName, sessionCfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if state := manager.State(); state.Tutor.Name != "" {
		settings.Tutor = state.Tutor.Name
		settings.Theme = state.Config.Theme
		if err := repo.SaveSettings(context.Background(), settings); err != nil {
			slog.Warn("failed to save preferences", "error", err)
		}
	}
	return nil
}

func init() {
	chatCmd.Flags().StringVar(&chatTutor, "tutor", "", "tutor persona (default from TUTOR_PERSONA)")
	chatCmd.Flags().StringVar(&chatTheme, "theme", "", "exercise theme")
	chatCmd.Flags().StringVar(&chatSkill, "skill", "", "default exercise skill (grammar, reading, writing)")
	rootCmd.AddCommand(chatCmd)
}
