// Package main provides the entry point for the durgesh CLI application.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/durgesh-ai/durgesh/internal/config"
	"github.com/durgesh-ai/durgesh/internal/playback"
	"github.com/durgesh-ai/durgesh/internal/session"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	dryRun     bool

	// cfg is loaded once flags are parsed.
	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "durgesh [TEXT...]",
		Short: "Answer what you say with a recorded reply",
		Long: paragraph(
			fmt.Sprintf("\nAnswer what you say with a %s.\n\nWith TEXT, resolve and play one reply. Without it, start a chat.", keyword("recorded reply")),
		),
		Example: paragraph("durgesh are you happy\ndurgesh --dry-run are you happy\necho 'are you happy' | durgesh"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
		log.Debug("Using configuration file", "path", configFile)
	}

	var err error
	cfg, err = config.Load(viper.GetViper())
	if err != nil {
		return err //nolint:wrapcheck
	}

	// DURGESH_LOG_LEVEL was applied in setupLog and wins over the file.
	if os.Getenv("DURGESH_LOG_LEVEL") == "" {
		if lvl, err := log.ParseLevel(cfg.Log.Level); err == nil {
			log.SetLevel(lvl)
		}
	}

	plainWhenPiped()
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func execute(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if len(args) > 0 {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		return respondOnce(ctx, s, strings.Join(args, " "), cmd.OutOrStdout())
	}

	// if stdin is a pipe then answer it line by line
	if yes, err := stdinIsPipe(); err != nil {
		return err
	} else if yes {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		return runLines(ctx, s, os.Stdin, cmd.OutOrStdout(), cmd.ErrOrStderr())
	}

	return runChat(cmd)
}

// newSession loads the rules and sets up playback from cfg.
func newSession() (*session.Session, error) {
	res, err := session.LoadResolver(cfg)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	var player playback.Player
	if !dryRun {
		player, err = playback.New(cfg.Playback)
		if err != nil {
			return nil, fmt.Errorf("unable to set up playback: %w", err)
		}
	}

	return session.New(res, player, cfg.Playback.AudioDir, session.WithDryRun(dryRun)), nil
}

// respondOnce answers a single utterance. Unlike the chat, a failure to
// resolve or play is returned so the process exits non-zero.
func respondOnce(ctx context.Context, s *session.Session, text string, w io.Writer) error {
	turn := s.Respond(ctx, text)
	if turn.Reply != "" {
		if _, err := fmt.Fprintln(w, turn.Reply); err != nil {
			return fmt.Errorf("unable to write to writer: %w", err)
		}
	}
	return turn.Err
}

// runLines answers each line of r until EOF or a line reading "quit".
// Lines are used verbatim apart from the line ending: the digest of
// "hi " differs from that of "hi".
func runLines(ctx context.Context, s *session.Session, r io.Reader, w, errW io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "quit" {
			break
		}

		turn := s.Respond(ctx, line)
		if turn.Reply != "" {
			if _, err := fmt.Fprintln(w, turn.Reply); err != nil {
				return fmt.Errorf("unable to write to writer: %w", err)
			}
		}
		if turn.Err != nil {
			fmt.Fprintln(errW, warning(turn.Err.Error())) //nolint:errcheck
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("unable to read input: %w", err)
	}

	st := s.Stats()
	log.Info("Conversation finished", "turns", st.Turns, "answered", st.Answered, "unknown", st.Unknown, "failed", st.Failed)
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	flags.StringP("rules", "r", "", "rule table, optionally zstd compressed")
	flags.StringP("audio-dir", "a", "", "directory of recorded replies")
	flags.StringP("backend", "b", "", "playback backend (exec or native)")
	flags.String("chooser", "", "reply chooser (first or hashed)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVarP(&dryRun, "dry-run", "n", false, "resolve replies without playing them")

	// Config bindings
	_ = viper.BindPFlag("rules.path", flags.Lookup("rules"))
	_ = viper.BindPFlag("playback.audio_dir", flags.Lookup("audio-dir"))
	_ = viper.BindPFlag("playback.backend", flags.Lookup("backend"))
	_ = viper.BindPFlag("chat.chooser", flags.Lookup("chooser"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))

	config.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(chatCmd, rulesCmd, listenCmd, configCmd, manCmd)
}

// configDirs lists the directories searched for durgesh.yml, most specific
// first.
func configDirs() ([]string, error) {
	scope := gap.NewScope(gap.User, "durgesh")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "durgesh")}, dirs...)
	}

	e, err := config.ParseEnv()
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if e.ConfigHome != "" {
		dirs = append([]string{e.ConfigHome}, dirs...)
	}
	return dirs, nil
}

func tryLoadConfigFromDefaultPlaces() {
	dirs, err := configDirs()
	if err != nil || len(dirs) == 0 {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("durgesh")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("durgesh")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "durgesh.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
