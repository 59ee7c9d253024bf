package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/durgesh-ai/durgesh/internal/config"
	"github.com/durgesh-ai/durgesh/internal/session"
	"github.com/durgesh-ai/durgesh/ui"
)

var (
	watchRules bool

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Start a conversation",
		Long: paragraph(fmt.Sprintf("\nStart a %s. Each line you type is answered with a recorded reply until you type %s.",
			keyword("conversation"), keyword("quit"))),
		Example: paragraph("durgesh chat\ndurgesh chat --watch --rules rules.tsv"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd)
		},
	}
)

func init() {
	chatCmd.Flags().BoolVarP(&watchRules, "watch", "w", false, "reload the rule table when it changes")
}

// runChat starts the interactive chat on a terminal and the line based
// chat otherwise.
func runChat(cmd *cobra.Command) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	e, err := config.ParseEnv()
	if err != nil {
		return err //nolint:wrapcheck
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) //nolint:gosec
	if interactive && !e.NoTUI {
		return runTUI(s)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if watchRules {
		w, err := session.NewWatcher(cfg.Rules.Path)
		if err != nil {
			return err //nolint:wrapcheck
		}
		defer w.Close() //nolint:errcheck
		go reloadOnChange(ctx, w, s)
	}

	if interactive {
		fmt.Fprint(cmd.OutOrStdout(), cfg.Chat.Prompt) //nolint:errcheck
	}
	return runLines(ctx, s, os.Stdin, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func runTUI(s *session.Session) error {
	// Read environment to get debugging stuff
	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	uiCfg.Prompt = cfg.Chat.Prompt
	uiCfg.RulesPath = cfg.Rules.Path
	uiCfg.Watch = watchRules
	uiCfg.Reload = func() error { return reload(s) }

	// Run Bubble Tea program
	if _, err := ui.NewProgram(uiCfg, s).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}

	st := s.Stats()
	log.Info("Chat finished", "turns", st.Turns, "answered", st.Answered, "unknown", st.Unknown, "failed", st.Failed)
	return nil
}

// reload rebuilds the resolver from the rule table and swaps it in. On
// failure the previous resolver stays in place.
func reload(s *session.Session) error {
	res, err := session.LoadResolver(cfg)
	if err != nil {
		return err //nolint:wrapcheck
	}
	s.Swap(res)
	log.Info("Reloaded rules", "path", cfg.Rules.Path, "rules", res.Table().Len())
	return nil
}

func reloadOnChange(ctx context.Context, w *session.Watcher, s *session.Session) {
	for ctx.Err() == nil {
		if err := w.Next(); err != nil {
			if !errors.Is(err, session.ErrWatcherClosed) {
				log.Error("Watching rules failed", "error", err)
			}
			return
		}
		if err := reload(s); err != nil {
			log.Error("Could not reload rules", "error", err)
		}
	}
}
