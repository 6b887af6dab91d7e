package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmcdole/inferno/internal/config"
	"github.com/mmcdole/inferno/internal/domain"
	"github.com/mmcdole/inferno/internal/security"
	"github.com/mmcdole/inferno/internal/service"
	"github.com/mmcdole/inferno/internal/store"
)

func newTokenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Generate a new session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.helper()
			if err != nil {
				return err
			}
			token, err := h.GenerateSessionToken()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func newEncryptCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encrypt <text>",
		Short: "Encrypt a value the way cached preferences are stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if obfuscate, _ := cmd.Flags().GetBool("obfuscate"); obfuscate {
				fmt.Fprintln(cmd.OutOrStdout(), security.Obfuscate(args[0]))
				return nil
			}
			h, err := a.helper()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h.Encrypt(args[0]))
			return nil
		},
	}
	cmd.Flags().Bool("obfuscate", false, "apply the reversible shift cipher instead of AES-GCM")
	return cmd
}

func newDecryptCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decrypt <ciphertext>",
		Short: "Decrypt a stored value (undecryptable input is printed unchanged)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if obfuscated, _ := cmd.Flags().GetBool("obfuscated"); obfuscated {
				fmt.Fprintln(cmd.OutOrStdout(), security.Deobfuscate(args[0]))
				return nil
			}
			h, err := a.helper()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h.Decrypt(args[0]))
			return nil
		},
	}
	cmd.Flags().Bool("obfuscated", false, "reverse the shift cipher instead of AES-GCM")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <url>",
		Short: "Check a URL against the secure endpoint allow-list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.helper()
			if err != nil {
				return err
			}
			if !h.ValidateEndpoint(args[0]) {
				return fmt.Errorf("%w: %s", domain.ErrEndpointRejected, args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a game data payload (JSON) into the local store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			h, err := a.helper()
			if err != nil {
				return err
			}
			st, err := a.openStore(h)
			if err != nil {
				return err
			}
			defer st.Close()

			data, err := service.NewGameDataService(st, a.logger).Import(raw)
			if err != nil {
				return err
			}

			var sections []string
			if data.Config != nil {
				sections = append(sections, "gameConfig")
			}
			if data.User != nil {
				sections = append(sections, "userData")
			}
			if data.Settings != nil {
				sections = append(sections, "settings")
			}
			if len(sections) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to import")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s\n", strings.Join(sections, ", "))
			return nil
		},
	}
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return raw, nil
}

func newEventsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List queued analytics events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.helper()
			if err != nil {
				return err
			}
			st, err := a.openStore(h)
			if err != nil {
				return err
			}
			defer st.Close()

			metrics := service.NewMetricsService(st, a.logger)
			if flush, _ := cmd.Flags().GetBool("flush"); flush {
				n, err := metrics.FlushEvents()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "flushed %d events\n", n)
				return nil
			}

			events, err := metrics.Events()
			if err != nil {
				return err
			}
			for _, e := range events {
				fmt.Fprintf(cmd.OutOrStdout(), "%d %s %s\n", e.Timestamp, e.Name, formatParams(e.Params))
			}
			return nil
		},
	}
	cmd.Flags().Bool("flush", false, "delete every queued event")
	return cmd
}

func formatParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, " ")
}

// withSession opens the store and resumes the persisted session for fn
func withSession(a *app, fn func(*service.SessionService, *store.PrefStore) error) error {
	h, err := a.helper()
	if err != nil {
		return err
	}
	st, err := a.openStore(h)
	if err != nil {
		return err
	}
	defer st.Close()

	session := service.NewSessionService(st, h, a.logger)
	session.Resume()
	return fn(session, st)
}

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or update the saved game session",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the session token, progress, scores and imported settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(a, func(session *service.SessionService, st *store.PrefStore) error {
				out := cmd.OutOrStdout()
				score, level := session.Progress()
				fmt.Fprintf(out, "token: %s\n", orNone(session.Token()))
				fmt.Fprintf(out, "progress: score %d, level %d\n", score, level)
				fmt.Fprintf(out, "final score: %s\n", formatScore(session.FinalScore()))
				fmt.Fprintf(out, "high score: %s\n", formatScore(session.HighScore()))

				data := service.NewGameDataService(st, a.logger)
				fmt.Fprintf(out, "settings: %s\n", orNone(formatSettings(data.Settings())))
				fmt.Fprintf(out, "achievements: %s\n", orNone(strings.Join(data.Achievements(), ", ")))
				return nil
			})
		},
	}

	save := &cobra.Command{
		Use:   "save <score> <level>",
		Short: "Save progress for the next session to resume",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid score %q: %w", args[0], err)
			}
			level, err := strconv.Atoi(args[1])
			if err != nil || level < 1 {
				return fmt.Errorf("invalid level %q: must be a positive integer", args[1])
			}
			return withSession(a, func(session *service.SessionService, _ *store.PrefStore) error {
				if err := session.SaveProgress(score, level); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved score %d, level %d\n", score, level)
				return nil
			})
		},
	}

	end := &cobra.Command{
		Use:   "end",
		Short: "End the session, recording the final and high score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(a, func(session *service.SessionService, _ *store.PrefStore) error {
				if err := session.End(); err != nil {
					return err
				}
				final, _ := session.FinalScore()
				high, _ := session.HighScore()
				fmt.Fprintf(cmd.OutOrStdout(), "session ended, final score %d, high score %d\n", final, high)
				return nil
			})
		},
	}

	cmd.AddCommand(show, save, end)
	return cmd
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func formatScore(score int, ok bool) string {
	if !ok {
		return "none"
	}
	return strconv.Itoa(score)
}

func formatSettings(settings domain.GameSettings) string {
	var parts []string
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"language", settings.Language},
		{"nickname", settings.Nickname},
		{"theme", settings.Theme},
	} {
		if f.value != nil {
			parts = append(parts, f.name+"="+*f.value)
		}
	}
	return strings.Join(parts, " ")
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the saved session, progress and queued events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.helper()
			if err != nil {
				return err
			}
			st, err := a.openStore(h)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := service.NewSessionService(st, h, a.logger).Reset(); err != nil {
				return err
			}
			if _, err := service.NewMetricsService(st, a.logger).FlushEvents(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "session data cleared")
			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if write, _ := cmd.Flags().GetBool("write"); write {
				dir, _ := cmd.Flags().GetString("config-dir")
				if dir == "" {
					dir = config.Dir()
				}
				if err := config.Save(a.cfg, dir); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", filepath.Join(dir, "config.yaml"))
				return nil
			}

			out, err := a.cfg.Dump()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().Bool("write", false, "save the effective configuration to config.yaml in the config directory")
	return cmd
}

func newKeysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keys [prefix]",
		Short: "List keys held in the preference store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}

			h, err := a.helper()
			if err != nil {
				return err
			}
			st, err := a.openStore(h)
			if err != nil {
				return err
			}
			defer st.Close()

			for _, k := range st.Keys(prefix) {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "inferno %s (build %s, api %s)\n", Version, Build, APIVersion)
			return nil
		},
	}
}
