package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"notepilot/config"
	"notepilot/engine"
	"notepilot/mcp"
	"notepilot/model"
	"notepilot/provider"
	"notepilot/session"
	"notepilot/storage"
	"notepilot/tools"
	"notepilot/ui"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "notepilot",
		Short:         "AI copilot for your notes",
		Long:          "Chat with a language model that can read, search and edit your notes.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
	}

	root.AddCommand(
		newAskCommand(),
		newNotesCommand(),
		newModelsCommand(),
		newExportCommand(),
		newServeMCPCommand(),
	)
	return root
}

func runChat(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	title := fmt.Sprintf("notepilot · %s %s", config.ProviderDisplayName(a.cfg.Provider), a.provider.GetModel())
	return ui.Run(ui.NewChatView(a.controller, a.notes, ui.WithTitle(title)))
}

func newAskCommand() *cobra.Command {
	var noteID string

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Ask one question or run one /command",
		Long: "Send a single message through the copilot and print the reply.\n" +
			"Messages starting with / run a note command, e.g. notepilot ask --note <id> /summarize",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if noteID != "" {
				note, err := a.notes.Get(ctx, noteID)
				if err != nil {
					return fmt.Errorf("failed to load note %s: %w", noteID, err)
				}
				a.controller.SetNote(note)
			}

			a.controller.SetInput(strings.Join(args, " "))
			go func() {
				<-ctx.Done()
				a.controller.Abort()
			}()

			out, err := a.controller.Submit(ctx)
			if err != nil {
				return err
			}
			if !out.OK() {
				return errors.New(session.ErrorText(out))
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Text)
			if out.Status == engine.StatusRoundLimit {
				fmt.Fprintf(cmd.ErrOrStderr(), "(stopped after %d rounds)\n", out.Rounds)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&noteID, "note", "", "id of the note to use as context")
	return cmd
}

func newNotesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Manage notes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
				notes, err := a.notes.List(ctx)
				if err != nil {
					return err
				}
				if len(notes) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No notes found.")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), tools.FormatNoteList(notes))
				return nil
			})
		},
	})

	var title string
	add := &cobra.Command{
		Use:   "add [content]",
		Short: "Create a note",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := ""
			if len(args) == 1 {
				content = args[0]
			}
			return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
				note, err := a.notes.Create(ctx, title, content)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created note [%s]\n", note.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&title, "title", "", "note title")
	cmd.AddCommand(add)

	for _, pinned := range []bool{true, false} {
		use, short := "pin [id]", "Pin a note"
		if !pinned {
			use, short = "unpin [id]", "Unpin a note"
		}
		cmd.AddCommand(&cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
					return a.notes.SetPinned(ctx, args[0], pinned)
				})
			},
		})
	}

	return cmd
}

func newModelsCommand() *cobra.Command {
	var set string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "Check the configured provider and list its models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			defer config.InitDebugLog(cfg.DataDir())()

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			result := provider.Probe(ctx, cfg.Provider, provider.ConfigFrom(cfg))
			if result.Err != nil {
				return fmt.Errorf("%s: %w", config.ProviderDisplayName(cfg.Provider), result.Err)
			}

			if set != "" {
				if !hasModel(result.Models, set) {
					return fmt.Errorf("model %q is not offered by %s", set, config.ProviderDisplayName(cfg.Provider))
				}
				if err := config.SetModel(cfg.DataDir(), set); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Default model set to %s\n", set)
				return nil
			}

			for _, m := range result.Models {
				marker := "  "
				if m.Name == cfg.Model {
					marker = "* "
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", marker, m.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&set, "set", "", "make this model the default")
	return cmd
}

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export [path]",
		Short: "Export the chat transcript as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
				msgs, err := a.db.Transcript().ListMessages(ctx)
				if err != nil {
					return err
				}

				path := storage.GenerateExportPath(filepath.Join(a.cfg.DataDir(), "exports"), "transcript", time.Now())
				if len(args) == 1 {
					path = config.ExpandPath(args[0])
				}
				if err := storage.ExportTranscript(msgs, path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d messages to %s\n", len(msgs), path)
				return nil
			})
		},
	}
}

func newServeMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the note tools over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, a *app) error {
				return mcp.ServeStdio(mcp.NewServer(a.dispatcher, Version))
			})
		},
	}
}

func withStore(ctx context.Context, fn func(context.Context, *app) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func hasModel(models []model.ModelInfo, name string) bool {
	for _, m := range models {
		if m.Name == name {
			return true
		}
	}
	return false
}
