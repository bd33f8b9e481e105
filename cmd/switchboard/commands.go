package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/switchboard/internal/activation"
	"github.com/kingrea/switchboard/internal/config"
	"github.com/kingrea/switchboard/internal/diagnostics"
	"github.com/kingrea/switchboard/internal/eventbus"
	"github.com/kingrea/switchboard/internal/host"
	"github.com/kingrea/switchboard/internal/tui"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the .switchboard directory with default config and settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := opts.projectDir()
			if err != nil {
				return err
			}
			if err := config.InitDir(dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", filepath.Join(dir, config.ProjectDirName))
			return nil
		},
	}
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	var (
		asJSON bool
		color  bool
		hints  bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Run activation and print which components activated, failed or were disabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := opts.start(cmd, nil)
			if err != nil {
				return err
			}
			defer h.Close()
			summary := h.Orchestrator.Status()
			if asJSON {
				data, err := diagnostics.JSON(summary)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), diagnostics.Render(summary, diagnostics.RenderOptions{Color: color, Hints: hints}))
			if tokens := h.Orchestrator.Tokens(); len(tokens) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Commands: %s\n", strings.Join(tokens, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	cmd.Flags().BoolVar(&color, "color", false, "style the output with terminal colors")
	cmd.Flags().BoolVar(&hints, "hints", true, "show remediation hints for failed and disabled components")
	return cmd
}

func newDispatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch <token> [args...]",
		Short: "Route a command token to the component that owns it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := opts.start(cmd, nil)
			if err != nil {
				return err
			}
			defer h.Close()
			out, err := h.Orchestrator.DispatchCommand(args[0], args[1:]...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newBoardCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Open the interactive status board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sub eventbus.Subscription
			h, err := opts.start(cmd, func(h *host.Host) error {
				sub = h.Bus.Subscribe(eventbus.AllTopic)
				return nil
			})
			if err != nil {
				return err
			}
			defer h.Close()
			defer sub.Close()
			w, err := h.Watch(nil)
			if err != nil {
				return err
			}
			defer w.Close()
			board := tui.NewBoard(h.Orchestrator,
				tui.WithEvents(sub.Events),
				tui.WithLogbook(h.Logbook),
			)
			p := tea.NewProgram(board, tea.WithAltScreen(), tea.WithContext(contextOf(cmd)))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run board: %w", err)
			}
			return nil
		},
	}
}

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print lifecycle events and reactivate when the settings file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sub eventbus.Subscription
			h, err := opts.start(cmd, func(h *host.Host) error {
				sub = h.Bus.Subscribe(eventbus.AllTopic)
				return nil
			})
			if err != nil {
				return err
			}
			defer h.Close()
			defer sub.Close()
			w, err := h.Watch(func(report *activation.Report, err error) {
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "reload: %v\n", err)
				}
			})
			if err != nil {
				return err
			}
			defer w.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (ctrl+c to stop)\n", h.Settings.Path())

			ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case event, ok := <-sub.Events:
					if !ok {
						return nil
					}
					fmt.Fprintln(cmd.OutOrStdout(), formatEvent(event))
				}
			}
		},
	}
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func formatEvent(event eventbus.Event) string {
	stamp := event.Time.Format("15:04:05")
	switch event.Type {
	case eventbus.TypeOutcome:
		line := fmt.Sprintf("%s %-8s %s %s", stamp, event.Type, event.ComponentID, event.Status)
		if event.Detail != "" {
			line += " (" + event.Detail + ")"
		}
		return line
	default:
		return strings.TrimSpace(fmt.Sprintf("%s %-8s %s", stamp, event.Type, event.Detail))
	}
}
