package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/pluto/internal/shared"
	"github.com/desertthunder/pluto/internal/ui"
)

// View launches the interactive course viewer, on the given course or the course list.
func (r *Runner) View(ctx context.Context, cmd *cli.Command) error {
	api, err := r.apiClient(cmd)
	if err != nil {
		return err
	}
	loc, err := r.config.CheckIn.Location()
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, api, cmd.StringArg("course"), ui.Options{Logger: fileLogger, Location: loc})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
