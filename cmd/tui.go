package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plylist/internal/shared"
	"github.com/desertthunder/plylist/internal/ui"
)

// TUI launches the interactive playlist browser. With --platform the selected playlist can be pushed.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	logFile, err := os.OpenFile(cmd.String("log-file"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	level := r.logger.GetLevel()
	r.logger = shared.NewLogger(logFile)
	shared.SetLogLevel(r.logger, level)

	name := platformName(cmd.String("platform"))
	if name != "" {
		if _, err := r.platform(ctx, name); err != nil {
			return err
		}
	}

	m, err := r.open()
	if err != nil {
		return err
	}

	p := tea.NewProgram(ui.NewModel(ctx, m, name), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
