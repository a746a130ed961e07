package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/reconcile/internal/model"
	"github.com/Veraticus/reconcile/internal/pipeline"
	"github.com/Veraticus/reconcile/internal/tui/themes"
)

// Run shows the review screen until the user quits and returns the
// reviewed result.
func Run(ctx context.Context, p *pipeline.Pipeline, result *model.SessionResult, theme themes.Theme) (*model.SessionResult, error) {
	program := tea.NewProgram(
		New(ctx, p, result, theme),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)

	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return nil, fmt.Errorf("unexpected model type %T", final)
	}
	return m.Result(), nil
}
