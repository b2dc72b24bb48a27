package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/secmon-lab/metaform/pkg/domain/types"
	"github.com/secmon-lab/metaform/pkg/usecase"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	labelColor   = color.New(color.FgCyan)
	mutedColor   = color.New(color.FgHiBlack)
)

// terminalPresenter prints notifications and navigation targets of a view
type terminalPresenter struct {
	w io.Writer
}

var _ usecase.Presenter = &terminalPresenter{}

func (p *terminalPresenter) Success(ctx context.Context, msg string) {
	_, _ = successColor.Fprintln(p.w, "✔ "+msg)
}

func (p *terminalPresenter) Error(ctx context.Context, msg, detail string) {
	_, _ = errorColor.Fprintln(p.w, "✘ "+msg)
	if detail != "" {
		_, _ = mutedColor.Fprintln(p.w, "  "+detail)
	}
}

func (p *terminalPresenter) NavigateToRecord(ctx context.Context, entity types.EntityName, key string) {
	_, _ = fmt.Fprintf(p.w, "%s %s/%s\n", labelColor.Sprint("→"), entity, key)
}
