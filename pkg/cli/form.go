package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/usecase"
	"github.com/secmon-lab/metaform/pkg/utils/logging"
	"github.com/secmon-lab/metaform/pkg/widget"
	"github.com/urfave/cli/v3"
)

func outputOf(c *cli.Command) io.Writer {
	if w := c.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func cmdForm() *cli.Command {
	var entity string
	var engineCfg engineConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "entity",
			Aliases:     []string{"e"},
			Usage:       "Entity whose new record form is shown",
			Required:    true,
			Destination: &entity,
		},
	}
	flags = append(flags, engineCfg.Flags()...)

	return &cli.Command{
		Name:  "form",
		Usage: "Show the new record form of an entity",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			eng, err := engineCfg.open(ctx)
			if err != nil {
				return err
			}
			defer eng.Close(ctx)

			w := outputOf(c)
			session, err := openSession(ctx, eng, entity, &terminalPresenter{w: w})
			if err != nil {
				return err
			}
			defer session.Close()

			printForm(ctx, w, session)
			return nil
		},
	}
}

// session is an open view with its widgets mounted
type session struct {
	view    *usecase.NewEntityRecordView
	widgets []widget.Widget
}

func openSession(ctx context.Context, eng *engine, entity string, presenter usecase.Presenter) (*session, error) {
	view, err := eng.uc.EntityRecord.OpenNewEntityRecord(ctx, entity, presenter)
	if err != nil {
		return nil, err
	}

	host, err := widget.NewHost(eng.repo)
	if err != nil {
		view.Close()
		return nil, err
	}
	widgets, err := host.MountForm(view.Form)
	if err != nil {
		view.Close()
		return nil, err
	}
	return &session{view: view, widgets: widgets}, nil
}

func (s *session) widget(name string) (widget.Widget, bool) {
	for _, wg := range s.widgets {
		if wg.Field().Name == name {
			return wg, true
		}
	}
	return nil, false
}

func (s *session) Close() {
	widget.CloseAll(s.widgets)
	s.view.Close()
}

func printForm(ctx context.Context, w io.Writer, s *session) {
	_, _ = labelColor.Fprintln(w, s.view.Title)
	for _, wg := range s.widgets {
		f := wg.Field()
		name := f.Name
		if f.IsLogicalKey {
			name += "*"
		}
		_, _ = fmt.Fprintf(w, "  %-20s %s %s\n",
			name,
			mutedColor.Sprintf("%-12s %-10s", f.Type, wg.Kind()),
			wg.Render(),
		)
		for _, err := range wg.Errors() {
			_, _ = errorColor.Fprintf(w, "  %-20s %s\n", "", err.Error())
		}

		picker, ok := wg.(widget.Picker)
		if !ok {
			continue
		}
		candidates, err := picker.Candidates(ctx)
		if err != nil {
			logging.From(ctx).Warn("failed to load candidates", "field", f.Name, "error", err)
			continue
		}
		labels := make([]string, 0, len(candidates))
		for _, cand := range candidates {
			labels = append(labels, cand.Key+"="+cand.Label)
		}
		_, _ = mutedColor.Fprintf(w, "  %-20s [%s]\n", "", strings.Join(labels, ", "))
	}
}

func parseAssignments(values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, goerr.New("value must be given as name=value", goerr.V("value", v))
		}
		out[strings.TrimSpace(name)] = value
	}
	return out, nil
}
