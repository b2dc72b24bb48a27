package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdCreate() *cli.Command {
	var entity string
	var assignments []string
	var engineCfg engineConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "entity",
			Aliases:     []string{"e"},
			Usage:       "Entity of the new record",
			Required:    true,
			Destination: &entity,
		},
		&cli.StringSliceFlag{
			Name:        "set",
			Usage:       "Field value as name=value (repeatable)",
			Destination: &assignments,
		},
	}
	flags = append(flags, engineCfg.Flags()...)

	return &cli.Command{
		Name:  "create",
		Usage: "Create a record through the entity form",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			values, err := parseAssignments(assignments)
			if err != nil {
				return err
			}

			eng, err := engineCfg.open(ctx)
			if err != nil {
				return err
			}
			defer eng.Close(ctx)

			w := outputOf(c)
			s, err := openSession(ctx, eng, entity, &terminalPresenter{w: w})
			if err != nil {
				return err
			}
			defer s.Close()

			for name, value := range values {
				wg, ok := s.widget(name)
				if !ok {
					return goerr.New("field is not declared on entity",
						goerr.V("field", name),
						goerr.V("entity", s.view.Form.Entity()))
				}
				if err := wg.Input(value); err != nil {
					logging.From(ctx).Debug("input rejected", "field", name, "error", err)
				}
			}

			if !s.view.Form.Valid() {
				printForm(ctx, w, s)
			}

			rec, err := s.view.Submit(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to create record", goerr.V("entity", entity))
			}
			key, _ := rec.Key(s.view.Form.Schema)
			logging.From(ctx).Info("record created", "entity", s.view.Form.Entity(), "key", key)
			return nil
		},
	}
}
