package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var entities []string
	var engineCfg engineConfig

	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "entity",
			Aliases:     []string{"e"},
			Usage:       "Entity to check (repeatable, default: every declared entity)",
			Destination: &entities,
		},
	}
	flags = append(flags, engineCfg.Flags()...)

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Check stored records against their entity schemas",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			eng, err := engineCfg.open(ctx)
			if err != nil {
				return err
			}
			defer eng.Close(ctx)

			result, err := eng.uc.EntityRecord.ValidateRecords(ctx, entities...)
			if err != nil {
				return goerr.Wrap(err, "record consistency check failed")
			}

			if result.HasIssues() {
				for _, issue := range result.Issues {
					logger.Warn("Record consistency issue found",
						"entity", issue.Entity,
						"record_key", issue.RecordKey,
						"field", issue.Field,
						"message", issue.Message,
						"expected", issue.Expected,
						"actual", issue.Actual,
					)
				}

				return fmt.Errorf("record consistency check found %d issue(s)", len(result.Issues))
			}

			logger.Info("Record consistency check passed", "checked", result.Checked)
			return nil
		},
	}
}
