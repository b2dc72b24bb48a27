package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/cli/config"
	"github.com/secmon-lab/metaform/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdSeed() *cli.Command {
	var engineCfg engineConfig
	var seedCfg config.Seed

	var flags []cli.Flag
	flags = append(flags, engineCfg.Flags()...)
	flags = append(flags, seedCfg.Flags()...)

	return &cli.Command{
		Name:  "seed",
		Usage: "Declare entities, fields and records from a schema seed file",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if !seedCfg.IsConfigured() {
				return goerr.Wrap(config.ErrMissingFlag, "--schema-seed is required")
			}
			seed, err := seedCfg.Load(ctx)
			if err != nil {
				return err
			}

			eng, err := engineCfg.open(ctx)
			if err != nil {
				return err
			}
			defer eng.Close(ctx)

			result, err := eng.uc.Seed.Apply(ctx, seed)
			if err != nil {
				return goerr.Wrap(err, "failed to apply schema seed")
			}

			logging.Default().Info("Schema seed applied",
				"created", result.Created,
				"skipped", result.Skipped,
			)
			return nil
		},
	}
}
