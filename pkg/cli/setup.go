package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/cli/config"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/usecase"
	"github.com/secmon-lab/metaform/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// engineConfig is the flag set shared by every command that talks to a record store
type engineConfig struct {
	repo config.Repository
	uc   config.UseCase
}

func (x *engineConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, x.repo.Flags()...)
	flags = append(flags, x.uc.Flags()...)
	return flags
}

// engine is an opened record store with the use cases around it
type engine struct {
	repo interfaces.RecordRepository
	uc   *usecase.UseCases
}

func (x *engineConfig) open(ctx context.Context) (*engine, error) {
	repo, err := x.repo.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize repository")
	}

	uc, err := x.uc.Configure(repo)
	if err != nil {
		_ = repo.Close()
		return nil, goerr.Wrap(err, "failed to initialize use cases")
	}

	logging.From(ctx).Debug("engine configured", "repository", x.repo, "usecase", x.uc)
	return &engine{repo: repo, uc: uc}, nil
}

func (e *engine) Close(ctx context.Context) {
	if err := e.repo.Close(); err != nil {
		logging.From(ctx).Error("failed to close repository", "error", err.Error())
	}
}
