package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/repository/firestore"
	"github.com/secmon-lab/metaform/pkg/repository/memory"
	"github.com/secmon-lab/metaform/pkg/repository/sqlite"
	"github.com/secmon-lab/metaform/pkg/service/recordapi"
	"github.com/secmon-lab/metaform/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Repository holds CLI flags for the record store backend
type Repository struct {
	backend          string
	sqlitePath       string
	projectID        string
	databaseID       string
	collectionPrefix string
	recordAPIURL     string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Record store backend [memory|sqlite|firestore|http]",
			Category:    "Repository",
			Value:       "memory",
			Sources:     cli.EnvVars("METAFORM_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "SQLite database file (required when using sqlite backend)",
			Category:    "Repository",
			Value:       "metaform.db",
			Sources:     cli.EnvVars("METAFORM_SQLITE_PATH"),
			Destination: &r.sqlitePath,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("METAFORM_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Repository",
			Value:       "(default)",
			Sources:     cli.EnvVars("METAFORM_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Usage:       "Prefix of the Firestore collections",
			Category:    "Repository",
			Sources:     cli.EnvVars("METAFORM_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &r.collectionPrefix,
		},
		&cli.StringFlag{
			Name:        "record-api-url",
			Usage:       "Base URL of a remote record API (required when using http backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("METAFORM_RECORD_API_URL"),
			Destination: &r.recordAPIURL,
		},
	}
}

func (r Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.backend),
		slog.String("sqlite_path", r.sqlitePath),
		slog.String("firestore_project_id", r.projectID),
		slog.String("firestore_database_id", r.databaseID),
		slog.String("record_api_url", r.recordAPIURL),
	)
}

// Configure opens the record store of the configured backend.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context) (interfaces.RecordRepository, error) {
	logger := logging.From(ctx)

	switch r.backend {
	case "memory":
		logger.Info("Using in-memory record store (development mode)")
		return memory.New(), nil

	case "sqlite":
		if r.sqlitePath == "" {
			return nil, goerr.Wrap(ErrMissingFlag, "sqlite-path is required when using sqlite backend")
		}
		repo, err := sqlite.New(ctx, r.sqlitePath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize sqlite record store")
		}
		logger.Info("Using SQLite record store", "path", r.sqlitePath)
		return repo, nil

	case "firestore":
		if r.projectID == "" {
			return nil, goerr.Wrap(ErrMissingFlag, "firestore-project-id is required when using firestore backend")
		}
		repo, err := firestore.New(ctx, r.projectID, r.databaseID, firestore.WithCollectionPrefix(r.collectionPrefix))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore record store")
		}
		logger.Info("Using Firestore record store",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		return repo, nil

	case "http":
		if r.recordAPIURL == "" {
			return nil, goerr.Wrap(ErrMissingFlag, "record-api-url is required when using http backend")
		}
		client, err := recordapi.New(r.recordAPIURL)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize record API client")
		}
		logger.Info("Using remote record API", "url", r.recordAPIURL)
		return client, nil

	default:
		return nil, goerr.Wrap(ErrInvalidBackend, "unknown backend", goerr.V(BackendKey, r.backend))
	}
}
