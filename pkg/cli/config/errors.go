package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrInvalidConfig   = goerr.New("invalid configuration")
	ErrInvalidBackend  = goerr.New("invalid repository backend")
	ErrMissingFlag     = goerr.New("required flag is missing")
	ErrInvalidWidget   = goerr.New("invalid widget configuration")
	ErrInvalidSeedFile = goerr.New("invalid schema seed file")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	FlagKey       = "flag"
	BackendKey    = "backend"
	FieldTypeKey  = "field_type"
)
