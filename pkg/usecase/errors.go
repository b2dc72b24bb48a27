package usecase

import "github.com/m-mizutani/goerr/v2"

var (
	ErrInvalidEntityName = goerr.New("invalid entity name")
	ErrInvalidSeed       = goerr.New("invalid schema seed")
)

// Context keys for error values
const (
	SeedEntityKey = "seed_entity"
	SeedIndexKey  = "seed_index"
)
