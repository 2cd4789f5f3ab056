package client

import (
	"fmt"

	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/storage/filerepo"
	"github.com/jrsteele09/go-auth-session/storage/redisrepo"
	"github.com/jrsteele09/go-auth-session/storage/repofake"
	"github.com/rs/zerolog/log"
)

// NewRepo builds the storage backend selected by cfg
func NewRepo(cfg config.StorageConfig) (storage.Repo, error) {
	switch backend := cfg.GetStorageBackend(); backend {
	case config.StorageMemory:
		log.Debug().Msg("Using in-memory session storage")
		return repofake.NewFakeRepo(), nil
	case config.StorageFile:
		log.Debug().Str("file", cfg.GetStorageFile()).Bool("sealed", cfg.GetStoragePassphrase() != "").Msg("Using file session storage")
		return filerepo.New(cfg.GetStorageFile(), cfg.GetStoragePassphrase()), nil
	case config.StorageRedis:
		log.Debug().Str("prefix", cfg.GetRedisKeyPrefix()).Msg("Using redis session storage")
		repo, err := redisrepo.NewFromURL(cfg.GetRedisURL(), redisrepo.WithKeyPrefix(cfg.GetRedisKeyPrefix()))
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("%w: storage backend %q", errors.ErrUnsupported, backend)
	}
}
