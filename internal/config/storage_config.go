package config

import (
	"path/filepath"
	"strings"
)

type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageFile   StorageBackend = "file"
	StorageRedis  StorageBackend = "redis"
)

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetStorageBackend() StorageBackend {
	switch backend := StorageBackend(strings.ToLower(GetEnv("STORAGE_BACKEND", string(StorageFile)))); backend {
	case StorageMemory, StorageFile, StorageRedis:
		return backend
	default:
		return StorageFile
	}
}

func (Storage) GetStorageFile() string {
	return GetEnv("STORAGE_FILE", filepath.Join(EnvVars{}.GetDataFolder(), "session.json"))
}

// GetStoragePassphrase seals file records at rest when set
func (Storage) GetStoragePassphrase() string {
	return GetEnv("STORAGE_PASSPHRASE", "")
}

func (Storage) GetRedisURL() string {
	return GetEnv("REDIS_URL", "redis://localhost:6379/0")
}

func (Storage) GetRedisKeyPrefix() string {
	return GetEnv("REDIS_KEY_PREFIX", "session")
}
