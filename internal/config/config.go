package config

import "time"

type Config interface {
	EnvConfig
	SessionConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAPIBaseURL() string
	GetDataFolder() string
	GetEnv() string
	GetDebug() bool
	GetLogLevel() string
}

type SessionConfig interface {
	GetTokenStorageKey() string
	GetUserStorageKey() string
	GetLoginRoute() string
	GetRetryHeader() string
	GetRefreshTimeout() time.Duration
	GetNotifyDedupeWindow() time.Duration
	GetNotifyDuration() time.Duration
}

type StorageConfig interface {
	GetStorageBackend() StorageBackend
	GetStorageFile() string
	GetStoragePassphrase() string
	GetRedisURL() string
	GetRedisKeyPrefix() string
}

type mainConfig struct {
	EnvVars
	Session
	Storage
}

func New() Config {
	return mainConfig{}
}
