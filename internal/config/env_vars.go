package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	appNameVar    = "APP_NAME"
	apiBaseURLVar = "API_BASE_URL"
	folderEnvVar  = "FOLDER"
	debugVar      = "DEBUG"
	logLevelVar   = "LOG_LEVEL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Session Client")
}

// GetAPIBaseURL returns the backend base URL including the API prefix (e.g. "http://localhost:8080/api/v1").
// Auth routes are resolved relative to it.
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLVar, "http://localhost:8080/api/v1"), "/")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetDebug enables verbose logging of suppressed notifications and raw errors
func (e EnvVars) GetDebug() bool {
	return GetBool(debugVar, e.GetEnv() == "DEV")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetBool(envVar string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return value
}

func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(envVar))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
