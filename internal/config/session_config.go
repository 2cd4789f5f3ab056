package config

import "time"

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetTokenStorageKey() string {
	return "auth_tokens"
}

func (Session) GetUserStorageKey() string {
	return "auth_user"
}

func (Session) GetLoginRoute() string {
	return "/login"
}

func (Session) GetRetryHeader() string {
	return "X-Auth-Retry"
}

// GetRefreshTimeout bounds a refresh call that outlives the request that triggered it
func (Session) GetRefreshTimeout() time.Duration {
	return GetDuration("REFRESH_TIMEOUT", 15*time.Second)
}

func (Session) GetNotifyDedupeWindow() time.Duration {
	return GetDuration("NOTIFY_DEDUPE_WINDOW", 2000*time.Millisecond)
}

func (Session) GetNotifyDuration() time.Duration {
	return 5 * time.Second
}
