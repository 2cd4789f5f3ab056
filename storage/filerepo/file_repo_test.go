package filerepo_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jrsteele09/go-auth-session/storage/filerepo"
	"github.com/stretchr/testify/require"
)

func TestFileRepo_PlainRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	repo := filerepo.New(path, "")

	_, ok, err := repo.Get(ctx, "auth_tokens")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.Set(ctx, "auth_tokens", `{"accessToken":"a"}`))
	require.NoError(t, repo.Set(ctx, "auth_user", `{"id":7}`))

	// a second instance reads what the first wrote
	other := filerepo.New(path, "")
	v, ok, err := other.Get(ctx, "auth_user")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"id":7}`, v)

	require.NoError(t, other.Remove(ctx, "auth_user"))
	require.NoError(t, other.Remove(ctx, "auth_user"))
	_, ok, err = repo.Get(ctx, "auth_user")
	require.NoError(t, err)
	require.False(t, ok)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileRepo_SealedAtRest(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	repo := filerepo.New(path, "correct horse")

	require.NoError(t, repo.Set(ctx, "auth_tokens", `{"refreshToken":"very-secret"}`))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(raw), "very-secret"))
	require.True(t, strings.Contains(string(raw), `"sealed"`))

	v, ok, err := filerepo.New(path, "correct horse").Get(ctx, "auth_tokens")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"refreshToken":"very-secret"}`, v)

	// the wrong passphrase sees no session rather than failing
	_, ok, err = filerepo.New(path, "battery staple").Get(ctx, "auth_tokens")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = filerepo.New(path, "").Get(ctx, "auth_tokens")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileRepo_CorruptFileTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	repo := filerepo.New(path, "")
	_, ok, err := repo.Get(ctx, "auth_tokens")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.Set(ctx, "auth_tokens", "x"))
	v, ok, err := repo.Get(ctx, "auth_tokens")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "x", v)
}
