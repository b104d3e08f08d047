package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearRequiredEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"DATABASE_URL", "SUPABASE_URL", "SUPABASE_PASSWORD", "OPENAI_API_KEY", "ELEVENLABS_API_KEY", "GITHUB_TOKEN", "GITHUB_REPOSITORY"} {
		os.Unsetenv(name)
	}
	Reset()
}

func TestValidateRequiredEnvMissing(t *testing.T) {
	clearRequiredEnv(t)
	err := validateRequiredEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestResolveDatabaseURLFromSupabase(t *testing.T) {
	clearRequiredEnv(t)
	os.Setenv("SUPABASE_URL", "https://abcxyz.supabase.co")
	os.Setenv("SUPABASE_PASSWORD", "secret")
	defer clearRequiredEnv(t)

	got := resolveDatabaseURL()
	assert.Contains(t, got, "db.abcxyz.supabase.co")
	assert.Contains(t, got, "sslmode=require")
}

func TestValidateRequiredEnvRejectsMalformedRepo(t *testing.T) {
	clearRequiredEnv(t)
	os.Setenv("DATABASE_URL", "postgres://localhost/db")
	os.Setenv("OPENAI_API_KEY", "x")
	os.Setenv("ELEVENLABS_API_KEY", "x")
	os.Setenv("GITHUB_TOKEN", "x")
	os.Setenv("GITHUB_REPOSITORY", "not-a-repo")
	defer clearRequiredEnv(t)

	err := validateRequiredEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner/repo")
}
