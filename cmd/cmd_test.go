package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/Rana718/northseed/internal/config"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestProfilesCommand(t *testing.T) {
	out, err := run(t, "profiles", "nano")
	require.NoError(t, err)

	var got map[string]config.Profile
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, 500, got["nano"].Orders)
	assert.Equal(t, 250, got["nano"].Shippers)
}

func TestProfilesCommandUnknown(t *testing.T) {
	_, err := run(t, "profiles", "gigantic")
	assert.ErrorIs(t, err, config.ErrUnknownProfile)
}

func TestSeedDryRun(t *testing.T) {
	_, err := run(t, "seed", "--dry-run", "--profile", "nano", "--seed", "3")
	require.NoError(t, err)
}

func TestSeedRejectsUnknownProfile(t *testing.T) {
	_, err := run(t, "seed", "--dry-run", "--profile", "gigantic")
	assert.ErrorIs(t, err, config.ErrUnknownProfile)
}

func TestMigrateUsesBackendFromEnv(t *testing.T) {
	t.Setenv("TURSO_URL", "")

	_, err := run(t, "migrate")
	require.Error(t, err)

	t.Setenv("BACKEND", "memory")
	_, err = run(t, "migrate")
	require.NoError(t, err)
}
