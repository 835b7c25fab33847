package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeCommand_Memory(t *testing.T) {
	isolateEnv(t)

	stdout, _, err := execute(t, "probe", "--format", "json")
	require.NoError(t, err)

	data := decodeData(t, stdout)
	assert.Equal(t, "memory", data["backend"])
	assert.Equal(t, true, data["healthy"])
	assert.Equal(t, float64(0), data["probes"])
	assert.NotContains(t, data, "region")
}

func TestProbeCommand_Text(t *testing.T) {
	isolateEnv(t)

	stdout, stderr, err := execute(t, "probe", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, stdout, "backend: memory")
	assert.Contains(t, stdout, "healthy: true")
	assert.Contains(t, stderr, `table prefix "launchbase_"`)
}

func TestProbeCommand_EnvFile(t *testing.T) {
	isolateEnv(t)
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("LAUNCHBASE_TABLE_PREFIX=staging_\n"), 0o644))

	_, stderr, err := execute(t, "probe", "--verbose", "--env-file", envFile)
	require.NoError(t, err)
	assert.Contains(t, stderr, `table prefix "staging_"`)
}

func TestProvisionCommand_RequiresCredentials(t *testing.T) {
	isolateEnv(t)

	stdout, _, err := execute(t, "provision", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.True(t, Reported(err))
	assert.Contains(t, stdout, `"status":"error"`)
	assert.Contains(t, stdout, "AWS_ACCESS_KEY_ID")
}

func TestSeedAndSnapshotCommands(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	stdout, _, err := execute(t, "seed", "--save-to", dir, "--format", "json")
	require.NoError(t, err)
	seeded := decodeData(t, stdout)
	assert.Equal(t, "memory", seeded["backend"])
	assert.Equal(t, float64(40), seeded["total"])
	require.NotEmpty(t, seeded["snapshot"])

	counts, ok := seeded["counts"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(9), counts["lessons"])

	stdout, _, err = execute(t, "snapshot", "list", "--from", dir, "--format", "json")
	require.NoError(t, err)
	ids, ok := decodeData(t, stdout)["ids"].([]interface{})
	require.True(t, ok)
	require.Len(t, ids, 1)

	stdout, _, err = execute(t, "snapshot", "show", "--from", dir, "--format", "json")
	require.NoError(t, err)
	shown := decodeData(t, stdout)
	assert.Equal(t, ids[0], shown["id"])
	assert.Equal(t, "memory", shown["source"])

	stdout, _, err = execute(t, "snapshot", "show", "--from", dir, "--id", ids[0].(string))
	require.NoError(t, err)
	assert.Contains(t, stdout, "snapshot "+ids[0].(string))
	assert.Contains(t, stdout, "courses")
}

func TestSnapshotSaveCommand(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	stdout, _, err := execute(t, "snapshot", "save", "--to", dir, "--format", "json")
	require.NoError(t, err)
	saved := decodeData(t, stdout)

	key, ok := saved["key"].(string)
	require.True(t, ok)
	_, err = os.Stat(filepath.Join(dir, key))
	assert.NoError(t, err, "snapshot file should exist at %s", key)

	counts := saved["counts"].(map[string]interface{})
	assert.Equal(t, float64(4), counts["users"])
}

func TestSnapshotCommands_Errors(t *testing.T) {
	isolateEnv(t)

	_, _, err := execute(t, "snapshot", "show")
	require.Error(t, err, "--from is required")

	_, _, err = execute(t, "snapshot", "show", "--from", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, _, err = execute(t, "snapshot", "list", "--from", "ftp://nowhere/x")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	stdout, _, err := execute(t, "snapshot", "list", "--from", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, stdout, "no snapshots in")
}
