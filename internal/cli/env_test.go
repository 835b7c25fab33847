package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv(t *testing.T, verbose bool) (*env, *bytes.Buffer) {
	t.Helper()
	isolateEnv(t)
	cmd := &cobra.Command{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(stderr)

	e, err := newEnv(&RootOptions{Format: "text", Verbose: verbose}, cmd)
	require.NoError(t, err)
	t.Cleanup(e.close)
	return e, stderr
}

func TestEnv_ProfilerOnlyWhenVerbose(t *testing.T) {
	quiet, _ := newTestEnv(t, false)
	assert.Nil(t, quiet.profiler)

	loud, _ := newTestEnv(t, true)
	assert.NotNil(t, loud.profiler)
}

func TestEnv_ReportQueries(t *testing.T) {
	e, stderr := newTestEnv(t, true)

	e.reportQueries()
	assert.Empty(t, stderr.String(), "nothing profiled, nothing printed")

	profile := e.profiler.StartProfile("courses.list", nil)
	e.profiler.Record(profile)
	e.reportQueries()
	assert.Contains(t, stderr.String(), "=== Query Summary ===")
	assert.Contains(t, stderr.String(), "courses.list")
}

func TestEnv_ReportQueriesQuiet(t *testing.T) {
	e, stderr := newTestEnv(t, false)
	e.reportQueries()
	assert.Empty(t, stderr.String())
}
