package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vipul43/tillsync/internal/config"
)

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCommand()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "push", "pull", "status", "requeue", "resync", "migrate"}, names)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("org"))

	requeue, _, err := cmd.Find([]string{"requeue"})
	require.NoError(t, err)
	assert.NotNil(t, requeue.Flags().Lookup("entity"))

	resync, _, err := cmd.Find([]string{"resync"})
	require.NoError(t, err)
	assert.NotNil(t, resync.Flags().Lookup("entity"))
	assert.NotNil(t, resync.Flags().Lookup("pull"))
}

func TestPolicyFrom(t *testing.T) {
	p := policyFrom(&config.Config{
		MaxFailedAttempts:      7,
		FullSyncThresholdHours: 12,
		IncrementalBufferMins:  30,
		MaxIncrementalRetries:  2,
		RetryBackoffMillis:     250,
		MaxCleanupDeletions:    100,
	})

	assert.Equal(t, 7, p.MaxFailedAttempts)
	assert.Equal(t, 12*time.Hour, p.FullSyncThreshold)
	assert.Equal(t, 30*time.Minute, p.IncrementalBuffer)
	assert.Equal(t, 2, p.MaxPullAttempts)
	assert.Equal(t, 250*time.Millisecond, p.BackoffUnit)
	assert.Equal(t, 100, p.MaxCleanupDeletions)
}

func newTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "sqlite://"+filepath.Join(t.TempDir(), "tillsync.db"))
	t.Setenv("REMOTE_BASE_URL", "http://127.0.0.1:1")
	t.Setenv("REMOTE_API_TOKEN", "token")
}

func TestMigrateThenRequeue(t *testing.T) {
	newTestEnv(t)

	cmd := newRootCommand()
	cmd.SetArgs([]string{"migrate"})
	require.NoError(t, cmd.Execute())

	var out bytes.Buffer
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"requeue", "--entity", "Stock"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Requeued 0 operation(s)\n", out.String())
}

func TestResync_ResetsEveryEntity(t *testing.T) {
	newTestEnv(t)

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"resync"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Reset 5 entity type(s)\n", out.String())

	out.Reset()
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"resync", "--entity", "Stock"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Reset 1 entity type(s)\n", out.String())
}

func TestResync_PullRequiresOrganization(t *testing.T) {
	newTestEnv(t)
	t.Setenv("SYNC_ORGANIZATION", "")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"resync", "--pull"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "organization is required")
}

func TestStatus_EmptyStore(t *testing.T) {
	newTestEnv(t)

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"status"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), `"Stock": false`)
	assert.Contains(t, out.String(), `"Billing": false`)
}

func TestPull_RequiresOrganization(t *testing.T) {
	newTestEnv(t)
	t.Setenv("SYNC_ORGANIZATION", "")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"pull"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "organization is required")
}
