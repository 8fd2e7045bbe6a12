package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(cmd *cobra.Command, args ...string) (string, error) {
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSyncCmd_RequiresCompanyForContaAzul(t *testing.T) {
	tests := []string{jobCustomers, jobContracts, jobReceivables}

	for _, job := range tests {
		t.Run(job, func(t *testing.T) {
			_, err := run(syncCmd(), job)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "--company is required")
		})
	}
}

func TestSyncCmd_RequiresJob(t *testing.T) {
	_, err := run(syncCmd())
	assert.Error(t, err)
}

func TestSetRoleCmd_Args(t *testing.T) {
	_, err := run(setRoleCmd(), "admin@example.com")
	assert.Error(t, err)
}

func TestMigrateDownCmd_RejectsZeroSteps(t *testing.T) {
	_, err := run(migrateCmd(), "down", "--steps", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--steps")
}

func TestCreateAdminCmd_RequiresFlags(t *testing.T) {
	_, err := run(createAdminCmd(), "--email", "admin@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
}
