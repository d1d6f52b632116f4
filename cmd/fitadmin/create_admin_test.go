package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAdminRejectsMemoryStore(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret")
	t.Setenv("DATABASE_DRIVER", "memory")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"create-admin", "--config", t.TempDir(), "--email", "root@example.com", "--password", "rootpass", "--name", "Root"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persistent store")
	assert.Empty(t, out.String())
}

func TestCreateAdminRequiresFlags(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"create-admin", "--email", "root@example.com"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
