package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCmd_EmiteTokenValido(t *testing.T) {
	t.Setenv("JWT_SECRET", "ledgerctl-test-secret")
	t.Setenv("STORAGE_DRIVER", "memory")

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"token", "--user", "u-1", "--org", "org-1", "--role", "cocina"})
	require.NoError(t, rootCmd.Execute())

	userID, orgID, role, err := jwt.Parse("ledgerctl-test-secret", strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u-1", userID)
	assert.Equal(t, "org-1", orgID)
	assert.Equal(t, "cocina", role)
}

func TestTokenCmd_SinOrganizacion(t *testing.T) {
	t.Setenv("JWT_SECRET", "ledgerctl-test-secret")
	t.Setenv("STORAGE_DRIVER", "memory")
	tokenOrg = ""

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"token", "--user", "u-1"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--org")
}
