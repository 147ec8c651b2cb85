package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand_Registered(t *testing.T) {
	found, _, err := rootCmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", found.Name())
}

func TestServeCommand_InvalidConfig(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"serve", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	t.Cleanup(func() { cfgFile = "" })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestServeCommand_RejectsArgs(t *testing.T) {
	rootCmd.SetArgs([]string{"serve", "extra"})
	assert.Error(t, rootCmd.Execute())
}
