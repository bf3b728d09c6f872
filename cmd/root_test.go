// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"testing"

	"github.com/btaudio/btaudiod/internal/config"
	"github.com/stretchr/testify/require"
)

func TestSetupTracingEmptyEndpointReturnsNoopCleanup(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	cfg.OTLPEndpoint = ""

	cleanup, err := setupTracing(cfg)
	require.NoError(t, err)
	require.NotNil(t, cleanup)
	require.NoError(t, cleanup(t.Context()))
}

func TestNewCommandSetsVersionAnnotations(t *testing.T) {
	t.Parallel()
	c := NewCommand("1.2.3", "abcdef")
	require.Equal(t, "1.2.3", c.Annotations["version"])
	require.Equal(t, "abcdef", c.Annotations["commit"])
	require.Contains(t, c.Version, "1.2.3")
}

func TestNewCommandRegistersConfigFlags(t *testing.T) {
	t.Parallel()
	c := NewCommand("dev", "none")
	require.NotNil(t, c.Flags().Lookup("rpc-port"))
	require.NotNil(t, c.Flags().Lookup("runtime-dir"))
}
