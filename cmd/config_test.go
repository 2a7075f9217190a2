package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmroute/swarmroute/sched"
)

// TestLoadConfig_PartialOverlay verifies a file tuning a single knob keeps
// every other default.
func TestLoadConfig_PartialOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("baseExplorerProb: 0.35\nsnapshotInterval: 10\n"), 0o644))

	base := sched.DefaultConfig(5)
	cfg, err := LoadConfig(path, base)
	require.NoError(t, err)

	assert.Equal(t, 0.35, cfg.BaseExplorerProb)
	assert.Equal(t, 10, cfg.SnapshotInterval)
	assert.Equal(t, base.Partitions, cfg.Partitions)
	assert.Equal(t, base.SuccessDecay, cfg.SuccessDecay)
	assert.NoError(t, sched.ValidateConfig(cfg))
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), sched.DefaultConfig(3))
	assert.Error(t, err)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("partitions: [not a number"), 0o644))
	_, err := LoadConfig(path, sched.DefaultConfig(3))
	assert.Error(t, err)
}
