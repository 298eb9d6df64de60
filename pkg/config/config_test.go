package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 611953, cfg.Indexer.TableSize)
	assert.Equal(t, 131, cfg.Indexer.HashMultiplier)
	assert.Equal(t, 0.4, cfg.Spell.JaccardThreshold)
	assert.Equal(t, 2, cfg.Spell.MaxEditDistance)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
indexer:
  dataDir: /tmp/idx
  kgramSize: 3
search:
  maxCombinations: 50
server:
  requestTimeout: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	t.Setenv("SP_INDEXER_KGRAM_SIZE", "4")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/idx", cfg.Indexer.DataDir)
	assert.Equal(t, 4, cfg.Indexer.KGramSize)
	assert.Equal(t, 50, cfg.Search.MaxCombinations)
	assert.Equal(t, 2*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 611953, cfg.Indexer.TableSize)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("indexer:\n  kgramSize: 0\n"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsRateLimitWithoutBurst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  rateLimit: 5\n  rateBurst: 0\n"), 0644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "rateBurst")
}

func TestDevelopmentConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "development.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Indexer, cfg.Indexer)
	assert.Equal(t, time.Minute, cfg.Analytics.SnapshotInterval)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
}
