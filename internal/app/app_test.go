package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/pipeline"
)

func localConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.FromViper(viper.New())
	cfg.Storage.Backend = "local"
	cfg.Storage.LocalDir = t.TempDir()
	cfg.Database.Enabled = false
	cfg.Cache.Enabled = false
	return cfg
}

func TestNewWithoutDatabase(t *testing.T) {
	cfg := localConfig(t)
	cfg.Pipeline.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Pipeline.XLSXEnabled = true
	cfg.Pipeline.ResultsPrefix = "results"

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Snapshots)
	assert.NotNil(t, a.Stock)
	assert.Nil(t, a.StockWriter())
	assert.Nil(t, a.SalesImporter())
	assert.Nil(t, a.Sources().Catalog)

	names := make([]string, 0)
	for _, s := range a.Sinks() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"csv", "xlsx", "object_storage"}, names)
}

func TestEmptyStockKeyDerivesStock(t *testing.T) {
	cfg := localConfig(t)
	cfg.Forecast.StockKey = ""

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, a.Stock)
	assert.Nil(t, a.Sources().Stock)
}

func TestLoadModelsWithoutArtifacts(t *testing.T) {
	a, err := New(context.Background(), localConfig(t))
	require.NoError(t, err)

	err = a.LoadModels(context.Background())
	assert.ErrorIs(t, err, domain.ErrArtifactLoad)
	_, err = a.Registry.Current()
	assert.Error(t, err)
}

func TestOrchestratorFailsOnMissingArtifacts(t *testing.T) {
	cfg := localConfig(t)
	cfg.Pipeline.OutputDir = ""
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)

	orch, err := a.Orchestrator("test")
	require.NoError(t, err)

	_, err = orch.Run(context.Background(), pipeline.RunRequest{})
	assert.Error(t, err)
}
