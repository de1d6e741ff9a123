package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, DefaultAppName, cfg.App.Name)
	assert.Equal(t, DefaultServerAddress, cfg.Server.Address)
	assert.Equal(t, DefaultRawLogPath, cfg.Data.RawLogPath)
	assert.Equal(t, DefaultItemStorePath, cfg.Data.ItemStorePath)
	assert.False(t, cfg.Enrichment.Enabled)
	assert.Equal(t, DefaultEnrichChunkSize, cfg.Enrichment.ChunkSize)
	assert.Equal(t, DefaultEnrichTimeout, cfg.Enrichment.Timeout)
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("data.raw_log_path", "/var/lib/campusdash/raw.jsonl")
	v.Set("enrichment.enabled", true)
	v.Set("enrichment.model", "llama3.1:8b")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/campusdash/raw.jsonl", cfg.Data.RawLogPath)
	assert.True(t, cfg.Enrichment.Enabled)
	assert.Equal(t, "llama3.1:8b", cfg.Enrichment.Model)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*viper.Viper)
	}{
		{"empty raw log path", func(v *viper.Viper) { v.Set("data.raw_log_path", "") }},
		{"empty item store path", func(v *viper.Viper) { v.Set("data.item_store_path", "") }},
		{"empty server address", func(v *viper.Viper) { v.Set("server.address", "") }},
		{"enrichment enabled without url", func(v *viper.Viper) {
			v.Set("enrichment.enabled", true)
			v.Set("enrichment.url", "")
		}},
		{"enrichment enabled with zero chunk size", func(v *viper.Viper) {
			v.Set("enrichment.enabled", true)
			v.Set("enrichment.chunk_size", 0)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			tt.mutate(v)

			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}
