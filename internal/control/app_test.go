package control

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/blockprice/internal/core/config"
	"github.com/vietddude/blockprice/internal/core/domain"
	"github.com/vietddude/blockprice/internal/infra/storage/file"
)

func TestOpenStore_File(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Path = t.TempDir()

	store, db, err := OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()

	assert.Nil(t, db)
	assert.IsType(t, &file.Store{}, store)
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Backend = "s3"

	_, _, err := OpenStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewApp_WiresConfiguredNetworks(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Path = t.TempDir()
	cfg.Blocks.Endpoints = map[string]string{"ethereum": "http://127.0.0.1:1/eth", "polygon": ""}
	cfg.Warm.Tokens = []config.WarmToken{{Network: "mainnet", Address: "0x6b175474e89094c44da98b954eedeac495271d0f"}}

	app, err := NewApp(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, []domain.Network{domain.NetworkEthereum}, app.Service().Networks())
	assert.NotNil(t, app.Warmer())
	assert.Len(t, app.providers, 2)
}

func TestNewApp_InvalidSchedule(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Path = t.TempDir()
	cfg.Warm.Schedule = "whenever"

	_, err := NewApp(context.Background(), cfg, nil)
	assert.Error(t, err)
}
