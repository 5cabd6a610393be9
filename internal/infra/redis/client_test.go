package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/blockprice/internal/infra/storage"
)

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(Config{URL: "not a url"})
	assert.Error(t, err)
}

func TestKeyPrefix(t *testing.T) {
	c := newClient(nil, "")
	assert.Equal(t, "blockprice:ethereum/blocks", c.key("ethereum/blocks"))

	c = newClient(nil, "test:")
	assert.Equal(t, "test:polygon/blocks", c.key("polygon/blocks"))
}

// Runs against a live server when BLOCKPRICE_REDIS_URL is set.
func TestClient_Live(t *testing.T) {
	url := os.Getenv("BLOCKPRICE_REDIS_URL")
	if url == "" {
		t.Skip("BLOCKPRICE_REDIS_URL not set")
	}

	prefix := "blockprice-test-" + uuid.NewString() + ":"
	c, err := NewClient(Config{URL: url, KeyPrefix: prefix})
	require.NoError(t, err)
	ctx := context.Background()

	t.Cleanup(func() {
		names, _ := c.List(ctx)
		for _, n := range names {
			c.rdb.Del(ctx, c.key(n))
		}
		_ = c.Close()
	})

	_, err = c.Read(ctx, "ethereum/blocks")
	assert.ErrorIs(t, err, storage.ErrSnapshotNotFound)

	require.NoError(t, c.Write(ctx, "ethereum/blocks", []byte(`{"1":"10"}`)))
	require.NoError(t, c.Write(ctx, "ethereum/0x6b175474e89094c44da98b954eedeac495271d0f", []byte(`{}`)))

	data, err := c.Read(ctx, "ethereum/blocks")
	require.NoError(t, err)
	assert.Equal(t, `{"1":"10"}`, string(data))

	names, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ethereum/0x6b175474e89094c44da98b954eedeac495271d0f", "ethereum/blocks"}, names)
}
