package dynamo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/avmkit/blob"
	"github.com/hupe1980/avmkit/slotstore"
)

func TestIntegration_DynamoStore(t *testing.T) {
	table := os.Getenv("DYNAMO_TABLE")
	if table == "" {
		t.Skip("Skipping DynamoDB integration test: DYNAMO_TABLE not set")
	}

	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx)
	require.NoError(t, err)

	client := dynamodb.NewFromConfig(cfg)

	// Unique owner per run so repeated runs never collide.
	owner := fmt.Sprintf("avmkit-test/%d", time.Now().UnixNano())
	store, err := New(client, table, owner, blob.DefaultPageSize)
	require.NoError(t, err)

	t.Run("PutGetDelete", func(t *testing.T) {
		page := make([]byte, blob.DefaultPageSize)
		copy(page, "integration")

		require.NoError(t, store.Put(ctx, 0, page))

		got, err := store.Get(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, page, got)

		require.NoError(t, store.Delete(ctx, 0))

		_, err = store.Get(ctx, 0)
		assert.ErrorIs(t, err, slotstore.ErrNotFound)
	})

	t.Run("BlobRoundTrip", func(t *testing.T) {
		b, err := blob.New(store, blob.WithMaxKeys(2))
		require.NoError(t, err)
		require.NoError(t, b.Zero(ctx))

		data := []byte("spans the page boundary")
		start := uint64(blob.DefaultPageSize) - 5
		require.NoError(t, b.Write(ctx, start, data))

		got, err := b.Read(ctx, start, start+uint64(len(data)))
		require.NoError(t, err)
		assert.Equal(t, data, got)

		// Clean up both pages.
		require.NoError(t, store.Delete(ctx, 0))
		require.NoError(t, store.Delete(ctx, 1))
	})
}
