package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRevalidator(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	r := NewRedisRevalidator(rdb)

	sub := rdb.Subscribe(ctx, Channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	v, err := r.Version(ctx, "/documents")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	require.NoError(t, r.Revalidate(ctx, "/documents"))
	require.NoError(t, r.Revalidate(ctx, "/documents"))
	require.NoError(t, r.Revalidate(ctx, ""))

	v, err = r.Version(ctx, "/documents")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "/documents", msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no revalidation published")
	}
}
