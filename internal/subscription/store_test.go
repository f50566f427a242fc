package subscription

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/killbot/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	s, err := Open(config.StoreConfig{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestAddAndListOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.Add(ctx, Subscription{ChannelID: 100, TargetID: 10000002, Kind: KindRegion})
	require.NoError(t, err)
	b, err := s.Add(ctx, Subscription{ChannelID: 200, TargetID: 98000001, Kind: KindLoss, MinValue: 1e6})
	require.NoError(t, err)
	c, err := s.Add(ctx, Subscription{ChannelID: 100, Kind: KindAny, MinValue: 5e9})
	require.NoError(t, err)

	assert.NotZero(t, a.ID)
	assert.Less(t, a.ID, b.ID)
	assert.Less(t, b.ID, c.ID)
	assert.False(t, a.CreatedAt.IsZero())

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{a.ID, b.ID, c.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})

	assert.Equal(t, KindRegion, all[0].Kind)
	assert.False(t, all[0].Loss)

	assert.Equal(t, KindLoss, all[1].Kind)
	assert.True(t, all[1].Loss, "loss kind implies loss flag")
	assert.Equal(t, 1e6, all[1].MinValue)

	assert.Equal(t, KindAny, all[2].Kind)
	assert.Equal(t, AnyTargetID, all[2].TargetID)

	byChan, err := s.ListByChannel(ctx, snowflake.ID(100))
	require.NoError(t, err)
	require.Len(t, byChan, 2)
	assert.Equal(t, a.ID, byChan[0].ID)
	assert.Equal(t, c.ID, byChan[1].ID)
}

func TestLegacyRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	// строки старой базы: без target_kind, loss строкой
	require.NoError(t, s.db.Exec(
		`INSERT INTO add_kills (channel_id, guild_id, target_id, target_kind, loss, min_value, created_at) VALUES
		 (1, 0, 9, '', 'false', 0, ?),
		 (1, 0, 99000001, '', 'true', 0, ?),
		 (1, 0, 98000001, '', 'false', 100, ?)`, now, now, now).Error)

	subs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, KindAny, subs[0].Kind)
	assert.Equal(t, KindLoss, subs[1].Kind)
	assert.True(t, subs[1].Loss)
	assert.Equal(t, KindGroup, subs[2].Kind)
	assert.Equal(t, 100.0, subs[2].MinValue)
}

func TestDeleteByChannel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, ch := range []snowflake.ID{1, 1, 2} {
		_, err := s.Add(ctx, Subscription{ChannelID: ch, TargetID: 30000142, Kind: KindSystem})
		require.NoError(t, err)
	}

	n, err := s.DeleteByChannel(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.DeleteByChannel(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, snowflake.ID(2), all[0].ChannelID)
}

func TestDeleteByIDScopedToChannel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sub, err := s.Add(ctx, Subscription{ChannelID: 7, TargetID: 90000001, Kind: KindCharacter})
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteByID(ctx, 8, sub.ID), ErrNotFound)
	require.NoError(t, s.DeleteByID(ctx, 7, sub.ID))
	assert.ErrorIs(t, s.DeleteByID(ctx, 7, sub.ID), ErrNotFound)
}

func TestAddRequiresChannel(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Add(context.Background(), Subscription{TargetID: 1, Kind: KindSystem})
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Region ")
	require.NoError(t, err)
	assert.Equal(t, KindRegion, k)

	_, err = ParseKind("planet")
	assert.Error(t, err)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(config.StoreConfig{Driver: "mysql", DSN: "x"}, nil)
	assert.Error(t, err)
}
