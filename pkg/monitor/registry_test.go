package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	channels map[string]string // channel id -> scope
}

func (s *stubResolver) ResolveChannel(_ context.Context, scope, channelID string) error {
	if s.channels[channelID] != scope {
		return errors.New("unknown channel")
	}
	return nil
}

func newTestRegistry(t *testing.T) (*Registry, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	registry := NewRegistry(client, &stubResolver{channels: map[string]string{
		"c1": "G1",
		"c2": "G1",
		"c9": "G2",
	}})
	registry.now = func() time.Time {
		return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	}

	return registry, mr
}

func TestRegistryAddListAndDuplicate(t *testing.T) {
	ctx := context.Background()
	registry, mr := newTestRegistry(t)

	created, err := registry.Add(ctx, AddRequest{
		Scope:           "G1",
		URL:             "https://example.com/feed.xml",
		Type:            "feed",
		IntervalMinutes: 5,
		ChannelID:       "c1",
		UserID:          "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "monitor:G1:https://example.com/feed.xml", created.Key())

	before := mr.Dump()

	_, err = registry.Add(ctx, AddRequest{
		Scope:     "G1",
		URL:       "https://example.com/feed.xml",
		Type:      "social",
		ChannelID: "c2",
	})
	assert.Equal(t, ErrAlreadyExists, err)
	assert.Equal(t, before, mr.Dump(), "rejected add must not touch the store")

	list, err := registry.List(ctx, "G1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	want := Descriptor{
		Scope:           "G1",
		URL:             "https://example.com/feed.xml",
		Type:            SourceFeed,
		IntervalMinutes: 5,
		ChannelID:       "c1",
		UserID:          "u1",
		CreatedAt:       time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(want, list[0], cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("descriptor mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "feed", mr.HGet(created.Key(), "type"))
	assert.Equal(t, "5", mr.HGet(created.Key(), "interval"))
	assert.Equal(t, "c1", mr.HGet(created.Key(), "channelId"))
	assert.Equal(t, "G1", mr.HGet(created.Key(), "scope"))
}

func TestRegistryAddDefaultsInterval(t *testing.T) {
	registry, _ := newTestRegistry(t)

	created, err := registry.Add(context.Background(), AddRequest{
		Scope:     "G1",
		URL:       "https://www.reddit.com/r/jellyfin",
		Type:      "social",
		ChannelID: "c1",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, created.IntervalMinutes)
}

func TestRegistryAddRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		request AddRequest
		field   string
	}{
		{
			name:    "unknown type",
			request: AddRequest{Scope: "G1", URL: "https://example.com", Type: "rss", ChannelID: "c1"},
			field:   "type",
		},
		{
			name:    "not a url",
			request: AddRequest{Scope: "G1", URL: "example.com/feed", Type: "feed", ChannelID: "c1"},
			field:   "url",
		},
		{
			name:    "url with whitespace",
			request: AddRequest{Scope: "G1", URL: "https://example.com/a feed", Type: "feed", ChannelID: "c1"},
			field:   "url",
		},
		{
			name:    "ftp url",
			request: AddRequest{Scope: "G1", URL: "ftp://example.com/feed", Type: "feed", ChannelID: "c1"},
			field:   "url",
		},
		{
			name:    "url ending in the ledger suffix",
			request: AddRequest{Scope: "G1", URL: "https://example.com/feed.xml:sent", Type: "feed", ChannelID: "c1"},
			field:   "url",
		},
		{
			name:    "url ending in the marker suffix",
			request: AddRequest{Scope: "G1", URL: "https://example.com/feed.xml:lastCheck", Type: "feed", ChannelID: "c1"},
			field:   "url",
		},
		{
			name:    "interval too small",
			request: AddRequest{Scope: "G1", URL: "https://example.com", Type: "feed", IntervalMinutes: -1, ChannelID: "c1"},
			field:   "interval",
		},
		{
			name:    "interval too large",
			request: AddRequest{Scope: "G1", URL: "https://example.com", Type: "feed", IntervalMinutes: 1441, ChannelID: "c1"},
			field:   "interval",
		},
		{
			name:    "missing scope",
			request: AddRequest{URL: "https://example.com", Type: "feed", ChannelID: "c1"},
			field:   "scope",
		},
		{
			name:    "missing channel",
			request: AddRequest{Scope: "G1", URL: "https://example.com", Type: "feed"},
			field:   "channel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry, mr := newTestRegistry(t)

			_, err := registry.Add(context.Background(), tt.request)
			require.Error(t, err)
			assert.True(t, IsInvalidInput(err))

			inputErr, ok := err.(*InputError)
			require.True(t, ok)
			assert.Equal(t, tt.field, inputErr.Field)
			assert.Empty(t, mr.Keys())
		})
	}
}

func TestRegistryAcceptsUppercaseScheme(t *testing.T) {
	registry, _ := newTestRegistry(t)

	_, err := registry.Add(context.Background(), AddRequest{
		Scope: "G1", URL: "HTTPS://example.com/feed", Type: "feed", ChannelID: "c1", IntervalMinutes: 1440,
	})
	assert.NoError(t, err)
}

func TestRegistryRemove(t *testing.T) {
	ctx := context.Background()
	registry, mr := newTestRegistry(t)

	created, err := registry.Add(ctx, AddRequest{Scope: "G1", URL: "https://example.com/feed.xml", Type: "feed", ChannelID: "c1"})
	require.NoError(t, err)
	require.NoError(t, mr.Set(LastCheckKey(created.Key()), "1000"))
	_, err = mr.SAdd(SentKey(created.Key()), "guid-1")
	require.NoError(t, err)

	require.NoError(t, registry.Remove(ctx, "G1", "https://example.com/feed.xml"))

	assert.False(t, mr.Exists(created.Key()))
	assert.False(t, mr.Exists(LastCheckKey(created.Key())))
	assert.True(t, mr.Exists(SentKey(created.Key())), "ledger is left to expire")

	assert.Equal(t, ErrNotFound, registry.Remove(ctx, "G1", "https://example.com/feed.xml"))
}

func TestRegistryCompanionKeysAreNotMonitors(t *testing.T) {
	ctx := context.Background()
	registry, mr := newTestRegistry(t)

	created, err := registry.Add(ctx, AddRequest{Scope: "G1", URL: "https://example.com/feed.xml", Type: "feed", ChannelID: "c1"})
	require.NoError(t, err)
	_, err = mr.SAdd(SentKey(created.Key()), "guid-1")
	require.NoError(t, err)
	require.NoError(t, mr.Set(LastCheckKey(created.Key()), "1000"))

	assert.Equal(t, ErrNotFound, registry.Remove(ctx, "G1", "https://example.com/feed.xml:sent"))
	assert.Equal(t, ErrNotFound, registry.Remove(ctx, "G1", "https://example.com/feed.xml:lastCheck"))
	interval := 10
	_, err = registry.Edit(ctx, "G1", "https://example.com/feed.xml:sent", EditRequest{IntervalMinutes: &interval})
	assert.Equal(t, ErrNotFound, err)

	assert.True(t, mr.Exists(SentKey(created.Key())))
	assert.True(t, mr.Exists(LastCheckKey(created.Key())))
}

func TestRegistryGetByKeyRejectsForeignDescriptor(t *testing.T) {
	ctx := context.Background()
	registry, mr := newTestRegistry(t)

	// written without a scope, it would decode under monitor::{url}
	key := Key("G1", "https://example.com/feed.xml")
	mr.HSet(key,
		"type", "feed",
		"url", "https://example.com/feed.xml",
		"interval", "5",
		"channelId", "c1",
	)
	_, err := registry.GetByKey(ctx, key)
	assert.Error(t, err)

	// a copy of another monitor's hash
	mr.HSet(key, "scope", "G2")
	_, err = registry.GetByKey(ctx, key)
	assert.Error(t, err)

	mr.HSet(key, "scope", "G1")
	descriptor, err := registry.GetByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, key, descriptor.Key())
}

func TestRegistryListIsScoped(t *testing.T) {
	ctx := context.Background()
	registry, mr := newTestRegistry(t)

	for _, request := range []AddRequest{
		{Scope: "G1", URL: "https://a.example.com/feed", Type: "feed", ChannelID: "c1"},
		{Scope: "G1", URL: "https://www.reddit.com/r/jellyfin", Type: "social", ChannelID: "c2"},
		{Scope: "G12", URL: "https://b.example.com/feed", Type: "feed", ChannelID: "c1"},
		{Scope: "G2", URL: "https://a.example.com/feed", Type: "feed", ChannelID: "c9"},
	} {
		_, err := registry.Add(ctx, request)
		require.NoError(t, err)
	}

	// companions and partial writes are not listed
	require.NoError(t, mr.Set(LastCheckKey(Key("G1", "https://a.example.com/feed")), "1"))
	mr.HSet(Key("G1", "https://partial.example.com"), "url", "https://partial.example.com")

	list, err := registry.List(ctx, "G1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, descriptor := range list {
		assert.Equal(t, "G1", descriptor.Scope)
	}

	list, err = registry.List(ctx, "G3")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRegistryEdit(t *testing.T) {
	ctx := context.Background()
	registry, _ := newTestRegistry(t)

	_, err := registry.Add(ctx, AddRequest{Scope: "G1", URL: "https://example.com/feed.xml", Type: "feed", IntervalMinutes: 5, ChannelID: "c1"})
	require.NoError(t, err)

	interval := 10
	updated, err := registry.Edit(ctx, "G1", "https://example.com/feed.xml", EditRequest{IntervalMinutes: &interval})
	require.NoError(t, err)
	assert.Equal(t, 10, updated.IntervalMinutes)
	assert.Equal(t, "c1", updated.ChannelID, "channel is left unchanged")

	channel := "c2"
	updated, err = registry.Edit(ctx, "G1", "https://example.com/feed.xml", EditRequest{ChannelID: &channel})
	require.NoError(t, err)
	assert.Equal(t, "c2", updated.ChannelID)
	assert.Equal(t, 10, updated.IntervalMinutes)

	_, err = registry.Edit(ctx, "G1", "https://example.com/feed.xml", EditRequest{})
	assert.True(t, IsInvalidInput(err))

	foreign := "c9"
	_, err = registry.Edit(ctx, "G1", "https://example.com/feed.xml", EditRequest{ChannelID: &foreign})
	assert.True(t, IsInvalidInput(err), "channels of other scopes are rejected")

	invalid := 0
	_, err = registry.Edit(ctx, "G1", "https://example.com/feed.xml", EditRequest{IntervalMinutes: &invalid, ChannelID: &channel})
	assert.True(t, IsInvalidInput(err))

	_, err = registry.Edit(ctx, "G1", "https://missing.example.com", EditRequest{IntervalMinutes: &interval})
	assert.Equal(t, ErrNotFound, err)
}

func TestRegistryEditDoesNotCreate(t *testing.T) {
	registry, mr := newTestRegistry(t)

	interval := 10
	_, err := registry.Edit(context.Background(), "G1", "https://example.com", EditRequest{IntervalMinutes: &interval})
	assert.Equal(t, ErrNotFound, err)
	assert.Empty(t, mr.Keys())
}

func TestRegistryScanAndCount(t *testing.T) {
	ctx := context.Background()
	registry, mr := newTestRegistry(t)

	for _, scope := range []string{"G1", "G2", "G3"} {
		created, err := registry.Add(ctx, AddRequest{Scope: scope, URL: "https://example.com/feed", Type: "feed", ChannelID: "c1"})
		require.NoError(t, err)
		require.NoError(t, mr.Set(LastCheckKey(created.Key()), "1"))
	}

	var keys []string
	require.NoError(t, registry.Scan(ctx, func(key string) error {
		keys = append(keys, key)
		return nil
	}))
	assert.ElementsMatch(t, []string{
		"monitor:G1:https://example.com/feed",
		"monitor:G2:https://example.com/feed",
		"monitor:G3:https://example.com/feed",
	}, keys)

	count, err := registry.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRegistryScanFailsWithoutStore(t *testing.T) {
	registry, mr := newTestRegistry(t)
	mr.Close()

	err := registry.Scan(context.Background(), func(string) error { return nil })
	assert.True(t, IsStoreUnavailable(err))
	assert.False(t, IsStoreUnavailable(ErrNotFound))
}

func TestEscapePattern(t *testing.T) {
	assert.Equal(t, `G\*1\?\[x\]`, escapePattern("G*1?[x]"))
}
