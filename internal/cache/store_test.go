// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"), ttl, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestKeyDeterministic(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		wantSame bool
	}{
		{"same input", "article_12345", "article_12345", true},
		{"different input", "article_12345", "article_12346", false},
		{"empty string is stable", "", "", true},
		{"empty vs non-empty", "", "x", false},
		{"unicode", "protocol_incubar a 37°C_detailed", "protocol_incubar a 37°C_detailed", true},
		{"unicode differs", "búfer A", "búfer B", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka, kb := Key(tt.a), Key(tt.b)
			assert.Len(t, ka, 64)
			if tt.wantSame {
				assert.Equal(t, ka, kb)
			} else {
				assert.NotEqual(t, ka, kb)
			}
		})
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()

	payload := json.RawMessage(`{"ids":["12345","67890"],"query":"western blot"}`)
	key := Key("search_western blot_5")

	require.NoError(t, s.Put(ctx, key, payload))

	got, ok := s.Get(ctx, key)
	require.True(t, ok)
	assert.JSONEq(t, string(payload), string(got))
}

func TestGetMissingKey(t *testing.T) {
	s := openTestStore(t, time.Hour)

	_, ok := s.Get(context.Background(), Key("never written"))
	assert.False(t, ok)
}

func TestPutOverwrites(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()
	key := Key("article_12345")

	require.NoError(t, s.Put(ctx, key, json.RawMessage(`{"title":"old"}`)))
	require.NoError(t, s.Put(ctx, key, json.RawMessage(`{"title":"new"}`)))

	got, ok := s.Get(ctx, key)
	require.True(t, ok)
	assert.JSONEq(t, `{"title":"new"}`, string(got))
}

func TestExpiredEntryIsMiss(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()
	key := Key("article_12345")

	require.NoError(t, s.Put(ctx, key, json.RawMessage(`{"title":"t"}`)))

	// Advance the clock past the TTL.
	old := timeNow
	defer func() { timeNow = old }()
	timeNow = func() time.Time { return old().Add(time.Hour + time.Second) }

	_, ok := s.Get(ctx, key)
	assert.False(t, ok)
}

func TestEntryJustUnderTTLIsHit(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()
	key := Key("article_12345")

	require.NoError(t, s.Put(ctx, key, json.RawMessage(`{"title":"t"}`)))

	old := timeNow
	defer func() { timeNow = old }()
	timeNow = func() time.Time { return old().Add(time.Hour - time.Minute) }

	_, ok := s.Get(ctx, key)
	assert.True(t, ok)
}

func TestCorruptPayloadIsMiss(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()
	key := Key("article_12345")

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (key, created_at, payload) VALUES (?, ?, ?)`,
		key, timeNow().UTC().Format(time.RFC3339Nano), `{"truncated...`)
	require.NoError(t, err)

	_, ok := s.Get(ctx, key)
	assert.False(t, ok)

	// The caller must be able to recompute and overwrite.
	require.NoError(t, s.Put(ctx, key, json.RawMessage(`{"title":"recomputed"}`)))
	got, ok := s.Get(ctx, key)
	require.True(t, ok)
	assert.JSONEq(t, `{"title":"recomputed"}`, string(got))
}

func TestCorruptTimestampIsMiss(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()
	key := Key("article_12345")

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (key, created_at, payload) VALUES (?, ?, ?)`,
		key, "not-a-timestamp", `{"title":"t"}`)
	require.NoError(t, err)

	_, ok := s.Get(ctx, key)
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()

	for _, semantic := range []string{"a", "b", "c"} {
		require.NoError(t, s.Put(ctx, Key(semantic), json.RawMessage(`1`)))
	}
	require.NoError(t, s.Clear(ctx))

	for _, semantic := range []string{"a", "b", "c"} {
		_, ok := s.Get(ctx, Key(semantic))
		assert.False(t, ok)
	}

	st, err := s.ReadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Entries)
}

func TestReadStats(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()

	st, err := s.ReadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Entries)
	assert.True(t, st.Oldest.IsZero())

	require.NoError(t, s.Put(ctx, Key("a"), json.RawMessage(`1`)))
	require.NoError(t, s.Put(ctx, Key("b"), json.RawMessage(`2`)))

	st, err = s.ReadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Entries)
	assert.False(t, st.Oldest.IsZero())
}

func TestDefaultTTLApplied(t *testing.T) {
	s := openTestStore(t, 0)
	assert.Equal(t, DefaultTTL, s.ttl)
}
