package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "v1", KeyTheme)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "v1", map[string]string{KeyTheme: "dark", KeyPrimaryColor: "#112233"}))
	theme, err := store.Get(ctx, "v1", KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "dark", theme)

	require.NoError(t, store.Delete(ctx, "v1", KeyTheme))
	_, err = store.Get(ctx, "v1", KeyTheme)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, "v2", KeyPrimaryColor)
	assert.ErrorIs(t, err, ErrNotFound, "visitors must not share state")
}

func TestMemoryStoreAppendCaps(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 0; i < 12; i++ {
		require.NoError(t, store.Append(ctx, "v1", ListErrorLogs, 10, fmt.Sprintf("e%d", i)))
	}
	entries, err := store.List(ctx, "v1", ListErrorLogs)
	require.NoError(t, err)
	require.Len(t, entries, 10)
	assert.Equal(t, "e2", entries[0])
	assert.Equal(t, "e11", entries[9])

	require.NoError(t, store.ClearList(ctx, "v1", ListErrorLogs))
	entries, err = store.List(ctx, "v1", ListErrorLogs)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPopListEmptiesList(t *testing.T) {
	ctx := context.Background()
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(newFakeBackend(), time.Hour),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Append(ctx, "v1", ListNotifications, 10, "n1", "n2"))
			popped, err := store.PopList(ctx, "v1", ListNotifications)
			require.NoError(t, err)
			assert.Equal(t, []string{"n1", "n2"}, popped)

			popped, err = store.PopList(ctx, "v1", ListNotifications)
			require.NoError(t, err)
			assert.Empty(t, popped)
		})
	}
}

func TestStoresRejectMissingVisitor(t *testing.T) {
	ctx := context.Background()
	_, err := NewMemoryStore().Get(ctx, " ", KeyCart)
	assert.Error(t, err)

	_, err = NewRedisStore(newFakeBackend(), time.Hour).Get(ctx, "", KeyCart)
	assert.Error(t, err)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var dest map[string]int
	found, err := GetJSON(ctx, store, "v1", KeyCart, &dest)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, store, "v1", KeyCart, map[string]int{"qty": 3}))
	found, err = GetJSON(ctx, store, "v1", KeyCart, &dest)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, dest["qty"])

	require.NoError(t, store.Set(ctx, "v1", map[string]string{KeyUser: "{not json"}))
	found, err = GetJSON(ctx, store, "v1", KeyUser, &dest)
	assert.True(t, found)
	assert.Error(t, err)
}

func TestRedisStoreMapsKeysAndMissing(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	store := NewRedisStore(backend, 24*time.Hour)

	_, err := store.Get(ctx, "v1", KeySelectedCurrency)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "v1", map[string]string{KeySelectedCurrency: "USD"}))
	assert.Equal(t, "USD", backend.hashes["profile/v1"][KeySelectedCurrency])
	assert.Equal(t, 24*time.Hour, backend.lastTTL)

	require.NoError(t, store.Append(ctx, "v1", ListAppErrors, 10, "boom"))
	entries, err := store.List(ctx, "v1", ListAppErrors)
	require.NoError(t, err)
	assert.Equal(t, []string{"boom"}, entries)
	assert.Equal(t, int64(10), backend.lastLimit)

	require.NoError(t, store.ClearList(ctx, "v1", ListAppErrors))
	entries, err = store.List(ctx, "v1", ListAppErrors)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRedisStorePropagatesBackendErrors(t *testing.T) {
	backend := newFakeBackend()
	backend.err = errors.New("connection refused")
	store := NewRedisStore(backend, 0)

	_, err := store.Get(context.Background(), "v1", KeyToken)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLockerSerializesVisitor(t *testing.T) {
	locker := NewLocker()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock("v1")
			defer unlock()
			current := counter
			time.Sleep(time.Microsecond)
			counter = current + 1
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Empty(t, locker.locks, "released locks must be reclaimed")
}

func TestVisitorContext(t *testing.T) {
	ctx := WithVisitorID(context.Background(), "v42")
	assert.Equal(t, "v42", VisitorIDFromContext(ctx))
	assert.Equal(t, "", VisitorIDFromContext(context.Background()))
}

type fakeBackend struct {
	hashes    map[string]map[string]string
	lists     map[string][]string
	lastTTL   time.Duration
	lastLimit int64
	err       error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		hashes: make(map[string]map[string]string),
		lists:  make(map[string][]string),
	}
}

func (f *fakeBackend) HGet(_ context.Context, key, field string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.hashes[key][field]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeBackend) HSet(_ context.Context, key string, ttl time.Duration, values map[string]string) error {
	if f.err != nil {
		return f.err
	}
	if f.hashes[key] == nil {
		f.hashes[key] = make(map[string]string)
	}
	for k, v := range values {
		f.hashes[key][k] = v
	}
	f.lastTTL = ttl
	return nil
}

func (f *fakeBackend) HDel(_ context.Context, key string, fields ...string) error {
	for _, field := range fields {
		delete(f.hashes[key], field)
	}
	return f.err
}

func (f *fakeBackend) RPushCapped(_ context.Context, key string, limit int64, ttl time.Duration, values ...string) error {
	f.lists[key] = append(f.lists[key], values...)
	f.lastLimit = limit
	f.lastTTL = ttl
	return f.err
}

func (f *fakeBackend) LRange(_ context.Context, key string, _, _ int64) ([]string, error) {
	return append([]string{}, f.lists[key]...), f.err
}

func (f *fakeBackend) LPopAll(_ context.Context, key string, _ int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := append([]string{}, f.lists[key]...)
	delete(f.lists, key)
	return out, nil
}

func (f *fakeBackend) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.lists, key)
	}
	return f.err
}

func (f *fakeBackend) ProfileKey(visitorID string) string {
	return "profile/" + visitorID
}

func (f *fakeBackend) ProfileListKey(visitorID, name string) string {
	return "profile/" + visitorID + "/" + name
}
