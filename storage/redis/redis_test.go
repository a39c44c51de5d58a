package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestBackend(t *testing.T) (*Backend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	b, err := New(Config{Client: client, CloseClient: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { b.Close(context.Background()) })
	return b, mr
}

func TestNilClient(t *testing.T) {
	if _, err := New(Config{}); err != ErrNilClient {
		t.Fatalf("err = %v, want ErrNilClient", err)
	}
}

func TestPutGetDelete(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	ok, err := b.Put(ctx, "k1", []byte("payload"), 0)
	if err != nil || !ok {
		t.Fatalf("Put: ok=%v err=%v", ok, err)
	}

	v, found, err := b.Get(ctx, "k1")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if string(v) != "payload" {
		t.Fatalf("value = %q", v)
	}

	if err := b.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, _ := b.Get(ctx, "k1"); found {
		t.Fatal("deleted key still found")
	}
}

func TestGetMissIsNotError(t *testing.T) {
	b, _ := newTestBackend(t)

	v, found, err := b.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("miss returned error: %v", err)
	}
	if found || v != nil {
		t.Fatalf("miss: found=%v v=%v", found, v)
	}
}

func TestTTLExpiry(t *testing.T) {
	b, mr := newTestBackend(t)
	ctx := context.Background()

	if _, err := b.Put(ctx, "k1", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, found, _ := b.Get(ctx, "k1"); found {
		t.Fatal("entry survived its TTL")
	}
}

func TestKeysScansOnlyPrefix(t *testing.T) {
	b, mr := newTestBackend(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if _, err := b.Put(ctx, k, []byte("v"), 0); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	// Foreign keys outside the prefix must not show up.
	mr.Set("unrelated", "x")

	keys, err := b.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("got %d keys: %v", len(keys), keys)
	}
	seen := map[string]bool{}
	for _, k := range keys {
		seen[k] = true
	}
	for _, want := range []string{"a", "b", "c"} {
		if !seen[want] {
			t.Fatalf("missing key %q in %v", want, keys)
		}
	}
}

func TestGetAfterServerDown(t *testing.T) {
	b, mr := newTestBackend(t)
	mr.Close()

	if _, _, err := b.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected transport error after server shutdown")
	}
}
