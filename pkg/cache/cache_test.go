package cache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	base := Key("https://ols.example/api/search",
		map[string]string{"q": "heart", "rows": "10"},
		map[string]string{"Accept": "application/json"})

	tests := []struct {
		name    string
		url     string
		params  map[string]string
		headers map[string]string
		same    bool
	}{
		{
			name:    "same content in another map order",
			url:     "https://ols.example/api/search",
			params:  map[string]string{"rows": "10", "q": "heart"},
			headers: map[string]string{"Accept": "application/json"},
			same:    true,
		},
		{
			name:    "different param value",
			url:     "https://ols.example/api/search",
			params:  map[string]string{"q": "liver", "rows": "10"},
			headers: map[string]string{"Accept": "application/json"},
		},
		{
			name:   "headers are part of the key",
			url:    "https://ols.example/api/search",
			params: map[string]string{"q": "heart", "rows": "10"},
		},
		{
			name:    "different url",
			url:     "https://other.example/api/search",
			params:  map[string]string{"q": "heart", "rows": "10"},
			headers: map[string]string{"Accept": "application/json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Key(tt.url, tt.params, tt.headers)
			if len(got) != 64 {
				t.Fatalf("expected hex sha256, got %q", got)
			}
			if (got == base) != tt.same {
				t.Errorf("key equality = %v, want %v", got == base, tt.same)
			}
		})
	}

	if Key("u", nil, nil) != Key("u", map[string]string{}, map[string]string{}) {
		t.Errorf("nil and empty maps should produce the same key")
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

// storeFactory builds a store driven by clock.
type storeFactory func(t *testing.T, clock *fakeClock) Store

func memoryFactory(t *testing.T, clock *fakeClock) Store {
	m := NewMemory()
	m.now = clock.Now
	return m
}

func sqliteFactory(t *testing.T, clock *fakeClock) Store {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cache", "cache.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	s.now = clock.Now
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStores(t *testing.T) {
	factories := map[string]storeFactory{
		"memory": memoryFactory,
		"sqlite": sqliteFactory,
	}

	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			t.Run("round trip", func(t *testing.T) {
				ctx := context.Background()
				s := factory(t, newClock())

				if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
					t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
				}

				payload := []byte(`{"status_code":200,"json_data":{"response":{"docs":[]}}}`)
				if err := s.Set(ctx, "k", payload, time.Hour); err != nil {
					t.Fatalf("Set: %v", err)
				}
				got, ok, err := s.Get(ctx, "k")
				if err != nil || !ok {
					t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
				}
				if string(got) != string(payload) {
					t.Errorf("got %s, want %s", got, payload)
				}
			})

			t.Run("expiry", func(t *testing.T) {
				ctx := context.Background()
				clock := newClock()
				s := factory(t, clock)

				if err := s.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
					t.Fatalf("Set: %v", err)
				}
				clock.Advance(59 * time.Second)
				if _, ok, _ := s.Get(ctx, "k"); !ok {
					t.Fatalf("entry expired too early")
				}
				clock.Advance(time.Second)
				if _, ok, _ := s.Get(ctx, "k"); ok {
					t.Fatalf("entry should have expired")
				}
			})

			t.Run("non-positive ttl stores nothing", func(t *testing.T) {
				ctx := context.Background()
				s := factory(t, newClock())
				if err := s.Set(ctx, "k", []byte("v"), 0); err != nil {
					t.Fatalf("Set: %v", err)
				}
				if _, ok, _ := s.Get(ctx, "k"); ok {
					t.Fatalf("expected nothing stored")
				}
			})

			t.Run("last writer wins", func(t *testing.T) {
				ctx := context.Background()
				s := factory(t, newClock())
				_ = s.Set(ctx, "k", []byte("first"), time.Hour)
				_ = s.Set(ctx, "k", []byte("second"), time.Hour)
				got, _, _ := s.Get(ctx, "k")
				if string(got) != "second" {
					t.Errorf("got %q", got)
				}
			})

			t.Run("purge and stats", func(t *testing.T) {
				ctx := context.Background()
				clock := newClock()
				s := factory(t, clock)

				_ = s.Set(ctx, "short", []byte("aa"), time.Minute)
				_ = s.Set(ctx, "long", []byte("bbbb"), time.Hour)
				clock.Advance(2 * time.Minute)

				st, err := s.(StatsReporter).Stats(ctx)
				if err != nil {
					t.Fatalf("Stats: %v", err)
				}
				if st.Entries != 2 || st.Expired != 1 || st.Bytes != 6 {
					t.Errorf("unexpected stats %+v", st)
				}

				removed, err := s.(Purger).Purge(ctx)
				if err != nil {
					t.Fatalf("Purge: %v", err)
				}
				if removed != 1 {
					t.Errorf("expected 1 purged entry, got %d", removed)
				}
				if _, ok, _ := s.Get(ctx, "long"); !ok {
					t.Errorf("live entry was purged")
				}

				st, _ = s.(StatsReporter).Stats(ctx)
				if st.Entries != 1 || st.Hits != 1 {
					t.Errorf("unexpected stats after purge %+v", st)
				}
			})

			t.Run("concurrent access", func(t *testing.T) {
				ctx := context.Background()
				s := factory(t, newClock())
				var wg sync.WaitGroup
				for i := 0; i < 8; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						for j := 0; j < 20; j++ {
							if err := s.Set(ctx, "shared", []byte("v"), time.Hour); err != nil {
								t.Errorf("Set: %v", err)
								return
							}
							if _, _, err := s.Get(ctx, "shared"); err != nil {
								t.Errorf("Get: %v", err)
								return
							}
						}
					}()
				}
				wg.Wait()
			})
		})
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	value := []byte("abc")
	_ = m.Set(ctx, "k", value, time.Hour)
	value[0] = 'x'

	got, _, _ := m.Get(ctx, "k")
	got[1] = 'y'

	again, _, _ := m.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value was mutated: %q", again)
	}
}

func TestSQLiteCorruptValueIsMiss(t *testing.T) {
	ctx := context.Background()
	s := sqliteFactory(t, newClock()).(*SQLite)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, size, created_at, expires_at, hits)
		VALUES ('bad', x'deadbeef', 4, 0, ?, 0)
	`, s.now().Add(time.Hour).UnixMilli())
	if err != nil {
		t.Fatalf("inserting corrupt row: %v", err)
	}

	if _, ok, err := s.Get(ctx, "bad"); ok || err != nil {
		t.Fatalf("expected corrupt value to read as a miss, got ok=%v err=%v", ok, err)
	}
	st, _ := s.Stats(ctx)
	if st.Entries != 0 {
		t.Errorf("corrupt entry should be dropped, stats %+v", st)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s.Set(ctx, "k", []byte("persisted"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer func() { _ = s.Close() }()

	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(got) != "persisted" {
		t.Fatalf("got %q ok=%v err=%v", got, ok, err)
	}
}

func TestSQLiteClose(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s.Set(ctx, "k", []byte("compressed"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, _, err := s.Get(ctx, "k"); err == nil {
		t.Errorf("expected Get on a closed store to fail")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		kind    string
		path    string
		want    string
		wantErr bool
	}{
		{kind: "", want: "*cache.Memory"},
		{kind: "memory", want: "*cache.Memory"},
		{kind: "none", want: "cache.Nop"},
		{kind: "sqlite", path: filepath.Join(t.TempDir(), "c.db"), want: "*cache.SQLite"},
		{kind: "sqlite", wantErr: true},
		{kind: "redis", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.kind+"/"+tt.want, func(t *testing.T) {
			s, err := Open(ctx, tt.kind, tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer func() { _ = Close(s) }()

			var got string
			switch s.(type) {
			case *Memory:
				got = "*cache.Memory"
			case Nop:
				got = "cache.Nop"
			case *SQLite:
				got = "*cache.SQLite"
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNopNeverStores(t *testing.T) {
	ctx := context.Background()
	var s Store = Nop{}
	_ = s.Set(ctx, "k", []byte("v"), time.Hour)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("Nop returned a value")
	}
}
