package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mcapServer/game"
)

type fakeSource struct {
	load  func(ctx context.Context) ([]game.CatalogItem, error)
	calls atomic.Int32
}

func (f *fakeSource) LoadCatalog(ctx context.Context) ([]game.CatalogItem, error) {
	f.calls.Add(1)
	return f.load(ctx)
}

type fakeShared struct {
	mu    sync.Mutex
	items []game.CatalogItem
	err   error
	sets  int
}

func (f *fakeShared) GetCatalog(ctx context.Context) ([]game.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items, f.err
}

func (f *fakeShared) SetCatalog(ctx context.Context, items []game.CatalogItem, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	f.items = items
	return nil
}

func coins(ids ...string) []game.CatalogItem {
	items := make([]game.CatalogItem, len(ids))
	for i, id := range ids {
		items[i] = game.CatalogItem{ID: id, Name: id, Symbol: id, Value: float64(20000 + i)}
	}
	return items
}

func TestProviderSortsAndCaches(t *testing.T) {
	src := &fakeSource{load: func(context.Context) ([]game.CatalogItem, error) {
		return coins("c", "a", "b"), nil
	}}
	p := NewProvider(src, nil, time.Minute)
	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }

	items, err := p.Catalog(context.Background())
	if err != nil {
		t.Fatalf("Catalog failed: %v", err)
	}
	if items[0].ID != "a" || items[1].ID != "b" || items[2].ID != "c" {
		t.Errorf("catalog not sorted by id: %v", game.Deck(items).IDs())
	}

	now = now.Add(30 * time.Second)
	p.Catalog(context.Background())
	if src.calls.Load() != 1 {
		t.Errorf("source called %d times within ttl", src.calls.Load())
	}

	now = now.Add(time.Minute)
	p.Catalog(context.Background())
	if src.calls.Load() != 2 {
		t.Errorf("source called %d times after ttl", src.calls.Load())
	}
}

func TestProviderCollapsesConcurrentRefresh(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSource{load: func(context.Context) ([]game.CatalogItem, error) {
		<-release
		return coins("a", "b"), nil
	}}
	p := NewProvider(src, nil, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Catalog(context.Background()); err != nil {
				t.Errorf("Catalog failed: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := src.calls.Load(); n != 1 {
		t.Errorf("source called %d times, want 1", n)
	}
}

func TestProviderServesStaleOnFailure(t *testing.T) {
	fail := false
	src := &fakeSource{load: func(context.Context) ([]game.CatalogItem, error) {
		if fail {
			return nil, errors.New("db down")
		}
		return coins("a", "b"), nil
	}}
	p := NewProvider(src, nil, time.Minute)
	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }

	if _, err := p.Catalog(context.Background()); err != nil {
		t.Fatal(err)
	}

	fail = true
	now = now.Add(2 * time.Minute)
	items, err := p.Catalog(context.Background())
	if err != nil {
		t.Fatalf("stale snapshot not served: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("got %d items", len(items))
	}
}

func TestProviderErrorsWithoutSnapshot(t *testing.T) {
	src := &fakeSource{load: func(context.Context) ([]game.CatalogItem, error) {
		return nil, errors.New("db down")
	}}
	p := NewProvider(src, nil, time.Minute)

	if _, err := p.Catalog(context.Background()); err == nil {
		t.Error("expected an error")
	}
}

func TestProviderCachesEmptyCatalog(t *testing.T) {
	src := &fakeSource{load: func(context.Context) ([]game.CatalogItem, error) {
		return nil, nil
	}}
	p := NewProvider(src, nil, time.Minute)
	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		items, err := p.Catalog(context.Background())
		if err != nil {
			t.Fatalf("Catalog failed: %v", err)
		}
		if len(items) != 0 {
			t.Fatalf("got %d items", len(items))
		}
	}
	if src.calls.Load() != 1 {
		t.Errorf("source called %d times within ttl", src.calls.Load())
	}

	now = now.Add(2 * time.Minute)
	p.Catalog(context.Background())
	if src.calls.Load() != 2 {
		t.Errorf("source called %d times after ttl", src.calls.Load())
	}
}

func TestProviderUsesSharedCache(t *testing.T) {
	src := &fakeSource{load: func(context.Context) ([]game.CatalogItem, error) {
		return coins("x", "y"), nil
	}}
	shared := &fakeShared{}

	first := NewProvider(src, shared, time.Minute)
	if _, err := first.Catalog(context.Background()); err != nil {
		t.Fatal(err)
	}
	if shared.sets != 1 {
		t.Fatalf("shared cache written %d times", shared.sets)
	}

	second := NewProvider(src, shared, time.Minute)
	items, err := second.Catalog(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if src.calls.Load() != 1 {
		t.Errorf("second instance hit the source: %d calls", src.calls.Load())
	}
	if len(items) != 2 || items[0].ID != "x" {
		t.Errorf("shared items = %v", game.Deck(items).IDs())
	}
}

func TestProviderIgnoresBrokenSharedCache(t *testing.T) {
	src := &fakeSource{load: func(context.Context) ([]game.CatalogItem, error) {
		return coins("a", "b"), nil
	}}
	shared := &fakeShared{err: errors.New("redis down")}
	p := NewProvider(src, shared, time.Minute)

	if _, err := p.Catalog(context.Background()); err != nil {
		t.Fatalf("Catalog failed: %v", err)
	}
	if src.calls.Load() != 1 {
		t.Error("source not consulted")
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coins.json")
	data := `[
		{"id": "a", "name": "Alpha", "symbol": "ALP", "marketCap": 25000, "platform": "solana"},
		{"id": "b", "name": "Beta", "symbol": "BET", "marketCap": "1.5e5"},
		{"id": "c", "name": "Gamma", "symbol": "GAM", "marketCap": null},
		{"id": "d", "name": "Delta", "symbol": "DEL", "marketCap": ""}
	]`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	items, err := FileSource{Path: path}.LoadCatalog(context.Background())
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}

	want := map[string]float64{"a": 25000, "b": 150000, "c": 0, "d": 0}
	if len(items) != len(want) {
		t.Fatalf("got %d items", len(items))
	}
	for _, item := range items {
		if item.Value != want[item.ID] {
			t.Errorf("%s value = %v, want %v", item.ID, item.Value, want[item.ID])
		}
	}
	if items[0].Platform != "solana" {
		t.Errorf("platform = %q", items[0].Platform)
	}
}

func TestFileSourceErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := (FileSource{Path: filepath.Join(dir, "missing.json")}).LoadCatalog(context.Background()); err == nil {
		t.Error("missing file accepted")
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`[{"id":"a","marketCap":"lots"}]`), 0o600)
	if _, err := (FileSource{Path: bad}).LoadCatalog(context.Background()); err == nil {
		t.Error("non-numeric marketCap accepted")
	}
}

func TestBundledCatalogIsPlayable(t *testing.T) {
	items, err := FileSource{Path: "../data/coins.json"}.LoadCatalog(context.Background())
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if n := len(game.Eligible(items, game.DefaultMinValue)); n < 2 {
		t.Errorf("bundled catalog has %d eligible coins", n)
	}
}
