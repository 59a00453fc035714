package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/LJTian/ContentHub/internal/scraper"
	"github.com/LJTian/ContentHub/internal/storage"
)

// memStore 内存版存储：按 URL 与指纹模拟唯一索引
type memStore struct {
	mu     sync.Mutex
	byURL  map[string]*storage.Article
	byHash map[string]*storage.Article

	// saveRace 为 true 时，预检查不到但插入时报冲突，模拟并发写竞态
	saveRace bool
}

func newMemStore() *memStore {
	return &memStore{
		byURL:  map[string]*storage.Article{},
		byHash: map[string]*storage.Article{},
	}
}

func (m *memStore) ExistsByURL(url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveRace {
		return false, nil
	}
	_, ok := m.byURL[url]
	return ok, nil
}

func (m *memStore) SaveArticle(a *storage.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byURL[a.OriginalURL]; ok {
		return storage.ErrDuplicate
	}
	if _, ok := m.byHash[a.ContentHash]; ok {
		return storage.ErrDuplicate
	}
	a.ID = uint(len(m.byURL) + 1)
	m.byURL[a.OriginalURL] = a
	m.byHash[a.ContentHash] = a
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byURL)
}

// stubScraper 返回固定结果的采集器
type stubScraper struct {
	kind     string
	articles []scraper.RawArticle
	err      error
}

func (s *stubScraper) Kind() string { return s.kind }

func (s *stubScraper) Scrape(ctx context.Context, src scraper.Source) ([]scraper.RawArticle, error) {
	return s.articles, s.err
}

func feedSource(name string) scraper.Source {
	return scraper.Source{Name: name, URL: "https://example.com/feed", Kind: "feed", Enabled: true}
}

func rawArticle(title, url string) scraper.RawArticle {
	return scraper.RawArticle{Title: title, URL: url, Content: "body of " + title}
}

func TestRunScrapePassStoresNewArticles(t *testing.T) {
	store := newMemStore()
	registry := scraper.Registry{
		"feed": &stubScraper{kind: "feed", articles: []scraper.RawArticle{
			rawArticle("A", "https://example.com/a"),
			rawArticle("B", "https://example.com/b"),
		}},
	}

	o := New(registry, store, []scraper.Source{feedSource("src")}, 50, 0)
	out := o.RunScrapePass(context.Background())

	want := Outcome{Success: 2, Failed: 0, Duplicates: 0, TotalProcessed: 2}
	if out != want {
		t.Fatalf("Outcome = %+v, want %+v", out, want)
	}
	if store.count() != 2 {
		t.Fatalf("store has %d articles, want 2", store.count())
	}

	a := store.byURL["https://example.com/a"]
	b := store.byURL["https://example.com/b"]
	if a == nil || b == nil {
		t.Fatalf("expected both articles stored")
	}
	if a.Title != "A" || b.Title != "B" {
		t.Fatalf("stored titles = %q, %q", a.Title, b.Title)
	}
	if a.ContentHash == b.ContentHash {
		t.Fatalf("fingerprints should differ")
	}
	if a.Status != storage.StatusScraped {
		t.Fatalf("Status = %q, want %q", a.Status, storage.StatusScraped)
	}
}

func TestRunScrapePassCountsPreexistingDuplicate(t *testing.T) {
	store := newMemStore()
	// A 的 URL 已经在库里
	_ = store.SaveArticle(&storage.Article{OriginalURL: "https://example.com/a", ContentHash: "existing"})

	registry := scraper.Registry{
		"feed": &stubScraper{kind: "feed", articles: []scraper.RawArticle{
			rawArticle("A", "https://example.com/a"),
			rawArticle("B", "https://example.com/b"),
		}},
	}

	o := New(registry, store, []scraper.Source{feedSource("src")}, 50, 0)
	out := o.RunScrapePass(context.Background())

	want := Outcome{Success: 1, Failed: 0, Duplicates: 1, TotalProcessed: 2}
	if out != want {
		t.Fatalf("Outcome = %+v, want %+v", out, want)
	}
}

func TestRunScrapePassDuplicateWithinRun(t *testing.T) {
	store := newMemStore()
	registry := scraper.Registry{
		"feed": &stubScraper{kind: "feed", articles: []scraper.RawArticle{
			rawArticle("A", "https://example.com/a"),
			rawArticle("A again", "https://example.com/a"),
		}},
	}

	o := New(registry, store, []scraper.Source{feedSource("src")}, 50, 0)
	out := o.RunScrapePass(context.Background())

	want := Outcome{Success: 1, Failed: 0, Duplicates: 1, TotalProcessed: 2}
	if out != want {
		t.Fatalf("Outcome = %+v, want %+v", out, want)
	}
	if store.count() != 1 {
		t.Fatalf("store has %d articles, want 1", store.count())
	}
}

func TestRunScrapePassIsolatesFailingSource(t *testing.T) {
	store := newMemStore()
	registry := scraper.Registry{
		"feed": &stubScraper{kind: "feed", articles: []scraper.RawArticle{
			rawArticle("A", "https://example.com/a"),
			rawArticle("B", "https://example.com/b"),
		}},
		"markup": &stubScraper{kind: "markup", err: errors.New("connection refused")},
	}

	sources := []scraper.Source{
		feedSource("good"),
		{Name: "bad", URL: "https://down.example.com", Kind: "markup", Enabled: true},
	}

	o := New(registry, store, sources, 50, 0)
	out := o.RunScrapePass(context.Background())

	// 失败的源只计入 Failed，不影响另一个源的计数
	want := Outcome{Success: 2, Failed: 1, Duplicates: 0, TotalProcessed: 2}
	if out != want {
		t.Fatalf("Outcome = %+v, want %+v", out, want)
	}
}

func TestRunScrapePassUnknownKindCountsAsFailed(t *testing.T) {
	store := newMemStore()
	registry := scraper.Registry{}

	sources := []scraper.Source{
		{Name: "misconfigured", URL: "https://example.com", Kind: "js", Enabled: true},
	}

	o := New(registry, store, sources, 50, 0)
	out := o.RunScrapePass(context.Background())

	want := Outcome{Success: 0, Failed: 1, Duplicates: 0, TotalProcessed: 0}
	if out != want {
		t.Fatalf("Outcome = %+v, want %+v", out, want)
	}
}

func TestRunScrapePassEnforcesCap(t *testing.T) {
	articles := make([]scraper.RawArticle, 0, 100)
	for i := 0; i < 100; i++ {
		articles = append(articles, rawArticle(
			fmt.Sprintf("Post %d", i),
			fmt.Sprintf("https://example.com/p/%d", i),
		))
	}

	store := newMemStore()
	registry := scraper.Registry{
		"feed": &stubScraper{kind: "feed", articles: articles},
	}

	o := New(registry, store, []scraper.Source{feedSource("big")}, 10, 0)
	out := o.RunScrapePass(context.Background())

	if out.Success != 10 {
		t.Fatalf("Success = %d, want 10", out.Success)
	}
	if store.count() != 10 {
		t.Fatalf("store has %d articles, want 10", store.count())
	}
}

func TestRunScrapePassSkipsDisabledSources(t *testing.T) {
	store := newMemStore()
	registry := scraper.Registry{
		"feed": &stubScraper{kind: "feed", articles: []scraper.RawArticle{
			rawArticle("A", "https://example.com/a"),
		}},
	}

	src := feedSource("off")
	src.Enabled = false

	o := New(registry, store, []scraper.Source{src}, 50, 0)
	out := o.RunScrapePass(context.Background())

	if (out != Outcome{}) {
		t.Fatalf("Outcome = %+v, want zero", out)
	}
	if store.count() != 0 {
		t.Fatalf("disabled source should store nothing")
	}
}

func TestRunScrapePassRecoversInsertRace(t *testing.T) {
	store := newMemStore()
	_ = store.SaveArticle(&storage.Article{OriginalURL: "https://example.com/a", ContentHash: "existing"})
	// 预检查查不到，但插入时唯一索引报冲突
	store.saveRace = true

	registry := scraper.Registry{
		"feed": &stubScraper{kind: "feed", articles: []scraper.RawArticle{
			rawArticle("A", "https://example.com/a"),
		}},
	}

	o := New(registry, store, []scraper.Source{feedSource("racy")}, 50, 0)
	out := o.RunScrapePass(context.Background())

	// 撞唯一索引按重复计，而不是源失败
	want := Outcome{Success: 0, Failed: 0, Duplicates: 1, TotalProcessed: 1}
	if out != want {
		t.Fatalf("Outcome = %+v, want %+v", out, want)
	}
}

func TestRunScrapePassWithConcurrencyLimit(t *testing.T) {
	store := newMemStore()
	registry := scraper.Registry{}
	sources := make([]scraper.Source, 0, 5)
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("src-%d", i)
		registry[name] = &stubScraper{kind: name, articles: []scraper.RawArticle{
			rawArticle("T "+name, "https://example.com/"+name),
		}}
		sources = append(sources, scraper.Source{Name: name, URL: "https://example.com", Kind: name, Enabled: true})
	}

	// 并发上限为 2，结果必须与不限并发一致
	o := New(registry, store, sources, 50, 2)
	out := o.RunScrapePass(context.Background())

	want := Outcome{Success: 5, Failed: 0, Duplicates: 0, TotalProcessed: 5}
	if out != want {
		t.Fatalf("Outcome = %+v, want %+v", out, want)
	}
}
