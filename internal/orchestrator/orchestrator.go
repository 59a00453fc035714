package orchestrator

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/LJTian/ContentHub/internal/processor"
	"github.com/LJTian/ContentHub/internal/scraper"
	"github.com/LJTian/ContentHub/internal/storage"
	"gorm.io/datatypes"
)

// ArticleStore 编排器对存储层的最小依赖，便于测试注入
type ArticleStore interface {
	ExistsByURL(url string) (bool, error)
	SaveArticle(a *storage.Article) error
}

// Outcome 一轮采集的汇总结果
type Outcome struct {
	Success        int `json:"success"`
	Failed         int `json:"failed"`
	Duplicates     int `json:"duplicates"`
	TotalProcessed int `json:"total_processed"`
}

// SourceOutcome 单个源的计数
type SourceOutcome struct {
	Scraped    int
	Duplicates int
	Processed  int
}

// Orchestrator 驱动一轮完整采集：并发展开各源，清洗、查重、逐条入库
type Orchestrator struct {
	registry     scraper.Registry
	cleaner      *processor.TextCleaner
	store        ArticleStore
	sources      []scraper.Source
	maxPerScrape int
	concurrency  int // <=0 表示每个源一个 goroutine，不设上限
}

func New(registry scraper.Registry, store ArticleStore, sources []scraper.Source, maxPerScrape, concurrency int) *Orchestrator {
	return &Orchestrator{
		registry:     registry,
		cleaner:      processor.NewTextCleaner(),
		store:        store,
		sources:      sources,
		maxPerScrape: maxPerScrape,
		concurrency:  concurrency,
	}
}

// RunScrapePass 执行一轮完整采集并返回汇总。
// 单个源的失败只计入 Failed，不影响其余源；本函数不返回错误。
func (o *Orchestrator) RunScrapePass(ctx context.Context) Outcome {
	enabled := make([]scraper.Source, 0, len(o.sources))
	for _, src := range o.sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}

	log.Printf("start scrape pass: %d sources", len(enabled))

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out Outcome
		sem chan struct{}
	)
	if o.concurrency > 0 {
		sem = make(chan struct{}, o.concurrency)
	}

	for _, src := range enabled {
		src := src
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}

			res, err := o.scrapeSource(ctx, src)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("scrape %s error: %v", src.Name, err)
				out.Failed++
				return
			}
			out.Success += res.Scraped
			out.Duplicates += res.Duplicates
			out.TotalProcessed += res.Processed
		}()
	}
	wg.Wait()

	log.Printf("scrape pass done: success=%d failed=%d duplicates=%d processed=%d",
		out.Success, out.Failed, out.Duplicates, out.TotalProcessed)
	return out
}

// scrapeSource 采集单个源。返回错误表示该源整体失败（配置错误或抓取失败）；
// 单篇文章的问题在循环内消化，不会中断同源的后续文章。
func (o *Orchestrator) scrapeSource(ctx context.Context, src scraper.Source) (SourceOutcome, error) {
	var res SourceOutcome

	sc, err := o.registry.Lookup(src.Kind)
	if err != nil {
		return res, err
	}

	raws, err := sc.Scrape(ctx, src)
	if err != nil {
		return res, err
	}

	for _, raw := range raws {
		cleaned := o.cleaner.CleanArticle(raw)

		// 预检用 URL 而不是指纹：两者撞上都按重复处理，URL 查询更便宜
		exists, err := o.store.ExistsByURL(cleaned.URL)
		if err != nil {
			log.Printf("check %s error: %v", cleaned.URL, err)
			continue
		}
		if exists {
			res.Duplicates++
			continue
		}

		art := &storage.Article{
			SourceName:  src.Name,
			OriginalURL: cleaned.URL,
			Title:       cleaned.Title,
			Content:     cleaned.Content,
			Author:      cleaned.Author,
			ContentHash: processor.Fingerprint(cleaned.Title, cleaned.Content),
			Status:      storage.StatusScraped,
			Metadata: datatypes.JSONMap{
				"scraper_kind": src.Kind,
				"source_url":   src.URL,
			},
		}
		if len(cleaned.Tags) > 0 {
			art.Metadata["tags"] = cleaned.Tags
		}
		if !cleaned.PublishedAt.IsZero() {
			published := cleaned.PublishedAt
			art.PublishedAt = &published
		}

		if err := o.store.SaveArticle(art); err != nil {
			// 预检漏掉的竞态由唯一索引兜底，按重复计，不中断本源
			if errors.Is(err, storage.ErrDuplicate) {
				res.Duplicates++
				continue
			}
			log.Printf("save %s error: %v", cleaned.URL, err)
			continue
		}

		res.Scraped++
		if res.Scraped >= o.maxPerScrape {
			break
		}
	}

	res.Processed = res.Scraped + res.Duplicates
	log.Printf("scrape %s done: new=%d duplicates=%d", src.Name, res.Scraped, res.Duplicates)
	return res, nil
}
