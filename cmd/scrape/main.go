package main

import (
	"context"
	"log"

	"github.com/LJTian/ContentHub/internal/config"
	"github.com/LJTian/ContentHub/internal/orchestrator"
	"github.com/LJTian/ContentHub/internal/scraper"
	"github.com/LJTian/ContentHub/internal/storage"
)

// 只执行一轮采集任务的命令行入口：适合手动触发或排查单轮行为
func main() {
	cfg := config.Load()

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	registry := scraper.NewRegistry(cfg.MaxArticlesPerScrape)
	orch := orchestrator.New(registry, store, cfg.Sources, cfg.MaxArticlesPerScrape, cfg.ScrapeConcurrency)

	out := orch.RunScrapePass(context.Background())
	log.Printf("scrape pass finished: success=%d failed=%d duplicates=%d processed=%d",
		out.Success, out.Failed, out.Duplicates, out.TotalProcessed)
}
