package main

import (
	"log"

	"github.com/LJTian/ContentHub/internal/api"
	"github.com/LJTian/ContentHub/internal/config"
	"github.com/LJTian/ContentHub/internal/orchestrator"
	"github.com/LJTian/ContentHub/internal/publisher"
	"github.com/LJTian/ContentHub/internal/scheduler"
	"github.com/LJTian/ContentHub/internal/scraper"
	"github.com/LJTian/ContentHub/internal/storage"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	registry := scraper.NewRegistry(cfg.MaxArticlesPerScrape)
	orch := orchestrator.New(registry, store, cfg.Sources, cfg.MaxArticlesPerScrape, cfg.ScrapeConcurrency)

	s, err := scheduler.New(cfg.CronSpec, orch)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start()

	// 仅在配置了 WordPress 时启用发布端
	var wp *publisher.WordPress
	if cfg.WordPressAPIURL != "" && cfg.WordPressUser != "" {
		wp = publisher.NewWordPress(cfg.WordPressAPIURL, cfg.WordPressUser, cfg.WordPressPassword)
	} else {
		log.Println("wordpress publisher not configured, publish endpoint disabled")
	}

	r := gin.Default()
	apiServer := api.NewServer(store, orch, wp)
	apiServer.RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}
