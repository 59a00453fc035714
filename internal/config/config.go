package config

import (
	"log"
	"os"
	"strconv"

	"github.com/LJTian/ContentHub/internal/scraper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string

	CronSpec string

	MaxArticlesPerScrape int
	// ScrapeConcurrency 限制并发采集的源数量；0 表示不限制（每个源一个任务）
	ScrapeConcurrency int

	WordPressAPIURL   string
	WordPressUser     string
	WordPressPassword string

	Sources []scraper.Source
}

func Load() *Config {
	cfg := &Config{
		AppPort:              getEnv("APP_PORT", "8001"),
		PostgresDSN:          getEnv("POSTGRES_DSN", "host=localhost user=contenthub password=contenthub dbname=contenthub port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		CronSpec:             getEnv("CRON_SPEC", "0 */4 * * *"),
		MaxArticlesPerScrape: getEnvInt("MAX_ARTICLES_PER_SCRAPE", 50),
		ScrapeConcurrency:    getEnvInt("SCRAPE_CONCURRENCY", 0),
		WordPressAPIURL:      getEnv("WORDPRESS_API_URL", ""),
		WordPressUser:        getEnv("WORDPRESS_USER", ""),
		WordPressPassword:    getEnv("WORDPRESS_PASSWORD", ""),
	}

	cfg.Sources = defaultSources()
	if path := os.Getenv("SOURCES_FILE"); path != "" {
		if sources, err := loadSourcesFile(path); err != nil {
			log.Printf("warn: load sources file %s: %v (using defaults)", path, err)
		} else if len(sources) > 0 {
			cfg.Sources = sources
		}
	}

	log.Printf("config loaded: port=%s cron=%s sources=%d max_per_scrape=%d",
		cfg.AppPort, cfg.CronSpec, len(cfg.Sources), cfg.MaxArticlesPerScrape)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("warn: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

type sourcesFile struct {
	Sources []scraper.Source `yaml:"sources"`
}

// loadSourcesFile 从 YAML 文件读取采集源列表，覆盖内置默认源
func loadSourcesFile(path string) ([]scraper.Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f sourcesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return f.Sources, nil
}

// defaultSources 内置采集源，未配置 SOURCES_FILE 时生效
func defaultSources() []scraper.Source {
	return []scraper.Source{
		{Name: "TechCrunch AI", URL: "https://techcrunch.com/category/artificial-intelligence/feed/", Kind: scraper.KindFeed, Enabled: true},
		{Name: "VentureBeat AI", URL: "https://venturebeat.com/ai/feed/", Kind: scraper.KindFeed, Enabled: true},
		{Name: "Google News AI", URL: "https://news.google.com/rss/search?q=artificial+intelligence", Kind: scraper.KindFeed, Enabled: true},
		{
			Name: "Hacker News",
			URL:  "https://news.ycombinator.com/",
			Kind: scraper.KindMarkup,
			Selectors: &scraper.Selectors{
				Container: ".athing",
				Title:     ".titleline > a",
				Link:      ".titleline > a",
			},
			Enabled: true,
		},
	}
}
