package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// 文章生命周期状态：scraped → processing → processed|failed|skipped → published
const (
	StatusScraped    = "scraped"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusPublished  = "published"
	StatusFailed     = "failed"
	StatusSkipped    = "skipped"
)

// ErrDuplicate 表示 URL 或内容指纹撞了唯一索引，调用方按重复文章处理
var ErrDuplicate = errors.New("article already exists")

// Article 一条入库的文章记录。OriginalURL 与 ContentHash 的唯一索引
// 是并发写入下唯一的去重保障；记录建立后 URL 和指纹不再变化。
type Article struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	SourceName  string            `gorm:"size:255;index" json:"sourceName"`
	OriginalURL string            `gorm:"size:2048;uniqueIndex" json:"originalUrl"`
	Title       string            `gorm:"size:500" json:"title"`
	Content     string            `gorm:"type:text" json:"content"`
	Author      string            `gorm:"size:255" json:"author"`
	PublishedAt *time.Time        `gorm:"index" json:"publishedAt,omitempty"`
	ScrapedAt   time.Time         `gorm:"index" json:"scrapedAt"`
	ContentHash string            `gorm:"size:64;uniqueIndex" json:"contentHash"`
	Status      string            `gorm:"size:50;index" json:"status"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewStore(dsn, redisAddr string) (*Store, error) {
	// TranslateError 让唯一索引冲突统一映射为 gorm.ErrDuplicatedKey
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Article{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}

	return &Store{DB: db, Redis: rdb}, nil
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// truncateRunesDB 按 rune 数截断字符串，确保不超过数据库字段长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}

// SaveArticle 单条入库，每篇文章一个独立事务。
// URL 或指纹与已有记录冲突时返回 ErrDuplicate，调用方据此计重复而不是失败。
func (s *Store) SaveArticle(a *Article) error {
	if a.ScrapedAt.IsZero() {
		a.ScrapedAt = time.Now()
	}
	if a.Status == "" {
		a.Status = StatusScraped
	}
	a.Title = truncateRunesDB(toValidUTF8(a.Title), 500)
	a.Content = toValidUTF8(a.Content)
	a.Author = truncateRunesDB(toValidUTF8(a.Author), 255)

	if err := s.DB.Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ExistsByURL 按规范 URL 判断文章是否已入库；采集过程中的快速预检
func (s *Store) ExistsByURL(url string) (bool, error) {
	var count int64
	if err := s.DB.Model(&Article{}).Where("original_url = ?", url).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsByHash 按内容指纹判断文章是否已入库
func (s *Store) ExistsByHash(hash string) (bool, error) {
	var count int64
	if err := s.DB.Model(&Article{}).Where("content_hash = ?", hash).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListArticles 按抓取时间倒序返回文章，filter 同时模糊匹配来源名与标题；
// 结果用 Redis 做短 TTL 缓存
func (s *Store) ListArticles(filter string, limit int) ([]Article, error) {
	if limit <= 0 || limit > 1000 {
		limit = 20
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("articles:list:%s:%d", filter, limit)

	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []Article
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	db := s.DB.Model(&Article{})
	if filter != "" {
		pattern := "%" + filter + "%"
		db = db.Where("source_name ILIKE ? OR title ILIKE ?", pattern, pattern)
	}

	var list []Article
	if err := db.Order("scraped_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}

	// 回写缓存，靠短 TTL 自然过期，不做通配删除
	const listCacheTTL = 5 * time.Minute
	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}

	return list, nil
}

// GetArticle 按主键取单篇文章
func (s *Store) GetArticle(id uint) (*Article, error) {
	art := &Article{}
	if err := s.DB.First(art, id).Error; err != nil {
		return nil, err
	}
	return art, nil
}

// UpdateStatus 只推进生命周期状态，不碰 URL 与指纹
func (s *Store) UpdateStatus(id uint, status string) error {
	return s.DB.Model(&Article{}).Where("id = ?", id).Update("status", status).Error
}

// MarkPublished 记录对外发布地址并把状态置为 published
func (s *Store) MarkPublished(id uint, publishedURL string) error {
	art, err := s.GetArticle(id)
	if err != nil {
		return err
	}
	if art.Metadata == nil {
		art.Metadata = datatypes.JSONMap{}
	}
	art.Metadata["published_url"] = publishedURL
	return s.DB.Model(art).Updates(map[string]any{
		"status":   StatusPublished,
		"metadata": art.Metadata,
	}).Error
}

// SourceCount 单个来源的入库条数
type SourceCount struct {
	Source string `gorm:"column:source" json:"source"`
	Count  int64  `gorm:"column:count" json:"count"`
}

// Stats 采集统计，供 /scrape/status 使用
type Stats struct {
	TotalArticles int64         `json:"totalArticles"`
	TodayArticles int64         `json:"todayArticles"`
	BySource      []SourceCount `json:"bySource"`
}

// ArticleStats 汇总整体与当天（UTC）的入库量，并按来源分组计数
func (s *Store) ArticleStats() (*Stats, error) {
	stats := &Stats{}

	if err := s.DB.Model(&Article{}).Count(&stats.TotalArticles).Error; err != nil {
		return nil, err
	}

	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	if err := s.DB.Model(&Article{}).Where("scraped_at >= ?", startOfDay).Count(&stats.TodayArticles).Error; err != nil {
		return nil, err
	}

	if err := s.DB.Model(&Article{}).
		Select("source_name AS source, COUNT(*) AS count").
		Group("source_name").
		Scan(&stats.BySource).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
