package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/LJTian/ContentHub/internal/orchestrator"
	"github.com/LJTian/ContentHub/internal/publisher"
	"github.com/LJTian/ContentHub/internal/storage"
	"github.com/gin-gonic/gin"
)

type Server struct {
	store *storage.Store
	orch  *orchestrator.Orchestrator
	wp    *publisher.WordPress // 可以为 nil，表示未配置发布端
}

func NewServer(store *storage.Store, orch *orchestrator.Orchestrator, wp *publisher.WordPress) *Server {
	return &Server{store: store, orch: orch, wp: wp}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.POST("/scrape", s.triggerScrape)
	r.GET("/scrape/status", s.scrapeStatus)
	r.GET("/widgets/articles", s.articlesWidget)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/articles", s.listArticles)
		v1.POST("/articles/:id/publish", s.publishArticle)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":   "contenthub",
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// triggerScrape 手动触发一轮采集；采集在后台执行，立即返回
func (s *Server) triggerScrape(c *gin.Context) {
	go s.orch.RunScrapePass(context.Background())
	c.JSON(http.StatusAccepted, gin.H{
		"message": "scraping started",
		"status":  "processing",
	})
}

func (s *Server) scrapeStatus(c *gin.Context) {
	stats, err := s.store.ArticleStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalArticles": stats.TotalArticles,
		"todayArticles": stats.TodayArticles,
		"bySource":      stats.BySource,
		"lastUpdated":   time.Now().UTC(),
	})
}

// feedArticle 对外 feed 的精简视图
type feedArticle struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	ScrapedAt   time.Time  `json:"scrapedAt"`
	Status      string     `json:"status"`
}

func (s *Server) listArticles(c *gin.Context) {
	filter := c.Query("category")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	items, err := s.store.ListArticles(filter, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "internal server error",
		})
		return
	}

	articles := make([]feedArticle, 0, len(items))
	for _, it := range items {
		articles = append(articles, feedArticle{
			ID:          it.ID,
			Title:       it.Title,
			Summary:     summarize(it.Content, 300),
			URL:         it.OriginalURL,
			Source:      it.SourceName,
			PublishedAt: it.PublishedAt,
			ScrapedAt:   it.ScrapedAt,
			Status:      it.Status,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"count":       len(articles),
		"articles":    articles,
		"lastUpdated": time.Now().UTC(),
	})
}

func (s *Server) publishArticle(c *gin.Context) {
	if s.wp == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "wordpress publisher not configured",
		})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid article id"})
		return
	}

	art, err := s.store.GetArticle(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "article not found"})
		return
	}

	result, err := s.wp.PublishArticle(c.Request.Context(), art)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": err.Error()})
		return
	}

	if err := s.store.MarkPublished(art.ID, result.URL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "published but status update failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"post":   result,
	})
}
