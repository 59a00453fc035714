package api

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// widgetArticle 嵌入式挂件里单条文章的展示数据
type widgetArticle struct {
	Title       string
	URL         string
	Source      string
	Summary     string
	Date        string
	TimeAgo     string
	ReadingTime int
}

var modernWidgetTmpl = template.Must(template.New("modern").Parse(`
<div class="contenthub-articles-modern" style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; max-width: 800px;">
{{range .}}
  <div style="background: #fff; border-radius: 12px; box-shadow: 0 4px 6px rgba(0,0,0,0.1); margin: 20px 0; padding: 24px; border-left: 4px solid #0073aa;">
    <a href="{{.URL}}" target="_blank" style="font-size: 20px; font-weight: 600; color: #1a1a1a; text-decoration: none;">{{.Title}}</a>
    <div style="margin: 12px 0; font-size: 14px; color: #666;">
      <span style="background: #e3f2fd; color: #1976d2; padding: 4px 12px; border-radius: 20px; font-size: 12px;">{{.Source}}</span>
      <span>{{.TimeAgo}}</span>
      <span>{{.ReadingTime}} min read</span>
    </div>
    <div style="color: #444; line-height: 1.6; font-size: 15px;">{{.Summary}}</div>
    <div style="margin-top: 15px; padding-top: 15px; border-top: 1px solid #eee; font-size: 13px; color: #888;">
      <span>Published {{.Date}}</span>
      <a href="{{.URL}}" target="_blank" style="color: #0073aa; text-decoration: none; font-weight: 500;">Read Full Article</a>
    </div>
  </div>
{{end}}
</div>
`))

var listWidgetTmpl = template.Must(template.New("list").Parse(`
<div class="contenthub-articles-list" style="font-family: Arial, sans-serif;">
{{range .}}
  <div style="border-bottom: 1px solid #ddd; padding: 20px 0;">
    <h3 style="margin: 0 0 10px 0;"><a href="{{.URL}}" target="_blank" style="color: #0073aa; text-decoration: none;">{{.Title}}</a></h3>
    <p style="color: #666; margin: 0 0 10px 0; line-height: 1.5;">{{.Summary}}</p>
    <div style="font-size: 14px; color: #999;"><span>{{.Date}}</span> &bull; <span>{{.Source}}</span></div>
  </div>
{{end}}
</div>
`))

// articlesWidget 渲染可直接嵌入外部站点的 HTML 文章列表
func (s *Server) articlesWidget(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "5"))
	if err != nil || limit <= 0 {
		limit = 5
	}
	style := c.DefaultQuery("style", "modern")
	filter := c.Query("category")

	items, err := s.store.ListArticles(filter, limit)
	if err != nil {
		c.Data(http.StatusInternalServerError, "text/html; charset=utf-8",
			[]byte("<div>Error loading articles</div>"))
		return
	}

	articles := make([]widgetArticle, 0, len(items))
	for _, it := range items {
		articles = append(articles, widgetArticle{
			Title:       it.Title,
			URL:         it.OriginalURL,
			Source:      it.SourceName,
			Summary:     summarize(it.Content, 300),
			Date:        it.ScrapedAt.Format("January 2, 2006"),
			TimeAgo:     timeAgo(it.ScrapedAt),
			ReadingTime: readingTime(it.Content),
		})
	}

	tmpl := modernWidgetTmpl
	if style == "list" {
		tmpl = listWidgetTmpl
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, articles); err != nil {
		c.Data(http.StatusInternalServerError, "text/html; charset=utf-8",
			[]byte("<div>Error rendering widget</div>"))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// summarize 按 rune 截断正文并补省略号
func summarize(content string, limit int) string {
	if content == "" {
		return "No summary available"
	}
	rs := []rune(content)
	if len(rs) <= limit {
		return content
	}
	return string(rs[:limit]) + "..."
}

// timeAgo 生成人类可读的相对时间
func timeAgo(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff >= 24*time.Hour:
		days := int(diff.Hours() / 24)
		return fmt.Sprintf("%d day%s ago", days, plural(days))
	case diff >= time.Hour:
		hours := int(diff.Hours())
		return fmt.Sprintf("%d hour%s ago", hours, plural(hours))
	case diff >= time.Minute:
		minutes := int(diff.Minutes())
		return fmt.Sprintf("%d minute%s ago", minutes, plural(minutes))
	default:
		return "Just now"
	}
}

// readingTime 按每分钟 200 词估算阅读时长，至少 1 分钟
func readingTime(content string) int {
	words := len(strings.Fields(content))
	if words < 200 {
		return 1
	}
	return (words + 100) / 200
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
