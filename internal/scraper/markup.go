package scraper

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// 与原型页面匹配的默认选择器，配置里可以逐项覆盖
var defaultSelectors = Selectors{
	Container: "article, .post, .story",
	Title:     "h1, h2, h3, .title",
	Link:      "a",
	Content:   ".content, .body, p",
	Author:    ".author, .byline",
}

// MarkupScraper 按 CSS 选择器抓取单个 HTML 页面里的文章块
type MarkupScraper struct {
	maxArticles int
}

func NewMarkupScraper(maxArticles int) *MarkupScraper {
	return &MarkupScraper{maxArticles: maxArticles}
}

func (m *MarkupScraper) Kind() string {
	return KindMarkup
}

func (m *MarkupScraper) Scrape(ctx context.Context, src Source) ([]RawArticle, error) {
	sel := mergeSelectors(src.Selectors)

	c := colly.NewCollector(colly.UserAgent(userAgent))
	c.SetRequestTimeout(requestTimeout)

	articles := make([]RawArticle, 0, m.maxArticles)
	fetchedAt := time.Now()

	c.OnHTML(sel.Container, func(e *colly.HTMLElement) {
		if len(articles) >= m.maxArticles {
			return
		}

		title := elementText(e.DOM, sel.Title)
		href := strings.TrimSpace(e.DOM.Find(sel.Link).First().AttrOr("href", ""))
		// 缺标题或链接的块丢弃，继续处理后续块
		if title == "" || href == "" {
			return
		}

		link := e.Request.AbsoluteURL(href)
		if link == "" {
			link = href
		}

		articles = append(articles, RawArticle{
			Title:   title,
			URL:     link,
			Content: elementText(e.DOM, sel.Content),
			Author:  elementText(e.DOM, sel.Author),
			// 页面里一般没有结构化的发布时间，用抓取时间兜底
			PublishedAt: fetchedAt,
		})
	})

	if err := c.Visit(src.URL); err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", src.URL, err)
	}

	log.Printf("markup %s: %d articles", src.Name, len(articles))
	return articles, nil
}

// mergeSelectors 用默认值补齐未配置的选择器字段
func mergeSelectors(s *Selectors) Selectors {
	merged := defaultSelectors
	if s == nil {
		return merged
	}
	if s.Container != "" {
		merged.Container = s.Container
	}
	if s.Title != "" {
		merged.Title = s.Title
	}
	if s.Link != "" {
		merged.Link = s.Link
	}
	if s.Content != "" {
		merged.Content = s.Content
	}
	if s.Author != "" {
		merged.Author = s.Author
	}
	return merged
}
