package scraper

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedScraper 抓取 RSS/Atom 订阅源
type FeedScraper struct {
	client      *http.Client
	parser      *gofeed.Parser
	maxArticles int
}

func NewFeedScraper(client *http.Client, maxArticles int) *FeedScraper {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &FeedScraper{
		client:      client,
		parser:      gofeed.NewParser(),
		maxArticles: maxArticles,
	}
}

func (f *FeedScraper) Kind() string {
	return KindFeed
}

func (f *FeedScraper) Scrape(ctx context.Context, src Source) ([]RawArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", src.URL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned %s", src.URL, resp.Status)
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.URL, err)
	}

	articles := make([]RawArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		if len(articles) >= f.maxArticles {
			break
		}
		// 单条格式问题只跳过该条，不中断整个源
		a, ok := parseFeedItem(item, src.URL)
		if !ok {
			continue
		}
		articles = append(articles, a)
	}

	log.Printf("feed %s: %d articles", src.Name, len(articles))
	return articles, nil
}

// parseFeedItem 解析单个条目；缺标题或链接的条目直接丢弃
func parseFeedItem(item *gofeed.Item, feedURL string) (RawArticle, bool) {
	if item == nil {
		return RawArticle{}, false
	}

	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		return RawArticle{}, false
	}

	// 正文优先取 content，退回 summary/description
	content := item.Content
	if content == "" {
		content = item.Description
	}

	var published time.Time
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	author := ""
	if item.Author != nil {
		author = item.Author.Name
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		author = item.Authors[0].Name
	}

	return RawArticle{
		Title:       title,
		URL:         resolveAgainstOrigin(feedURL, link),
		Content:     flattenHTML(content),
		Author:      author,
		PublishedAt: published,
		Tags:        item.Categories,
	}, true
}

// resolveAgainstOrigin 将相对链接解析到 feed 自身的源（scheme://host）
func resolveAgainstOrigin(baseRaw, ref string) string {
	base, err := url.Parse(baseRaw)
	if err != nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	origin := &url.URL{Scheme: base.Scheme, Host: base.Host}
	return origin.ResolveReference(u).String()
}
