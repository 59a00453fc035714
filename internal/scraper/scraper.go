package scraper

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	KindFeed   = "feed"
	KindMarkup = "markup"

	userAgent      = "Mozilla/5.0 (compatible; ContentHubBot/1.0)"
	requestTimeout = 30 * time.Second
)

// ErrUnknownKind 表示配置里出现了未注册的采集器类型
var ErrUnknownKind = errors.New("unknown scraper kind")

// Selectors 描述 markup 源的 CSS 选择器，留空的字段使用默认值
type Selectors struct {
	Container string `yaml:"container"`
	Title     string `yaml:"title"`
	Link      string `yaml:"link"`
	Content   string `yaml:"content"`
	Author    string `yaml:"author"`
}

// Source 一个配置好的采集源；单轮采集期间视为只读
type Source struct {
	Name      string     `yaml:"name"`
	URL       string     `yaml:"url"`
	Kind      string     `yaml:"kind"` // feed / markup
	Selectors *Selectors `yaml:"selectors,omitempty"`
	Enabled   bool       `yaml:"enabled"`
}

// RawArticle 采集器的统一输出结构
type RawArticle struct {
	Title       string
	URL         string
	Content     string
	Author      string
	PublishedAt time.Time // 零值表示来源未提供发布时间
	Tags        []string
}

// Scraper 抽象每一种采集策略
type Scraper interface {
	Kind() string
	Scrape(ctx context.Context, src Source) ([]RawArticle, error)
}

// Registry 采集器注册表：封闭集合 {feed, markup}
type Registry map[string]Scraper

// NewRegistry 构造默认注册表；maxArticles 为单次采集的条数上限
func NewRegistry(maxArticles int) Registry {
	client := &http.Client{Timeout: requestTimeout}
	return Registry{
		KindFeed:   NewFeedScraper(client, maxArticles),
		KindMarkup: NewMarkupScraper(maxArticles),
	}
}

// Lookup 按类型取采集器，未知类型返回 ErrUnknownKind
func (r Registry) Lookup(kind string) (Scraper, error) {
	s, ok := r[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return s, nil
}

// flattenHTML 去掉 script/style 后把 HTML 压成纯文本并解码实体
func flattenHTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapseSpace(html.UnescapeString(s))
	}
	doc.Find("script, style").Remove()
	return collapseSpace(html.UnescapeString(doc.Text()))
}

// elementText 取首个匹配元素的纯文本，处理方式与 flattenHTML 保持一致
func elementText(root *goquery.Selection, selector string) string {
	el := root.Find(selector).First()
	if el.Length() == 0 {
		return ""
	}
	el.Find("script, style").Remove()
	return collapseSpace(html.UnescapeString(el.Text()))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
