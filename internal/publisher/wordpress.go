package publisher

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LJTian/ContentHub/internal/storage"
)

const (
	requestTimeout = 30 * time.Second
	// WordPress 默认的 "Uncategorized" 分类，创建分类失败时的兜底
	fallbackCategoryID = 1
)

// WordPress 通过 REST API（Basic Auth）把文章推送到外部 WordPress 站点
type WordPress struct {
	apiURL     string
	authHeader string
	client     *http.Client
}

func NewWordPress(apiURL, username, password string) *WordPress {
	credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return &WordPress{
		apiURL:     strings.TrimRight(apiURL, "/"),
		authHeader: "Basic " + credentials,
		client:     &http.Client{Timeout: requestTimeout},
	}
}

// PublishResult 发布成功后 WordPress 返回的关键信息
type PublishResult struct {
	ID     int    `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// PublishArticle 创建一篇已发布状态的 WordPress 文章
func (w *WordPress) PublishArticle(ctx context.Context, art *storage.Article) (*PublishResult, error) {
	payload := map[string]any{
		"title":      art.Title,
		"content":    formatContent(art),
		"excerpt":    excerpt(art.Content),
		"status":     "publish",
		"categories": w.getOrCreateCategory(ctx, art.SourceName),
	}

	var created struct {
		ID     int    `json:"id"`
		Link   string `json:"link"`
		Status string `json:"status"`
	}
	if err := w.postJSON(ctx, w.apiURL+"/posts", payload, &created); err != nil {
		return nil, fmt.Errorf("publish %q: %w", art.Title, err)
	}

	log.Printf("published to wordpress: post=%d article=%d", created.ID, art.ID)
	return &PublishResult{ID: created.ID, URL: created.Link, Status: created.Status}, nil
}

// getOrCreateCategory 按来源名查找分类，没有就创建；失败回退到默认分类
func (w *WordPress) getOrCreateCategory(ctx context.Context, name string) []int {
	if name == "" {
		return []int{fallbackCategoryID}
	}

	searchURL := w.apiURL + "/categories?search=" + url.QueryEscape(name)
	var found []struct {
		ID int `json:"id"`
	}
	if err := w.getJSON(ctx, searchURL, &found); err == nil && len(found) > 0 {
		return []int{found[0].ID}
	}

	var created struct {
		ID int `json:"id"`
	}
	err := w.postJSON(ctx, w.apiURL+"/categories", map[string]any{
		"name":        name,
		"description": "Articles from " + name,
	}, &created)
	if err != nil {
		log.Printf("warn: wordpress category %q: %v", name, err)
		return []int{fallbackCategoryID}
	}
	return []int{created.ID}
}

func (w *WordPress) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", w.authHeader)

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wordpress returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (w *WordPress) postJSON(ctx context.Context, rawURL string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", w.authHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("wordpress returned %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// formatContent 组装发布正文：摘要 + 来源出处 + 原文链接
func formatContent(art *storage.Article) string {
	escapedURL := html.EscapeString(art.OriginalURL)
	var b strings.Builder
	b.WriteString(`<div class="contenthub-article">`)
	b.WriteString(`<p>` + html.EscapeString(excerpt(art.Content)) + `</p>`)
	b.WriteString(`<div class="source-info"><p><strong>Source:</strong> `)
	b.WriteString(`<a href="` + escapedURL + `" target="_blank" rel="noopener">` + html.EscapeString(art.SourceName) + `</a></p></div>`)
	b.WriteString(`<p><a href="` + escapedURL + `" target="_blank" rel="noopener">Read Full Article</a></p>`)
	b.WriteString(`</div>`)
	return b.String()
}

// excerpt 取正文前 300 个字符做摘要
func excerpt(content string) string {
	rs := []rune(content)
	if len(rs) <= 300 {
		return content
	}
	return string(rs[:300]) + "..."
}
