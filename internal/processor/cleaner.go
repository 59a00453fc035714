package processor

import (
	"regexp"
	"strings"

	"github.com/LJTian/ContentHub/internal/scraper"
)

var (
	spaceExpr    = regexp.MustCompile(`\s+`)
	bracketExpr  = regexp.MustCompile(`\[.*?\]`)
	adExpr       = regexp.MustCompile(`(?i)\(Advertisement\)`)
	readMoreExpr = regexp.MustCompile(`(?i)Continue reading.*`)
	urlExpr      = regexp.MustCompile(`https?://\S+`)
)

// TextCleaner 清洗抓取文本：折叠空白并剔除括注、广告标记等样板内容
type TextCleaner struct{}

func NewTextCleaner() *TextCleaner {
	return &TextCleaner{}
}

// CleanArticle 对标题、正文、作者逐字段清洗；纯函数，不会失败
func (c *TextCleaner) CleanArticle(a scraper.RawArticle) scraper.RawArticle {
	a.Title = c.CleanText(a.Title)
	a.Content = c.CleanText(a.Content)
	a.Author = c.CleanText(a.Author)
	return a
}

// CleanText 清洗单个文本字段；空输入返回空串
func (c *TextCleaner) CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = spaceExpr.ReplaceAllString(text, " ")

	text = bracketExpr.ReplaceAllString(text, "")
	text = adExpr.ReplaceAllString(text, "")
	// "Continue reading" 之后的内容全部视为导流文案
	text = readMoreExpr.ReplaceAllString(text, "")
	text = urlExpr.ReplaceAllString(text, "")

	return strings.TrimSpace(spaceExpr.ReplaceAllString(text, " "))
}
