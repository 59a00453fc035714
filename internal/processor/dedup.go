package processor

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/LJTian/ContentHub/internal/scraper"
)

// Fingerprint 对 title+content 做 sha256，作为内容去重键。
// 相同的 (title, content) 永远得到相同指纹。
func Fingerprint(title, content string) string {
	h := sha256.Sum256([]byte(title + content))
	return hex.EncodeToString(h[:])
}

// HashStore 查重只需要按指纹判存在的能力
type HashStore interface {
	ExistsByHash(hash string) (bool, error)
}

// Deduplicator 基于内容指纹判断文章是否已入库
type Deduplicator struct{}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

func (d *Deduplicator) IsDuplicate(a scraper.RawArticle, store HashStore) (bool, error) {
	return store.ExistsByHash(Fingerprint(a.Title, a.Content))
}
