package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Fingerprint derives a stable cache key from everything that determines a
// plan: the audio record, the participating videos in sorted order, the full
// engine configuration, and the seed.
func Fingerprint(audioID string, sortedVideoIDs []string, cfg Config, seed int64) string {
	cfgJSON, _ := json.Marshal(cfg)

	h := sha256.New()
	h.Write([]byte(audioID))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(sortedVideoIDs, ",")))
	h.Write([]byte{0})
	h.Write(cfgJSON)
	h.Write([]byte{0})
	fmt.Fprintf(h, "%d", seed)
	return hex.EncodeToString(h.Sum(nil))
}

// ResultCache is a size-bounded LRU of generated plans keyed by fingerprint.
// The underlying LRU serializes access, which satisfies the single-writer
// discipline the engine requires for concurrent hosts.
type ResultCache struct {
	lru *lru.Cache[string, *Result]
}

func NewResultCache(size int) (*ResultCache, error) {
	c, err := lru.New[string, *Result](size)
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}
	return &ResultCache{lru: c}, nil
}

func (c *ResultCache) Get(fingerprint string) (*Result, bool) {
	return c.lru.Get(fingerprint)
}

func (c *ResultCache) Put(fingerprint string, r *Result) {
	c.lru.Add(fingerprint, r)
}

func (c *ResultCache) Len() int {
	return c.lru.Len()
}
