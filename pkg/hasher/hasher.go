package hasher

import (
	"crypto/md5"
	"encoding/hex"
	"hash"
	"hash/fnv"
	"log"
)

type hashFactory func() (hash.Hash, error)

// Hasher maps source URLs to cache keys.
// Keys are lowercase hex strings, safe to use as file names and map keys.
type Hasher struct {
	newPrimary hashFactory
	primary    bool
}

type Option func(*Hasher)

// WithPrimary replaces the primary digest factory.
// If the factory fails at construction, the hasher falls back to FNV-1a.
func WithPrimary(factory func() (hash.Hash, error)) Option {
	return func(h *Hasher) {
		h.newPrimary = factory
	}
}

func New(opts ...Option) *Hasher {
	h := &Hasher{
		newPrimary: func() (hash.Hash, error) { return md5.New(), nil },
	}

	for _, opt := range opts {
		opt(h)
	}

	if _, err := h.newPrimary(); err != nil {
		log.Printf("hasher: primary digest unavailable, falling back to fnv: %s", err)
		h.primary = false
	} else {
		h.primary = true
	}

	return h
}

// UsesPrimary reports whether keys come from the primary digest.
// Fallback keys live in a different key space, so cached entries
// written under one are never hit under the other.
func (h *Hasher) UsesPrimary() bool {
	return h.primary
}

func (h *Hasher) Key(url string) string {
	if h.primary {
		if digest, err := h.newPrimary(); err == nil {
			digest.Write([]byte(url))
			return hex.EncodeToString(digest.Sum(nil))
		}
	}

	return fallbackKey(url)
}

func fallbackKey(url string) string {
	digest := fnv.New64a()
	digest.Write([]byte(url))
	return hex.EncodeToString(digest.Sum(nil))
}

var defaultHasher = New()

// Key hashes url with the default hasher.
func Key(url string) string {
	return defaultHasher.Key(url)
}
