package hasher

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"hash"
	"regexp"
	"testing"

	. "github.com/franela/goblin"
)

var lowercaseHex = regexp.MustCompile("^[0-9a-f]+$")

func TestHasher(t *testing.T) {
	g := Goblin(t)

	g.Describe("Hasher", func() {
		g.It("Should use the primary digest by default", func() {
			h := New()

			g.Assert(h.UsesPrimary()).IsTrue()
		})

		g.It("Should produce md5 hex keys on the primary path", func() {
			url := "http://example.com/image.jpg"
			sum := md5.Sum([]byte(url))

			g.Assert(New().Key(url)).Equal(hex.EncodeToString(sum[:]))
		})

		g.It("Should produce 32 lowercase hex characters", func() {
			key := Key("https://example.com/a/b/c.png?w=100&h=100")

			g.Assert(len(key)).Equal(32)
			g.Assert(lowercaseHex.MatchString(key)).IsTrue()
		})

		g.It("Should be deterministic across hasher instances", func() {
			url := "http://example.com/image.jpg"

			g.Assert(New().Key(url)).Equal(New().Key(url))
			g.Assert(Key(url)).Equal(Key(url))
		})

		g.It("Should produce different keys for different urls", func() {
			g.Assert(Key("http://example.com/1.jpg") == Key("http://example.com/2.jpg")).IsFalse()
		})

		g.It("Should fall back to fnv when primary digest is unavailable", func() {
			h := New(WithPrimary(func() (hash.Hash, error) {
				return nil, errors.New("md5 disabled")
			}))
			url := "http://example.com/image.jpg"

			g.Assert(h.UsesPrimary()).IsFalse()
			g.Assert(h.Key(url)).Equal(fallbackKey(url))
			g.Assert(len(h.Key(url))).Equal(16)
			g.Assert(h.Key(url) == Key(url)).IsFalse()
		})

		g.It("Should produce stable fallback keys", func() {
			g.Assert(fallbackKey("")).Equal("cbf29ce484222325")
		})
	})
}
