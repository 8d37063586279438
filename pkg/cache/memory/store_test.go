package memorycache

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	. "github.com/franela/goblin"
)

func lengthOf(_ string, value string) int {
	return len(value)
}

func TestMemoryStore(t *testing.T) {
	g := Goblin(t)

	g.Describe("Store", func() {
		g.It("Should return nothing for unknown key", func() {
			store := New(10, lengthOf)

			_, found := store.Get("unknown")

			g.Assert(found).IsFalse()
		})

		g.It("Should return value that was put", func() {
			store := New(10, lengthOf)

			store.Put("a", "aaa")
			value, found := store.Get("a")

			g.Assert(found).IsTrue()
			g.Assert(value).Equal("aaa")
			g.Assert(store.Size()).Equal(3)
		})

		g.It("Should never overwrite existing entry", func() {
			store := New(10, lengthOf)

			g.Assert(store.Put("a", "first")).IsTrue()
			g.Assert(store.Put("a", "second")).IsFalse()

			value, _ := store.Get("a")
			g.Assert(value).Equal("first")
			g.Assert(store.Size()).Equal(5)
		})

		g.It("Should evict least recently put entry when over budget", func() {
			store := New(10, lengthOf)

			store.Put("a", "aaaa")
			store.Put("b", "bbbb")
			store.Put("c", "cccc")

			_, foundA := store.Get("a")
			_, foundB := store.Get("b")
			_, foundC := store.Get("c")

			g.Assert(foundA).IsFalse()
			g.Assert(foundB).IsTrue()
			g.Assert(foundC).IsTrue()
			g.Assert(store.Size()).Equal(8)
		})

		g.It("Should treat get as access when choosing eviction victim", func() {
			store := New(10, lengthOf)

			store.Put("a", "aaaa")
			store.Put("b", "bbbb")
			store.Get("a")
			store.Put("c", "cccc")

			_, foundA := store.Get("a")
			_, foundB := store.Get("b")

			g.Assert(foundA).IsTrue()
			g.Assert(foundB).IsFalse()
		})

		g.It("Should drop entry larger than the whole budget", func() {
			store := New(10, lengthOf)

			store.Put("huge", "0123456789abc")

			g.Assert(store.Len()).Equal(0)
			g.Assert(store.Size()).Equal(0)
		})

		g.It("Should remove entry", func() {
			store := New(10, lengthOf)
			store.Put("a", "aaa")

			g.Assert(store.Remove("a")).IsTrue()
			g.Assert(store.Remove("a")).IsFalse()
			g.Assert(store.Size()).Equal(0)
		})

		g.It("Should never exceed budget after any sequence of puts", func() {
			store := New(64, lengthOf)
			random := rand.New(rand.NewSource(42))

			for i := 0; i < 1000; i++ {
				key := fmt.Sprintf("key-%d", random.Intn(100))
				value := make([]byte, random.Intn(20))
				store.Put(key, string(value))

				if store.Size() > store.MaxSize() {
					g.Fail(fmt.Sprintf("size %d exceeds budget %d", store.Size(), store.MaxSize()))
				}
			}
		})

		g.It("Should be safe for concurrent use", func() {
			store := New(100, lengthOf)
			wg := sync.WaitGroup{}

			for worker := 0; worker < 8; worker++ {
				wg.Add(1)
				go func(worker int) {
					defer wg.Done()
					for i := 0; i < 200; i++ {
						key := fmt.Sprintf("%d-%d", worker, i%20)
						store.Put(key, "value")
						store.Get(key)
					}
				}(worker)
			}

			wg.Wait()
			g.Assert(store.Size() <= 100).IsTrue()
		})
	})
}
