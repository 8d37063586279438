package diskcache

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"
)

// Writer streams a blob into a temporary file. Nothing is visible under the
// key until Commit; Abort discards everything written.
type Writer struct {
	store   *Store
	key     string
	file    *os.File
	written int64
	done    bool
	lock    sync.Mutex
}

var _ io.Writer = (*Writer)(nil)

func (w *Writer) Write(p []byte) (n int, err error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.done {
		return 0, ErrWriterClosed
	}

	n, err = w.file.Write(p)
	w.written += int64(n)
	return
}

// Commit makes the written blob visible under the key, marks it as most
// recently used and evicts old entries if the store went over budget.
func (w *Writer) Commit() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.done {
		return ErrWriterClosed
	}
	w.done = true
	defer w.store.releaseWrite(w.key)

	tempPath := w.file.Name()
	if err := w.file.Close(); err != nil {
		_ = os.Remove(tempPath)
		return err
	}

	return w.store.commit(w.key, tempPath, w.written)
}

// Abort discards the written bytes, leaving the previous state of the key
// untouched.
func (w *Writer) Abort() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.done {
		return ErrWriterClosed
	}
	w.done = true
	defer w.store.releaseWrite(w.key)

	_ = w.file.Close()
	if err := os.Remove(w.file.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	// A Remove or eviction during the write left the old blob to us.
	w.store.discardUnindexed(w.key)
	return nil
}

func (w *Writer) Key() string {
	return w.key
}

// Snapshot is a read handle to a committed blob.
type Snapshot struct {
	key  string
	size int64
	file *os.File
}

var _ io.ReadSeekCloser = (*Snapshot)(nil)

func (s *Snapshot) Key() string {
	return s.key
}

func (s *Snapshot) Size() int64 {
	return s.size
}

func (s *Snapshot) Read(p []byte) (int, error) {
	return s.file.Read(p)
}

func (s *Snapshot) Seek(offset int64, whence int) (int64, error) {
	return s.file.Seek(offset, whence)
}

func (s *Snapshot) Close() error {
	return s.file.Close()
}
