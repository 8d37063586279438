package diskcache

import (
	"container/list"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/thebartekbanach/imloader/pkg/storagepath"
)

const (
	defaultDirPerm = 0o700
	tempSuffix     = ".tmp"
)

// SpaceFunc reports the usable free space in bytes at dir.
type SpaceFunc func(dir string) (int64, error)

type entry struct {
	key  string
	size int64
}

// Store is a persistent key to blob store bounded by total byte size.
//
// Blobs are written through a two-phase Writer (commit or abort) and become
// visible atomically on commit. Least recently used entries are evicted
// synchronously on commit. Metadata is persisted by Flush.
type Store struct {
	dir         string
	maxBytes    int64
	dirPerm     os.FileMode
	usableSpace SpaceFunc
	logger      *log.Logger

	// lock guards the index only; blob files are opened, renamed and removed
	// outside of it, under the per-key claim in writing.
	lock    sync.Mutex
	entries map[string]*list.Element
	recency *list.List // front = most recently used
	size    int64
	writing map[string]struct{}
	dirty   bool

	flushLock sync.Mutex
}

type Option func(*Store)

// WithUsableSpace replaces the free space probe consulted by Open.
func WithUsableSpace(usableSpace SpaceFunc) Option {
	return func(s *Store) {
		s.usableSpace = usableSpace
	}
}

func WithDirPerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.dirPerm = mode
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open opens or creates the store rooted at dir.
//
// The store refuses to initialize with ErrUnavailable when the usable free
// space at dir is not strictly greater than maxBytes.
func Open(dir string, maxBytes int64, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("disk cache dir is empty")
	}
	if maxBytes <= 0 {
		return nil, errors.New("disk cache max bytes must be > 0")
	}

	s := &Store{
		dir:         dir,
		maxBytes:    maxBytes,
		dirPerm:     defaultDirPerm,
		usableSpace: storagepath.UsableSpace,
		entries:     make(map[string]*list.Element),
		recency:     list.New(),
		writing:     make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = log.New(log.Writer(), "[disk] ", log.Flags())
	}

	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return nil, err
	}

	usable, err := s.usableSpace(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: probing free space at %s: %s", ErrUnavailable, dir, err)
	}
	if usable <= maxBytes {
		return nil, fmt.Errorf("%w: %d bytes usable at %s, more than %d required", ErrUnavailable, usable, dir, maxBytes)
	}

	evicted, err := s.replayJournal()
	if err != nil {
		return nil, err
	}
	s.removeBlobs(evicted, "")

	if err := s.Flush(); err != nil {
		return nil, err
	}

	return s, nil
}

// BeginWrite starts a two-phase write of the blob stored under key.
// It fails with ErrConcurrentWrite while another writer for key is open or
// while the blob of key is being deleted.
func (s *Store) BeginWrite(key string) (*Writer, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	s.lock.Lock()
	if _, busy := s.writing[key]; busy {
		s.lock.Unlock()
		return nil, ErrConcurrentWrite
	}
	s.writing[key] = struct{}{}
	s.lock.Unlock()

	file, err := os.CreateTemp(s.dir, key+".*"+tempSuffix)
	if err != nil {
		s.releaseWrite(key)
		return nil, err
	}

	return &Writer{store: s, key: key, file: file}, nil
}

// Read returns a snapshot of the blob stored under key and marks it as
// recently used. The caller must close the snapshot.
func (s *Store) Read(key string) (*Snapshot, error) {
	s.lock.Lock()
	seen, exists := s.entries[key]
	s.lock.Unlock()

	if !exists {
		return nil, ErrEntryNotFound
	}

	file, err := os.Open(s.blobPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		s.dropMissing(key, seen)
		return nil, ErrEntryNotFound
	} else if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// The entry may have been evicted or removed while the file was opened.
	element, exists := s.entries[key]
	if !exists {
		file.Close()
		return nil, ErrEntryNotFound
	}

	s.recency.MoveToFront(element)
	s.dirty = true

	return &Snapshot{key: key, size: info.Size(), file: file}, nil
}

// dropMissing forgets an entry whose blob was deleted behind the store's
// back. Entries replaced since seen was read are kept.
func (s *Store) dropMissing(key string, seen *list.Element) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if element, exists := s.entries[key]; exists && element == seen {
		s.logger.Printf("blob of %s disappeared from disk, dropping entry", key)
		s.removeElement(element)
	}
}

// Contains reports whether key is stored, without touching its recency.
func (s *Store) Contains(key string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	_, exists := s.entries[key]
	return exists
}

// Remove deletes the blob stored under key. While a writer of key is open
// only the entry is dropped; the writer replaces or discards the file.
func (s *Store) Remove(key string) error {
	s.lock.Lock()
	element, exists := s.entries[key]
	if !exists {
		s.lock.Unlock()
		return ErrEntryNotFound
	}

	s.removeElement(element)
	if _, busy := s.writing[key]; busy {
		s.lock.Unlock()
		return nil
	}
	s.writing[key] = struct{}{}
	s.lock.Unlock()

	defer s.releaseWrite(key)

	if err := os.Remove(s.blobPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// Size returns the total size of committed blobs in bytes.
func (s *Store) Size() int64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.size
}

func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

func (s *Store) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return len(s.entries)
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Close() error {
	return s.Flush()
}

// commit must be called by the holder of the write claim on key.
func (s *Store) commit(key, tempPath string, size int64) error {
	if err := os.Rename(tempPath, s.blobPath(key)); err != nil {
		_ = os.Remove(tempPath)
		s.discardUnindexed(key)
		return err
	}

	s.lock.Lock()
	if element, exists := s.entries[key]; exists {
		e := element.Value.(*entry)
		s.size += size - e.size
		e.size = size
		s.recency.MoveToFront(element)
	} else {
		s.entries[key] = s.recency.PushFront(&entry{key, size})
		s.size += size
	}

	s.dirty = true
	evicted := s.trimToSize(key)
	s.lock.Unlock()

	s.removeBlobs(evicted, key)
	return nil
}

// discardUnindexed removes the blob of key if the index no longer refers to
// it. It must be called by the holder of the write claim on key.
func (s *Store) discardUnindexed(key string) {
	s.lock.Lock()
	_, indexed := s.entries[key]
	s.lock.Unlock()

	if indexed {
		return
	}

	if err := os.Remove(s.blobPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Printf("cannot remove blob of dropped entry %s: %s", key, err)
	}
}

func (s *Store) releaseWrite(key string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.writing, key)
}

// trimToSize drops the oldest entries until the store fits its budget and
// returns the keys whose blobs the caller must delete with removeBlobs.
// Keys other than owner are claimed for the deletion; blobs of keys with an
// open writer are left to that writer. It must be called with s.lock held.
func (s *Store) trimToSize(owner string) []string {
	var evicted []string

	for s.size > s.maxBytes {
		oldest := s.recency.Back()
		if oldest == nil {
			break
		}

		key := oldest.Value.(*entry).key
		s.removeElement(oldest)

		if key != owner {
			if _, busy := s.writing[key]; busy {
				continue
			}
			s.writing[key] = struct{}{}
		}
		evicted = append(evicted, key)
	}

	return evicted
}

// removeBlobs deletes the blobs returned by trimToSize and releases their
// claims. It must be called without s.lock held.
func (s *Store) removeBlobs(keys []string, owner string) {
	for _, key := range keys {
		if err := os.Remove(s.blobPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Printf("cannot remove evicted blob %s: %s", key, err)
		}

		if key != owner {
			s.releaseWrite(key)
		}
	}
}

// removeElement must be called with s.lock held.
func (s *Store) removeElement(element *list.Element) {
	e := s.recency.Remove(element).(*entry)
	delete(s.entries, e.key)
	s.size -= e.size
	s.dirty = true
}

func (s *Store) blobPath(key string) string {
	return filepath.Join(s.dir, key)
}

func validateKey(key string) error {
	if key == "" ||
		key != filepath.Base(key) ||
		strings.HasPrefix(key, ".") ||
		strings.HasSuffix(key, tempSuffix) ||
		key == journalFileName {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return nil
}

var (
	ErrUnavailable     = errors.New("disk cache unavailable")
	ErrConcurrentWrite = errors.New("write already in progress for this key")
	ErrEntryNotFound   = errors.New("entry not found")
	ErrWriterClosed    = errors.New("writer already committed or aborted")
	ErrInvalidKey      = errors.New("invalid cache key")
)
