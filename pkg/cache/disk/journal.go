package diskcache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	journalFileName = "journal.bson"
	journalVersion  = 1
)

type journal struct {
	Version int            `bson:"version"`
	Entries []journalEntry `bson:"entries"` // least recently used first
}

type journalEntry struct {
	Key  string `bson:"key"`
	Size int64  `bson:"size"`
}

// Flush durably persists the index of committed blobs and their recency.
// It is a no-op when nothing changed since the previous flush.
func (s *Store) Flush() error {
	s.flushLock.Lock()
	defer s.flushLock.Unlock()

	s.lock.Lock()
	if !s.dirty {
		s.lock.Unlock()
		return nil
	}

	snapshot := journal{
		Version: journalVersion,
		Entries: make([]journalEntry, 0, len(s.entries)),
	}
	for element := s.recency.Back(); element != nil; element = element.Prev() {
		e := element.Value.(*entry)
		snapshot.Entries = append(snapshot.Entries, journalEntry{e.key, e.size})
	}
	s.dirty = false
	s.lock.Unlock()

	if err := s.writeJournal(snapshot); err != nil {
		s.lock.Lock()
		s.dirty = true
		s.lock.Unlock()
		return err
	}

	return nil
}

func (s *Store) writeJournal(snapshot journal) error {
	data, err := bson.Marshal(snapshot)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "journal-*"+tempSuffix)
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, filepath.Join(s.dir, journalFileName)); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return nil
}

func (s *Store) readJournal() (journal, error) {
	var loaded journal

	data, err := os.ReadFile(filepath.Join(s.dir, journalFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return loaded, nil
	}
	if err != nil {
		return loaded, err
	}

	if err := bson.Unmarshal(data, &loaded); err != nil || loaded.Version != journalVersion {
		s.logger.Printf("journal at %s is unreadable, starting with empty cache", s.dir)
		return journal{}, nil
	}

	return loaded, nil
}

// replayJournal rebuilds the index from the journal, keeping only entries
// whose blob is present with the recorded size. Orphan blobs and leftover
// temporary files are removed. The keys evicted to fit the budget are
// returned for removeBlobs.
func (s *Store) replayJournal() ([]string, error) {
	loaded, err := s.readJournal()
	if err != nil {
		return nil, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	for _, record := range loaded.Entries {
		if validateKey(record.Key) != nil {
			s.dirty = true
			continue
		}
		if _, exists := s.entries[record.Key]; exists {
			s.dirty = true
			continue
		}

		info, err := os.Stat(s.blobPath(record.Key))
		if err != nil || !info.Mode().IsRegular() || info.Size() != record.Size {
			s.dirty = true
			continue
		}

		s.entries[record.Key] = s.recency.PushFront(&entry{record.Key, record.Size})
		s.size += record.Size
	}

	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		name := file.Name()
		if name == journalFileName || !file.Type().IsRegular() {
			continue
		}

		_, indexed := s.entries[name]
		if indexed && !strings.HasSuffix(name, tempSuffix) {
			continue
		}

		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Printf("cannot remove stale file %s: %s", name, err)
		}
	}

	return s.trimToSize(""), nil
}
