package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"xmblvault/core/types"
)

var bucketEntries = []byte("entries")

// ErrClosed is returned when the journal handle has been closed.
var ErrClosed = errors.New("journal: closed")

// Entry is one appended ledger event. Seq is assigned by the journal and is
// strictly increasing, so an indexer can resume from a cursor after restart.
type Entry struct {
	ID         string            `json:"id"`
	Seq        uint64            `json:"seq"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	RecordedAt time.Time         `json:"recordedAt"`
}

// Journal persists ledger events in an append-only BoltDB log.
type Journal struct {
	db *bolt.DB
}

// Open initialises (and migrates) the BoltDB-backed journal.
func Open(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Close releases the underlying Bolt database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Append records an event and returns the persisted entry.
func (j *Journal) Append(evt *types.Event) (*Entry, error) {
	if j == nil || j.db == nil {
		return nil, ErrClosed
	}
	if evt == nil {
		return nil, errors.New("journal: nil event")
	}
	payload := evt.Clone()
	entry := &Entry{
		ID:         uuid.NewString(),
		Type:       payload.Type,
		Attributes: payload.Attributes,
		RecordedAt: time.Now().UTC(),
	}
	err := j.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketEntries)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		entry.Seq = seq
		encoded, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return bucket.Put(seqKey(seq), encoded)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ReplayFrom invokes fn for every entry with a sequence strictly greater than
// cursor, in order. A cursor of zero replays the full log.
func (j *Journal) ReplayFrom(cursor uint64, fn func(*Entry) error) error {
	if j == nil || j.db == nil {
		return ErrClosed
	}
	return j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEntries).Cursor()
		for key, value := c.Seek(seqKey(cursor + 1)); key != nil; key, value = c.Next() {
			var entry Entry
			if err := json.Unmarshal(value, &entry); err != nil {
				return err
			}
			if err := fn(&entry); err != nil {
				return err
			}
		}
		return nil
	})
}

// LastSeq returns the sequence of the newest entry, zero when empty.
func (j *Journal) LastSeq() (uint64, error) {
	if j == nil || j.db == nil {
		return 0, ErrClosed
	}
	var last uint64
	err := j.db.View(func(tx *bolt.Tx) error {
		last = tx.Bucket(bucketEntries).Sequence()
		return nil
	})
	return last, err
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
