package pricing

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const historyBucketName = "valuations"

// History records every fresh valuation so price movement can be inspected
// later. Cached hits are not recorded; they carry no new information.
type History interface {
	// SaveValuation appends a valuation under its cache key.
	SaveValuation(key string, v *Valuation) error

	// ListValuations returns all recorded valuations for a key, oldest
	// first.
	ListValuations(key string) ([]*Valuation, error)

	// Close closes the underlying store.
	Close() error
}

// BoltHistory implements History on a bbolt file: one nested bucket per
// card key, entries keyed by fetch timestamp.
type BoltHistory struct {
	db *bbolt.DB
}

// NewBoltHistory opens (or creates) the history database at path.
func NewBoltHistory(path string) (*BoltHistory, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(historyBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history bucket: %w", err)
	}

	return &BoltHistory{db: db}, nil
}

// SaveValuation appends a valuation under its cache key.
func (b *BoltHistory) SaveValuation(key string, v *Valuation) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(historyBucketName))
		bucket, err := root.CreateBucketIfNotExists([]byte(key))
		if err != nil {
			return fmt.Errorf("creating card bucket: %w", err)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling valuation: %w", err)
		}
		// RFC 3339 timestamps sort chronologically as bytes, so bbolt's
		// key order doubles as time order.
		return bucket.Put([]byte(v.FetchedAt.UTC().Format(time.RFC3339Nano)), data)
	})
}

// ListValuations returns all recorded valuations for a key, oldest first.
func (b *BoltHistory) ListValuations(key string) ([]*Valuation, error) {
	valuations := make([]*Valuation, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(historyBucketName))
		bucket := root.Bucket([]byte(key))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, data []byte) error {
			var v Valuation
			if err := json.Unmarshal(data, &v); err != nil {
				return fmt.Errorf("unmarshaling valuation: %w", err)
			}
			valuations = append(valuations, &v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return valuations, nil
}

// Close closes the underlying store.
func (b *BoltHistory) Close() error {
	return b.db.Close()
}
