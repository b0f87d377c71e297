// Package diagstore persists latency samples to an embedded bbolt database
// so a long-running peer's RTT/offset history survives process restarts
// and can be inspected after the fact.
//
// Nothing in the teacher's kept packages touches a database — bbolt is
// adopted purely from the rest of the example pack (go.etcd.io/bbolt is in
// the teacher's go.mod as an indirect dependency of its discovery/ and
// hypervisor/ trees, which this module doesn't otherwise have a use for
// after they were trimmed) to give the connection latency engine's output
// a durable home, per the domain-stack wiring goal.
package diagstore

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/nexbridge/wiretransport/pkg/transport"
)

var samplesBucket = []byte("latency_samples")

// Sample is one RTT/offset observation recorded for a connection.
type Sample struct {
	ConnectionID     string    `json:"connection_id"`
	RTT              float64   `json:"rtt"`
	MinRTT           float64   `json:"min_rtt"`
	RemoteTimeOffset float64   `json:"remote_time_offset"`
	ObservedAt       time.Time `json:"observed_at"`
}

// Store is an append-only log of latency samples backed by a bbolt file.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the bbolt database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open diagstore db")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(samplesBucket)
		return err
	})
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, errors.Wrap(err, "create samples bucket")
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Append records a new sample, keyed by a monotonically increasing
// sequence number so iteration preserves insertion order.
func (s *Store) Append(sample Sample) error {
	raw, err := json.Marshal(sample)
	if err != nil {
		return errors.Wrap(err, "marshal sample")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(samplesBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, raw)
	})
}

// Sink adapts a *Store into transport.DiagSink, so a UDPPeer can be told to
// persist every latency sample without pkg/transport importing this
// package directly.
type Sink struct {
	store *Store
}

// NewSink wraps store as a transport.DiagSink.
func NewSink(store *Store) Sink { return Sink{store: store} }

// Append implements transport.DiagSink.
func (s Sink) Append(sample transport.DiagSample) error {
	return s.store.Append(Sample{
		ConnectionID:     sample.ConnectionID,
		RTT:              sample.RTT,
		MinRTT:           sample.MinRTT,
		RemoteTimeOffset: sample.RemoteTimeOffset,
		ObservedAt:       sample.ObservedAt,
	})
}

// Recent returns up to limit of the most recently appended samples for
// connID, newest first.
func (s *Store) Recent(connID string, limit int) ([]Sample, error) {
	var out []Sample
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(samplesBucket).Cursor()
		for k, v := c.Last(); k != nil && len(out) < limit; k, v = c.Prev() {
			var sample Sample
			if err := json.Unmarshal(v, &sample); err != nil {
				return errors.Wrap(err, "unmarshal sample")
			}
			if sample.ConnectionID == connID {
				out = append(out, sample)
			}
		}
		return nil
	})
	return out, err
}
