// Package bolt persists denial records in a bbolt database so they survive
// restarts and can be reviewed with the audit command.
//
// Record never touches the disk. Denials are queued and a single writer
// goroutine commits them in batches, so the filter's interception callbacks
// do not wait on fsync or on each other.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/rr-webgate/internal/webgate/common/log"
	"github.com/haukened/rr-webgate/internal/webgate/domain"
	"github.com/haukened/rr-webgate/internal/webgate/services/filter"
)

var (
	bucketDenials = []byte("denials")
	bucketReasons = []byte("reasons")
)

// DefaultQueueSize is the number of denials buffered ahead of the writer.
const DefaultQueueSize = 1024

var (
	// ErrQueueFull is returned when a denial is dropped because the writer
	// is behind. The drop is counted in Stats.
	ErrQueueFull = errors.New("audit queue full")
	// ErrClosed is returned by Record after Close.
	ErrClosed = errors.New("audit store closed")
)

// Options configures a Store.
type Options struct {
	QueueSize int        // defaults to DefaultQueueSize
	Logger    log.Logger // defaults to the global logger
}

// Store implements filter.AuditSink using bbolt. Records are keyed by a
// monotonically increasing sequence so cursor order is arrival order.
type Store struct {
	db     *bbolt.DB
	logger log.Logger

	queue   chan domain.Denial
	flushes chan chan error
	stop    chan struct{}
	done    chan struct{}

	closed    atomic.Bool
	dropped   atomic.Uint64
	closeOnce sync.Once
	closeErr  error
}

// Stats captures high-level counts for the audit store.
type Stats struct {
	Total    uint64
	ByReason map[string]uint64
	Dropped  uint64 // denials lost to a full queue since Open
}

// New opens (or creates) a Bolt database at path, ensures buckets exist and
// starts the writer.
func New(path string, opts Options) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open audit db %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketDenials, bucketReasons} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.GetLogger()
	}
	s := &Store{
		db:      db,
		logger:  logger,
		queue:   make(chan domain.Denial, size),
		flushes: make(chan chan error),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Record queues a denial without blocking.
func (s *Store) Record(d domain.Denial) error {
	if s.closed.Load() {
		return ErrClosed
	}
	select {
	case s.queue <- d:
		return nil
	default:
		s.dropped.Add(1)
		return ErrQueueFull
	}
}

// Flush waits until every denial queued before the call is committed.
func (s *Store) Flush() error {
	ack := make(chan error, 1)
	select {
	case s.flushes <- ack:
		return <-ack
	case <-s.done:
		return nil
	}
}

// Close drains the queue, stops the writer and closes the database.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stop)
		<-s.done
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func (s *Store) run() {
	defer close(s.done)
	for {
		select {
		case d := <-s.queue:
			_ = s.write(s.drain(d))
		case ack := <-s.flushes:
			ack <- s.write(s.drain())
		case <-s.stop:
			_ = s.write(s.drain())
			return
		}
	}
}

// drain collects whatever is buffered right now, after the given records.
func (s *Store) drain(first ...domain.Denial) []domain.Denial {
	batch := first
	for {
		select {
		case d := <-s.queue:
			batch = append(batch, d)
		default:
			return batch
		}
	}
}

// write commits a batch in one transaction and bumps the per-reason counters.
func (s *Store) write(batch []domain.Denial) error {
	if len(batch) == 0 {
		return nil
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDenials)
		r := tx.Bucket(bucketReasons)
		counts := make(map[string]uint64)
		for _, d := range batch {
			val, err := json.Marshal(d)
			if err != nil {
				return err
			}
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			if err := b.Put(u64(seq), val); err != nil {
				return err
			}
			counts[d.Reason]++
		}
		for reason, n := range counts {
			var cur uint64
			if v := r.Get([]byte(reason)); len(v) == 8 {
				cur = binary.BigEndian.Uint64(v)
			}
			if err := r.Put([]byte(reason), u64(cur+n)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn(map[string]any{"error": err.Error(), "records": len(batch)}, "failed to persist denials")
	}
	return err
}

// List returns up to limit denials, newest first. limit <= 0 returns all.
// Queued denials are committed first.
func (s *Store) List(limit int) ([]domain.Denial, error) {
	if err := s.Flush(); err != nil {
		return nil, err
	}
	var out []domain.Denial
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketDenials).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var d domain.Denial
			if err := json.Unmarshal(v, &d); err != nil {
				return fmt.Errorf("decode denial %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, d)
		}
		return nil
	})
	return out, err
}

// Stats returns the total number of records, per-reason counts and drops.
// Queued denials are committed first.
func (s *Store) Stats() Stats {
	_ = s.Flush()
	st := Stats{ByReason: make(map[string]uint64), Dropped: s.dropped.Load()}
	_ = s.db.View(func(tx *bbolt.Tx) error {
		st.Total = uint64(tx.Bucket(bucketDenials).Stats().KeyN)
		return tx.Bucket(bucketReasons).ForEach(func(k, v []byte) error {
			if len(v) == 8 {
				st.ByReason[string(k)] = binary.BigEndian.Uint64(v)
			}
			return nil
		})
	})
	return st
}

func u64(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

var _ filter.AuditSink = (*Store)(nil)
