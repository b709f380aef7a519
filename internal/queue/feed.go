package queue

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/smukkama/envdash-server/internal/metrics"
	"github.com/smukkama/envdash-server/internal/protocol"
)

const (
	feedQueueSize     = 16
	feedStatsInterval = 1 * time.Minute
)

// Publisher is the producer surface the feed needs. Satisfied by Producer.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// SnapshotFeed publishes chart updates to the snapshot topic off the hot
// path, so a slow broker never blocks a toggle or a refresh. Charts only
// care about the latest snapshot, so when the queue is full the oldest
// pending update is dropped in favor of the newest.
type SnapshotFeed struct {
	producer Publisher
	updates  chan *protocol.SnapshotMessage
	stopCh   chan struct{}
	wg       sync.WaitGroup

	mu        sync.Mutex
	published int64
	dropped   int64
	failed    int64
}

// FeedStats contains snapshot feed statistics
type FeedStats struct {
	Published int64
	Dropped   int64
	Failed    int64
}

// NewSnapshotFeed creates a new snapshot feed worker
func NewSnapshotFeed(producer Publisher) *SnapshotFeed {
	return &SnapshotFeed{
		producer: producer,
		updates:  make(chan *protocol.SnapshotMessage, feedQueueSize),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the feed worker
func (f *SnapshotFeed) Start(ctx context.Context) {
	f.wg.Add(1)
	go f.run(ctx)
	log.Printf("Snapshot feed started (queue size: %d)", feedQueueSize)
}

// Stop drains pending updates and stops the feed worker
func (f *SnapshotFeed) Stop() {
	close(f.stopCh)
	f.wg.Wait()
	log.Println("Snapshot feed stopped")
}

// Offer enqueues a snapshot for publishing without blocking the caller.
// When the queue is full, the oldest pending update is discarded.
func (f *SnapshotFeed) Offer(msg *protocol.SnapshotMessage) {
	for {
		select {
		case f.updates <- msg:
			return
		default:
		}

		select {
		case <-f.updates:
			f.mu.Lock()
			f.dropped++
			f.mu.Unlock()
		default:
		}
	}
}

// Stats returns feed statistics
func (f *SnapshotFeed) Stats() FeedStats {
	f.mu.Lock()
	defer f.mu.Unlock()

	return FeedStats{
		Published: f.published,
		Dropped:   f.dropped,
		Failed:    f.failed,
	}
}

func (f *SnapshotFeed) run(ctx context.Context) {
	defer f.wg.Done()

	ticker := time.NewTicker(feedStatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopCh:
			// Drain pending updates before stopping
			for {
				select {
				case msg := <-f.updates:
					f.publish(ctx, msg)
				default:
					return
				}
			}

		case <-ticker.C:
			stats := f.Stats()
			if stats.Published > 0 || stats.Dropped > 0 || stats.Failed > 0 {
				log.Printf("Snapshot feed: %d published, %d dropped, %d failed",
					stats.Published, stats.Dropped, stats.Failed)
			}

		case msg := <-f.updates:
			f.publish(ctx, msg)
		}
	}
}

// publish sends one snapshot to the broker. Failures are logged and
// counted; the dashboard keeps serving subscribers regardless.
func (f *SnapshotFeed) publish(ctx context.Context, msg *protocol.SnapshotMessage) {
	data, err := protocol.EncodeSnapshotMessage(msg)
	if err != nil {
		log.Printf("Chart update encode failed for snapshot %s: %v", msg.SnapshotID, err)
		f.recordFailure()
		return
	}

	if err := f.producer.Publish(ctx, msg.SnapshotID, data); err != nil {
		log.Printf("Chart update publish failed for snapshot %s: %v", msg.SnapshotID, err)
		f.recordFailure()
		return
	}

	f.mu.Lock()
	f.published++
	f.mu.Unlock()
}

func (f *SnapshotFeed) recordFailure() {
	metrics.ChartUpdateFailuresTotal.Inc()

	f.mu.Lock()
	f.failed++
	f.mu.Unlock()
}
