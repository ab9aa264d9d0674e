// Package fanout mirrors room snapshots to Redis so other platform
// processes can read the latest state or follow a room's channel.
package fanout

import (
	"context"
	"encoding/json"
	"expvar"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"stake-arena/internal/match"
)

const (
	defaultQueueSize = 256
	defaultTTL       = time.Hour
	writeTimeout     = 2 * time.Second
)

var (
	metricMirrorDropped = expvar.NewInt("snapshot_mirror_dropped_total")
	metricMirrorErrors  = expvar.NewInt("snapshot_mirror_errors_total")
)

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func SnapshotKey(roomID string) string {
	return "room:" + roomID + ":snapshot"
}

func Channel(roomID string) string {
	return "room:" + roomID
}

// RedisMirror is a match.SnapshotSink. PublishSnapshot only enqueues; a
// single worker writes in publish order.
type RedisMirror struct {
	client *redis.Client
	ttl    time.Duration
	queue  chan match.Snapshot

	once sync.Once
	wg   sync.WaitGroup
}

func NewRedisMirror(client *redis.Client, ttl time.Duration, queueSize int) *RedisMirror {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	m := &RedisMirror{
		client: client,
		ttl:    ttl,
		queue:  make(chan match.Snapshot, queueSize),
	}
	m.wg.Add(1)
	go m.run()
	return m
}

func (m *RedisMirror) PublishSnapshot(s match.Snapshot) {
	select {
	case m.queue <- s:
	default:
		metricMirrorDropped.Add(1)
		log.Warn().Str("room_id", s.RoomID).Int64("seq", s.Seq).Msg("snapshot mirror queue full, dropped")
	}
}

func (m *RedisMirror) run() {
	defer m.wg.Done()
	for s := range m.queue {
		if err := m.write(s); err != nil {
			metricMirrorErrors.Add(1)
			log.Warn().Err(err).Str("room_id", s.RoomID).Int64("seq", s.Seq).Msg("snapshot mirror write failed")
		}
	}
}

func (m *RedisMirror) write(s match.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_, err = m.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, SnapshotKey(s.RoomID), data, m.ttl)
		p.Publish(ctx, Channel(s.RoomID), data)
		return nil
	})
	return err
}

// Close flushes queued snapshots and stops the worker. PublishSnapshot must
// not be called afterwards.
func (m *RedisMirror) Close() {
	m.once.Do(func() {
		close(m.queue)
		m.wg.Wait()
	})
}
