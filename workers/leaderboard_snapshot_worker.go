package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"waitlist-referral-system/models"

	"github.com/sirupsen/logrus"
)

const (
	LeaderboardSnapshotKey = "leaderboard/top.json"
	snapshotCacheControl   = "public, max-age=60"
)

// LeaderboardSource yields the current public leaderboard.
type LeaderboardSource interface {
	Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// ObjectPublisher stores a public object and returns its URL.
type ObjectPublisher interface {
	PutObject(ctx context.Context, key string, body []byte, contentType, cacheControl string) (string, error)
}

// LeaderboardSnapshot is the document published for CDN consumers.
type LeaderboardSnapshot struct {
	GeneratedAt time.Time                 `json:"generatedAt"`
	Entries     []models.LeaderboardEntry `json:"entries"`
}

// LeaderboardSnapshotWorker periodically publishes the cached leaderboard
// as a static JSON object so read traffic can be served from the CDN.
type LeaderboardSnapshotWorker struct {
	Source    LeaderboardSource
	Publisher ObjectPublisher
	Interval  time.Duration
	Limit     int
	Now       func() time.Time
	log       *logrus.Entry
}

func NewLeaderboardSnapshotWorker(source LeaderboardSource, publisher ObjectPublisher, interval time.Duration) *LeaderboardSnapshotWorker {
	return &LeaderboardSnapshotWorker{
		Source:    source,
		Publisher: publisher,
		Interval:  interval,
		Limit:     100,
		Now:       time.Now,
		log:       logrus.WithField("component", "leaderboard_snapshot"),
	}
}

// PublishOnce uploads one snapshot and returns its public URL.
func (w *LeaderboardSnapshotWorker) PublishOnce(ctx context.Context) (string, error) {
	entries, err := w.Source.Top(ctx, w.Limit)
	if err != nil {
		return "", fmt.Errorf("load leaderboard: %w", err)
	}

	body, err := json.Marshal(LeaderboardSnapshot{GeneratedAt: w.Now().UTC(), Entries: entries})
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	url, err := w.Publisher.PutObject(ctx, LeaderboardSnapshotKey, body, "application/json", snapshotCacheControl)
	if err != nil {
		return "", err
	}
	return url, nil
}

// Start publishes once immediately, then on every tick until ctx is
// cancelled. A failed publish is logged and retried on the next tick.
func (w *LeaderboardSnapshotWorker) Start(ctx context.Context) {
	w.log.WithField("interval", w.Interval.String()).Info("starting leaderboard snapshot publisher")

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.publish(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("leaderboard snapshot publisher stopped")
			return
		case <-ticker.C:
			w.publish(ctx)
		}
	}
}

func (w *LeaderboardSnapshotWorker) publish(ctx context.Context) {
	url, err := w.PublishOnce(ctx)
	if err != nil {
		w.log.WithError(err).Error("failed to publish leaderboard snapshot")
		return
	}
	w.log.WithField("url", url).Debug("published leaderboard snapshot")
}
