package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"waitlist-referral-system/models"
	"waitlist-referral-system/storage/storagetest"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testEpoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// steppingClock advances by step on every reading so rows written in
// sequence get strictly increasing timestamps.
func steppingClock(start time.Time, step time.Duration) Clock {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(step)
		return now
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

type testEnv struct {
	DB          *gorm.DB
	Waitlist    *WaitlistService
	Attribution *AttributionEngine
	Points      *PointsService
	Events      *EventService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := storagetest.NewDB(t)
	clock := steppingClock(testEpoch, time.Second)

	codes := NewCodeGenerator()
	codes.Now = clock
	attribution := NewAttributionEngine(db)
	attribution.Now = clock
	events := NewEventService(db)
	events.Now = clock
	waitlist := NewWaitlistService(db, codes, attribution, events)
	waitlist.Now = clock

	return &testEnv{
		DB:          db,
		Waitlist:    waitlist,
		Attribution: attribution,
		Points:      NewPointsService(db),
		Events:      events,
	}
}

func (e *testEnv) join(t *testing.T, name, email string, ref *string) *JoinResult {
	t.Helper()
	res, err := e.Waitlist.Join(context.Background(), JoinRequest{Name: name, Email: email, Ref: ref})
	require.NoError(t, err)
	return res
}

func (e *testEnv) count(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := e.DB.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func (e *testEnv) participant(t *testing.T, email string) models.Participant {
	t.Helper()
	var p models.Participant
	require.NoError(t, e.DB.Where("email_ci = ?", email).First(&p).Error)
	return p
}

func strPtr(s string) *string { return &s }
