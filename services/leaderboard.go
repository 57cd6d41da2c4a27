package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"waitlist-referral-system/models"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	LeaderboardMaxLimit     = 100
	LeaderboardDefaultLimit = 50
	LeaderboardTTL          = 60 * time.Second
)

const signupCountSubquery = `COALESCE((
	SELECT COUNT(*)
	FROM referral_events re
	JOIN referral_codes rc ON rc.id = re.referral_code_id
	WHERE rc.participant_id = p.id AND re.kind = 'signup'
), 0)`

var leaderboardQuery = fmt.Sprintf(`
SELECT p.id AS participant_id,
       p.name AS name,
       p.email AS email,
       p.verified_at AS verified_at,
       w.created_at AS joined_at,
       %[1]s AS referrals
FROM participants p
JOIN waitlist_memberships w ON w.participant_id = p.id
ORDER BY (%[2]d + CASE WHEN p.verified_at IS NOT NULL THEN %[3]d ELSE 0 END + %[4]d * %[1]s) DESC,
         w.created_at ASC,
         p.id ASC
LIMIT ?`, signupCountSubquery, BasePoints, VerifiedPoints, ReferralPoints)

// LeaderboardService ranks every waitlist member by derived points. The
// ranked list is cached globally for TTL and only refreshed on expiry;
// writes never invalidate it.
type LeaderboardService struct {
	DB  *gorm.DB
	TTL time.Duration
	Now Clock

	mu      sync.RWMutex
	entries []models.LeaderboardEntry
	expires time.Time

	refresh singleflight.Group
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db, TTL: LeaderboardTTL}
}

// ClampLimit maps a requested size onto [1, LeaderboardMaxLimit],
// defaulting non-positive requests.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return LeaderboardDefaultLimit
	}
	if limit > LeaderboardMaxLimit {
		return LeaderboardMaxLimit
	}
	return limit
}

// Top returns the first limit entries, served from cache when fresh.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	limit = ClampLimit(limit)

	if entries, ok := s.cached(); ok {
		leaderboardCache.WithLabelValues("hit").Inc()
		return head(entries, limit), nil
	}
	leaderboardCache.WithLabelValues("miss").Inc()

	v, err, _ := s.refresh.Do("top", func() (interface{}, error) {
		if entries, ok := s.cached(); ok {
			return entries, nil
		}
		// Waiters share this refresh; one caller's cancellation must not fail them all.
		entries, err := s.Compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.entries = entries
		s.expires = s.Now.now().Add(s.TTL)
		s.mu.Unlock()
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return head(v.([]models.LeaderboardEntry), limit), nil
}

// Compute ranks participants straight from the store, bypassing the cache.
func (s *LeaderboardService) Compute(ctx context.Context) ([]models.LeaderboardEntry, error) {
	var rows []models.LeaderboardRow
	if err := s.DB.WithContext(ctx).Raw(leaderboardQuery, LeaderboardMaxLimit).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}

	for i := range rows {
		rows[i].Points = CalculatePoints(true, rows[i].VerifiedAt != nil, rows[i].Referrals).Total
	}
	RankRows(rows)

	entries := make([]models.LeaderboardEntry, len(rows))
	for i, r := range rows {
		entries[i] = models.LeaderboardEntry{
			FirstName:   models.FirstName(r.Name),
			EmailMasked: models.MaskEmail(r.Email),
			Points:      r.Points,
			Referrals:   r.Referrals,
			JoinedAt:    r.JoinedAt.UTC(),
		}
	}
	return entries, nil
}

// RankRows orders rows by points descending, then earliest join, then id.
func RankRows(rows []models.LeaderboardRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.ParticipantID < b.ParticipantID
	})
}

func (s *LeaderboardService) cached() ([]models.LeaderboardEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entries == nil || !s.Now.now().Before(s.expires) {
		return nil, false
	}
	return s.entries, true
}

func head(entries []models.LeaderboardEntry, limit int) []models.LeaderboardEntry {
	if limit > len(entries) {
		limit = len(entries)
	}
	out := make([]models.LeaderboardEntry, limit)
	copy(out, entries)
	return out
}
