package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"waitlist-referral-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/gosimple/unidecode"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// CodeMaxLen bounds every canonical code, stored or looked up.
	CodeMaxLen = 24

	codePrefixLen      = 8
	codeSuffixLen      = 6
	fallbackCodeLen    = 16
	codeInsertAttempts = 5

	// No 0/o, 1/l/i: codes get read aloud and retyped from screenshots.
	codeAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// ErrCodeSpaceExhausted means every candidate, including the random
// fallback, collided with an existing code.
var ErrCodeSpaceExhausted = errors.New("could not allocate a unique referral code")

// Normalize canonicalizes an externally supplied referral code. It is the
// only definition of code equality: URL paths, join bodies and share links
// all pass through it before comparison. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonAlnum.ReplaceAllString(s, "")
	if len(s) > CodeMaxLen {
		s = s[:CodeMaxLen]
	}
	return s
}

// codeCandidate is a code to attempt, in canonical and display form.
type codeCandidate struct {
	Code    string
	Display string
}

// codePrefix derives the shareable part of a code from an email local part.
// Non-ASCII letters are transliterated here, never in Normalize.
func codePrefix(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	prefix := Normalize(slug.Make(unidecode.Unidecode(local)))
	if len(prefix) > codePrefixLen {
		prefix = prefix[:codePrefixLen]
	}
	if prefix == "" {
		return "user"
	}
	return prefix
}

func newCodeCandidate(prefix string, rnd io.Reader) (codeCandidate, error) {
	suffix, err := randomCode(rnd, codeSuffixLen)
	if err != nil {
		return codeCandidate{}, err
	}
	return codeCandidate{Code: prefix + suffix, Display: prefix + "-" + suffix}, nil
}

func fallbackCodeCandidate(rnd io.Reader) (codeCandidate, error) {
	code, err := randomCode(rnd, fallbackCodeLen)
	if err != nil {
		return codeCandidate{}, err
	}
	return codeCandidate{Code: code, Display: code}, nil
}

// randomCode draws n characters from codeAlphabet, rejecting bytes that
// would bias the distribution.
func randomCode(rnd io.Reader, n int) (string, error) {
	const limit = 256 - 256%len(codeAlphabet)
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := io.ReadFull(rnd, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// CodeGenerator assigns each participant exactly one referral code.
type CodeGenerator struct {
	Rand io.Reader
	Now  Clock
	log  *logrus.Entry
}

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{Rand: rand.Reader, log: componentLogger("referral_code")}
}

// GenerateCode returns the participant's code, creating it on first call.
// It must run inside the join transaction.
func (g *CodeGenerator) GenerateCode(tx *gorm.DB, participantID, emailSeed string) (*models.ReferralCode, error) {
	existing, err := findCodeByParticipant(tx, participantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	prefix := codePrefix(emailSeed)
	for attempt := 1; attempt <= codeInsertAttempts; attempt++ {
		cand, err := newCodeCandidate(prefix, g.Rand)
		if err != nil {
			return nil, err
		}
		rc, err := g.insertCandidate(tx, participantID, cand)
		if err != nil {
			return nil, err
		}
		if rc != nil {
			return rc, nil
		}
		g.log.WithField("attempt", attempt).Debug("referral code collision, retrying")
	}

	cand, err := fallbackCodeCandidate(g.Rand)
	if err != nil {
		return nil, err
	}
	rc, err := g.insertCandidate(tx, participantID, cand)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, ErrCodeSpaceExhausted
	}
	g.log.WithField("participant_id", participantID).Warn("referral code prefix exhausted, used random fallback")
	return rc, nil
}

// insertCandidate returns the participant's code if the insert won or a
// concurrent join already created one, and nil when the candidate collided.
func (g *CodeGenerator) insertCandidate(tx *gorm.DB, participantID string, cand codeCandidate) (*models.ReferralCode, error) {
	rc := &models.ReferralCode{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		Code:          cand.Code,
		Display:       cand.Display,
		CreatedAt:     g.Now.now(),
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rc)
	if res.Error != nil {
		return nil, fmt.Errorf("insert referral code: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return rc, nil
	}
	return findCodeByParticipant(tx, participantID)
}

func findCodeByParticipant(tx *gorm.DB, participantID string) (*models.ReferralCode, error) {
	var rc models.ReferralCode
	err := tx.Where("participant_id = ?", participantID).First(&rc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup referral code for participant: %w", err)
	}
	return &rc, nil
}

// FindCode resolves a raw code to its row, or nil if no participant owns it.
func FindCode(tx *gorm.DB, raw string) (*models.ReferralCode, error) {
	code := Normalize(raw)
	if code == "" {
		return nil, nil
	}
	var rc models.ReferralCode
	err := tx.Where("code = ?", code).First(&rc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup referral code %q: %w", code, err)
	}
	return &rc, nil
}
