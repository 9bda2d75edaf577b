package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dontwait/dontwait/internal/security"
	"github.com/dontwait/dontwait/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ConsentTable         = "cookie_consents"
	ConsentBannerVersion = "v1.0.0"
)

type ConsentDecision string

const (
	ConsentAccepted      ConsentDecision = "accepted"
	ConsentNecessaryOnly ConsentDecision = "necessary_only"
)

var ErrInvalidConsentDecision = errors.New("invalid consent decision")

func ParseConsentDecision(raw string) (ConsentDecision, error) {
	switch decision := ConsentDecision(strings.TrimSpace(raw)); decision {
	case ConsentAccepted, ConsentNecessaryOnly:
		return decision, nil
	default:
		return "", ErrInvalidConsentDecision
	}
}

// ConsentChoice is one click on the cookie banner plus the request context it came from.
type ConsentChoice struct {
	Decision  ConsentDecision
	SessionID string
	UserAgent string
	Path      string
	Referrer  string
	Locale    string
	ClientIP  string
}

// ConsentService records cookie banner decisions. A failed write never reaches the visitor.
type ConsentService struct {
	inserter store.Inserter
	hasher   *security.ClientHasher
	logger   *zap.Logger
	timeout  time.Duration
}

func NewConsentService(inserter store.Inserter, hasher *security.ClientHasher, logger *zap.Logger) *ConsentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsentService{
		inserter: inserter,
		hasher:   hasher,
		logger:   logger.With(zap.String("component", "consent")),
		timeout:  DefaultStoreTimeout,
	}
}

// Record validates the choice, assigns a session id when the visitor has none, and writes the row.
// Store errors are logged and swallowed; only an invalid decision is returned.
func (s *ConsentService) Record(ctx context.Context, choice ConsentChoice) (string, error) {
	if _, err := ParseConsentDecision(string(choice.Decision)); err != nil {
		return "", err
	}
	sessionID := strings.TrimSpace(choice.SessionID)
	if _, err := uuid.Parse(sessionID); err != nil {
		sessionID = uuid.NewString()
	}

	row := store.Row{
		"decision":       string(choice.Decision),
		"session_id":     sessionID,
		"user_id":        nil,
		"user_agent":     nullable(choice.UserAgent),
		"path":           nullable(choice.Path),
		"referrer":       nullable(choice.Referrer),
		"locale":         nullable(choice.Locale),
		"banner_version": ConsentBannerVersion,
	}
	if s.hasher != nil && strings.TrimSpace(choice.ClientIP) != "" {
		row["client_hash"] = s.hasher.Hash(choice.ClientIP, choice.UserAgent)
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.inserter.Insert(writeCtx, ConsentTable, row); err != nil {
		s.logger.Warn("cookie consent write failed", zap.String("decision", string(choice.Decision)), zap.Error(err))
	}
	return sessionID, nil
}

func nullable(value string) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return trimmed
}
