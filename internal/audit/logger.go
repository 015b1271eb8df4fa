package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/projectNEWM/newm-server-sub005/internal/audit/domain"
	auditrepo "github.com/projectNEWM/newm-server-sub005/internal/audit/repository"
)

// IPExtractor returns the client IP from the request context (e.g. gRPC metadata or peer).
type IPExtractor func(context.Context) string

// DecisionLogger records one authentication decision with its internal
// reason. LogDecision is best-effort: failures are logged and do not affect
// the caller.
type DecisionLogger interface {
	LogDecision(ctx context.Context, identityID, mechanism, outcome, reason, platform string)
}

// Logger implements DecisionLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns a DecisionLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// LogDecision writes one decision record. Best-effort: errors are logged and not returned.
func (l *Logger) LogDecision(ctx context.Context, identityID, mechanism, outcome, reason, platform string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	entry := &domain.Decision{
		ID:         uuid.New().String(),
		IdentityID: identityID,
		Mechanism:  mechanism,
		Outcome:    outcome,
		Reason:     reason,
		IP:         ip,
		Platform:   platform,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log decision %s/%s: %v", mechanism, outcome, err)
	}
}
