package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sangkips/invoicecore/internal/domain/repository"
	"github.com/sangkips/invoicecore/internal/logger"
	"github.com/sangkips/invoicecore/pkg/apperror"
)

// DomainKeyExpenseReport numbers expense reports
const DomainKeyExpenseReport = "expense_report"

// SequenceService issues gap-free, human-readable sequence numbers
type SequenceService struct {
	repo    repository.SequenceRepository
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// NewSequenceService creates a new sequence service. timeout bounds each allocation.
func NewSequenceService(repo repository.SequenceRepository, timeout time.Duration) *SequenceService {
	return &SequenceService{
		repo:    repo,
		timeout: timeout,
		now:     time.Now,
		log:     logger.WithComponent("sequence"),
	}
}

// FormatSequence renders a counter value as "{year}-{value}" with the value
// zero-padded to at least three digits
func FormatSequence(year int, value int64) string {
	return fmt.Sprintf("%d-%03d", year, value)
}

// Allocate increments the counter for domainKey and returns the formatted
// number. The year prefix comes from the clock; the counter never resets.
func (s *SequenceService) Allocate(ctx context.Context, domainKey string) (string, error) {
	if strings.TrimSpace(domainKey) == "" {
		return "", apperror.NewFieldError("domain_key", "Domain key is required")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	value, err := s.repo.Next(ctx, domainKey)
	if err != nil {
		if isContention(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			s.log.Warn().Err(err).Str("domain_key", domainKey).Msg("sequence allocation contended")
			return "", apperror.NewConcurrencyError("Sequence allocation could not complete, retry the operation", err)
		}
		return "", err
	}

	return FormatSequence(s.now().Year(), value), nil
}

// Peek returns the last value issued for domainKey, 0 if none
func (s *SequenceService) Peek(ctx context.Context, domainKey string) (int64, error) {
	return s.repo.Current(ctx, domainKey)
}

func isContention(err error) bool {
	return errors.Is(err, repository.ErrSerialization) ||
		errors.Is(err, repository.ErrUniqueViolation) ||
		errors.Is(err, context.DeadlineExceeded)
}
