package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sangkips/invoicecore/internal/domain/entity"
	"github.com/sangkips/invoicecore/internal/domain/repository"
	infraRepo "github.com/sangkips/invoicecore/internal/infrastructure/repository"
	"github.com/sangkips/invoicecore/pkg/apperror"
	"gorm.io/gorm"
)

func createTestSequenceService(t *testing.T, year int) (*SequenceService, *gorm.DB) {
	t.Helper()
	db := createTestDB(t)
	svc := NewSequenceService(infraRepo.NewSequenceRepository(db), 5*time.Second)
	svc.now = fixedClock(time.Date(year, time.June, 1, 12, 0, 0, 0, time.UTC))
	return svc, db
}

func TestFormatSequence(t *testing.T) {
	tests := []struct {
		year  int
		value int64
		want  string
	}{
		{2025, 1, "2025-001"},
		{2025, 42, "2025-042"},
		{2025, 999, "2025-999"},
		{2026, 1000, "2026-1000"},
	}

	for _, tt := range tests {
		if got := FormatSequence(tt.year, tt.value); got != tt.want {
			t.Errorf("FormatSequence(%d, %d) = %q, want %q", tt.year, tt.value, got, tt.want)
		}
	}
}

func TestSequenceService_AllocateIncrements(t *testing.T) {
	svc, _ := createTestSequenceService(t, 2025)
	ctx := context.Background()

	for i, want := range []string{"2025-001", "2025-002", "2025-003"} {
		got, err := svc.Allocate(ctx, DomainKeyExpenseReport)
		if err != nil {
			t.Fatalf("Allocate() #%d error = %v", i+1, err)
		}
		if got != want {
			t.Errorf("Allocate() #%d = %q, want %q", i+1, got, want)
		}
	}

	last, err := svc.Peek(ctx, DomainKeyExpenseReport)
	if err != nil {
		t.Fatalf("Peek() error = %v", err)
	}
	if last != 3 {
		t.Errorf("Peek() = %d, want 3", last)
	}

	// independent domains keep independent counters
	other, err := svc.Allocate(ctx, "other")
	if err != nil {
		t.Fatalf("Allocate(other) error = %v", err)
	}
	if other != "2025-001" {
		t.Errorf("Allocate(other) = %q, want 2025-001", other)
	}
}

func TestSequenceService_ContinuesAcrossYearBoundary(t *testing.T) {
	svc, db := createTestSequenceService(t, 2025)
	if err := db.Create(&entity.SequenceCounter{DomainKey: DomainKeyExpenseReport, LastValue: 150}).Error; err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	svc.now = fixedClock(time.Date(2026, time.January, 1, 0, 0, 1, 0, time.UTC))
	got, err := svc.Allocate(context.Background(), DomainKeyExpenseReport)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if got != "2026-151" {
		t.Errorf("Allocate() = %q, want 2026-151", got)
	}
}

func TestSequenceService_ConcurrentAllocationsAreUniqueAndContiguous(t *testing.T) {
	svc, _ := createTestSequenceService(t, 2025)
	const workers = 20

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []string
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := svc.Allocate(context.Background(), DomainKeyExpenseReport)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers = append(numbers, n)
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("unexpected allocation errors: %v", errs)
	}

	values := make([]int, 0, len(numbers))
	for _, n := range numbers {
		v, err := strconv.Atoi(strings.TrimPrefix(n, "2025-"))
		if err != nil {
			t.Fatalf("unexpected number format %q", n)
		}
		values = append(values, v)
	}
	sort.Ints(values)

	for i, v := range values {
		if v != i+1 {
			t.Fatalf("values are not contiguous from 1: %v", values)
		}
	}
}

func TestSequenceService_TimeoutIsConcurrencyError(t *testing.T) {
	repo := &mockSequenceRepo{
		NextFunc: func(ctx context.Context, domainKey string) (int64, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		},
	}
	svc := NewSequenceService(repo, 20*time.Millisecond)

	_, err := svc.Allocate(context.Background(), DomainKeyExpenseReport)
	if !apperror.HasKind(err, apperror.KindConcurrency) {
		t.Fatalf("expected concurrency error, got %v", err)
	}
}

func TestSequenceService_StoreContentionIsConcurrencyError(t *testing.T) {
	for _, cause := range []error{repository.ErrSerialization, repository.ErrUniqueViolation} {
		t.Run(cause.Error(), func(t *testing.T) {
			repo := &mockSequenceRepo{
				NextFunc: func(ctx context.Context, domainKey string) (int64, error) {
					return 0, fmt.Errorf("%w: lost the race", cause)
				},
			}
			svc := NewSequenceService(repo, time.Second)

			_, err := svc.Allocate(context.Background(), DomainKeyExpenseReport)
			if !apperror.HasKind(err, apperror.KindConcurrency) {
				t.Fatalf("expected concurrency error, got %v", err)
			}
			if !errors.Is(err, cause) {
				t.Errorf("expected cause %v to be wrapped", cause)
			}
		})
	}
}

func TestSequenceService_OtherErrorsPassThrough(t *testing.T) {
	boom := errors.New("disk full")
	svc := NewSequenceService(&mockSequenceRepo{
		NextFunc: func(ctx context.Context, domainKey string) (int64, error) { return 0, boom },
	}, time.Second)

	_, err := svc.Allocate(context.Background(), DomainKeyExpenseReport)
	if !errors.Is(err, boom) || apperror.IsAppError(err) {
		t.Fatalf("expected raw store error, got %v", err)
	}
}

func TestSequenceService_RequiresDomainKey(t *testing.T) {
	svc := NewSequenceService(&mockSequenceRepo{}, time.Second)
	if _, err := svc.Allocate(context.Background(), " "); !apperror.HasKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
