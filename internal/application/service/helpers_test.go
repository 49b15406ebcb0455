package service

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/invoicecore/internal/domain/entity"
	"github.com/sangkips/invoicecore/internal/infrastructure/authority"
	"github.com/sangkips/invoicecore/internal/infrastructure/database"
	infraRepo "github.com/sangkips/invoicecore/internal/infrastructure/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// createTestDB opens a migrated sqlite database in a temp dir
func createTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// a single connection serializes writers the way row locks do in postgres
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// tenantContext returns a context scoped to a fresh tenant
func tenantContext(t *testing.T) (context.Context, uuid.UUID) {
	t.Helper()
	tenantID := uuid.New()
	return infraRepo.WithTenant(context.Background(), tenantID), tenantID
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func strPtr(s string) *string {
	return &s
}

// mockSequenceRepo is a hand-written SequenceRepository
type mockSequenceRepo struct {
	NextFunc    func(ctx context.Context, domainKey string) (int64, error)
	CurrentFunc func(ctx context.Context, domainKey string) (int64, error)
}

func (m *mockSequenceRepo) Next(ctx context.Context, domainKey string) (int64, error) {
	return m.NextFunc(ctx, domainKey)
}

func (m *mockSequenceRepo) Current(ctx context.Context, domainKey string) (int64, error) {
	if m.CurrentFunc != nil {
		return m.CurrentFunc(ctx, domainKey)
	}
	return 0, nil
}

// mockAuthorityClient is a hand-written AuthorityClient
type mockAuthorityClient struct {
	VerifyFunc         func(ctx context.Context, req *authority.VerifyRequest) (*authority.VerifyResult, error)
	LookupTaxpayerFunc func(ctx context.Context, taxID string) (*authority.Taxpayer, error)
	verifyCalls        int32
}

func (m *mockAuthorityClient) Verify(ctx context.Context, req *authority.VerifyRequest) (*authority.VerifyResult, error) {
	atomic.AddInt32(&m.verifyCalls, 1)
	return m.VerifyFunc(ctx, req)
}

func (m *mockAuthorityClient) LookupTaxpayer(ctx context.Context, taxID string) (*authority.Taxpayer, error) {
	return m.LookupTaxpayerFunc(ctx, taxID)
}

func (m *mockAuthorityClient) calls() int {
	return int(atomic.LoadInt32(&m.verifyCalls))
}

// mockAccountingMirror records saved reports and can fail selected ones
type mockAccountingMirror struct {
	SaveReportFunc func(ctx context.Context, report *entity.ExpenseReport) error

	mu    sync.Mutex
	saved []string
}

func (m *mockAccountingMirror) SaveReport(ctx context.Context, report *entity.ExpenseReport) error {
	if m.SaveReportFunc != nil {
		if err := m.SaveReportFunc(ctx, report); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.saved = append(m.saved, report.Number)
	m.mu.Unlock()
	return nil
}

func (m *mockAccountingMirror) savedNumbers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.saved...)
}

var verifiableTypes = []string{"01", "03", "07", "08"}
