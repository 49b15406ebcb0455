package database

import (
	"fmt"
	"time"

	"github.com/sangkips/invoicecore/internal/config"
	"github.com/sangkips/invoicecore/internal/logger"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// AccountingHeader is the denormalized report header kept by the accounting system
type AccountingHeader struct {
	ID           uint            `gorm:"primaryKey"`
	BucketNumber string          `gorm:"size:50;not null;index:idx_acct_header_key,priority:1"`
	ReportNumber string          `gorm:"size:32;not null;index:idx_acct_header_key,priority:2"`
	BucketType   string          `gorm:"size:30;not null"`
	ReportID     string          `gorm:"size:36;not null"`
	TenantID     string          `gorm:"size:36;not null"`
	EmployeeID   string          `gorm:"size:36;not null"`
	Title        string          `gorm:"size:255"`
	CostCenter   string          `gorm:"size:50"`
	Currency     string          `gorm:"size:3"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(15,2)"`
	ApproverID   string          `gorm:"size:36"`
	ApprovedAt   *time.Time
	AssignedAt   *time.Time
	LineCount    int
	CreatedAt    time.Time
}

// TableName returns the accounting header table name
func (AccountingHeader) TableName() string {
	return "acct_expense_headers"
}

// AccountingLine is a denormalized expense line kept by the accounting system
type AccountingLine struct {
	ID           uint   `gorm:"primaryKey"`
	BucketNumber string `gorm:"size:50;not null;index:idx_acct_line_key,priority:1"`
	ReportNumber string `gorm:"size:32;not null;index:idx_acct_line_key,priority:2"`
	LineNo       int    `gorm:"not null"`
	IssueDate    *time.Time
	IssuerTaxID  string          `gorm:"size:20"`
	SeriesNumber string          `gorm:"size:40"`
	Description  string          `gorm:"size:500"`
	Quantity     decimal.Decimal `gorm:"type:decimal(15,4)"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(15,4)"`
	Amount       decimal.Decimal `gorm:"type:decimal(15,2)"`
}

// TableName returns the accounting line table name
func (AccountingLine) TableName() string {
	return "acct_expense_lines"
}

// NewAccountingDB opens the accounting mirror. It returns nil when no DSN is configured.
func NewAccountingDB(cfg *config.AccountingConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, nil
	}

	db, err := gorm.Open(sqlserver.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to accounting store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying accounting sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)

	log := logger.WithComponent("database")
	log.Info().Msg("connected to accounting store")
	return db, nil
}

// AutoMigrateAccounting creates the mirror tables
func AutoMigrateAccounting(db *gorm.DB) error {
	if err := db.AutoMigrate(&AccountingHeader{}, &AccountingLine{}); err != nil {
		return fmt.Errorf("failed to migrate accounting store: %w", err)
	}
	return nil
}
