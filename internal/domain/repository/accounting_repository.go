package repository

import (
	"context"

	"github.com/sangkips/invoicecore/internal/domain/entity"
)

// AccountingMirror writes assigned expense reports into the downstream
// accounting system. It is not the system of record.
type AccountingMirror interface {
	// SaveReport inserts the report header and lines keyed by its bucket number.
	// One attempt per call; the accounting system owns deduplication.
	SaveReport(ctx context.Context, report *entity.ExpenseReport) error
}
