package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sangkips/invoicecore/internal/domain/entity"
	domainRepo "github.com/sangkips/invoicecore/internal/domain/repository"
	"github.com/sangkips/invoicecore/internal/infrastructure/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sequenceRepository struct {
	db *gorm.DB
}

// NewSequenceRepository creates a new sequence counter repository
func NewSequenceRepository(db *gorm.DB) domainRepo.SequenceRepository {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) Next(ctx context.Context, domainKey string) (int64, error) {
	var value int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// lazy creation; a concurrent creator wins and this insert is a no-op
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "domain_key"}},
			DoNothing: true,
		}).Create(&entity.SequenceCounter{DomainKey: domainKey}).Error
		if err != nil {
			return err
		}

		// the row lock taken here serializes allocators; waiters re-read the
		// committed value once the holder commits
		result := tx.Model(&entity.SequenceCounter{}).
			Where("domain_key = ?", domainKey).
			Update("last_value", gorm.Expr("last_value + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("sequence counter %q missing after create", domainKey)
		}

		var counter entity.SequenceCounter
		if err := tx.Select("last_value").Where("domain_key = ?", domainKey).Take(&counter).Error; err != nil {
			return err
		}
		value = counter.LastValue
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelReadCommitted})

	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return 0, fmt.Errorf("%w: %v", domainRepo.ErrUniqueViolation, err)
		case database.IsContention(err):
			return 0, fmt.Errorf("%w: %v", domainRepo.ErrSerialization, err)
		}
		return 0, err
	}
	return value, nil
}

func (r *sequenceRepository) Current(ctx context.Context, domainKey string) (int64, error) {
	var counter entity.SequenceCounter
	err := r.db.WithContext(ctx).Where("domain_key = ?", domainKey).Take(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.LastValue, nil
}
