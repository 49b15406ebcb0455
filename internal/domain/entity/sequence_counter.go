package entity

import "time"

// SequenceCounter holds the last value issued for a numbering domain.
// The counter is never partitioned by year.
type SequenceCounter struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DomainKey string    `gorm:"size:100;uniqueIndex;not null" json:"domain_key"`
	LastValue int64     `gorm:"not null;default:0" json:"last_value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for the SequenceCounter model
func (SequenceCounter) TableName() string {
	return "sequence_counters"
}
