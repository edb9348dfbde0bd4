package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/shopify_budget/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LocationCensus is the resident headcount used for per-diem budgets.
type LocationCensus struct {
	ID           int             `gorm:"primaryKey" json:"id"`
	LocationId   int64           `gorm:"not null;uniqueIndex:idx_location_month" json:"location_id"`
	Month        string          `gorm:"size:7;not null;uniqueIndex:idx_location_month" json:"month"`
	CensusAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"census_amount"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (LocationCensus) TableName() string { return "location_censuses" }

type NewLocationCensus struct {
	CensusAmount decimal.Decimal `json:"census_amount"`
}

func UpsertLocationCensus(ctx context.Context, db *gorm.DB, locationId int64, month string, input *NewLocationCensus) (*LocationCensus, error) {
	if locationId <= 0 {
		return nil, utils.NewValidationError("location_id", "location id is required")
	}
	bm, err := ParseBudgetMonth(month)
	if err != nil {
		return nil, utils.NewValidationError("month", err.Error())
	}
	if input.CensusAmount.IsNegative() {
		return nil, utils.NewValidationError("census_amount", "census amount must not be negative")
	}

	census := LocationCensus{
		LocationId:   locationId,
		Month:        bm.String(),
		CensusAmount: input.CensusAmount,
	}
	var saved LocationCensus
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "location_id"}, {Name: "month"}},
			DoUpdates: clause.AssignmentColumns([]string{"census_amount", "updated_at"}),
		}).Create(&census).Error; err != nil {
			return err
		}
		// MySQL does not return the id of an updated row
		return tx.Where("location_id = ? AND month = ?", locationId, census.Month).First(&saved).Error
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// GetLocationCensus returns nil, nil when no census is recorded for the month.
func GetLocationCensus(ctx context.Context, db *gorm.DB, locationId int64, month string) (*LocationCensus, error) {
	var census LocationCensus
	err := db.WithContext(ctx).
		Where("location_id = ? AND month = ?", locationId, month).
		First(&census).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &census, nil
}

func ListLocationCensus(ctx context.Context, db *gorm.DB, locationId int64) ([]*LocationCensus, error) {
	var results []*LocationCensus
	err := db.WithContext(ctx).
		Where("location_id = ?", locationId).
		Order("SUBSTRING(month, 4, 4) DESC, SUBSTRING(month, 1, 2) DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func DeleteLocationCensus(ctx context.Context, db *gorm.DB, locationId int64, month string) (*LocationCensus, error) {
	bm, err := ParseBudgetMonth(month)
	if err != nil {
		return nil, utils.NewValidationError("month", err.Error())
	}
	census, err := GetLocationCensus(ctx, db, locationId, bm.String())
	if err != nil {
		return nil, err
	}
	if census == nil {
		return nil, utils.ErrorRecordNotFound
	}
	if err := db.WithContext(ctx).Delete(census).Error; err != nil {
		return nil, err
	}
	return census, nil
}
