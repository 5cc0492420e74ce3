package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MarketDemandForecast is one per-market row produced by the forecast stage.
// Scores are on the collaborator's 0-100 scale; descriptive strings are kept
// verbatim.
type MarketDemandForecast struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	BOMID         *uuid.UUID       `gorm:"column:bom_id;type:uuid"`
	Country       string           `gorm:"column:country;not null"`
	City          *string          `gorm:"column:city"`
	DemandScore   float64          `gorm:"column:demand_score;type:numeric(5,2);not null"`
	Competition   float64          `gorm:"column:competition;type:numeric(5,2);not null"`
	PriceScore    float64          `gorm:"column:price_score;type:numeric(5,2);not null"`
	GrowthScore   float64          `gorm:"column:growth_score;type:numeric(5,2);not null"`
	MarketSize    *string          `gorm:"column:market_size"`
	AvgPrice      *decimal.Decimal `gorm:"column:avg_price;type:numeric(12,2)"`
	GrowthPercent *float64         `gorm:"column:growth_percent;type:numeric(6,2)"`
	Trend         *string          `gorm:"column:trend"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
}
