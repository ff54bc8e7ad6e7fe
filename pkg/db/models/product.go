package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable item. Stock is mutated only through inventory adjustments.
type Product struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string          `gorm:"column:name;not null;uniqueIndex:products_name_key"`
	Description string          `gorm:"column:description;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Stock       int             `gorm:"column:stock;not null;default:0;check:chk_products_stock_non_negative,stock >= 0"`
	Category    string          `gorm:"column:category;not null"`
	SKU         string          `gorm:"column:sku;not null;uniqueIndex:products_sku_key"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
