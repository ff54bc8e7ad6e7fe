package products

import "github.com/abhishekY2401/product-service/pkg/db/models"

// ProductDTO is the external product representation. Timestamps are not exposed.
type ProductDTO struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category"`
	SKU         string  `json:"sku"`
}

func ToDTO(p models.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Stock:       p.Stock,
		Category:    p.Category,
		SKU:         p.SKU,
	}
}

func ToDTOs(list []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(list))
	for _, p := range list {
		out = append(out, ToDTO(p))
	}
	return out
}
