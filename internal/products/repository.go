package products

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/abhishekY2401/product-service/internal/repo"
	"github.com/abhishekY2401/product-service/pkg/db/models"
)

// ProductStore is the persistence surface for products. Implementations bound
// to a transaction (WithTx) see and lock rows within that transaction.
type ProductStore interface {
	FindByID(ctx context.Context, id int64) (*models.Product, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	FindBySKU(ctx context.Context, sku string) (*models.Product, error)
	FindByName(ctx context.Context, name string) (*models.Product, error)
	List(ctx context.Context) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	UpdateStock(ctx context.Context, id int64, stock int) error
}

var _ ProductStore = (*Repository)(nil)

type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.Bind(tx)}
}

// FindByID returns gorm.ErrRecordNotFound when the product does not exist.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.base.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate loads the row with SELECT ... FOR UPDATE. Only useful on
// a transaction-bound repository.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := r.base.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) FindByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	products := []models.Product{}
	if len(ids) == 0 {
		return products, nil
	}
	err := r.base.DB(ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

func (r *Repository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	return r.findOne(ctx, "sku = ?", sku)
}

func (r *Repository) FindByName(ctx context.Context, name string) (*models.Product, error) {
	return r.findOne(ctx, "name = ?", name)
}

// findOne returns nil without error when nothing matches.
func (r *Repository) findOne(ctx context.Context, query string, arg any) (*models.Product, error) {
	return repo.TakeOptional[models.Product](r.base.DB(ctx), query, arg)
}

func (r *Repository) List(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := r.base.DB(ctx).Order("id ASC").Find(&products).Error
	return products, err
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.base.DB(ctx).Create(product).Error
}

// UpdateStock overwrites the stock column. Callers compute the new value under
// the row lock taken by FindByIDForUpdate.
func (r *Repository) UpdateStock(ctx context.Context, id int64, stock int) error {
	res := r.base.DB(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stock":      stock,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
