package products

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/abhishekY2401/product-service/pkg/db"
	"github.com/abhishekY2401/product-service/pkg/db/models"
	pkgerrors "github.com/abhishekY2401/product-service/pkg/errors"
	"github.com/abhishekY2401/product-service/pkg/events"
	"github.com/abhishekY2401/product-service/pkg/logger"
)

const defaultStoreTimeout = 5 * time.Second

// Service exposes product creation and the read queries.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, id int64) (*ProductDTO, error)
	ListProducts(ctx context.Context) ([]ProductDTO, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]ProductDTO, error)
}

// CreateProductInput holds the payload to create a product. Every field is
// required and numeric fields must be positive.
type CreateProductInput struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Stock       int     `json:"stock" validate:"required,gt=0"`
	SKU         string  `json:"sku" validate:"required"`
	Category    string  `json:"category" validate:"required"`
}

func (in CreateProductInput) normalized() CreateProductInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.SKU = strings.TrimSpace(in.SKU)
	in.Category = strings.TrimSpace(in.Category)
	return in
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type messageEmitter interface {
	Emit(ctx context.Context, msg events.Message) error
}

type outboxEmitter interface {
	EmitMessage(ctx context.Context, tx *gorm.DB, msg events.Message) error
}

type ServiceParams struct {
	Repo         *Repository
	DB           txRunner
	Logger       *logger.Logger
	StoreTimeout time.Duration
	// Emitter publishes product.created after commit. Ignored when Outbox is set.
	Emitter messageEmitter
	// Outbox, when set, records product.created in the creation transaction.
	Outbox outboxEmitter
}

type service struct {
	repo         *Repository
	db           txRunner
	logg         *logger.Logger
	emitter      messageEmitter
	outbox       outboxEmitter
	storeTimeout time.Duration
	validate     *validator.Validate
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Emitter == nil && params.Outbox == nil {
		return nil, fmt.Errorf("event emitter or outbox required")
	}
	timeout := params.StoreTimeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &service{
		repo:         params.Repo,
		db:           params.DB,
		logg:         params.Logger,
		emitter:      params.Emitter,
		outbox:       params.Outbox,
		storeTimeout: timeout,
		validate:     newValidator(),
	}, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// CreateProduct inserts the product and announces it on product.created. The
// announcement happens after commit; a failed publish is logged and does not
// undo the creation.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	input = input.normalized()
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	product := &models.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       decimal.NewFromFloat(input.Price).Round(2),
		Stock:       input.Stock,
		Category:    input.Category,
		SKU:         input.SKU,
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	err := s.db.WithTx(storeCtx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindBySKU(storeCtx, product.SKU)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check sku")
		}
		if existing != nil {
			return duplicateSKU(product.SKU)
		}
		existing, err = repo.FindByName(storeCtx, product.Name)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check name")
		}
		if existing != nil {
			return duplicateName(product.Name)
		}
		if err := repo.Create(storeCtx, product); err != nil {
			return mapCreateError(err)
		}
		if s.outbox != nil {
			if err := s.outbox.EmitMessage(storeCtx, tx, createdMessage(product)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue product created event")
			}
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}

	logCtx := s.logg.WithProductID(ctx, product.ID)
	s.logg.Info(logCtx, "product created")

	if s.outbox == nil {
		if err := s.emitter.Emit(ctx, createdMessage(product)); err != nil {
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "product created event not published")
		}
	}

	dto := ToDTO(*product)
	return &dto, nil
}

func createdMessage(p *models.Product) events.ProductCreated {
	return events.ProductCreated{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price.InexactFloat64(),
		Quantity: p.Stock,
	}
}

func (s *service) GetProduct(ctx context.Context, id int64) (*ProductDTO, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	product, err := s.repo.FindByID(storeCtx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product with id %d not found", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	dto := ToDTO(*product)
	return &dto, nil
}

func (s *service) ListProducts(ctx context.Context) ([]ProductDTO, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	list, err := s.repo.List(storeCtx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return ToDTOs(list), nil
}

// GetProductsByIDs returns the products that exist among ids; unknown ids are skipped.
func (s *service) GetProductsByIDs(ctx context.Context, ids []int64) ([]ProductDTO, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	list, err := s.repo.FindByIDs(storeCtx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	return ToDTOs(list), nil
}

func duplicateSKU(sku string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeDuplicateSKU, "product with this sku already exists").
		WithDetails(map[string]any{"sku": sku})
}

func duplicateName(name string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeDuplicateName, "product with this name already exists").
		WithDetails(map[string]any{"name": name})
}

// mapCreateError turns unique index violations that slipped past the
// pre-insert checks into the matching duplicate error.
func mapCreateError(err error) error {
	switch {
	case db.IsUniqueViolation(err, "products_sku_key"), db.IsUniqueViolation(err, "products.sku"):
		return pkgerrors.Wrap(pkgerrors.CodeDuplicateSKU, err, "product with this sku already exists")
	case db.IsUniqueViolation(err, "products_name_key"), db.IsUniqueViolation(err, "products.name"):
		return pkgerrors.Wrap(pkgerrors.CodeDuplicateName, err, "product with this name already exists")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert product")
	}
}

func validationError(err error) *pkgerrors.Error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		details := map[string]string{}
		for _, fe := range errs {
			details[fe.Field()] = validationMessage(fe)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "please enter all the product data").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	}
	return "is invalid"
}
