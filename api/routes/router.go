package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/abhishekY2401/product-service/api/controllers"
	"github.com/abhishekY2401/product-service/api/middleware"
	products "github.com/abhishekY2401/product-service/internal/products"
	"github.com/abhishekY2401/product-service/pkg/config"
	"github.com/abhishekY2401/product-service/pkg/logger"
	"github.com/abhishekY2401/product-service/pkg/metrics"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	productService products.Service,
	inventory controllers.StockAdjuster,
	readiness map[string]controllers.Pinger,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if gatherer != nil {
		r.Handle("/metrics", metrics.Handler(gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWT.Enabled() {
			r.Use(middleware.Auth(cfg.JWT, logg))
		}

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(productService, logg))
			r.Post("/", controllers.CreateProduct(productService, logg))
			r.Get("/by-ids", controllers.GetProductsByIDs(productService, logg))
			r.Get("/{productId}", controllers.GetProduct(productService, logg))
			r.Patch("/{productId}/inventory", controllers.UpdateProductInventory(inventory, logg))
		})
	})

	return r
}
