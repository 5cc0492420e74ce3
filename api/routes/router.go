package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/threadline-ai/threadline-backend/api/controllers"
	"github.com/threadline-ai/threadline-backend/api/middleware"
	bom "github.com/threadline-ai/threadline-backend/internal/boms"
	forecast "github.com/threadline-ai/threadline-backend/internal/forecasts"
	"github.com/threadline-ai/threadline-backend/internal/notifications"
	"github.com/threadline-ai/threadline-backend/internal/pipeline"
	product "github.com/threadline-ai/threadline-backend/internal/products"
	supplier "github.com/threadline-ai/threadline-backend/internal/suppliers"
	"github.com/threadline-ai/threadline-backend/pkg/config"
	"github.com/threadline-ai/threadline-backend/pkg/db"
	"github.com/threadline-ai/threadline-backend/pkg/inference"
	"github.com/threadline-ai/threadline-backend/pkg/logger"
	"github.com/threadline-ai/threadline-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	inferenceClient inference.Service,
	productService product.Service,
	bomService bom.Service,
	supplierService supplier.Service,
	forecastService forecast.Service,
	notificationsService notifications.Service,
	pipelineService pipeline.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP, inferenceClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.CreateProduct(productService, logg))
			r.Get("/", controllers.ListProducts(productService, logg))

			r.Route("/{productID}", func(r chi.Router) {
				r.Get("/", controllers.GetProduct(productService, logg))
				r.Patch("/", controllers.UpdateProduct(productService, logg))
				r.Delete("/", controllers.ArchiveProduct(productService, logg))

				// Pipeline entry point: POST responds 202 and runs async.
				r.Post("/boms", controllers.StartGeneration(pipelineService, logg))
				r.Get("/runs", controllers.ListRuns(pipelineService, logg))

				r.Route("/bom", func(r chi.Router) {
					r.Get("/", controllers.GetBOM(bomService, logg))
					r.Patch("/", controllers.UpdateBOM(bomService, logg))
					r.Get("/versions", controllers.ListBOMVersions(bomService, logg))
					r.Post("/lock", controllers.LockBOM(bomService, logg))
				})

				r.Get("/suppliers", controllers.ListProductSuppliers(supplierService, logg))
				r.Get("/forecasts", controllers.ListForecasts(forecastService, logg))
			})
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", controllers.SearchSuppliers(supplierService, logg))
			r.Post("/rank", controllers.RankSuppliers(supplierService, logg))
			r.Get("/{supplierID}", controllers.GetSupplier(supplierService, logg))
		})

		r.Post("/forecasts/price", controllers.PriceForecast(forecastService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
