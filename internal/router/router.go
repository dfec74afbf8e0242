package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"baz-car-admin/internal/cache"
	"baz-car-admin/internal/config"
	"baz-car-admin/internal/handler"
	"baz-car-admin/internal/middleware"
)

const (
	uploadsMaxDuration = 10 * time.Minute
	uploadsIdleTimeout = 30 * time.Second
)

type Handlers struct {
	System  *handler.SystemHandler
	Auth    *handler.AuthHandler
	Cars    *handler.CarHandler
	Files   *handler.FileHandler
	Addons  *handler.AddonHandler
	Booking *handler.BookingHandler
}

func New(
	cfg config.Config,
	authMiddleware *middleware.AuthMiddleware,
	responseCache *cache.Cache,
	h Handlers,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)
	cached := middleware.Cache(responseCache)
	invalidate := middleware.InvalidateCache(responseCache)
	requireAuth := authMiddleware.RequireAuth

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/", h.System.Root)
	r.Get("/health", h.System.Health)
	r.With(middleware.StreamingTimeout(uploadsMaxDuration, uploadsIdleTimeout)).
		Get("/uploads/*", uploadsHandler(cfg.UploadDir))

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Auth.Login)
			auth.Post("/refresh", h.Auth.Refresh)
			auth.Get("/health", h.Auth.Health)
			auth.With(requireAuth).Post("/logout", h.Auth.Logout)
			auth.With(requireAuth).Get("/profile", h.Auth.Profile)
		})

		api.Route("/cars", func(cars chi.Router) {
			cars.Use(invalidate)
			cars.With(cached).Get("/", h.Cars.List)
			cars.With(cached).Get("/metadata", h.Cars.Metadata)
			cars.With(cached).Get("/popular", h.Cars.Popular)
			cars.Get("/images/thumbnail", h.Files.Thumbnail)
			cars.With(requireAuth).Post("/uploads/temp", h.Files.UploadTemp)
			cars.With(requireAuth).Post("/uploads/cleanup", h.Files.Cleanup)
			cars.With(requireAuth).Post("/", h.Cars.Create)

			cars.Route("/{car_id}", func(car chi.Router) {
				car.With(cached).Get("/", h.Cars.Get)
				car.With(cached).Get("/services", h.Cars.Services)
				car.With(requireAuth).Put("/", h.Cars.Update)
				car.With(requireAuth).Patch("/", h.Cars.Update)
				car.With(requireAuth).Delete("/", h.Cars.Delete)
				car.With(requireAuth).Post("/images", h.Files.UploadCarImages)
			})
		})

		api.Route("/additional-services", func(addons chi.Router) {
			addons.Use(invalidate)
			addons.With(cached).Get("/", h.Addons.List)
			addons.With(cached).Get("/active", h.Addons.Active)
			addons.With(cached).Get("/{service_id}", h.Addons.Get)
			addons.With(requireAuth).Post("/", h.Addons.Create)
			addons.With(requireAuth).Put("/{service_id}", h.Addons.Update)
			addons.With(requireAuth).Delete("/{service_id}", h.Addons.Delete)
		})

		api.Post("/booking", h.Booking.Quote)
	})

	return r
}

// uploadsHandler serves stored files without directory listings.
func uploadsHandler(root string) http.HandlerFunc {
	files := http.StripPrefix("/uploads/", http.FileServer(http.Dir(root)))

	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	}
}
