package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tavolo-pos/api/internal/config"
	"github.com/tavolo-pos/api/internal/database"
	"github.com/tavolo-pos/api/internal/enum"
	"github.com/tavolo-pos/api/internal/handler"
	mw "github.com/tavolo-pos/api/internal/middleware"
	"github.com/tavolo-pos/api/internal/service"
	"github.com/tavolo-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, restaurant scoping, and role-based middleware
// as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // dev frontend
			"https://app.tavolopos.io",
			"https://stg-app.tavolopos.io",
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/restaurants/{rid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	notifier := ws.NewPublisher(hub)

	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, notifier)
	voucherService := service.NewVoucherService(pool, func(db database.DBTX) service.VoucherStore {
		return database.New(db)
	}, notifier)
	giftCardService := service.NewGiftCardService(pool, func(db database.DBTX) service.GiftCardStore {
		return database.New(db)
	})
	kitchenService := service.NewKitchenService(queries)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Restaurant-scoped routes
		r.Route("/restaurants/{rid}", func(r chi.Router) {
			r.Use(mw.RequireRestaurant)

			// Menu
			menuHandler := handler.NewMenuHandler(queries)
			r.Route("/menu", menuHandler.RegisterRoutes)

			// Tables
			tableHandler := handler.NewTableHandler(queries)
			r.Route("/tables", tableHandler.RegisterRoutes)

			// Orders
			orderHandler := handler.NewOrderHandler(orderService, queries)
			voucherHandler := handler.NewVoucherHandler(voucherService)
			r.Route("/orders", func(r chi.Router) {
				orderHandler.RegisterRoutes(r)
				voucherHandler.RegisterRoutes(r)
			})

			// Gift cards
			giftCardHandler := handler.NewGiftCardHandler(giftCardService, queries)
			r.Route("/gift-cards", giftCardHandler.RegisterRoutes)

			// Kitchen display (kitchen-side roles plus management)
			kitchenHandler := handler.NewKitchenHandler(kitchenService)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(
					enum.UserRoleKitchen,
					enum.UserRoleManager,
					enum.UserRoleAdmin,
				))
				r.Route("/kitchen", kitchenHandler.RegisterRoutes)
			})
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
