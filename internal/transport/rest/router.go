package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/kalungi/estate-management/internal/auth"
	"github.com/kalungi/estate-management/internal/listing"
	"github.com/kalungi/estate-management/internal/notification"
	"github.com/kalungi/estate-management/internal/payment"
	"github.com/kalungi/estate-management/internal/reservation"
	"github.com/kalungi/estate-management/internal/transport/middleware"
	"github.com/kalungi/estate-management/internal/transport/swagger"
)

// RegisterAllRoutes wires every handler onto the mux. Webhook and callback
// routes stay outside the auth group: providers authenticate with
// signatures, not sessions.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	allowedOrigins string,
	authHandler *auth.Handler,
	listingHandler *listing.Handler,
	reservationHandler *reservation.Handler,
	paymentHandler *payment.Handler,
	webhookHandler *payment.WebhookHandler,
	notificationHandler *notification.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if webhookHandler != nil {
			r.Post("/webhooks/flutterwave", webhookHandler.FlutterwaveWebhook)
			r.Get("/payments/flutterwave/callback", webhookHandler.FlutterwaveCallback)
		}

		if authHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", authHandler.Login)
				sr.Post("/refresh", authHandler.RefreshToken)
				sr.Post("/logout", authHandler.Logout)
			})
		}

		// Public catalogue reads
		if listingHandler != nil {
			r.Get("/listings", listingHandler.ListListings)
			r.Get("/listings/{id}", listingHandler.GetListing)
		}

		if authHandler != nil {
			r.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)

				if reservationHandler != nil {
					pr.Route("/reservations", func(rr chi.Router) {
						rr.Post("/", reservationHandler.CreateReservation)
						rr.Get("/", reservationHandler.ListReservations)
						rr.Get("/{id}", reservationHandler.GetReservation)
						rr.Post("/{id}/cancel", reservationHandler.CancelReservation)

						if paymentHandler != nil {
							rr.Get("/{id}/payment", paymentHandler.GetReservationPayment)
						}
					})
				}

				if paymentHandler != nil {
					pr.Post("/payments/initialize", paymentHandler.InitializePayment)
					pr.Post("/payments/paypal/{orderID}/capture", paymentHandler.CapturePayPalOrder)
				}

				if notificationHandler != nil {
					pr.Route("/notifications", func(nr chi.Router) {
						nr.Get("/", notificationHandler.ListNotifications)
						nr.Get("/unread-count", notificationHandler.UnreadCount)
						nr.Post("/{id}/read", notificationHandler.MarkRead)
					})
				}
			})
		}
	})
}
