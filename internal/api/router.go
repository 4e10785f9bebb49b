package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wastepay/payment-service/internal/api/httpx"
	"github.com/wastepay/payment-service/internal/api/validate"
	"github.com/wastepay/payment-service/internal/config"
	"github.com/wastepay/payment-service/internal/middleware"
	"github.com/wastepay/payment-service/internal/services"
)

func NewRouter(cfg config.Config, ws *services.WalletService, cps *services.CollectionPaymentService) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", promhttp.Handler())

	// ---------- wallet ----------
	r.Route("/wallet", func(r chi.Router) {
		r.Use(middleware.RequireIdentity)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			owner := middleware.IdentityFrom(r.Context()).ClientID
			snap, err := ws.GetWalletData(r.Context(), owner)
			if err != nil {
				httpx.WriteServiceError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, snap)
		})

		r.Post("/deposits/initiate", func(w http.ResponseWriter, r *http.Request) {
			owner := middleware.IdentityFrom(r.Context()).ClientID
			var req struct {
				Amount int64 `json:"amount"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
				return
			}
			if ef := validate.MinInt("amount", req.Amount, 1); ef != nil {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "validation failed", validate.Errs{*ef})
				return
			}
			order, err := ws.InitiateDeposit(r.Context(), owner, req.Amount)
			if err != nil {
				httpx.WriteServiceError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, order)
		})

		r.Post("/deposits/verification", func(w http.ResponseWriter, r *http.Request) {
			owner := middleware.IdentityFrom(r.Context()).ClientID
			var cb services.GatewayCallback
			if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
				return
			}
			res, err := ws.VerifyDeposit(r.Context(), owner, cb)
			if err != nil {
				httpx.WriteServiceError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, map[string]any{
				"balance":       res.Wallet.Balance,
				"transactionId": res.Transaction.ID,
			})
		})

		r.Post("/withdrawals", func(w http.ResponseWriter, r *http.Request) {
			owner := middleware.IdentityFrom(r.Context()).ClientID
			var req struct {
				Amount int64 `json:"amount"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
				return
			}
			if ef := validate.MinInt("amount", req.Amount, 1); ef != nil {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "validation failed", validate.Errs{*ef})
				return
			}
			res, err := ws.WithdrawMoney(r.Context(), owner, req.Amount)
			if err != nil {
				httpx.WriteServiceError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, map[string]any{
				"balance":       res.Wallet.Balance,
				"transactionId": res.Transaction.ID,
			})
		})
	})

	// ---------- collection payments ----------
	r.Route("/api/collection-payment", func(r chi.Router) {
		r.Use(middleware.RequireIdentity)

		r.Post("/order", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Amount int64 `json:"amount"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
				return
			}
			order, err := cps.CreateOrder(r.Context(), req.Amount)
			if err != nil {
				httpx.WriteServiceError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, map[string]string{"orderId": order.ID})
		})

		r.Post("/verification", func(w http.ResponseWriter, r *http.Request) {
			owner := middleware.IdentityFrom(r.Context()).ClientID
			var cb services.GatewayCallback
			if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
				return
			}
			res, err := cps.VerifyPayment(r.Context(), owner, cb)
			if err != nil {
				httpx.WriteServiceError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, res)
		})

		r.Post("/wallet", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				UserID      string `json:"userId"`
				Amount      int64  `json:"amount"`
				ServiceType string `json:"serviceType"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
				return
			}
			var errs validate.Errs
			if ef := validate.Required("userId", req.UserID); ef != nil {
				errs = append(errs, *ef)
			}
			if ef := validate.MinInt("amount", req.Amount, 1); ef != nil {
				errs = append(errs, *ef)
			}
			if len(errs) > 0 {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "validation failed", errs)
				return
			}
			res, err := cps.PayWithWallet(r.Context(), req.UserID, req.Amount, req.ServiceType)
			if err != nil {
				httpx.WriteServiceError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, res)
		})
	})

	return r
}
