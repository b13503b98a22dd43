// Package web exposes the staff HTTP API: order lookups, PDF receipts
// and the live order feed websocket.
package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"edabot/livefeed"
	"edabot/models"
	"edabot/ratelim"
	"edabot/receipts"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

// Store is the order lookup surface the API needs.
type Store interface {
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, status string, limit int64) ([]models.Order, error)
}

// Server wires the staff API handlers to their collaborators.
type Server struct {
	Store         Store
	Hub           *livefeed.Hub
	JWTSecret     []byte
	AdminUser     string
	AdminPassHash string
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Println("Failed to encode response:", err)
	}
}

// Health reports liveness.
func (s *Server) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetOrder returns one order by id.
func (s *Server) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid order id", http.StatusBadRequest)
		return
	}
	order, err := s.Store.GetOrder(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to fetch order", http.StatusInternalServerError)
		return
	}
	if order == nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// ListOrders returns recent orders, optionally filtered by ?status=.
func (s *Server) ListOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit := int64(50)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 || n > 200 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	orders, err := s.Store.ListOrders(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		http.Error(w, "Failed to fetch orders", http.StatusInternalServerError)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

// Receipt streams the PDF receipt for one order.
func (s *Server) Receipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid order id", http.StatusBadRequest)
		return
	}
	order, err := s.Store.GetOrder(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to fetch order", http.StatusInternalServerError)
		return
	}
	if order == nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	pdf, err := receipts.Build(order)
	if err != nil {
		log.Println("Receipt build error:", err)
		http.Error(w, "Failed to build receipt", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=receipt-"+ps.ByName("id")+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// LiveFeed validates the ?token= query parameter and hands the
// connection to the websocket hub. Browsers cannot set an Authorization
// header on websocket upgrades, hence the query token.
func (s *Server) LiveFeed(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, err := s.ValidateToken(r.URL.Query().Get("token")); err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}
	s.Hub.ServeWS(w, r)
}

func securityHeaders(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next(w, r, ps)
	}
}

func loggingMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		requestID := uuid.New().String()
		w.Header().Set("X-Request-ID", requestID)
		next(w, r, ps)
		log.Printf("[%s] %s %s (%v)", requestID, r.Method, r.URL.Path, time.Since(start))
	}
}

// Router builds the full route table with the middleware chain applied.
func Router(s *Server, rl *ratelim.RateLimiter) http.Handler {
	router := httprouter.New()

	wrap := func(h httprouter.Handle) httprouter.Handle {
		return securityHeaders(loggingMiddleware(rl.Limit(h)))
	}

	router.GET("/health", wrap(s.Health))
	router.POST("/api/login", wrap(s.Login))
	router.GET("/api/orders", wrap(s.Authenticate(s.ListOrders)))
	router.GET("/api/orders/:id", wrap(s.Authenticate(s.GetOrder)))
	router.GET("/api/orders/:id/receipt", wrap(s.Authenticate(s.Receipt)))
	router.GET("/ws/orders", wrap(s.LiveFeed))

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(router)
}
