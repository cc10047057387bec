// SkyPath GIS Server
// Serves the REST + WebSocket API for routing and airspace deconfliction.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/skypath/gis/internal/apierr"
	"github.com/skypath/gis/internal/auth"
	"github.com/skypath/gis/internal/conflict"
	"github.com/skypath/gis/internal/ingest"
	"github.com/skypath/gis/internal/query"
	"github.com/skypath/gis/internal/store"
	"github.com/skypath/gis/pkg/config"
	"github.com/skypath/gis/pkg/geo"
)

var configPath = flag.String("config", "configs/config.json", "Path to configuration file")

// Server holds the HTTP router and its dependencies.
type Server struct {
	router  *chi.Mux
	backend *store.Store
	authSvc *auth.Service
	query   *query.Service
	cfg     *config.Config
	upgrade websocket.Upgrader
}

func main() {
	flag.Parse()

	log.Println("starting skypath-gis server...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	backend, err := store.Connect(cfg.Database, cfg.Pool)
	if err != nil {
		log.Fatalf("failed to connect to backend: %v", err)
	}
	defer backend.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := backend.InitSchema(ctx); err != nil {
		cancel()
		log.Fatalf("failed to init schema: %v", err)
	}
	cancel()

	authSvc := auth.NewService(auth.Config{
		JWTSecret:     cfg.Auth.JWTSecret,
		TokenDuration: time.Duration(cfg.Auth.TokenDurationMinutes) * time.Minute,
	})

	ingestSvc := ingest.NewService(backend)
	conflictEngine := conflict.New(backend, conflict.Config{
		ThresholdM: cfg.Routing.IntersectionThresholdM,
		MinLenM:    cfg.Routing.MinSegmentLenM,
	})
	tolerance := time.Duration(cfg.Routing.CandidateToleranceSeconds) * time.Second
	querySvc := query.New(backend, ingestSvc, conflictEngine, tolerance)

	srv := &Server{
		router:  chi.NewRouter(),
		backend: backend,
		authSvc: authSvc,
		query:   querySvc,
		cfg:     cfg,
		upgrade: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
	srv.setupRoutes()

	go startPruneLoop(backend)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.HostREST, cfg.Server.PortREST),
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on http://%s:%d", cfg.Server.HostREST, cfg.Server.PortREST)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("server stopped")
}

// startPruneLoop periodically trims node_locations history (spec §12's
// position-history retention). It runs for the life of the process;
// failures are logged, never fatal.
func startPruneLoop(backend *store.Store) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := backend.PruneLocationHistory(ctx, 7*24*time.Hour); err != nil {
			log.Printf("prune location history: %v", err)
		}
		cancel()
	}
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/vertiports", s.requireRole(auth.RoleOperator, s.handleUpdateVertiports))
			r.Post("/waypoints", s.requireRole(auth.RoleOperator, s.handleUpdateWaypoints))
			r.Post("/zones", s.requireRole(auth.RoleOperator, s.handleUpdateZones))
			r.Post("/flight-paths", s.requireRole(auth.RoleOperator, s.handleUpdateFlightPath))
			r.Post("/aircraft-position", s.requireRole(auth.RoleOperator, s.handleUpdateAircraftPosition))

			r.Post("/best-path", s.requireRole(auth.RoleViewer, s.handleBestPath))
			r.Post("/check-intersection", s.requireRole(auth.RoleViewer, s.handleCheckIntersection))
			r.Get("/flights", s.requireRole(auth.RoleViewer, s.handleGetFlights))

			r.Get("/ws/flights", s.handleFlightsWebSocket)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		var token string
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		} else {
			http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := s.authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type ctxKey int

const ctxKeyRole ctxKey = iota

// requireRole wraps a handler so it only runs if the authenticated
// caller's role satisfies minRole (spec's authn/z non-goal: the boundary
// is enforced here, policy itself is out of scope).
func (s *Server) requireRole(minRole string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, _ := r.Context().Value(ctxKeyRole).(string)
		if !auth.HasRole(role, minRole) {
			http.Error(w, "insufficient role", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// Credential storage/lookup is out of this engine's scope (spec's
	// authn/z non-goal); any caller with the configured shared secret as
	// their password is issued a viewer token. Deployments that need real
	// user accounts front this with their own identity provider.
	if req.Password != s.cfg.Auth.JWTSecret || req.Username == "" {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := s.authSvc.GenerateToken(0, req.Username, auth.RoleViewer)
	if err != nil {
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"token": token})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !s.query.IsReady(r.Context()) {
		http.Error(w, "backend unreachable", http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleUpdateVertiports(w http.ResponseWriter, r *http.Request) {
	var records []ingest.VertiportRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.query.UpdateVertiports(r.Context(), records); err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"applied": len(records)})
}

func (s *Server) handleUpdateWaypoints(w http.ResponseWriter, r *http.Request) {
	var records []ingest.WaypointRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.query.UpdateWaypoints(r.Context(), records); err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"applied": len(records)})
}

func (s *Server) handleUpdateZones(w http.ResponseWriter, r *http.Request) {
	var records []ingest.ZoneRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.query.UpdateZones(r.Context(), records); err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"applied": len(records)})
}

func (s *Server) handleUpdateFlightPath(w http.ResponseWriter, r *http.Request) {
	var record ingest.FlightPathRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.query.UpdateFlightPath(r.Context(), record); err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"applied": true})
}

func (s *Server) handleUpdateAircraftPosition(w http.ResponseWriter, r *http.Request) {
	var record ingest.AircraftRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	applied, err := s.query.UpdateAircraftPosition(r.Context(), record)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"applied": applied})
}

func (s *Server) handleBestPath(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OriginID   string         `json:"origin_id"`
		OriginType query.NodeType `json:"origin_type"`
		TargetID   string         `json:"target_id"`
		TargetType query.NodeType `json:"target_type"`
		TStart     time.Time      `json:"t_start"`
		TEnd       time.Time      `json:"t_end"`
		Limit      int32          `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := s.query.BestPath(r.Context(), query.BestPathRequest{
		OriginID: req.OriginID, OriginType: req.OriginType,
		TargetID: req.TargetID, TargetType: req.TargetType,
		TStart: req.TStart, TEnd: req.TEnd, Limit: req.Limit,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCheckIntersection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OriginID string       `json:"origin_id"`
		TargetID string       `json:"target_id"`
		Path     []geo.Point3 `json:"path"`
		TStart   time.Time    `json:"t_start"`
		TEnd     time.Time    `json:"t_end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	hit, err := s.query.CheckIntersection(r.Context(), query.CheckIntersectionRequest{
		OriginID: req.OriginID, TargetID: req.TargetID,
		Path: req.Path, TStart: req.TStart, TEnd: req.TEnd,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"conflict": hit})
}

func (s *Server) handleGetFlights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := query.GetFlightsRequest{
		MinLat: parseFloatParam(q, "min_lat"),
		MinLon: parseFloatParam(q, "min_lon"),
		MaxLat: parseFloatParam(q, "max_lat"),
		MaxLon: parseFloatParam(q, "max_lon"),
	}
	var err error
	if req.TStart, err = time.Parse(time.RFC3339, q.Get("t_start")); err != nil {
		http.Error(w, "invalid or missing t_start", http.StatusBadRequest)
		return
	}
	if req.TEnd, err = time.Parse(time.RFC3339, q.Get("t_end")); err != nil {
		http.Error(w, "invalid or missing t_end", http.StatusBadRequest)
		return
	}

	flights, err := s.query.GetFlights(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"flights": flights})
}

// handleFlightsWebSocket pushes the current get_flights snapshot for the
// requested rectangle, over a window from now to one hour ahead, every 5
// seconds until the client disconnects (SPEC_FULL §11's live push feed,
// grounded on gorilla/websocket as used elsewhere in the retrieved pack).
func (s *Server) handleFlightsWebSocket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rect := query.GetFlightsRequest{
		MinLat: parseFloatParam(q, "min_lat"),
		MinLon: parseFloatParam(q, "min_lon"),
		MaxLat: parseFloatParam(q, "max_lat"),
		MaxLon: parseFloatParam(q, "max_lon"),
	}

	conn, err := s.upgrade.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		window := rect
		window.TStart = time.Now().UTC()
		window.TEnd = window.TStart.Add(time.Hour)

		flights, err := s.query.GetFlights(r.Context(), window)
		if err != nil {
			log.Printf("websocket get_flights: %v", err)
			return
		}
		if err := conn.WriteJSON(map[string]any{"flights": flights}); err != nil {
			return
		}
	}
}

func parseFloatParam(q interface{ Get(string) string }, key string) float64 {
	var v float64
	fmt.Sscanf(q.Get(key), "%g", &v)
	return v
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apierr.BadGeometry), errors.Is(err, apierr.BadTelemetry):
		status = http.StatusBadRequest
	case errors.Is(err, apierr.UnknownEndpoint):
		status = http.StatusNotFound
	case errors.Is(err, apierr.StoreUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, apierr.Conflict):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
