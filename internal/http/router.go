package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"altenheim-avatar/internal/metrics"
)

// Router wraps a gorilla/mux router with the public and authenticated route groups.
type Router struct {
	root   *mux.Router
	api    *mux.Router
	logger *zap.Logger
}

func NewRouter(tokens TokenParser, logger *zap.Logger) *Router {
	root := mux.NewRouter()
	root.Use(recoverer(logger), accessLog(logger))
	root.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, Fail("Not found."))
	})
	root.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, Fail("Method not allowed."))
	})

	api := root.PathPrefix("/api").Subrouter()
	api.Use(requireAuth(tokens, logger))

	return &Router{root: root, api: api, logger: logger}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.root.ServeHTTP(w, req)
}

// RegisterAuthRoutes registers the login routes on the root router, outside the
// token-checking /api subrouter.
func (r *Router) RegisterAuthRoutes(h *AuthHandler) {
	r.root.HandleFunc("/api/auth/login", h.Login).Methods(http.MethodPost)
	r.root.HandleFunc("/api/auth/resident-login", h.ResidentLogin).Methods(http.MethodPost)
}

func (r *Router) RegisterChatRoutes(h *ChatHandler) {
	r.api.HandleFunc("/chat", h.Chat).Methods(http.MethodPost)
}

func (r *Router) RegisterConversationRoutes(h *ConversationHandler) {
	r.api.HandleFunc("/conversations/my", h.ListOwn).Methods(http.MethodGet)
	r.api.HandleFunc("/conversations/resident/{residentId}", h.ListForResident).Methods(http.MethodGet)
	r.api.HandleFunc("/conversations/{id}/messages", h.Messages).Methods(http.MethodGet)
	r.api.HandleFunc("/conversations/{id}/end", h.End).Methods(http.MethodPost)
	r.api.HandleFunc("/conversations/{id}/export", h.Export).Methods(http.MethodGet)
}

func (r *Router) RegisterBiographyRoutes(h *BiographyHandler) {
	r.api.HandleFunc("/biographies/resident/{residentId}", h.List).Methods(http.MethodGet)
	r.api.HandleFunc("/biographies/resident/{residentId}", h.Upsert).Methods(http.MethodPost)
	r.api.HandleFunc("/biographies/{id}", h.Update).Methods(http.MethodPut)
	r.api.HandleFunc("/biographies/{id}", h.Delete).Methods(http.MethodDelete)
}

func (r *Router) RegisterUsageRoutes(h *UsageHandler) {
	r.api.HandleFunc("/usage", h.List).Methods(http.MethodGet)
}

// RegisterOpsRoutes registers /health and /metrics.
func (r *Router) RegisterOpsRoutes(h *HealthHandler) {
	r.root.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.root.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
}
