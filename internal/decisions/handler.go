package decisions

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/notary/pkg/handlers"
	"github.com/JaimeStill/notary/pkg/pagination"
	"github.com/JaimeStill/notary/pkg/routes"
)

// Handler provides HTTP endpoints for decision lookups.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "decisions"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for decision endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/decisions",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{hash}", Handler: h.Find},
			{Method: "GET", Pattern: "/{hash}/canonical", Handler: h.Canonical},
		},
	}
}

// List returns a page of decisions, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.List(r.Context(), page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns the decision identified by a hash or hash label.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	rec, err := h.sys.Find(r.Context(), r.PathValue("hash"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rec)
}

// Canonical writes the archived canonical bytes unchanged.
func (h *Handler) Canonical(w http.ResponseWriter, r *http.Request) {
	data, err := h.sys.Canonical(r.Context(), r.PathValue("hash"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
