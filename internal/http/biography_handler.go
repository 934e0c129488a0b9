package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"altenheim-avatar/internal/service"
)

type BiographyHandler struct {
	biographies service.BiographyService
	logger      *zap.Logger
}

func NewBiographyHandler(biographies service.BiographyService, logger *zap.Logger) *BiographyHandler {
	return &BiographyHandler{biographies: biographies, logger: logger}
}

// List GET /api/biographies/resident/{residentId}
func (h *BiographyHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.biographies.List(r.Context(), identity(r), mux.Vars(r)["residentId"])
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

// Upsert POST /api/biographies/resident/{residentId}
func (h *BiographyHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var in service.BiographyInput
	if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
		badRequest(w, "Invalid request body.")
		return
	}
	b, err := h.biographies.Upsert(r.Context(), identity(r), mux.Vars(r)["residentId"], in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(b))
}

// Update PUT /api/biographies/{id}
func (h *BiographyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.BiographyInput
	if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
		badRequest(w, "Invalid request body.")
		return
	}
	b, err := h.biographies.Update(r.Context(), identity(r), mux.Vars(r)["id"], in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(b))
}

// Delete DELETE /api/biographies/{id}
func (h *BiographyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.biographies.Delete(r.Context(), identity(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]bool{"deleted": true}))
}
