package relatorio

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/http/middleware"
)

// Handler expõe o relatório de atividade por paciente.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(httpmiddleware.RequireMedico).
		Get("/medico/pacientes/{id}/relatorio", h.handleGetRelatorio)
}

// Mount registra rotas do módulo de relatório.
func Mount(r chi.Router, handler *Handler) {
	handler.RegisterRoutes(r)
}

func (h *Handler) handleGetRelatorio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	medicoID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	pacienteID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "paciente inválido", nil)
		return
	}

	rel, err := h.service.GetRelatorio(ctx, medicoID, pacienteID)
	if err != nil {
		if errors.Is(err, ErrNaoAutorizado) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "médico sem vínculo com o paciente", nil)
			return
		}
		log.Error().Err(err).Msg("relatorio handler error")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
		return
	}

	reqID := chimiddleware.GetReqID(ctx)
	log.Info().Str("request_id", reqID).Str("user_id", medicoID.String()).Str("label", "GET /medico/pacientes/{id}/relatorio").Dur("duration", time.Since(start)).Msg("relatorio_request")
	writeJSON(w, http.StatusOK, rel)
}

func subjectAsUUID(ctx context.Context) (uuid.UUID, error) {
	sub := httpmiddleware.GetSubject(ctx)
	return uuid.Parse(sub)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": payload, "error": nil})
}

func writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":  nil,
		"error": map[string]any{"code": code, "message": message, "details": details},
	})
}
