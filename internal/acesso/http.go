package acesso

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/http/middleware"
)

// Handler orquestra rotas de código de acesso e vínculos.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/paciente", func(r chi.Router) {
		r.With(httpmiddleware.RequirePaciente).Post("/codigo", h.handleEnsureCodigo)
	})

	r.Route("/medico", func(r chi.Router) {
		r.Use(httpmiddleware.RequireMedico)
		r.Post("/vinculos", h.handleResgatar)
		r.Get("/pacientes", h.handleListPacientes)
	})
}

func (h *Handler) handleEnsureCodigo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	pacienteID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	codigo, err := h.service.EnsureCodigo(ctx, pacienteID)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	logRequest(ctx, "POST /paciente/codigo", pacienteID, start)
	writeJSON(w, http.StatusOK, map[string]string{"codigo": codigo})
}

func (h *Handler) handleResgatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	medicoID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var payload struct {
		Codigo string `json:"codigo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}
	if strings.TrimSpace(payload.Codigo) == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION", "codigo obrigatório", nil)
		return
	}

	resultado, err := h.service.Resgatar(ctx, medicoID, payload.Codigo)
	if err != nil {
		if errors.Is(err, ErrCodigoInvalido) {
			writeError(w, http.StatusNotFound, "CODIGO_INVALIDO", "código de acesso inválido", nil)
			return
		}
		writeInternalError(w, err)
		return
	}

	logRequest(ctx, "POST /medico/vinculos", medicoID, start)
	writeJSON(w, http.StatusOK, resultado)
}

func (h *Handler) handleListPacientes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	medicoID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	pacientes, err := h.service.ListPacientes(ctx, medicoID)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	logRequest(ctx, "GET /medico/pacientes", medicoID, start)
	writeJSON(w, http.StatusOK, map[string]any{"pacientes": pacientes})
}

func subjectAsUUID(ctx context.Context) (uuid.UUID, error) {
	sub := httpmiddleware.GetSubject(ctx)
	return uuid.Parse(sub)
}

func writeInternalError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("acesso handler error")
	writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
}

func logRequest(ctx context.Context, label string, userID uuid.UUID, start time.Time) {
	reqID := chimiddleware.GetReqID(ctx)
	log.Info().Str("request_id", reqID).Str("user_id", userID.String()).Str("label", label).Dur("duration", time.Since(start)).Msg("acesso_request")
}

// Helpers de resposta JSON compatíveis com o resto do projeto.
type successEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

type errorEnvelope struct {
	Data  any            `json:"data"`
	Error *errorResponse `json:"error"`
}

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Data: payload, Error: nil})
}

func writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Data: nil, Error: &errorResponse{Code: code, Message: message, Details: details}})
}
