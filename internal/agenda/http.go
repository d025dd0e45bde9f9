package agenda

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
	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/repo"
)

// Handler orquestra rotas da agenda do médico.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/medico/consultas", func(r chi.Router) {
		r.Use(httpmiddleware.RequireMedico)
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/semana", h.handleSemana)
		r.Get("/{id}", h.handleGet)
		r.Patch("/{id}", h.handleUpdate)
		r.Post("/{id}/cancelar", h.handleCancel)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	medicoID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var in CriarConsultaInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}
	if chave := strings.TrimSpace(r.Header.Get("X-Idempotency-Key")); chave != "" {
		in.ChaveIdempotencia = chave
	}

	consulta, err := h.service.Create(ctx, medicoID, in)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "POST /medico/consultas", medicoID, start)
	writeJSON(w, http.StatusCreated, consulta)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	medicoID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	de, err := ParseData(r.URL.Query().Get("de"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "parâmetro de inválido", nil)
		return
	}
	ate, err := ParseData(r.URL.Query().Get("ate"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "parâmetro ate inválido", nil)
		return
	}

	consultas, err := h.service.ListForDoctor(ctx, medicoID, de, ate, r.URL.Query().Get("status"))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "GET /medico/consultas", medicoID, start)
	writeJSON(w, http.StatusOK, map[string]any{"consultas": consultas})
}

func (h *Handler) handleSemana(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	medicoID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	ancora := time.Now()
	if v := r.URL.Query().Get("ancora"); v != "" {
		tmp, err := ParseData(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "parâmetro ancora inválido", nil)
			return
		}
		ancora = tmp
	}

	semana, err := h.service.ListForWeek(ctx, medicoID, ancora)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "GET /medico/consultas/semana", medicoID, start)
	writeJSON(w, http.StatusOK, map[string]any{"semana": semana})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	medicoID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "consulta inválida", nil)
		return
	}

	consulta, err := h.service.Get(ctx, medicoID, id)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, consulta)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	medicoID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "consulta inválida", nil)
		return
	}

	var in AtualizarConsultaInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	consulta, err := h.service.Update(ctx, medicoID, id, in)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "PATCH /medico/consultas/{id}", medicoID, start)
	writeJSON(w, http.StatusOK, consulta)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	medicoID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "consulta inválida", nil)
		return
	}

	consulta, err := h.service.Cancel(ctx, medicoID, id)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "POST /medico/consultas/{id}/cancelar", medicoID, start)
	writeJSON(w, http.StatusOK, consulta)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	medicoID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "consulta inválida", nil)
		return
	}

	if err := h.service.Delete(ctx, medicoID, id); err != nil {
		handleDomainError(w, err)
		return
	}

	logRequest(ctx, "DELETE /medico/consultas/{id}", medicoID, start)
	writeJSON(w, http.StatusOK, map[string]string{"status": "removida"})
}

func subjectAsUUID(ctx context.Context) (uuid.UUID, error) {
	sub := httpmiddleware.GetSubject(ctx)
	return uuid.Parse(sub)
}

func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNaoAutorizado):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "médico sem vínculo com o paciente", nil)
	case errors.Is(err, ErrSlotInvalido):
		writeError(w, http.StatusBadRequest, "VALIDATION", "data, hora ou duração inválidas", nil)
	case errors.Is(err, ErrTransicaoInvalida):
		writeError(w, http.StatusConflict, "TRANSICAO_INVALIDA", "transição de status inválida", nil)
	case errors.Is(err, ErrConflitoHorario):
		writeError(w, http.StatusConflict, "CONFLITO_HORARIO", "horário conflita com outra consulta", nil)
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "consulta não encontrada", nil)
	default:
		writeInternalError(w, err)
	}
}

func writeInternalError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("agenda handler error")
	writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
}

func logRequest(ctx context.Context, label string, userID uuid.UUID, start time.Time) {
	reqID := chimiddleware.GetReqID(ctx)
	log.Info().Str("request_id", reqID).Str("user_id", userID.String()).Str("label", label).Dur("duration", time.Since(start)).Msg("agenda_request")
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
