package conteudo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/http/middleware"
	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/repo"
	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/storage"
)

const maxAudioBytes = 32 << 20

// Handler expõe o catálogo de meditações.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/paciente/meditacoes", func(r chi.Router) {
		r.Use(httpmiddleware.RequirePaciente)
		r.Get("/", h.handleListar)
		r.Post("/{id}/sessoes", h.handleRegistrarSessao)
	})

	r.With(httpmiddleware.RequireMedico).Post("/medico/meditacoes", h.handlePublicar)
}

// Mount registra rotas do módulo de conteúdo.
func Mount(r chi.Router, handler *Handler) {
	handler.RegisterRoutes(r)
}

func (h *Handler) handleListar(w http.ResponseWriter, r *http.Request) {
	meditacoes, err := h.service.Listar(r.Context(), r.URL.Query().Get("categoria"))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"meditacoes": meditacoes})
}

func (h *Handler) handleRegistrarSessao(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pacienteID, err := subjectAsUUID(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	meditacaoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "meditação inválida", nil)
		return
	}

	if err := h.service.RegistrarSessao(ctx, pacienteID, meditacaoID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "meditação não encontrada", nil)
			return
		}
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "registrada"})
}

func (h *Handler) handlePublicar(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "formulário inválido", nil)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "áudio obrigatório", nil)
		return
	}
	defer file.Close()

	// lê um byte além do limite para distinguir exato de excedente
	audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes+1))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if len(audio) > maxAudioBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "VALIDATION", "áudio excede o tamanho máximo", nil)
		return
	}

	duracao, _ := strconv.Atoi(r.FormValue("duracao_segundos"))

	meditacao, err := h.service.Publicar(r.Context(), PublicarMeditacaoInput{
		Titulo:          r.FormValue("titulo"),
		Categoria:       r.FormValue("categoria"),
		DuracaoSegundos: duracao,
		Audio:           audio,
		ContentType:     header.Header.Get("Content-Type"),
	})
	if err != nil {
		if errors.Is(err, ErrEntradaInvalida) {
			writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		if errors.Is(err, storage.ErrSemUploader) {
			writeError(w, http.StatusServiceUnavailable, "STORAGE_INDISPONIVEL", "armazenamento de mídia não configurado", nil)
			return
		}
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, meditacao)
}

func subjectAsUUID(ctx context.Context) (uuid.UUID, error) {
	sub := httpmiddleware.GetSubject(ctx)
	return uuid.Parse(sub)
}

func writeInternalError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("conteudo handler error")
	writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
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
