package conteudo

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/auth"
	httpmiddleware "github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/http/middleware"
)

func novoRouterTeste(t *testing.T, svc *Service) (http.Handler, string) {
	t.Helper()
	mgr := auth.NewJWTManager("0123456789abcdef0123456789abcdef", 15*time.Minute)

	token, _, err := mgr.GenerateAccessToken(uuid.NewString(), auth.AudienceMedico, []string{auth.RoleMedico})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	r := chi.NewRouter()
	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(mgr))
		Mount(private, NewHandler(svc))
	})
	return r, token
}

func corpoPublicacao(t *testing.T, audio []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	_ = mw.WriteField("titulo", "Respiração guiada")
	_ = mw.WriteField("categoria", "ansiedade")
	_ = mw.WriteField("duracao_segundos", "300")

	part, err := mw.CreateFormFile("audio", "respiracao.mp3")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(audio); err != nil {
		t.Fatalf("escrever áudio: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("fechar multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestPublicarHTTP(t *testing.T) {
	uploader := &uploaderStub{}
	svc := NewService(novoCatalogoStub(), &sessaoStub{}, uploader)
	router, token := novoRouterTeste(t, svc)

	body, contentType := corpoPublicacao(t, []byte("bytes-de-audio"))
	req := httptest.NewRequest(http.MethodPost, "/medico/meditacoes", body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if uploader.envios != 1 {
		t.Fatalf("esperava 1 upload, houve %d", uploader.envios)
	}
}

func TestPublicarRejeitaAudioGrandeDemais(t *testing.T) {
	uploader := &uploaderStub{}
	svc := NewService(novoCatalogoStub(), &sessaoStub{}, uploader)
	router, token := novoRouterTeste(t, svc)

	// um byte acima do limite: rejeitar em vez de publicar truncado
	body, contentType := corpoPublicacao(t, bytes.Repeat([]byte{'a'}, maxAudioBytes+1))
	req := httptest.NewRequest(http.MethodPost, "/medico/meditacoes", body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, esperado 413: %s", rec.Code, rec.Body.String())
	}
	if uploader.envios != 0 {
		t.Fatalf("áudio excedente não deveria ter sido enviado ao bucket")
	}
}
