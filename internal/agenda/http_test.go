package agenda

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/auth"
	httpmiddleware "github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/http/middleware"
)

func novoRouterTeste(t *testing.T, svc *Service) (http.Handler, string, uuid.UUID) {
	t.Helper()
	mgr := auth.NewJWTManager("0123456789abcdef0123456789abcdef", 15*time.Minute)

	medicoID := uuid.New()
	token, _, err := mgr.GenerateAccessToken(medicoID.String(), auth.AudienceMedico, []string{auth.RoleMedico})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	r := chi.NewRouter()
	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(mgr))
		Mount(private, NewHandler(svc))
	})
	return r, token, medicoID
}

func fazer(t *testing.T, router http.Handler, method, path, token, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateConsultaHTTP(t *testing.T) {
	svc := novoServicoTeste(novoConsultaRepoStub(), true)
	router, token, _ := novoRouterTeste(t, svc)

	body := `{"paciente_id":"` + uuid.NewString() + `","data":"2026-03-16","hora":"10:00"}`
	rec := fazer(t, router, http.MethodPost, "/medico/consultas", token, body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data Consulta `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Data.Status != StatusScheduled {
		t.Fatalf("status = %s", envelope.Data.Status)
	}
	if envelope.Data.DuracaoMinutos != duracaoPadraoMinutos {
		t.Fatalf("duracao = %d", envelope.Data.DuracaoMinutos)
	}
}

func TestCreateConsultaIdempotenteHTTP(t *testing.T) {
	svc := novoServicoTeste(novoConsultaRepoStub(), true)
	router, token, _ := novoRouterTeste(t, svc)

	body := `{"paciente_id":"` + uuid.NewString() + `","data":"2026-03-16","hora":"10:00"}`
	headers := map[string]string{"X-Idempotency-Key": "req-abc"}

	primeira := fazer(t, router, http.MethodPost, "/medico/consultas", token, body, headers)
	if primeira.Code != http.StatusCreated {
		t.Fatalf("primeira: status = %d", primeira.Code)
	}
	repetida := fazer(t, router, http.MethodPost, "/medico/consultas", token, body, headers)
	if repetida.Code != http.StatusCreated {
		t.Fatalf("retry: status = %d: %s", repetida.Code, repetida.Body.String())
	}

	var a, b struct {
		Data Consulta `json:"data"`
	}
	if err := json.Unmarshal(primeira.Body.Bytes(), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := json.Unmarshal(repetida.Body.Bytes(), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.Data.ID != b.Data.ID {
		t.Fatalf("retry criou consulta nova: %s != %s", a.Data.ID, b.Data.ID)
	}
}

func TestCreateSemVinculoHTTP(t *testing.T) {
	svc := novoServicoTeste(novoConsultaRepoStub(), false)
	router, token, _ := novoRouterTeste(t, svc)

	body := `{"paciente_id":"` + uuid.NewString() + `","data":"2026-03-16","hora":"10:00"}`
	rec := fazer(t, router, http.MethodPost, "/medico/consultas", token, body, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, esperado 403", rec.Code)
	}
}

func TestConflitoHorarioHTTP(t *testing.T) {
	svc := novoServicoTeste(novoConsultaRepoStub(), true)
	router, token, _ := novoRouterTeste(t, svc)

	corpo := func() string {
		return `{"paciente_id":"` + uuid.NewString() + `","data":"2026-03-16","hora":"10:00"}`
	}
	if rec := fazer(t, router, http.MethodPost, "/medico/consultas", token, corpo(), nil); rec.Code != http.StatusCreated {
		t.Fatalf("primeira: status = %d", rec.Code)
	}

	rec := fazer(t, router, http.MethodPost, "/medico/consultas", token, corpo(), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, esperado 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "CONFLITO_HORARIO") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestTransicaoInvalidaHTTP(t *testing.T) {
	repoStub := novoConsultaRepoStub()
	svc := novoServicoTeste(repoStub, true)
	router, token, medicoID := novoRouterTeste(t, svc)

	c, err := svc.Create(context.Background(), medicoID, criarBase(uuid.New()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), medicoID, c.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	rec := fazer(t, router, http.MethodPatch, "/medico/consultas/"+c.ID.String(), token, `{"status":"confirmed"}`, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, esperado 409: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "TRANSICAO_INVALIDA") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestConsultaDeOutroMedicoHTTP(t *testing.T) {
	repoStub := novoConsultaRepoStub()
	svc := novoServicoTeste(repoStub, true)
	router, token, _ := novoRouterTeste(t, svc)

	// consulta pertence a um médico que não é o dono do token
	dono := uuid.New()
	c, err := svc.Create(context.Background(), dono, criarBase(uuid.New()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	caminhos := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/medico/consultas/" + c.ID.String(), ""},
		{http.MethodPatch, "/medico/consultas/" + c.ID.String(), `{"status":"confirmed"}`},
		{http.MethodPost, "/medico/consultas/" + c.ID.String() + "/cancelar", ""},
		{http.MethodDelete, "/medico/consultas/" + c.ID.String(), ""},
	}
	for _, caso := range caminhos {
		rec := fazer(t, router, caso.method, caso.path, token, caso.body, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s: status = %d, esperado 404: %s", caso.method, caso.path, rec.Code, rec.Body.String())
		}
	}

	guardada, err := svc.Get(context.Background(), dono, c.ID)
	if err != nil {
		t.Fatalf("Get do dono: %v", err)
	}
	if guardada.Status != StatusScheduled {
		t.Fatalf("status = %s, consulta do dono não deveria mudar", guardada.Status)
	}
}

func TestConsultaInexistenteHTTP(t *testing.T) {
	svc := novoServicoTeste(novoConsultaRepoStub(), true)
	router, token, _ := novoRouterTeste(t, svc)

	rec := fazer(t, router, http.MethodGet, "/medico/consultas/"+uuid.NewString(), token, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, esperado 404", rec.Code)
	}
}

func TestListValidaParametrosHTTP(t *testing.T) {
	svc := novoServicoTeste(novoConsultaRepoStub(), true)
	router, token, _ := novoRouterTeste(t, svc)

	rec := fazer(t, router, http.MethodGet, "/medico/consultas?de=ontem&ate=2026-03-20", token, "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, esperado 400", rec.Code)
	}
}
