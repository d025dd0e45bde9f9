package acesso

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/repo"
)

type par struct {
	medico   uuid.UUID
	paciente uuid.UUID
}

type registroStub struct {
	codigos   map[uuid.UUID]string
	porCodigo map[string]uuid.UUID
	vinculos  map[par]Vinculo

	setCalls    int
	setErrs     []error
	insertErr   error
	getCodigoFn func(pacienteID uuid.UUID) (string, error)
}

func novoRegistroStub() *registroStub {
	return &registroStub{
		codigos:   map[uuid.UUID]string{},
		porCodigo: map[string]uuid.UUID{},
		vinculos:  map[par]Vinculo{},
	}
}

func (r *registroStub) GetCodigo(_ context.Context, pacienteID uuid.UUID) (string, error) {
	if r.getCodigoFn != nil {
		return r.getCodigoFn(pacienteID)
	}
	codigo, ok := r.codigos[pacienteID]
	if !ok || codigo == "" {
		return "", repo.ErrNotFound
	}
	return codigo, nil
}

func (r *registroStub) SetCodigo(_ context.Context, pacienteID uuid.UUID, codigo string) error {
	r.setCalls++
	if len(r.setErrs) > 0 {
		err := r.setErrs[0]
		r.setErrs = r.setErrs[1:]
		if err != nil {
			return err
		}
	}
	if atual, ok := r.codigos[pacienteID]; ok && atual != "" {
		return ErrCodigoJaAtribuido
	}
	if _, ok := r.porCodigo[codigo]; ok {
		return repo.ErrConflict
	}
	r.codigos[pacienteID] = codigo
	r.porCodigo[codigo] = pacienteID
	return nil
}

func (r *registroStub) FindPacienteByCodigo(_ context.Context, codigo string) (uuid.UUID, error) {
	id, ok := r.porCodigo[normalizar(codigo)]
	if !ok {
		return uuid.Nil, repo.ErrNotFound
	}
	return id, nil
}

func (r *registroStub) FindVinculo(_ context.Context, medicoID, pacienteID uuid.UUID) (Vinculo, error) {
	v, ok := r.vinculos[par{medicoID, pacienteID}]
	if !ok {
		return Vinculo{}, repo.ErrNotFound
	}
	return v, nil
}

func (r *registroStub) InsertVinculo(_ context.Context, medicoID, pacienteID uuid.UUID) (Vinculo, error) {
	if r.insertErr != nil {
		return Vinculo{}, r.insertErr
	}
	chave := par{medicoID, pacienteID}
	if _, ok := r.vinculos[chave]; ok {
		return Vinculo{}, repo.ErrConflict
	}
	v := Vinculo{MedicoID: medicoID, PacienteID: pacienteID, CriadoEm: time.Now().UTC()}
	r.vinculos[chave] = v
	return v, nil
}

func (r *registroStub) ListPacientesVinculados(_ context.Context, medicoID uuid.UUID) ([]PacienteVinculado, error) {
	var out []PacienteVinculado
	for chave := range r.vinculos {
		if chave.medico == medicoID {
			out = append(out, PacienteVinculado{ID: chave.paciente})
		}
	}
	return out, nil
}

func normalizar(codigo string) string {
	out := make([]byte, 0, len(codigo))
	for i := 0; i < len(codigo); i++ {
		c := codigo[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

func TestEnsureCodigoGeraQuandoAusente(t *testing.T) {
	reg := novoRegistroStub()
	svc := NewService(reg, nil)
	svc.rnd = bytes.NewReader([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15})

	pacienteID := uuid.New()
	codigo, err := svc.EnsureCodigo(context.Background(), pacienteID)
	if err != nil {
		t.Fatalf("EnsureCodigo: %v", err)
	}
	if codigo != "ABCDEFGH" {
		t.Fatalf("codigo = %q", codigo)
	}
	if reg.codigos[pacienteID] != codigo {
		t.Fatalf("código não persistido: %q", reg.codigos[pacienteID])
	}
}

func TestEnsureCodigoIdempotente(t *testing.T) {
	reg := novoRegistroStub()
	pacienteID := uuid.New()
	reg.codigos[pacienteID] = "K7M2P9QA"

	svc := NewService(reg, nil)

	for i := 0; i < 3; i++ {
		codigo, err := svc.EnsureCodigo(context.Background(), pacienteID)
		if err != nil {
			t.Fatalf("EnsureCodigo: %v", err)
		}
		if codigo != "K7M2P9QA" {
			t.Fatalf("codigo = %q, esperado K7M2P9QA", codigo)
		}
	}
	if reg.setCalls != 0 {
		t.Fatalf("setCalls = %d, código existente não deveria ser regravado", reg.setCalls)
	}
}

func TestEnsureCodigoRetentaColisao(t *testing.T) {
	reg := novoRegistroStub()
	reg.setErrs = []error{repo.ErrConflict, nil}

	svc := NewService(reg, nil)
	svc.rnd = bytes.NewReader(bytes.Repeat([]byte{0, 1, 2, 3, 4, 5, 6, 7}, 8))

	codigo, err := svc.EnsureCodigo(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("EnsureCodigo: %v", err)
	}
	if len(codigo) != codigoTamanho {
		t.Fatalf("codigo = %q", codigo)
	}
	if reg.setCalls != 2 {
		t.Fatalf("setCalls = %d, esperado 2 (colisão + sucesso)", reg.setCalls)
	}
}

func TestEnsureCodigoDesisteAposColisoes(t *testing.T) {
	reg := novoRegistroStub()
	reg.setErrs = []error{repo.ErrConflict, repo.ErrConflict, repo.ErrConflict, repo.ErrConflict, repo.ErrConflict}

	svc := NewService(reg, nil)
	svc.rnd = bytes.NewReader(bytes.Repeat([]byte{7}, 256))

	if _, err := svc.EnsureCodigo(context.Background(), uuid.New()); err == nil {
		t.Fatal("esperava erro após colisões consecutivas")
	}
	if reg.setCalls != maxTentativasCodigo {
		t.Fatalf("setCalls = %d, esperado %d", reg.setCalls, maxTentativasCodigo)
	}
}

func TestEnsureCodigoCorridaEntreRequisicoes(t *testing.T) {
	reg := novoRegistroStub()
	pacienteID := uuid.New()

	// primeira leitura não vê código; a escrita perde a corrida e a releitura
	// devolve o que o vencedor gravou
	primeira := true
	reg.getCodigoFn = func(id uuid.UUID) (string, error) {
		if primeira {
			primeira = false
			return "", repo.ErrNotFound
		}
		return "ZZZZ1111", nil
	}
	reg.setErrs = []error{ErrCodigoJaAtribuido}

	svc := NewService(reg, nil)
	svc.rnd = bytes.NewReader(bytes.Repeat([]byte{3}, 64))

	codigo, err := svc.EnsureCodigo(context.Background(), pacienteID)
	if err != nil {
		t.Fatalf("EnsureCodigo: %v", err)
	}
	if codigo != "ZZZZ1111" {
		t.Fatalf("codigo = %q, esperado o código do vencedor da corrida", codigo)
	}
}

func TestResgatarCriaVinculo(t *testing.T) {
	reg := novoRegistroStub()
	pacienteID := uuid.New()
	medicoID := uuid.New()
	reg.codigos[pacienteID] = "K7M2P9QA"
	reg.porCodigo["K7M2P9QA"] = pacienteID

	svc := NewService(reg, nil)

	res, err := svc.Resgatar(context.Background(), medicoID, "K7M2P9QA")
	if err != nil {
		t.Fatalf("Resgatar: %v", err)
	}
	if res.JaVinculado {
		t.Fatal("primeiro resgate não deveria reportar vínculo existente")
	}
	if res.PacienteID != pacienteID {
		t.Fatalf("PacienteID = %s", res.PacienteID)
	}

	ok, err := svc.TemVinculo(context.Background(), medicoID, pacienteID)
	if err != nil || !ok {
		t.Fatalf("TemVinculo = %v, %v", ok, err)
	}
}

func TestResgatarCaseInsensitive(t *testing.T) {
	reg := novoRegistroStub()
	pacienteID := uuid.New()
	reg.porCodigo["K7M2P9QA"] = pacienteID

	svc := NewService(reg, nil)

	res, err := svc.Resgatar(context.Background(), uuid.New(), "k7m2p9qa")
	if err != nil {
		t.Fatalf("Resgatar: %v", err)
	}
	if res.PacienteID != pacienteID {
		t.Fatalf("PacienteID = %s", res.PacienteID)
	}
}

func TestResgatarRepetidoEhIdempotente(t *testing.T) {
	reg := novoRegistroStub()
	pacienteID := uuid.New()
	medicoID := uuid.New()
	reg.porCodigo["K7M2P9QA"] = pacienteID

	svc := NewService(reg, nil)

	if _, err := svc.Resgatar(context.Background(), medicoID, "K7M2P9QA"); err != nil {
		t.Fatalf("primeiro resgate: %v", err)
	}

	res, err := svc.Resgatar(context.Background(), medicoID, "K7M2P9QA")
	if err != nil {
		t.Fatalf("segundo resgate: %v", err)
	}
	if !res.JaVinculado {
		t.Fatal("segundo resgate deveria reportar JaVinculado")
	}
	if len(reg.vinculos) != 1 {
		t.Fatalf("vinculos = %d, esperado 1", len(reg.vinculos))
	}
}

func TestResgatarCodigoDesconhecido(t *testing.T) {
	svc := NewService(novoRegistroStub(), nil)

	if _, err := svc.Resgatar(context.Background(), uuid.New(), "XXXXXXXX"); !errors.Is(err, ErrCodigoInvalido) {
		t.Fatalf("err = %v, esperado ErrCodigoInvalido", err)
	}
}

func TestResgatarCorridaDeInsercao(t *testing.T) {
	// FindVinculo não vê nada mas o insert bate no unique: outro resgate do
	// mesmo par chegou primeiro
	reg := novoRegistroStub()
	pacienteID := uuid.New()
	reg.porCodigo["K7M2P9QA"] = pacienteID
	reg.insertErr = repo.ErrConflict

	svc := NewService(reg, nil)

	res, err := svc.Resgatar(context.Background(), uuid.New(), "K7M2P9QA")
	if err != nil {
		t.Fatalf("Resgatar: %v", err)
	}
	if !res.JaVinculado {
		t.Fatal("conflito de inserção deveria resolver como JaVinculado")
	}
}

func TestTemVinculoSemVinculo(t *testing.T) {
	svc := NewService(novoRegistroStub(), nil)

	ok, err := svc.TemVinculo(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("TemVinculo: %v", err)
	}
	if ok {
		t.Fatal("não deveria haver vínculo")
	}
}
