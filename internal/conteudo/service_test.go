package conteudo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/repo"
	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/storage"
)

type catalogoStub struct {
	itens     map[uuid.UUID]Meditacao
	insertErr error
}

func novoCatalogoStub() *catalogoStub {
	return &catalogoStub{itens: make(map[uuid.UUID]Meditacao)}
}

func (c *catalogoStub) Insert(ctx context.Context, m Meditacao) (Meditacao, error) {
	if c.insertErr != nil {
		return Meditacao{}, c.insertErr
	}
	m.CriadoEm = time.Now().UTC()
	c.itens[m.ID] = m
	return m, nil
}

func (c *catalogoStub) GetByID(ctx context.Context, id uuid.UUID) (Meditacao, error) {
	m, ok := c.itens[id]
	if !ok {
		return Meditacao{}, repo.ErrNotFound
	}
	return m, nil
}

func (c *catalogoStub) List(ctx context.Context, categoria string) ([]Meditacao, error) {
	var out []Meditacao
	for _, m := range c.itens {
		if categoria == "" || m.Categoria == categoria {
			out = append(out, m)
		}
	}
	return out, nil
}

type sessaoStub struct {
	registros []string
	err       error
}

func (s *sessaoStub) RegistrarMeditacaoSessao(ctx context.Context, pacienteID, meditacaoID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.registros = append(s.registros, pacienteID.String()+"/"+meditacaoID.String())
	return nil
}

type uploaderStub struct {
	ultimo storage.UploadInput
	envios int
	err    error
}

func (u *uploaderStub) Upload(ctx context.Context, input storage.UploadInput) (*storage.UploadResult, error) {
	u.envios++
	u.ultimo = input
	if u.err != nil {
		return nil, u.err
	}
	return &storage.UploadResult{URL: "https://cdn.example.com/" + input.Key, ETag: "abc123"}, nil
}

func TestPublicarSobeAudioECadastra(t *testing.T) {
	catalogo := novoCatalogoStub()
	uploader := &uploaderStub{}
	svc := NewService(catalogo, &sessaoStub{}, uploader)

	meditacao, err := svc.Publicar(context.Background(), PublicarMeditacaoInput{
		Titulo:          "  Respiração guiada  ",
		Categoria:       "ansiedade",
		DuracaoSegundos: 300,
		Audio:           []byte("bytes-de-audio"),
	})
	if err != nil {
		t.Fatalf("Publicar: %v", err)
	}

	if meditacao.Titulo != "Respiração guiada" {
		t.Fatalf("titulo sem trim: %q", meditacao.Titulo)
	}
	if uploader.envios != 1 {
		t.Fatalf("esperava 1 upload, houve %d", uploader.envios)
	}
	wantKey := fmt.Sprintf("meditacoes/%s", meditacao.ID)
	if uploader.ultimo.Key != wantKey {
		t.Fatalf("chave do objeto = %q, esperava %q", uploader.ultimo.Key, wantKey)
	}
	if uploader.ultimo.ContentType != "audio/mpeg" {
		t.Fatalf("content-type padrão = %q", uploader.ultimo.ContentType)
	}
	if !strings.HasSuffix(meditacao.AudioURL, wantKey) {
		t.Fatalf("audio_url não aponta para o objeto: %q", meditacao.AudioURL)
	}
	if _, ok := catalogo.itens[meditacao.ID]; !ok {
		t.Fatal("meditação não foi cadastrada no catálogo")
	}
}

func TestPublicarValidaCamposAntesDoUpload(t *testing.T) {
	casos := []PublicarMeditacaoInput{
		{Titulo: "", Categoria: "sono", Audio: []byte("x")},
		{Titulo: "Título", Categoria: "   ", Audio: []byte("x")},
		{Titulo: "Título", Categoria: "sono", Audio: nil},
	}

	for i, in := range casos {
		uploader := &uploaderStub{}
		svc := NewService(novoCatalogoStub(), &sessaoStub{}, uploader)

		if _, err := svc.Publicar(context.Background(), in); !errors.Is(err, ErrEntradaInvalida) {
			t.Fatalf("caso %d: esperava ErrEntradaInvalida, veio %v", i, err)
		}
		if uploader.envios != 0 {
			t.Fatalf("caso %d: upload não deveria ter acontecido", i)
		}
	}
}

func TestPublicarPreservaContentTypeInformado(t *testing.T) {
	uploader := &uploaderStub{}
	svc := NewService(novoCatalogoStub(), &sessaoStub{}, uploader)

	_, err := svc.Publicar(context.Background(), PublicarMeditacaoInput{
		Titulo:      "Sons da chuva",
		Categoria:   "sono",
		Audio:       []byte("x"),
		ContentType: "audio/ogg",
	})
	if err != nil {
		t.Fatalf("Publicar: %v", err)
	}
	if uploader.ultimo.ContentType != "audio/ogg" {
		t.Fatalf("content-type = %q, esperava audio/ogg", uploader.ultimo.ContentType)
	}
}

func TestPublicarPropagaFalhaDeUpload(t *testing.T) {
	catalogo := novoCatalogoStub()
	svc := NewService(catalogo, &sessaoStub{}, storage.NoopUploader{})

	_, err := svc.Publicar(context.Background(), PublicarMeditacaoInput{
		Titulo:    "Body scan",
		Categoria: "ansiedade",
		Audio:     []byte("x"),
	})
	if !errors.Is(err, storage.ErrSemUploader) {
		t.Fatalf("esperava ErrSemUploader embrulhado, veio %v", err)
	}
	if len(catalogo.itens) != 0 {
		t.Fatal("catálogo não deveria ter sido alterado após falha de upload")
	}
}

func TestRegistrarSessaoExigeMeditacaoExistente(t *testing.T) {
	catalogo := novoCatalogoStub()
	sessoes := &sessaoStub{}
	svc := NewService(catalogo, sessoes, &uploaderStub{})

	paciente := uuid.New()

	if err := svc.RegistrarSessao(context.Background(), paciente, uuid.New()); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("esperava ErrNotFound para meditação desconhecida, veio %v", err)
	}
	if len(sessoes.registros) != 0 {
		t.Fatal("sessão não deveria ter sido registrada")
	}

	meditacao := Meditacao{ID: uuid.New(), Titulo: "Respiração 4-7-8", Categoria: "ansiedade"}
	catalogo.itens[meditacao.ID] = meditacao

	if err := svc.RegistrarSessao(context.Background(), paciente, meditacao.ID); err != nil {
		t.Fatalf("RegistrarSessao: %v", err)
	}
	if len(sessoes.registros) != 1 {
		t.Fatalf("esperava 1 sessão registrada, havia %d", len(sessoes.registros))
	}
}

func TestListarFiltraPorCategoria(t *testing.T) {
	catalogo := novoCatalogoStub()
	svc := NewService(catalogo, &sessaoStub{}, &uploaderStub{})

	a := Meditacao{ID: uuid.New(), Titulo: "A", Categoria: "ansiedade"}
	b := Meditacao{ID: uuid.New(), Titulo: "B", Categoria: "sono"}
	catalogo.itens[a.ID] = a
	catalogo.itens[b.ID] = b

	todas, err := svc.Listar(context.Background(), "")
	if err != nil {
		t.Fatalf("Listar: %v", err)
	}
	if len(todas) != 2 {
		t.Fatalf("esperava 2 meditações, veio %d", len(todas))
	}

	sono, err := svc.Listar(context.Background(), "sono")
	if err != nil {
		t.Fatalf("Listar(sono): %v", err)
	}
	if len(sono) != 1 || sono[0].Categoria != "sono" {
		t.Fatalf("filtro por categoria falhou: %+v", sono)
	}
}
