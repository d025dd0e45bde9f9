package conteudo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/storage"
)

var (
	// ErrEntradaInvalida indica campos obrigatórios ausentes na publicação.
	ErrEntradaInvalida = errors.New("título, categoria e áudio são obrigatórios")
)

// CatalogoRepository abstrai o catálogo de meditações.
type CatalogoRepository interface {
	Insert(ctx context.Context, m Meditacao) (Meditacao, error)
	GetByID(ctx context.Context, id uuid.UUID) (Meditacao, error)
	List(ctx context.Context, categoria string) ([]Meditacao, error)
}

// SessaoRegistrador grava sessões concluídas para o relatório do médico.
type SessaoRegistrador interface {
	RegistrarMeditacaoSessao(ctx context.Context, pacienteID, meditacaoID uuid.UUID) error
}

// PublicarMeditacaoInput carrega os campos de publicação de um áudio.
type PublicarMeditacaoInput struct {
	Titulo          string
	Categoria       string
	DuracaoSegundos int
	Audio           []byte
	ContentType     string
}

// Service gerencia o catálogo de meditações e sessões dos pacientes.
type Service struct {
	repo     CatalogoRepository
	sessoes  SessaoRegistrador
	uploader storage.Uploader
}

func NewService(repo CatalogoRepository, sessoes SessaoRegistrador, uploader storage.Uploader) *Service {
	return &Service{repo: repo, sessoes: sessoes, uploader: uploader}
}

// Publicar sobe o áudio para o bucket e cadastra a meditação no catálogo.
func (s *Service) Publicar(ctx context.Context, in PublicarMeditacaoInput) (*Meditacao, error) {
	if strings.TrimSpace(in.Titulo) == "" || strings.TrimSpace(in.Categoria) == "" || len(in.Audio) == 0 {
		return nil, ErrEntradaInvalida
	}

	id := uuid.New()
	contentType := in.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	result, err := s.uploader.Upload(ctx, storage.UploadInput{
		Key:         fmt.Sprintf("meditacoes/%s", id),
		Body:        in.Audio,
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload de áudio: %w", err)
	}

	meditacao, err := s.repo.Insert(ctx, Meditacao{
		ID:              id,
		Titulo:          strings.TrimSpace(in.Titulo),
		Categoria:       strings.TrimSpace(in.Categoria),
		DuracaoSegundos: in.DuracaoSegundos,
		AudioURL:        result.URL,
	})
	if err != nil {
		return nil, err
	}
	return &meditacao, nil
}

// Listar devolve o catálogo para o app do paciente.
func (s *Service) Listar(ctx context.Context, categoria string) ([]Meditacao, error) {
	return s.repo.List(ctx, categoria)
}

// RegistrarSessao grava a conclusão de uma meditação pelo paciente.
func (s *Service) RegistrarSessao(ctx context.Context, pacienteID, meditacaoID uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, meditacaoID); err != nil {
		return err
	}
	return s.sessoes.RegistrarMeditacaoSessao(ctx, pacienteID, meditacaoID)
}
