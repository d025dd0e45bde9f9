package acesso

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/repo"
)

var (
	// ErrCodigoInvalido indica que o código informado não resolve para nenhum paciente.
	ErrCodigoInvalido = errors.New("código de acesso inválido")
)

const maxTentativasCodigo = 5

// Registry abstrai o armazenamento de códigos e vínculos.
type Registry interface {
	CodigoStore
	FindPacienteByCodigo(ctx context.Context, codigo string) (uuid.UUID, error)
	FindVinculo(ctx context.Context, medicoID, pacienteID uuid.UUID) (Vinculo, error)
	InsertVinculo(ctx context.Context, medicoID, pacienteID uuid.UUID) (Vinculo, error)
	ListPacientesVinculados(ctx context.Context, medicoID uuid.UUID) ([]PacienteVinculado, error)
}

// Resultado descreve o desfecho do resgate de um código.
type Resultado struct {
	PacienteID  uuid.UUID `json:"paciente_id"`
	JaVinculado bool      `json:"ja_vinculado"`
}

// Service implementa a troca código-por-vínculo entre médicos e pacientes.
type Service struct {
	repo   Registry
	legado CodigoLegado
	rnd    io.Reader
}

// NewService cria o serviço. legado pode ser nil quando não há fonte de migração.
func NewService(repo Registry, legado CodigoLegado) *Service {
	return &Service{repo: repo, legado: legado}
}

// EnsureCodigo devolve o código vigente do paciente, gerando e gravando um novo
// apenas quando nenhuma fonte possui um. Idempotente: chamadas repetidas
// devolvem o mesmo código sem nova escrita.
func (s *Service) EnsureCodigo(ctx context.Context, pacienteID uuid.UUID) (string, error) {
	codigo, err := ReadThroughCodigo(ctx, s.repo, s.legado, pacienteID)
	if err == nil {
		return codigo, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return "", err
	}

	for tentativa := 0; tentativa < maxTentativasCodigo; tentativa++ {
		novo, err := GerarCodigo(s.rnd)
		if err != nil {
			return "", err
		}

		err = s.repo.SetCodigo(ctx, pacienteID, novo)
		switch {
		case err == nil:
			return novo, nil
		case errors.Is(err, repo.ErrConflict):
			// colisão com código de outro paciente
			log.Warn().Str("paciente_id", pacienteID.String()).Int("tentativa", tentativa+1).Msg("colisão de código de acesso")
			continue
		case errors.Is(err, ErrCodigoJaAtribuido):
			// corrida: outra requisição gravou primeiro
			return s.repo.GetCodigo(ctx, pacienteID)
		default:
			return "", err
		}
	}

	return "", fmt.Errorf("gerar código de acesso: %d colisões consecutivas", maxTentativasCodigo)
}

// Resgatar valida o código e cria o vínculo médico-paciente. Resgates repetidos
// pelo mesmo médico retornam JaVinculado sem criar linha nova.
func (s *Service) Resgatar(ctx context.Context, medicoID uuid.UUID, codigo string) (*Resultado, error) {
	pacienteID, err := s.repo.FindPacienteByCodigo(ctx, codigo)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCodigoInvalido
		}
		return nil, err
	}

	if _, err := s.repo.FindVinculo(ctx, medicoID, pacienteID); err == nil {
		return &Resultado{PacienteID: pacienteID, JaVinculado: true}, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	if _, err := s.repo.InsertVinculo(ctx, medicoID, pacienteID); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			// resgate concorrente do mesmo par (duplo clique)
			return &Resultado{PacienteID: pacienteID, JaVinculado: true}, nil
		}
		return nil, err
	}

	return &Resultado{PacienteID: pacienteID}, nil
}

// TemVinculo responde se o médico está autorizado a acessar o paciente.
func (s *Service) TemVinculo(ctx context.Context, medicoID, pacienteID uuid.UUID) (bool, error) {
	_, err := s.repo.FindVinculo(ctx, medicoID, pacienteID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// ListPacientes lista pacientes vinculados ao médico.
func (s *Service) ListPacientes(ctx context.Context, medicoID uuid.UUID) ([]PacienteVinculado, error) {
	return s.repo.ListPacientesVinculados(ctx, medicoID)
}
