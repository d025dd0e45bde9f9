package relatorio

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNaoAutorizado indica ausência de vínculo entre médico e paciente.
	ErrNaoAutorizado = errors.New("médico sem vínculo com o paciente")
)

// Relatorio resume a atividade do paciente para o painel do médico.
type Relatorio struct {
	PacienteID         uuid.UUID `json:"paciente_id"`
	RegistrosHumor     int       `json:"registros_humor"`
	RegistrosMedicacao int       `json:"registros_medicacao"`
	RegistrosHabitos   int       `json:"registros_habitos"`
	SessoesMeditacao   int       `json:"sessoes_meditacao"`
	MensagensChat      int       `json:"mensagens_chat"`
}

// Autorizador responde se o médico possui vínculo com o paciente.
type Autorizador interface {
	TemVinculo(ctx context.Context, medicoID, pacienteID uuid.UUID) (bool, error)
}

// AtividadeRepository expõe contadores por paciente.
type AtividadeRepository interface {
	CountHumor(ctx context.Context, pacienteID uuid.UUID) (int, error)
	CountMedicacao(ctx context.Context, pacienteID uuid.UUID) (int, error)
	CountHabitos(ctx context.Context, pacienteID uuid.UUID) (int, error)
	CountMeditacao(ctx context.Context, pacienteID uuid.UUID) (int, error)
	CountChat(ctx context.Context, pacienteID uuid.UUID) (int, error)
}

// Service monta o relatório de atividade condicionado ao vínculo.
type Service struct {
	repo AtividadeRepository
	autz Autorizador
}

func NewService(repo AtividadeRepository, autz Autorizador) *Service {
	return &Service{repo: repo, autz: autz}
}

// GetRelatorio agrega os contadores do paciente. O médico nunca recebe dados
// sem vínculo vigente; a checagem vem antes de qualquer leitura.
func (s *Service) GetRelatorio(ctx context.Context, medicoID, pacienteID uuid.UUID) (*Relatorio, error) {
	ok, err := s.autz.TemVinculo(ctx, medicoID, pacienteID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNaoAutorizado
	}

	rel := &Relatorio{PacienteID: pacienteID}

	if rel.RegistrosHumor, err = s.repo.CountHumor(ctx, pacienteID); err != nil {
		return nil, err
	}
	if rel.RegistrosMedicacao, err = s.repo.CountMedicacao(ctx, pacienteID); err != nil {
		return nil, err
	}
	if rel.RegistrosHabitos, err = s.repo.CountHabitos(ctx, pacienteID); err != nil {
		return nil, err
	}
	if rel.SessoesMeditacao, err = s.repo.CountMeditacao(ctx, pacienteID); err != nil {
		return nil, err
	}
	if rel.MensagensChat, err = s.repo.CountChat(ctx, pacienteID); err != nil {
		return nil, err
	}

	return rel, nil
}
