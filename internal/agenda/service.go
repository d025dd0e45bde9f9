package agenda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/repo"
)

const (
	duracaoPadraoMinutos = 60
	tipoPadrao           = "Consulta Regular"
	semanaCacheTTL       = 60 * time.Second
)

// ConsultaRepository abstrai o armazenamento de consultas.
type ConsultaRepository interface {
	Insert(ctx context.Context, c Consulta) (Consulta, error)
	GetByID(ctx context.Context, id uuid.UUID) (Consulta, error)
	GetByChave(ctx context.Context, medicoID uuid.UUID, chave string) (Consulta, error)
	Update(ctx context.Context, c Consulta) (Consulta, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByMedicoPeriodo(ctx context.Context, medicoID uuid.UUID, de, ate time.Time, status string) ([]Consulta, error)
	ListByMedicoData(ctx context.Context, medicoID uuid.UUID, data time.Time) ([]Consulta, error)
	PacienteContato(ctx context.Context, pacienteID uuid.UUID) (nome, email string, err error)
}

// Autorizador responde se o médico possui vínculo com o paciente.
type Autorizador interface {
	TemVinculo(ctx context.Context, medicoID, pacienteID uuid.UUID) (bool, error)
}

// Notificador despacha e-mails transacionais por template.
type Notificador interface {
	Send(ctx context.Context, tipo, destinatario string, vars map[string]string) error
}

// Semana agrupa consultas por dia, domingo primeiro.
type Semana [7][]Consulta

// Service contém as regras da agenda de consultas.
type Service struct {
	repo  ConsultaRepository
	autz  Autorizador
	cache *redis.Client
	notif Notificador
}

// NewService cria o serviço. cache e notif podem ser nil.
func NewService(repo ConsultaRepository, autz Autorizador, cache *redis.Client, notif Notificador) *Service {
	return &Service{repo: repo, autz: autz, cache: cache, notif: notif}
}

// Create agenda uma consulta para um paciente vinculado. O status inicial é
// sempre scheduled. Com chave de idempotência repetida, devolve a consulta
// criada originalmente em vez de duplicar.
func (s *Service) Create(ctx context.Context, medicoID uuid.UUID, in CriarConsultaInput) (*Consulta, error) {
	if in.PacienteID == uuid.Nil {
		return nil, ErrSlotInvalido
	}

	data, err := ParseData(in.Data)
	if err != nil {
		return nil, err
	}
	inicio, err := ParseHora(in.Hora)
	if err != nil {
		return nil, err
	}

	duracao := in.DuracaoMinutos
	if duracao == 0 {
		duracao = duracaoPadraoMinutos
	}
	if duracao < 0 {
		return nil, ErrSlotInvalido
	}

	tipo := strings.TrimSpace(in.Tipo)
	if tipo == "" {
		tipo = tipoPadrao
	}

	ok, err := s.autz.TemVinculo(ctx, medicoID, in.PacienteID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNaoAutorizado
	}

	if err := s.verificarSobreposicao(ctx, medicoID, data, inicio, duracao, uuid.Nil); err != nil {
		return nil, err
	}

	consulta := Consulta{
		ID:                uuid.New(),
		MedicoID:          medicoID,
		PacienteID:        in.PacienteID,
		Data:              data,
		Hora:              normalizarHora(in.Hora),
		DuracaoMinutos:    duracao,
		Tipo:              tipo,
		Observacoes:       strings.TrimSpace(in.Observacoes),
		Status:            StatusScheduled,
		ChaveIdempotencia: strings.TrimSpace(in.ChaveIdempotencia),
	}

	saved, err := s.repo.Insert(ctx, consulta)
	if err != nil {
		if errors.Is(err, repo.ErrConflict) && consulta.ChaveIdempotencia != "" {
			// retry do cliente: devolve a consulta original
			existente, getErr := s.repo.GetByChave(ctx, medicoID, consulta.ChaveIdempotencia)
			if getErr != nil {
				return nil, err
			}
			return &existente, nil
		}
		return nil, err
	}

	s.invalidarSemana(ctx, medicoID, saved.Data)
	s.notificar(ctx, "consulta_agendada", saved)

	return &saved, nil
}

// buscarDoMedico carrega a consulta garantindo que pertence ao médico.
// Consulta de outro médico responde como inexistente.
func (s *Service) buscarDoMedico(ctx context.Context, medicoID, id uuid.UUID) (Consulta, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Consulta{}, err
	}
	if c.MedicoID != medicoID {
		return Consulta{}, repo.ErrNotFound
	}
	return c, nil
}

// Update aplica um patch parcial respeitando a máquina de estados.
func (s *Service) Update(ctx context.Context, medicoID, id uuid.UUID, in AtualizarConsultaInput) (*Consulta, error) {
	atual, err := s.buscarDoMedico(ctx, medicoID, id)
	if err != nil {
		return nil, err
	}

	alvo := atual
	slotAlterado := false

	if in.Data != nil {
		data, err := ParseData(*in.Data)
		if err != nil {
			return nil, err
		}
		alvo.Data = data
		slotAlterado = true
	}
	if in.Hora != nil {
		if _, err := ParseHora(*in.Hora); err != nil {
			return nil, err
		}
		alvo.Hora = normalizarHora(*in.Hora)
		slotAlterado = true
	}
	if in.DuracaoMinutos != nil {
		if *in.DuracaoMinutos <= 0 {
			return nil, ErrSlotInvalido
		}
		alvo.DuracaoMinutos = *in.DuracaoMinutos
		slotAlterado = true
	}
	if in.Tipo != nil {
		tipo := strings.TrimSpace(*in.Tipo)
		if tipo == "" {
			tipo = tipoPadrao
		}
		alvo.Tipo = tipo
	}
	if in.Observacoes != nil {
		alvo.Observacoes = strings.TrimSpace(*in.Observacoes)
	}
	if in.Status != nil {
		novo := strings.ToLower(strings.TrimSpace(*in.Status))
		if !StatusValido(novo) || !TransicaoValida(atual.Status, novo) {
			return nil, ErrTransicaoInvalida
		}
		alvo.Status = novo
	}

	if slotAlterado && alvo.Status != StatusCancelled {
		inicio, err := ParseHora(alvo.Hora)
		if err != nil {
			return nil, err
		}
		if err := s.verificarSobreposicao(ctx, alvo.MedicoID, alvo.Data, inicio, alvo.DuracaoMinutos, alvo.ID); err != nil {
			return nil, err
		}
	}

	saved, err := s.repo.Update(ctx, alvo)
	if err != nil {
		return nil, err
	}

	s.invalidarSemana(ctx, saved.MedicoID, atual.Data)
	if !saved.Data.Equal(atual.Data) {
		s.invalidarSemana(ctx, saved.MedicoID, saved.Data)
	}
	if saved.Status == StatusCancelled && atual.Status != StatusCancelled {
		s.notificar(ctx, "consulta_cancelada", saved)
	}

	return &saved, nil
}

// Cancel marca a consulta como cancelada pelo fluxo canônico, preservando o
// histórico. Remoção física fica em Delete.
func (s *Service) Cancel(ctx context.Context, medicoID, id uuid.UUID) (*Consulta, error) {
	status := StatusCancelled
	return s.Update(ctx, medicoID, id, AtualizarConsultaInput{Status: &status})
}

// Delete remove a consulta em definitivo (limpeza administrativa).
func (s *Service) Delete(ctx context.Context, medicoID, id uuid.UUID) error {
	consulta, err := s.buscarDoMedico(ctx, medicoID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidarSemana(ctx, consulta.MedicoID, consulta.Data)
	return nil
}

// Get devolve a consulta do médico pelo id.
func (s *Service) Get(ctx context.Context, medicoID, id uuid.UUID) (*Consulta, error) {
	c, err := s.buscarDoMedico(ctx, medicoID, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListForDoctor lista consultas do médico na janela, em ordem (data, hora).
// Cada chamada devolve um snapshot novo.
func (s *Service) ListForDoctor(ctx context.Context, medicoID uuid.UUID, de, ate time.Time, status string) ([]Consulta, error) {
	if ate.Before(de) {
		return nil, ErrSlotInvalido
	}
	if status != "" && !StatusValido(status) {
		return nil, ErrSlotInvalido
	}
	return s.repo.ListByMedicoPeriodo(ctx, medicoID, de, ate, status)
}

// ListForWeek agrupa as consultas da semana (domingo a sábado) que contém a
// data âncora. Resultado cacheado por pouco tempo, no padrão do painel.
func (s *Service) ListForWeek(ctx context.Context, medicoID uuid.UUID, ancora time.Time) (Semana, error) {
	inicio := InicioDaSemana(ancora)
	fim := inicio.AddDate(0, 0, 6)

	key := fmt.Sprintf("agenda:semana:%s:%s", medicoID, inicio.Format("2006-01-02"))
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var semana Semana
			if json.Unmarshal(data, &semana) == nil {
				return semana, nil
			}
		}
	}

	consultas, err := s.repo.ListByMedicoPeriodo(ctx, medicoID, inicio, fim, "")
	if err != nil {
		return Semana{}, err
	}

	var semana Semana
	for _, c := range consultas {
		semana[int(c.Data.Weekday())] = append(semana[int(c.Data.Weekday())], c)
	}

	if s.cache != nil {
		if payload, err := json.Marshal(semana); err == nil {
			_ = s.cache.Set(ctx, key, payload, semanaCacheTTL).Err()
		}
	}

	return semana, nil
}

// InicioDaSemana devolve o domingo da semana que contém a data.
func InicioDaSemana(d time.Time) time.Time {
	dia := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return dia.AddDate(0, 0, -int(dia.Weekday()))
}

func (s *Service) verificarSobreposicao(ctx context.Context, medicoID uuid.UUID, data time.Time, inicio, duracao int, ignorarID uuid.UUID) error {
	existentes, err := s.repo.ListByMedicoData(ctx, medicoID, data)
	if err != nil {
		return err
	}

	for _, e := range existentes {
		if e.ID == ignorarID {
			continue
		}
		inicioExistente, err := ParseHora(e.Hora)
		if err != nil {
			continue
		}
		if Sobrepoe(inicio, duracao, inicioExistente, e.DuracaoMinutos) {
			return ErrConflitoHorario
		}
	}
	return nil
}

func (s *Service) invalidarSemana(ctx context.Context, medicoID uuid.UUID, data time.Time) {
	if s.cache == nil {
		return
	}
	key := fmt.Sprintf("agenda:semana:%s:%s", medicoID, InicioDaSemana(data).Format("2006-01-02"))
	_ = s.cache.Del(ctx, key).Err()
}

// notificar envia e-mail best-effort; falha de notificação não falha a operação.
func (s *Service) notificar(ctx context.Context, tipo string, c Consulta) {
	if s.notif == nil {
		return
	}

	nome, email, err := s.repo.PacienteContato(ctx, c.PacienteID)
	if err != nil {
		log.Warn().Err(err).Str("consulta_id", c.ID.String()).Msg("contato do paciente indisponível")
		return
	}

	vars := map[string]string{
		"nome": nome,
		"data": c.Data.Format("02/01/2006"),
		"hora": c.Hora,
		"tipo": c.Tipo,
	}
	if err := s.notif.Send(ctx, tipo, email, vars); err != nil {
		log.Warn().Err(err).Str("tipo", tipo).Str("consulta_id", c.ID.String()).Msg("falha ao notificar paciente")
	}
}

func normalizarHora(s string) string {
	return strings.TrimSpace(s)
}
