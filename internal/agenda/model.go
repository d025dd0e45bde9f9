package agenda

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status possíveis de uma consulta. Valores gravados como literais no banco.
const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var (
	// ErrNaoAutorizado indica ausência de vínculo entre médico e paciente.
	ErrNaoAutorizado = errors.New("médico sem vínculo com o paciente")
	// ErrSlotInvalido indica data, hora ou duração mal formadas.
	ErrSlotInvalido = errors.New("data, hora ou duração inválidas")
	// ErrTransicaoInvalida indica mudança de status fora da máquina de estados.
	ErrTransicaoInvalida = errors.New("transição de status inválida")
	// ErrConflitoHorario indica sobreposição com outra consulta do médico.
	ErrConflitoHorario = errors.New("horário conflita com outra consulta")
)

// Consulta representa um agendamento entre médico e paciente vinculados.
type Consulta struct {
	ID                uuid.UUID `json:"id"`
	MedicoID          uuid.UUID `json:"medico_id"`
	PacienteID        uuid.UUID `json:"paciente_id"`
	Data              time.Time `json:"data"`
	Hora              string    `json:"hora"`
	DuracaoMinutos    int       `json:"duracao_minutos"`
	Tipo              string    `json:"tipo"`
	Observacoes       string    `json:"observacoes,omitempty"`
	Status            string    `json:"status"`
	ChaveIdempotencia string    `json:"-"`
	CriadoEm          time.Time `json:"criado_em"`
	AtualizadoEm      time.Time `json:"atualizado_em"`
}

// CriarConsultaInput carrega os campos aceitos na criação. Status é sempre
// forçado para scheduled, independente do chamador.
type CriarConsultaInput struct {
	PacienteID        uuid.UUID `json:"paciente_id"`
	Data              string    `json:"data"`
	Hora              string    `json:"hora"`
	DuracaoMinutos    int       `json:"duracao_minutos"`
	Tipo              string    `json:"tipo"`
	Observacoes       string    `json:"observacoes"`
	ChaveIdempotencia string    `json:"chave_idempotencia"`
}

// AtualizarConsultaInput é um patch parcial; campos nil não são alterados.
type AtualizarConsultaInput struct {
	Data           *string `json:"data"`
	Hora           *string `json:"hora"`
	DuracaoMinutos *int    `json:"duracao_minutos"`
	Tipo           *string `json:"tipo"`
	Observacoes    *string `json:"observacoes"`
	Status         *string `json:"status"`
}

// Estados terminais não admitem saída; scheduled admite conclusão direta
// (atendimento sem confirmação prévia).
var transicoes = map[string]map[string]struct{}{
	StatusScheduled: {StatusConfirmed: {}, StatusCancelled: {}, StatusCompleted: {}},
	StatusConfirmed: {StatusCompleted: {}, StatusCancelled: {}},
	StatusCompleted: {},
	StatusCancelled: {},
}

// StatusValido responde se o valor é um status conhecido.
func StatusValido(status string) bool {
	_, ok := transicoes[status]
	return ok
}

// TransicaoValida responde se a mudança de status é permitida. Reafirmar o
// status atual é um no-op permitido.
func TransicaoValida(de, para string) bool {
	if de == para {
		return true
	}
	destinos, ok := transicoes[de]
	if !ok {
		return false
	}
	_, ok = destinos[para]
	return ok
}

// ParseData interpreta data de calendário no formato 2006-01-02.
func ParseData(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrSlotInvalido
	}
	return d, nil
}

// ParseHora interpreta hora local HH:MM e devolve minutos desde a meia-noite.
func ParseHora(s string) (int, error) {
	h, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, ErrSlotInvalido
	}
	return h.Hour()*60 + h.Minute(), nil
}

// Sobrepoe responde se os intervalos [inicioA, inicioA+durA) e
// [inicioB, inicioB+durB), em minutos, se cruzam.
func Sobrepoe(inicioA, durA, inicioB, durB int) bool {
	return inicioA < inicioB+durB && inicioB < inicioA+durA
}
