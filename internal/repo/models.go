package repo

import (
	"time"

	"github.com/google/uuid"
)

// Paciente representa usuário do app de bem-estar.
type Paciente struct {
	ID           uuid.UUID
	Nome         string
	Email        string
	SenhaHash    string
	CodigoAcesso *string
	Ativo        bool
	CriadoEm     time.Time
}

// Medico representa profissional com acesso ao painel clínico.
type Medico struct {
	ID            uuid.UUID
	Nome          string
	Email         string
	SenhaHash     string
	Especialidade string
	Ativo         bool
	CriadoEm      time.Time
}

// TokenRefresh modela tabela de refresh tokens.
type TokenRefresh struct {
	ID        uuid.UUID
	Subject   uuid.UUID
	Audience  string
	TokenHash string
	Expiracao time.Time
	CriadoEm  time.Time
	Revogado  bool
}
