package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/auth"
	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/repo"
)

var (
	// ErrInvalidCredentials indica falha na autenticação.
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	// ErrAccountDisabled indica conta desativada.
	ErrAccountDisabled = errors.New("conta desativada")
	// ErrRefreshInvalid indica refresh token inválido ou expirado.
	ErrRefreshInvalid = errors.New("refresh token inválido")
)

type authRepository interface {
	GetPacienteByEmail(ctx context.Context, email string) (repo.Paciente, error)
	GetPacienteByID(ctx context.Context, id uuid.UUID) (repo.Paciente, error)
	GetMedicoByEmail(ctx context.Context, email string) (repo.Medico, error)
	GetMedicoByID(ctx context.Context, id uuid.UUID) (repo.Medico, error)
	PersistRefreshSession(ctx context.Context, arg repo.InsertRefreshTokenParams) (repo.TokenRefresh, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (repo.TokenRefresh, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra regras de autenticação e sessões.
type AuthService struct {
	repo       authRepository
	redis      redisCommander
	jwt        *auth.JWTManager
	refreshTTL time.Duration
}

// NewAuthService cria novo serviço.
func NewAuthService(r *repo.Queries, redisClient *redis.Client, jwtMgr *auth.JWTManager, refreshTTL time.Duration) *AuthService {
	return &AuthService{repo: r, redis: redisClient, jwt: jwtMgr, refreshTTL: refreshTTL}
}

// JWT expõe gerenciador de JWT (útil em middlewares).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// LoginResult representa retorno padrão de autenticações.
type LoginResult struct {
	Audience      string
	AccessToken   string
	RefreshToken  string
	Subject       uuid.UUID
	Roles         []string
	Profile       any
	RefreshExpiry time.Time
}

// PacienteProfile descreve usuário do app de bem-estar.
type PacienteProfile struct {
	ID    string `json:"id"`
	Nome  string `json:"nome"`
	Email string `json:"email"`
}

// MedicoProfile descreve profissional do painel clínico.
type MedicoProfile struct {
	ID            string `json:"id"`
	Nome          string `json:"nome"`
	Email         string `json:"email"`
	Especialidade string `json:"especialidade,omitempty"`
}

// LoginPaciente autentica usuários do app.
func (s *AuthService) LoginPaciente(ctx context.Context, email, password string) (*LoginResult, error) {
	p, err := s.repo.GetPacienteByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Msg("login paciente: usuário não encontrado")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.Verify(password, p.SenhaHash)
	if err != nil || !ok {
		log.Warn().Msg("login paciente: senha inválida")
		return nil, ErrInvalidCredentials
	}
	if !p.Ativo {
		return nil, ErrAccountDisabled
	}

	return s.issueSession(ctx, p.ID, auth.AudiencePaciente, []string{auth.RolePaciente}, pacienteProfile(p))
}

// LoginMedico autentica profissionais do painel.
func (s *AuthService) LoginMedico(ctx context.Context, email, password string) (*LoginResult, error) {
	m, err := s.repo.GetMedicoByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Msg("login medico: usuário não encontrado")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.Verify(password, m.SenhaHash)
	if err != nil || !ok {
		log.Warn().Msg("login medico: senha inválida")
		return nil, ErrInvalidCredentials
	}
	if !m.Ativo {
		return nil, ErrAccountDisabled
	}

	return s.issueSession(ctx, m.ID, auth.AudienceMedico, []string{auth.RoleMedico}, medicoProfile(m))
}

// Refresh valida token opaco, rotaciona e devolve nova sessão.
func (s *AuthService) Refresh(ctx context.Context, rawToken, expectedAudience string) (*LoginResult, error) {
	hash := auth.HashRefreshToken(rawToken)

	record, err := s.repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}
	if record.Revogado || time.Now().UTC().After(record.Expiracao) {
		return nil, ErrRefreshInvalid
	}
	if expectedAudience != "" && record.Audience != expectedAudience {
		return nil, ErrRefreshInvalid
	}

	status, err := s.redis.Get(ctx, auth.RefreshRedisKey(record.Audience, hash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}
	if status != "active" {
		return nil, ErrRefreshInvalid
	}

	result, err := s.sessionForSubject(ctx, record.Subject, record.Audience)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if err := s.redis.Del(ctx, auth.RefreshRedisKey(record.Audience, hash)).Err(); err != nil {
		log.Warn().Err(err).Msg("refresh: falha ao limpar sessão antiga no redis")
	}

	return result, nil
}

// Logout revoga o refresh token informado.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	hash := auth.HashRefreshToken(rawToken)

	record, err := s.repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return err
	}

	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	if err := s.redis.Del(ctx, auth.RefreshRedisKey(record.Audience, hash)).Err(); err != nil {
		log.Warn().Err(err).Msg("logout: falha ao limpar sessão no redis")
	}
	return nil
}

// GetProfile devolve o perfil do sujeito autenticado.
func (s *AuthService) GetProfile(ctx context.Context, subject uuid.UUID, audience string) (any, error) {
	switch audience {
	case auth.AudiencePaciente:
		p, err := s.repo.GetPacienteByID(ctx, subject)
		if err != nil {
			return nil, err
		}
		return pacienteProfile(p), nil
	case auth.AudienceMedico:
		m, err := s.repo.GetMedicoByID(ctx, subject)
		if err != nil {
			return nil, err
		}
		return medicoProfile(m), nil
	default:
		return nil, ErrRefreshInvalid
	}
}

func (s *AuthService) sessionForSubject(ctx context.Context, subject uuid.UUID, audience string) (*LoginResult, error) {
	switch audience {
	case auth.AudiencePaciente:
		p, err := s.repo.GetPacienteByID(ctx, subject)
		if err != nil {
			return nil, err
		}
		if !p.Ativo {
			return nil, ErrAccountDisabled
		}
		return s.issueSession(ctx, p.ID, audience, []string{auth.RolePaciente}, pacienteProfile(p))
	case auth.AudienceMedico:
		m, err := s.repo.GetMedicoByID(ctx, subject)
		if err != nil {
			return nil, err
		}
		if !m.Ativo {
			return nil, ErrAccountDisabled
		}
		return s.issueSession(ctx, m.ID, audience, []string{auth.RoleMedico}, medicoProfile(m))
	default:
		return nil, ErrRefreshInvalid
	}
}

func (s *AuthService) issueSession(ctx context.Context, subject uuid.UUID, audience string, roles []string, profile any) (*LoginResult, error) {
	access, _, err := s.jwt.GenerateAccessToken(subject.String(), audience, roles)
	if err != nil {
		return nil, err
	}

	rawRefresh, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expires := now.Add(s.refreshTTL)

	// Sessão única por perfil: o insert revoga os tokens anteriores na mesma transação.
	if _, err := s.repo.PersistRefreshSession(ctx, repo.InsertRefreshTokenParams{
		ID:        uuid.New(),
		Subject:   subject,
		Audience:  audience,
		TokenHash: hash,
		Expiracao: expires,
		CriadoEm:  now,
	}); err != nil {
		return nil, err
	}

	if err := s.redis.Set(ctx, auth.RefreshRedisKey(audience, hash), "active", time.Until(expires)).Err(); err != nil {
		return nil, err
	}

	return &LoginResult{
		Audience:      audience,
		AccessToken:   access,
		RefreshToken:  rawRefresh,
		Subject:       subject,
		Roles:         roles,
		Profile:       profile,
		RefreshExpiry: expires,
	}, nil
}

func pacienteProfile(p repo.Paciente) PacienteProfile {
	return PacienteProfile{ID: p.ID.String(), Nome: p.Nome, Email: p.Email}
}

func medicoProfile(m repo.Medico) MedicoProfile {
	return MedicoProfile{ID: m.ID.String(), Nome: m.Nome, Email: m.Email, Especialidade: m.Especialidade}
}
