package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/db"
)

// Queries concentra consultas compartilhadas de perfis e sessões.
type Queries struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

// InsertRefreshTokenParams carrega os campos do novo refresh token.
type InsertRefreshTokenParams struct {
	ID        uuid.UUID
	Subject   uuid.UUID
	Audience  string
	TokenHash string
	Expiracao time.Time
	CriadoEm  time.Time
}

func (q *Queries) GetPacienteByEmail(ctx context.Context, email string) (Paciente, error) {
	var p Paciente
	err := q.pool.QueryRow(ctx, `
		SELECT id, nome, email, senha_hash, codigo_acesso, ativo, criado_em
		FROM pacientes
		WHERE lower(email) = $1
	`, strings.ToLower(email)).Scan(&p.ID, &p.Nome, &p.Email, &p.SenhaHash, &p.CodigoAcesso, &p.Ativo, &p.CriadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Paciente{}, ErrNotFound
		}
		return Paciente{}, err
	}
	return p, nil
}

func (q *Queries) GetPacienteByID(ctx context.Context, id uuid.UUID) (Paciente, error) {
	var p Paciente
	err := q.pool.QueryRow(ctx, `
		SELECT id, nome, email, senha_hash, codigo_acesso, ativo, criado_em
		FROM pacientes
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Nome, &p.Email, &p.SenhaHash, &p.CodigoAcesso, &p.Ativo, &p.CriadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Paciente{}, ErrNotFound
		}
		return Paciente{}, err
	}
	return p, nil
}

func (q *Queries) GetMedicoByEmail(ctx context.Context, email string) (Medico, error) {
	var m Medico
	err := q.pool.QueryRow(ctx, `
		SELECT id, nome, email, senha_hash, COALESCE(especialidade, ''), ativo, criado_em
		FROM medicos
		WHERE lower(email) = $1
	`, strings.ToLower(email)).Scan(&m.ID, &m.Nome, &m.Email, &m.SenhaHash, &m.Especialidade, &m.Ativo, &m.CriadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Medico{}, ErrNotFound
		}
		return Medico{}, err
	}
	return m, nil
}

func (q *Queries) GetMedicoByID(ctx context.Context, id uuid.UUID) (Medico, error) {
	var m Medico
	err := q.pool.QueryRow(ctx, `
		SELECT id, nome, email, senha_hash, COALESCE(especialidade, ''), ativo, criado_em
		FROM medicos
		WHERE id = $1
	`, id).Scan(&m.ID, &m.Nome, &m.Email, &m.SenhaHash, &m.Especialidade, &m.Ativo, &m.CriadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Medico{}, ErrNotFound
		}
		return Medico{}, err
	}
	return m, nil
}

// PersistRefreshSession grava o novo refresh token e revoga os demais do
// mesmo perfil na mesma transação.
func (q *Queries) PersistRefreshSession(ctx context.Context, arg InsertRefreshTokenParams) (TokenRefresh, error) {
	var t TokenRefresh
	err := db.WithTx(ctx, q.pool, func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO tokens_refresh (id, subject, audience, token_hash, expiracao, criado_em, revogado)
			VALUES ($1, $2, $3, $4, $5, $6, FALSE)
			RETURNING id, subject, audience, token_hash, expiracao, criado_em, revogado
		`, arg.ID, arg.Subject, arg.Audience, arg.TokenHash, arg.Expiracao, arg.CriadoEm).
			Scan(&t.ID, &t.Subject, &t.Audience, &t.TokenHash, &t.Expiracao, &t.CriadoEm, &t.Revogado)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE tokens_refresh
			SET revogado = TRUE
			WHERE subject = $1 AND audience = $2 AND token_hash <> $3 AND NOT revogado
		`, arg.Subject, arg.Audience, arg.TokenHash)
		return err
	})
	if err != nil {
		return TokenRefresh{}, err
	}
	return t, nil
}

func (q *Queries) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (TokenRefresh, error) {
	var t TokenRefresh
	err := q.pool.QueryRow(ctx, `
		SELECT id, subject, audience, token_hash, expiracao, criado_em, revogado
		FROM tokens_refresh
		WHERE token_hash = $1
	`, tokenHash).Scan(&t.ID, &t.Subject, &t.Audience, &t.TokenHash, &t.Expiracao, &t.CriadoEm, &t.Revogado)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TokenRefresh{}, ErrNotFound
		}
		return TokenRefresh{}, err
	}
	return t, nil
}

func (q *Queries) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	tag, err := q.pool.Exec(ctx, `
		UPDATE tokens_refresh SET revogado = TRUE WHERE token_hash = $1
	`, tokenHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
