package agenda

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/repo"
)

const dbTimeout = 3 * time.Second

// Repository fornece acesso às consultas no Postgres.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const consultaColunas = `
	id, medico_id, paciente_id, data, hora, duracao_minutos, tipo,
	COALESCE(observacoes, ''), status, COALESCE(chave_idempotencia, ''),
	criado_em, atualizado_em
`

func scanConsulta(row pgx.Row) (Consulta, error) {
	var c Consulta
	err := row.Scan(&c.ID, &c.MedicoID, &c.PacienteID, &c.Data, &c.Hora,
		&c.DuracaoMinutos, &c.Tipo, &c.Observacoes, &c.Status,
		&c.ChaveIdempotencia, &c.CriadoEm, &c.AtualizadoEm)
	return c, err
}

// Insert grava a consulta. A restrição única em (medico_id, chave_idempotencia)
// converte retries de criação em repo.ErrConflict para o serviço reaproveitar a
// linha original.
func (r *Repository) Insert(ctx context.Context, c Consulta) (Consulta, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := r.db.QueryRow(ctx, `
		INSERT INTO consultas
			(id, medico_id, paciente_id, data, hora, duracao_minutos, tipo, observacoes, status, chave_idempotencia, criado_em, atualizado_em)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, NULLIF($10, ''), NOW(), NOW())
		RETURNING `+consultaColunas,
		c.ID, c.MedicoID, c.PacienteID, c.Data, c.Hora, c.DuracaoMinutos,
		c.Tipo, c.Observacoes, c.Status, c.ChaveIdempotencia)

	saved, err := scanConsulta(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Consulta{}, repo.ErrConflict
		}
		return Consulta{}, err
	}
	return saved, nil
}

// GetByID busca consulta pelo identificador.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Consulta, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	c, err := scanConsulta(r.db.QueryRow(ctx, `
		SELECT `+consultaColunas+` FROM consultas WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Consulta{}, repo.ErrNotFound
		}
		return Consulta{}, err
	}
	return c, nil
}

// GetByChave localiza a consulta criada com a chave de idempotência informada.
func (r *Repository) GetByChave(ctx context.Context, medicoID uuid.UUID, chave string) (Consulta, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	c, err := scanConsulta(r.db.QueryRow(ctx, `
		SELECT `+consultaColunas+` FROM consultas
		WHERE medico_id = $1 AND chave_idempotencia = $2
	`, medicoID, chave))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Consulta{}, repo.ErrNotFound
		}
		return Consulta{}, err
	}
	return c, nil
}

// Update persiste a consulta inteira já validada pelo serviço.
func (r *Repository) Update(ctx context.Context, c Consulta) (Consulta, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := r.db.QueryRow(ctx, `
		UPDATE consultas
		SET data = $2, hora = $3, duracao_minutos = $4, tipo = $5,
			observacoes = NULLIF($6, ''), status = $7, atualizado_em = NOW()
		WHERE id = $1
		RETURNING `+consultaColunas,
		c.ID, c.Data, c.Hora, c.DuracaoMinutos, c.Tipo, c.Observacoes, c.Status)

	saved, err := scanConsulta(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Consulta{}, repo.ErrNotFound
		}
		return Consulta{}, err
	}
	return saved, nil
}

// Delete remove definitivamente a consulta (limpeza administrativa).
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM consultas WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ListByMedicoPeriodo lista consultas do médico na janela [de, ate], ordenadas
// por (data, hora). Status vazio não filtra.
func (r *Repository) ListByMedicoPeriodo(ctx context.Context, medicoID uuid.UUID, de, ate time.Time, status string) ([]Consulta, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+consultaColunas+` FROM consultas
		WHERE medico_id = $1
		  AND data BETWEEN $2 AND $3
		  AND ($4 = '' OR status = $4)
		ORDER BY data, hora
	`, medicoID, de, ate, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var consultas []Consulta
	for rows.Next() {
		c, err := scanConsulta(rows)
		if err != nil {
			return nil, err
		}
		consultas = append(consultas, c)
	}

	return consultas, rows.Err()
}

// ListByMedicoData lista consultas não canceladas do médico no dia, para a
// verificação de sobreposição.
func (r *Repository) ListByMedicoData(ctx context.Context, medicoID uuid.UUID, data time.Time) ([]Consulta, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+consultaColunas+` FROM consultas
		WHERE medico_id = $1 AND data = $2 AND status <> $3
		ORDER BY hora
	`, medicoID, data, StatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var consultas []Consulta
	for rows.Next() {
		c, err := scanConsulta(rows)
		if err != nil {
			return nil, err
		}
		consultas = append(consultas, c)
	}

	return consultas, rows.Err()
}

// PacienteContato devolve nome e e-mail do paciente para notificações.
func (r *Repository) PacienteContato(ctx context.Context, pacienteID uuid.UUID) (nome, email string, err error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err = r.db.QueryRow(ctx, `
		SELECT nome, email FROM pacientes WHERE id = $1
	`, pacienteID).Scan(&nome, &email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", repo.ErrNotFound
		}
		return "", "", err
	}
	return nome, email, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
