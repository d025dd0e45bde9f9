package acesso

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/repo"
)

var (
	// ErrCodigoJaAtribuido indica que o paciente já possui código gravado;
	// o código vigente nunca é sobrescrito.
	ErrCodigoJaAtribuido = errors.New("paciente já possui código de acesso")
)

const dbTimeout = 3 * time.Second

// Vinculo registra a autorização durável entre um médico e um paciente.
type Vinculo struct {
	MedicoID   uuid.UUID `json:"medico_id"`
	PacienteID uuid.UUID `json:"paciente_id"`
	CriadoEm   time.Time `json:"criado_em"`
}

// PacienteVinculado resume um paciente autorizado para o painel do médico.
type PacienteVinculado struct {
	ID          uuid.UUID `json:"id"`
	Nome        string    `json:"nome"`
	Email       string    `json:"email"`
	VinculadoEm time.Time `json:"vinculado_em"`
}

// Repository guarda códigos de acesso e vínculos médico-paciente.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetCodigo retorna o código vigente do paciente.
func (r *Repository) GetCodigo(ctx context.Context, pacienteID uuid.UUID) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var codigo *string
	err := r.db.QueryRow(ctx, `
		SELECT codigo_acesso FROM pacientes WHERE id = $1
	`, pacienteID).Scan(&codigo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", repo.ErrNotFound
		}
		return "", err
	}

	if codigo == nil || *codigo == "" {
		return "", repo.ErrNotFound
	}
	return *codigo, nil
}

// SetCodigo grava o código apenas se o paciente ainda não possui um.
// Colisão com código de outro paciente vira repo.ErrConflict (índice único);
// corrida com outra gravação para o mesmo paciente vira ErrCodigoJaAtribuido.
func (r *Repository) SetCodigo(ctx context.Context, pacienteID uuid.UUID, codigo string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE pacientes
		SET codigo_acesso = $2
		WHERE id = $1 AND (codigo_acesso IS NULL OR codigo_acesso = '')
	`, pacienteID, strings.ToUpper(codigo))
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrConflict
		}
		return err
	}

	if tag.RowsAffected() == 0 {
		var existente *string
		err := r.db.QueryRow(ctx, `SELECT codigo_acesso FROM pacientes WHERE id = $1`, pacienteID).Scan(&existente)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repo.ErrNotFound
			}
			return err
		}
		return ErrCodigoJaAtribuido
	}

	return nil
}

// FindPacienteByCodigo resolve o código (comparação case-insensitive) para o paciente.
func (r *Repository) FindPacienteByCodigo(ctx context.Context, codigo string) (uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var id uuid.UUID
	err := r.db.QueryRow(ctx, `
		SELECT id FROM pacientes WHERE codigo_acesso = UPPER($1)
	`, strings.TrimSpace(codigo)).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, repo.ErrNotFound
		}
		return uuid.Nil, err
	}
	return id, nil
}

// FindVinculo busca o vínculo pela chave natural (medico_id, paciente_id).
func (r *Repository) FindVinculo(ctx context.Context, medicoID, pacienteID uuid.UUID) (Vinculo, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var v Vinculo
	err := r.db.QueryRow(ctx, `
		SELECT medico_id, paciente_id, criado_em
		FROM medico_paciente
		WHERE medico_id = $1 AND paciente_id = $2
	`, medicoID, pacienteID).Scan(&v.MedicoID, &v.PacienteID, &v.CriadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vinculo{}, repo.ErrNotFound
		}
		return Vinculo{}, err
	}
	return v, nil
}

// InsertVinculo cria o vínculo; a chave primária composta garante no máximo
// uma linha por par mesmo sob resgates concorrentes.
func (r *Repository) InsertVinculo(ctx context.Context, medicoID, pacienteID uuid.UUID) (Vinculo, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var v Vinculo
	err := r.db.QueryRow(ctx, `
		INSERT INTO medico_paciente (medico_id, paciente_id, criado_em)
		VALUES ($1, $2, NOW())
		RETURNING medico_id, paciente_id, criado_em
	`, medicoID, pacienteID).Scan(&v.MedicoID, &v.PacienteID, &v.CriadoEm)
	if err != nil {
		if isUniqueViolation(err) {
			return Vinculo{}, repo.ErrConflict
		}
		return Vinculo{}, err
	}
	return v, nil
}

// ListPacientesVinculados lista pacientes autorizados para o médico.
func (r *Repository) ListPacientesVinculados(ctx context.Context, medicoID uuid.UUID) ([]PacienteVinculado, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.nome, p.email, mp.criado_em
		FROM medico_paciente mp
		JOIN pacientes p ON p.id = mp.paciente_id
		WHERE mp.medico_id = $1
		ORDER BY p.nome
	`, medicoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pacientes []PacienteVinculado
	for rows.Next() {
		var p PacienteVinculado
		if err := rows.Scan(&p.ID, &p.Nome, &p.Email, &p.VinculadoEm); err != nil {
			return nil, err
		}
		pacientes = append(pacientes, p)
	}

	return pacientes, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
