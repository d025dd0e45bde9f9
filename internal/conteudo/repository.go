package conteudo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/repo"
)

const dbTimeout = 3 * time.Second

// Meditacao é um áudio guiado disponível no app do paciente.
type Meditacao struct {
	ID              uuid.UUID `json:"id"`
	Titulo          string    `json:"titulo"`
	Categoria       string    `json:"categoria"`
	DuracaoSegundos int       `json:"duracao_segundos"`
	AudioURL        string    `json:"audio_url"`
	CriadoEm        time.Time `json:"criado_em"`
}

// Repository fornece acesso ao catálogo de meditações.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, m Meditacao) (Meditacao, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err := r.db.QueryRow(ctx, `
		INSERT INTO meditacoes (id, titulo, categoria, duracao_segundos, audio_url, criado_em)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING criado_em
	`, m.ID, m.Titulo, m.Categoria, m.DuracaoSegundos, m.AudioURL).Scan(&m.CriadoEm)
	if err != nil {
		return Meditacao{}, err
	}
	return m, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Meditacao, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var m Meditacao
	err := r.db.QueryRow(ctx, `
		SELECT id, titulo, categoria, duracao_segundos, audio_url, criado_em
		FROM meditacoes WHERE id = $1
	`, id).Scan(&m.ID, &m.Titulo, &m.Categoria, &m.DuracaoSegundos, &m.AudioURL, &m.CriadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Meditacao{}, repo.ErrNotFound
		}
		return Meditacao{}, err
	}
	return m, nil
}

// List devolve o catálogo, opcionalmente filtrado por categoria.
func (r *Repository) List(ctx context.Context, categoria string) ([]Meditacao, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, titulo, categoria, duracao_segundos, audio_url, criado_em
		FROM meditacoes
		WHERE $1 = '' OR categoria = $1
		ORDER BY titulo
	`, categoria)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meditacoes []Meditacao
	for rows.Next() {
		var m Meditacao
		if err := rows.Scan(&m.ID, &m.Titulo, &m.Categoria, &m.DuracaoSegundos, &m.AudioURL, &m.CriadoEm); err != nil {
			return nil, err
		}
		meditacoes = append(meditacoes, m)
	}

	return meditacoes, rows.Err()
}
