package notify

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/repo"
)

const dbTimeout = 3 * time.Second

// Template é um modelo de e-mail transacional gerenciado pelo console admin.
type Template struct {
	Tipo    string
	Assunto string
	Corpo   string
}

// Repository lê templates de e-mail do banco.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetTemplate busca o template ativo pelo tipo (ex.: consulta_agendada).
func (r *Repository) GetTemplate(ctx context.Context, tipo string) (Template, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var t Template
	err := r.db.QueryRow(ctx, `
		SELECT tipo, assunto, corpo
		FROM email_templates
		WHERE tipo = $1 AND ativo
	`, tipo).Scan(&t.Tipo, &t.Assunto, &t.Corpo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, repo.ErrNotFound
		}
		return Template{}, err
	}
	return t, nil
}
