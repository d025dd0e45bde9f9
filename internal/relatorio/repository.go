package relatorio

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 3 * time.Second

// Repository agrega leituras das tabelas de atividade do paciente. Os módulos
// que escrevem nessas tabelas (diário de humor, medicação, hábitos, chat)
// pertencem ao app do paciente; aqui só contamos.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) contar(ctx context.Context, tabela string, pacienteID uuid.UUID) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM `+tabela+` WHERE paciente_id = $1`, pacienteID).Scan(&total)
	return total, err
}

func (r *Repository) CountHumor(ctx context.Context, pacienteID uuid.UUID) (int, error) {
	return r.contar(ctx, "humor_registros", pacienteID)
}

func (r *Repository) CountMedicacao(ctx context.Context, pacienteID uuid.UUID) (int, error) {
	return r.contar(ctx, "medicacao_registros", pacienteID)
}

func (r *Repository) CountHabitos(ctx context.Context, pacienteID uuid.UUID) (int, error) {
	return r.contar(ctx, "habito_registros", pacienteID)
}

func (r *Repository) CountMeditacao(ctx context.Context, pacienteID uuid.UUID) (int, error) {
	return r.contar(ctx, "meditacao_sessoes", pacienteID)
}

func (r *Repository) CountChat(ctx context.Context, pacienteID uuid.UUID) (int, error) {
	return r.contar(ctx, "chat_mensagens", pacienteID)
}

// RegistrarMeditacaoSessao grava uma sessão de meditação concluída pelo
// paciente, alimentando o contador do relatório.
func (r *Repository) RegistrarMeditacaoSessao(ctx context.Context, pacienteID, meditacaoID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO meditacao_sessoes (id, paciente_id, meditacao_id, criado_em)
		VALUES ($1, $2, $3, NOW())
	`, uuid.New(), pacienteID, meditacaoID)
	return err
}
