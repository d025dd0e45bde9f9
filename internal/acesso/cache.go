package acesso

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/repo"
)

// CodigoStore é o subconjunto do registro necessário para o read-through.
type CodigoStore interface {
	GetCodigo(ctx context.Context, pacienteID uuid.UUID) (string, error)
	SetCodigo(ctx context.Context, pacienteID uuid.UUID, codigo string) error
}

// CodigoLegado é a fonte secundária de códigos, remanescente da migração
// (no sistema de origem, o cache do cliente).
type CodigoLegado interface {
	GetCodigo(ctx context.Context, pacienteID uuid.UUID) (string, error)
}

// RedisCodigoLegado lê códigos remanescentes gravados no redis.
type RedisCodigoLegado struct {
	cliente *redis.Client
}

// NewRedisCodigoLegado devolve a interface para o chamador não carregar um
// ponteiro nil tipado quando não há redis.
func NewRedisCodigoLegado(cliente *redis.Client) CodigoLegado {
	if cliente == nil {
		return nil
	}
	return &RedisCodigoLegado{cliente: cliente}
}

func (c *RedisCodigoLegado) GetCodigo(ctx context.Context, pacienteID uuid.UUID) (string, error) {
	val, err := c.cliente.Get(ctx, fmt.Sprintf("paciente:codigo:%s", pacienteID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repo.ErrNotFound
		}
		return "", err
	}
	if strings.TrimSpace(val) == "" {
		return "", repo.ErrNotFound
	}
	return val, nil
}

// ReadThroughCodigo resolve o código consultando primeiro a fonte autoritativa
// e, na ausência, a fonte legada, fazendo backfill na autoritativa antes de
// retornar. Um código legado que colide com o de outro paciente não pode ser
// honrado e é tratado como ausente.
func ReadThroughCodigo(ctx context.Context, autoritativa CodigoStore, legado CodigoLegado, pacienteID uuid.UUID) (string, error) {
	codigo, err := autoritativa.GetCodigo(ctx, pacienteID)
	if err == nil {
		return codigo, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return "", err
	}

	if legado == nil {
		return "", repo.ErrNotFound
	}

	codigo, err = legado.GetCodigo(ctx, pacienteID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", repo.ErrNotFound
		}
		return "", err
	}

	codigo = strings.ToUpper(strings.TrimSpace(codigo))
	if err := autoritativa.SetCodigo(ctx, pacienteID, codigo); err != nil {
		switch {
		case errors.Is(err, ErrCodigoJaAtribuido):
			// corrida: outro processo gravou primeiro; vale o que está na autoritativa
			return autoritativa.GetCodigo(ctx, pacienteID)
		case errors.Is(err, repo.ErrConflict):
			return "", repo.ErrNotFound
		default:
			return "", err
		}
	}

	return codigo, nil
}
