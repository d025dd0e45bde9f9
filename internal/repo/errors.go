package repo

import "errors"

var (
	// ErrNotFound é retornado quando nenhum registro é encontrado.
	ErrNotFound = errors.New("registro não encontrado")
	// ErrConflict é retornado quando uma restrição de unicidade é violada.
	ErrConflict = errors.New("registro já existente")
)
