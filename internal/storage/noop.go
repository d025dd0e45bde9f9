package storage

import (
	"context"
	"errors"
)

// ErrSemUploader indica que o servidor subiu sem bucket de mídia configurado.
// A API continua funcionando; só a publicação de áudios fica indisponível.
var ErrSemUploader = errors.New("storage: nenhum uploader configurado")

// NoopUploader é o fallback quando as variáveis STORAGE_* não estão definidas.
type NoopUploader struct{}

func (NoopUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	return nil, ErrSemUploader
}
