package storage

import (
	"context"
	"errors"
)

// NoopUploader é o padrão quando nenhum provedor foi configurado; todo
// upload devolve erro e os certificados ficam com o marcador "N/A".
type NoopUploader struct{}

func (NoopUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	return nil, errors.New("storage: armazenamento de documentos não configurado")
}
