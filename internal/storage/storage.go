package storage

import "context"

// UploadInput descreve um documento (ASO ou certificado) a armazenar.
type UploadInput struct {
	Key         string
	Body        []byte
	ContentType string
}

// UploadResult aponta para o documento persistido. URL é a referência opaca
// gravada no registro do certificado: uma URL recuperável no backend S3 ou
// um caminho de arquivo no backend local.
type UploadResult struct {
	URL  string
	ETag string
}

// Uploader define o armazenamento de documentos anexados aos certificados.
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
}
