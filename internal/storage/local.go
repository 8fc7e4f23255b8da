package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalUploader grava documentos em uma pasta local, espelhando a chave do
// objeto como subcaminho. É o par natural do backend de planilha.
type LocalUploader struct {
	dir string
}

// NewLocalUploader garante a existência da pasta raiz de documentos.
func NewLocalUploader(dir string) (*LocalUploader, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage: pasta de documentos ausente")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: criar pasta de documentos: %w", err)
	}
	return &LocalUploader{dir: dir}, nil
}

// Upload grava o documento e devolve o caminho completo como referência.
func (u *LocalUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	key, err := chaveSegura(input.Key)
	if err != nil {
		return nil, err
	}
	if len(input.Body) == 0 {
		return nil, errors.New("storage: corpo vazio")
	}

	destino := filepath.Join(u.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(destino), 0o755); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if err := os.WriteFile(destino, input.Body, 0o644); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	return &UploadResult{URL: destino}, nil
}

// chaveSegura rejeita chaves que escapariam da pasta de documentos.
func chaveSegura(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("storage: chave do objeto obrigatória")
	}
	limpa := filepath.ToSlash(filepath.Clean(key))
	if limpa == ".." || strings.HasPrefix(limpa, "../") {
		return "", errors.New("storage: chave do objeto inválida")
	}
	return limpa, nil
}
