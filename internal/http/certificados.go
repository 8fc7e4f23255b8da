package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/engeseg/sstcontrol/internal/registro"
	"github.com/engeseg/sstcontrol/internal/storage"
)

const limiteUpload = 10 << 20 // 10 MB por documento

// ListASOs devolve o snapshot de ASOs, opcionalmente de um funcionário
// (?funcionario=).
func (h *Handler) ListASOs(w http.ResponseWriter, r *http.Request) {
	asos, err := h.store.LoadASOs(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if nome := r.URL.Query().Get("funcionario"); nome != "" {
		filtrados := asos[:0:0]
		for _, a := range asos {
			if a.Funcionario == nome {
				filtrados = append(filtrados, a)
			}
		}
		asos = filtrados
	}

	WriteJSON(w, http.StatusOK, map[string]any{"asos": asos})
}

// CreateASO registra um atestado para um funcionário existente.
func (h *Handler) CreateASO(w http.ResponseWriter, r *http.Request) {
	var payload registro.ASO
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	aso, err := h.cadastro.RegistrarASO(r.Context(), payload)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"aso": aso})
}

// UploadArquivoASO anexa o documento digitalizado ao ASO indicado.
func (h *Handler) UploadArquivoASO(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	url, err := h.enviarDocumento(r, fmt.Sprintf("aso/%d", id))
	if err != nil {
		writeUploadError(w, err)
		return
	}

	if err := h.cadastro.AnexarArquivoASO(r.Context(), id, url); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"url_arquivo": url})
}

// ListTreinamentos devolve o snapshot de treinamentos, opcionalmente de um
// funcionário (?funcionario=).
func (h *Handler) ListTreinamentos(w http.ResponseWriter, r *http.Request) {
	treinamentos, err := h.store.LoadTreinamentos(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if nome := r.URL.Query().Get("funcionario"); nome != "" {
		filtrados := treinamentos[:0:0]
		for _, t := range treinamentos {
			if t.Funcionario == nome {
				filtrados = append(filtrados, t)
			}
		}
		treinamentos = filtrados
	}

	WriteJSON(w, http.StatusOK, map[string]any{"treinamentos": treinamentos})
}

// CreateTreinamento registra um certificado de treinamento.
func (h *Handler) CreateTreinamento(w http.ResponseWriter, r *http.Request) {
	var payload registro.Treinamento
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	treinamento, err := h.cadastro.RegistrarTreinamento(r.Context(), payload)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"treinamento": treinamento})
}

// UploadArquivoTreinamento anexa o documento ao treinamento indicado.
func (h *Handler) UploadArquivoTreinamento(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	url, err := h.enviarDocumento(r, fmt.Sprintf("treinamentos/%d", id))
	if err != nil {
		writeUploadError(w, err)
		return
	}

	if err := h.cadastro.AnexarArquivoTreinamento(r.Context(), id, url); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"url_arquivo": url})
}

var errSemUploader = errors.New("armazenamento de documentos não configurado")

// enviarDocumento lê o arquivo do formulário multipart e o envia ao
// armazenamento configurado, devolvendo a referência opaca.
func (h *Handler) enviarDocumento(r *http.Request, prefixo string) (string, error) {
	switch h.storage.(type) {
	case nil, storage.NoopUploader, *storage.NoopUploader:
		return "", errSemUploader
	}

	if err := r.ParseMultipartForm(limiteUpload); err != nil {
		return "", fmt.Errorf("dados multipart inválidos")
	}

	arquivos := r.MultipartForm.File["arquivo"]
	if len(arquivos) == 0 {
		return "", fmt.Errorf("arquivo ausente")
	}
	header := arquivos[0]

	f, err := header.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limiteUpload))
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".bin"
	}
	key := fmt.Sprintf("%s/%d-%s%s", prefixo, time.Now().Unix(), uuid.NewString()[:8], ext)

	resultado, err := h.storage.Upload(r.Context(), storage.UploadInput{
		Key:         key,
		Body:        data,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		return "", err
	}
	return resultado.URL, nil
}

func writeUploadError(w http.ResponseWriter, err error) {
	if errors.Is(err, errSemUploader) {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", err.Error(), nil)
		return
	}
	WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
}
