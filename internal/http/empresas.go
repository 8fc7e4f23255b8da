package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/engeseg/sstcontrol/internal/registro"
)

// ListEmpresas devolve o snapshot de empresas.
func (h *Handler) ListEmpresas(w http.ResponseWriter, r *http.Request) {
	empresas, err := h.store.LoadEmpresas(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"empresas": empresas})
}

// CreateEmpresa cadastra uma nova empresa.
func (h *Handler) CreateEmpresa(w http.ResponseWriter, r *http.Request) {
	var payload registro.Empresa
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	empresa, err := h.cadastro.CadastrarEmpresa(r.Context(), payload)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"empresa": empresa})
}

// UpdateEmpresa altera um campo da empresa identificada pelo nome.
func (h *Handler) UpdateEmpresa(w http.ResponseWriter, r *http.Request) {
	nome := chi.URLParam(r, "nome")

	var payload struct {
		Campo string `json:"campo"`
		Valor string `json:"valor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if err := h.cadastro.EditarEmpresa(r.Context(), nome, payload.Campo, payload.Valor); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"atualizada": true})
}

// DeleteEmpresa remove a empresa e, em cascata, seus funcionários e
// certificados.
func (h *Handler) DeleteEmpresa(w http.ResponseWriter, r *http.Request) {
	nome := chi.URLParam(r, "nome")

	if err := h.cadastro.ExcluirEmpresa(r.Context(), nome); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"excluida": true})
}

// AvaliacaoEmpresa computa o status de liberação da empresa agora.
func (h *Handler) AvaliacaoEmpresa(w http.ResponseWriter, r *http.Request) {
	nome := chi.URLParam(r, "nome")

	resultado, err := h.liberacao.Avaliar(r.Context(), nome)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"avaliacao": resultado})
}
