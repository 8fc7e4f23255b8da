package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/engeseg/sstcontrol/internal/cadastro"
	"github.com/engeseg/sstcontrol/internal/registro"
)

// ListFuncionarios devolve o snapshot de funcionários, opcionalmente
// filtrado por empresa (?empresa=).
func (h *Handler) ListFuncionarios(w http.ResponseWriter, r *http.Request) {
	funcionarios, err := h.store.LoadFuncionarios(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if empresa := r.URL.Query().Get("empresa"); empresa != "" {
		filtrados := funcionarios[:0:0]
		for _, f := range funcionarios {
			if f.Empresa == empresa {
				filtrados = append(filtrados, f)
			}
		}
		funcionarios = filtrados
	}

	WriteJSON(w, http.StatusOK, map[string]any{"funcionarios": funcionarios})
}

// CreateFuncionario cadastra um funcionário em uma empresa existente.
func (h *Handler) CreateFuncionario(w http.ResponseWriter, r *http.Request) {
	var payload registro.Funcionario
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	funcionario, err := h.cadastro.CadastrarFuncionario(r.Context(), payload)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"funcionario": funcionario})
}

// UpdateFuncionario altera um campo do funcionário localizado por empresa e
// nome.
func (h *Handler) UpdateFuncionario(w http.ResponseWriter, r *http.Request) {
	empresa := chi.URLParam(r, "empresa")
	nome := chi.URLParam(r, "nome")

	var payload struct {
		Campo string `json:"campo"`
		Valor string `json:"valor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if err := h.cadastro.EditarFuncionario(r.Context(), empresa, nome, payload.Campo, payload.Valor); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"atualizado": true})
}

// DeleteFuncionario remove o funcionário e seus certificados.
func (h *Handler) DeleteFuncionario(w http.ResponseWriter, r *http.Request) {
	empresa := chi.URLParam(r, "empresa")
	nome := chi.URLParam(r, "nome")

	if err := h.cadastro.ExcluirFuncionario(r.Context(), empresa, nome); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"excluido": true})
}

// ImportFuncionarios insere funcionários em lote a partir de texto livre,
// uma linha por funcionário ("nome, cpf[, função]").
func (h *Handler) ImportFuncionarios(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Empresa      string        `json:"empresa"`
		DataAdmissao registro.Data `json:"data_admissao"`
		Texto        string        `json:"texto"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	resultado, err := h.cadastro.ImportarFuncionarios(r.Context(), payload.Empresa, payload.DataAdmissao, payload.Texto)
	if err != nil {
		if errors.Is(err, cadastro.ErrNenhumaLinhaValida) {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), map[string]any{"rejeitadas": resultado.Rejeitadas})
			return
		}
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"importacao": resultado})
}
