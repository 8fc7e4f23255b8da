package http

import (
	"encoding/json"
	"net/http"

	"github.com/engeseg/sstcontrol/internal/http/middleware"
	"github.com/engeseg/sstcontrol/internal/registro"
)

// Login autentica o analista pelo segredo compartilhado e abre uma sessão
// de análise, devolvendo o token de acesso.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Senha string `json:"senha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	token, err := h.liberacao.Autenticar(r.Context(), payload.Senha)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"access_token": token})
}

// SessaoAtual devolve o estado corrente da sessão de análise.
func (h *Handler) SessaoAtual(w http.ResponseWriter, r *http.Request) {
	sessao, err := h.liberacao.Sessao(r.Context(), middleware.GetSessao(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"sessao": sessao})
}

// SelecionarEmpresa fixa a empresa em análise, descartando qualquer decisão
// pendente da seleção anterior.
func (h *Handler) SelecionarEmpresa(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Empresa string `json:"empresa"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	sessao, err := h.liberacao.SelecionarEmpresa(r.Context(), middleware.GetSessao(r.Context()), payload.Empresa)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"sessao": sessao})
}

// Decidir registra na sessão a decisão provisória do analista. Nada é
// persistido antes de Confirmar.
func (h *Handler) Decidir(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status registro.StatusLiberacao `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	sessao, err := h.liberacao.Decidir(r.Context(), middleware.GetSessao(r.Context()), payload.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"sessao": sessao})
}

// Confirmar grava a decisão pendente no histórico de liberações.
func (h *Handler) Confirmar(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Analista   string `json:"analista"`
		Observacao string `json:"observacao"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	lib, err := h.liberacao.Confirmar(r.Context(), middleware.GetSessao(r.Context()), payload.Analista, payload.Observacao)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"liberacao": lib})
}

// EncerrarSessao abandona a sessão de análise sem efeito colateral.
func (h *Handler) EncerrarSessao(w http.ResponseWriter, r *http.Request) {
	if err := h.liberacao.Encerrar(r.Context(), middleware.GetSessao(r.Context())); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"encerrada": true})
}

// ListLiberacoes devolve o histórico de decisões, opcionalmente de uma
// empresa (?empresa=), da mais recente para a mais antiga.
func (h *Handler) ListLiberacoes(w http.ResponseWriter, r *http.Request) {
	liberacoes, err := h.liberacao.Historico(r.Context(), r.URL.Query().Get("empresa"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"liberacoes": liberacoes})
}
