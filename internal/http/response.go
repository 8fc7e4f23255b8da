package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/engeseg/sstcontrol/internal/cadastro"
	"github.com/engeseg/sstcontrol/internal/liberacao"
	"github.com/engeseg/sstcontrol/internal/store"
	"github.com/engeseg/sstcontrol/internal/util"
)

// SuccessEnvelope padroniza respostas com dados.
type SuccessEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

// ErrorEnvelope padroniza respostas de erro.
type ErrorEnvelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody descreve falhas normalizadas.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON escreve envelope de sucesso.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessEnvelope{Data: data, Error: nil})
}

// WriteError escreve envelope de erro e mantém formato consistente.
func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Data:  nil,
		Error: &ErrorBody{Code: code, Message: message, Details: details},
	})
}

// writeDomainError traduz a taxonomia de erros dos serviços para o envelope
// HTTP. Nenhum erro derruba o processo; tudo vira resposta.
func writeDomainError(w http.ResponseWriter, err error) {
	var validacao *util.ErroValidacao
	if errors.As(err, &validacao) {
		WriteError(w, http.StatusBadRequest, "VALIDATION", validacao.Msg, nil)
		return
	}

	var cascata *cadastro.ErroCascataParcial
	if errors.As(err, &cascata) {
		detalhes := make([]string, len(cascata.Concluidas))
		for i, ent := range cascata.Concluidas {
			detalhes[i] = string(ent)
		}
		WriteError(w, http.StatusBadGateway, "STORE", err.Error(), map[string]any{"tabelas_gravadas": detalhes})
		return
	}

	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		WriteError(w, http.StatusBadGateway, "STORE", storeErr.Error(), nil)
		return
	}

	switch {
	case errors.Is(err, cadastro.ErrEmpresaNaoEncontrada),
		errors.Is(err, cadastro.ErrFuncionarioNaoEncontrado),
		errors.Is(err, cadastro.ErrASONaoEncontrado),
		errors.Is(err, cadastro.ErrTreinamentoNaoEncontrado),
		errors.Is(err, liberacao.ErrEmpresaNaoEncontrada):
		WriteError(w, http.StatusNotFound, "REFERENCE", err.Error(), nil)
	case errors.Is(err, cadastro.ErrEmpresaJaCadastrada),
		errors.Is(err, cadastro.ErrCampoDesconhecido),
		errors.Is(err, cadastro.ErrNenhumaLinhaValida),
		errors.Is(err, liberacao.ErrStatusInvalido),
		errors.Is(err, liberacao.ErrEmpresaNaoSelecionada),
		errors.Is(err, liberacao.ErrDecisaoAusente):
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, liberacao.ErrSenhaIncorreta):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	case errors.Is(err, liberacao.ErrSessaoNaoEncontrada):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
	}
}
