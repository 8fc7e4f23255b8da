package util

import (
	"net/mail"
	"strings"
)

// ErroValidacao marca entrada de usuário ausente ou malformada; a operação
// nem chega a tocar o armazenamento.
type ErroValidacao struct {
	Msg string
}

func (e *ErroValidacao) Error() string { return e.Msg }

// RequireString garante string não vazia.
func RequireString(valor, campo string) error {
	if strings.TrimSpace(valor) == "" {
		return &ErroValidacao{Msg: campo + " obrigatório"}
	}
	return nil
}

// ValidateEmail retorna erro para e-mails inválidos.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &ErroValidacao{Msg: "email obrigatório"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return &ErroValidacao{Msg: "email inválido"}
	}
	return nil
}
