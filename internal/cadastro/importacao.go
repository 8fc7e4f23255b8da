package cadastro

import (
	"fmt"
	"strings"
)

// LinhaImportada é um funcionário extraído do texto de importação em lote.
type LinhaImportada struct {
	Nome   string
	CPF    string
	Funcao string
}

// ResultadoImportacao resume uma importação em lote: quantos funcionários
// entraram e quais linhas foram recusadas, com o número da linha original.
type ResultadoImportacao struct {
	Inseridos  int      `json:"inseridos"`
	Rejeitadas []string `json:"rejeitadas,omitempty"`
}

// ParseLote interpreta o texto de importação, uma linha por funcionário no
// formato "nome, cpf[, função]". Linhas em branco são puladas; linhas
// malformadas são recusadas individualmente sem abortar o lote.
func ParseLote(texto string) (validas []LinhaImportada, rejeitadas []string) {
	for i, linha := range strings.Split(texto, "\n") {
		linha = strings.TrimSpace(linha)
		if linha == "" {
			continue
		}

		campos := strings.Split(linha, ",")
		if len(campos) < 2 {
			rejeitadas = append(rejeitadas, fmt.Sprintf("linha %d: esperado \"nome, cpf[, função]\"", i+1))
			continue
		}

		item := LinhaImportada{
			Nome: strings.TrimSpace(campos[0]),
			CPF:  strings.TrimSpace(campos[1]),
		}
		if len(campos) > 2 {
			item.Funcao = strings.TrimSpace(campos[2])
		}
		if item.Nome == "" || item.CPF == "" {
			rejeitadas = append(rejeitadas, fmt.Sprintf("linha %d: nome e CPF obrigatórios", i+1))
			continue
		}

		validas = append(validas, item)
	}
	return validas, rejeitadas
}
