package registro

import "time"

// SemArquivo é o valor reservado para certificados sem documento anexado.
const SemArquivo = "N/A"

// StatusLiberacao indica a elegibilidade de uma empresa para operar.
type StatusLiberacao string

const (
	StatusLiberado    StatusLiberacao = "Liberado"
	StatusPendente    StatusLiberacao = "Pendente"
	StatusNaoLiberado StatusLiberacao = "Não Liberado"
)

// StatusValido verifica se o valor corresponde a um status conhecido.
func StatusValido(s StatusLiberacao) bool {
	switch s {
	case StatusLiberado, StatusPendente, StatusNaoLiberado:
		return true
	}
	return false
}

// TipoASO enumera os tipos de atestado de saúde ocupacional.
type TipoASO string

const (
	ASOAdmissional       TipoASO = "Admissional"
	ASOPeriodico         TipoASO = "Periódico"
	ASODemissional       TipoASO = "Demissional"
	ASOMudancaDeFuncao   TipoASO = "Mudança de Função"
	ASORetornoAoTrabalho TipoASO = "Retorno ao Trabalho"
)

// TipoASOValido verifica se o valor corresponde a um tipo conhecido.
func TipoASOValido(t TipoASO) bool {
	switch t {
	case ASOAdmissional, ASOPeriodico, ASODemissional, ASOMudancaDeFuncao, ASORetornoAoTrabalho:
		return true
	}
	return false
}

// Empresa representa uma empresa contratada. Nome é a chave de negócio.
type Empresa struct {
	ID          int64  `json:"id"`
	Nome        string `json:"nome"`
	CNPJ        string `json:"cnpj"`
	Responsavel string `json:"responsavel"`
	Telefone    string `json:"telefone"`
	Email       string `json:"email"`
}

// Funcionario representa um funcionário vinculado a uma empresa.
// EmpresaID e Empresa (nome) chegam preenchidos do adaptador de
// armazenamento, independente do backend guardar id ou nome.
type Funcionario struct {
	ID           int64  `json:"id"`
	Nome         string `json:"nome"`
	CPF          string `json:"cpf"`
	Funcao       string `json:"funcao"`
	EmpresaID    int64  `json:"empresa_id"`
	Empresa      string `json:"empresa"`
	DataAdmissao Data   `json:"data_admissao"`
}

// ASO representa um atestado de saúde ocupacional de um funcionário.
// O ASO "vigente" é o de maior validade.
type ASO struct {
	ID            int64   `json:"id"`
	FuncionarioID int64   `json:"funcionario_id"`
	Funcionario   string  `json:"funcionario"`
	Tipo          TipoASO `json:"tipo"`
	Data          Data    `json:"data"`
	Validade      Data    `json:"validade"`
	URLArquivo    string  `json:"url_arquivo"`
}

// Treinamento representa um certificado de treinamento. Pode haver mais de
// um registro por nome de treinamento; só o de maior validade conta.
type Treinamento struct {
	ID            int64  `json:"id"`
	FuncionarioID int64  `json:"funcionario_id"`
	Funcionario   string `json:"funcionario"`
	Nome          string `json:"nome"`
	Data          Data   `json:"data"`
	Validade      Data   `json:"validade"`
	URLArquivo    string `json:"url_arquivo"`
}

// Liberacao é uma entrada do histórico de decisões de análise.
// O histórico é só-escrita: entradas nunca são alteradas ou removidas.
type Liberacao struct {
	ID         int64           `json:"id"`
	EmpresaID  int64           `json:"empresa_id"`
	Empresa    string          `json:"empresa"`
	Status     StatusLiberacao `json:"status"`
	Observacao string          `json:"observacao"`
	DecididaEm time.Time       `json:"decidida_em"`
	Analista   string          `json:"analista"`
}
