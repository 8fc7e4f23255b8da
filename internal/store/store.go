package store

import (
	"context"
	"fmt"

	"github.com/engeseg/sstcontrol/internal/registro"
)

// Entidade identifica um tipo de registro persistido.
type Entidade string

const (
	EntidadeEmpresas     Entidade = "empresas"
	EntidadeFuncionarios Entidade = "funcionarios"
	EntidadeASO          Entidade = "aso"
	EntidadeTreinamentos Entidade = "treinamentos"
	EntidadeLiberacoes   Entidade = "liberacoes"
)

// Store é o contrato único de acesso aos registros, independente do backend
// (Postgres ou planilha local). Leituras devolvem snapshots ordenados por ID;
// edições e exclusões são expressas como reescrita da tabela inteira.
// O histórico de liberações é só-escrita e por isso não tem Overwrite.
type Store interface {
	LoadEmpresas(ctx context.Context) ([]registro.Empresa, error)
	InsertEmpresa(ctx context.Context, e registro.Empresa) (registro.Empresa, error)
	OverwriteEmpresas(ctx context.Context, itens []registro.Empresa) error

	LoadFuncionarios(ctx context.Context) ([]registro.Funcionario, error)
	InsertFuncionario(ctx context.Context, f registro.Funcionario) (registro.Funcionario, error)
	OverwriteFuncionarios(ctx context.Context, itens []registro.Funcionario) error

	LoadASOs(ctx context.Context) ([]registro.ASO, error)
	InsertASO(ctx context.Context, a registro.ASO) (registro.ASO, error)
	OverwriteASOs(ctx context.Context, itens []registro.ASO) error

	LoadTreinamentos(ctx context.Context) ([]registro.Treinamento, error)
	InsertTreinamento(ctx context.Context, t registro.Treinamento) (registro.Treinamento, error)
	OverwriteTreinamentos(ctx context.Context, itens []registro.Treinamento) error

	LoadLiberacoes(ctx context.Context) ([]registro.Liberacao, error)
	InsertLiberacao(ctx context.Context, l registro.Liberacao) (registro.Liberacao, error)
}

// CascadeStore é implementado por backends capazes de reescrever as quatro
// tabelas de cadastro em uma única operação atômica. Quando ausente, a
// exclusão em cascata reescreve tabela a tabela, em melhor esforço.
type CascadeStore interface {
	OverwriteTudo(ctx context.Context, empresas []registro.Empresa, funcionarios []registro.Funcionario, asos []registro.ASO, treinamentos []registro.Treinamento) error
}

// StoreError embrulha falhas de leitura ou escrita do backend.
type StoreError struct {
	Backend  string
	Entidade Entidade
	Op       string
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %s %s: %v", e.Backend, e.Op, e.Entidade, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func erro(backend string, entidade Entidade, op string, err error) *StoreError {
	return &StoreError{Backend: backend, Entidade: entidade, Op: op, Err: err}
}
