package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/engeseg/sstcontrol/internal/db"
	"github.com/engeseg/sstcontrol/internal/registro"
)

const backendPostgres = "postgres"

// PostgresStore persiste os registros em um banco Postgres hospedado.
// Funcionários referenciam a empresa por id; os nomes denormalizados dos
// snapshots vêm de JOINs na leitura.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore cria o adaptador sobre um pool já conectado.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// LoadEmpresas devolve todas as empresas ordenadas por id.
func (s *PostgresStore) LoadEmpresas(ctx context.Context) ([]registro.Empresa, error) {
	const query = `
        SELECT id, nome, cnpj, responsavel, telefone, email
        FROM empresas
        ORDER BY id
    `

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, erro(backendPostgres, EntidadeEmpresas, "load", err)
	}
	defer rows.Close()

	var itens []registro.Empresa
	for rows.Next() {
		var e registro.Empresa
		if err := rows.Scan(&e.ID, &e.Nome, &e.CNPJ, &e.Responsavel, &e.Telefone, &e.Email); err != nil {
			return nil, erro(backendPostgres, EntidadeEmpresas, "load", err)
		}
		itens = append(itens, e)
	}
	if rows.Err() != nil {
		return nil, erro(backendPostgres, EntidadeEmpresas, "load", rows.Err())
	}
	return itens, nil
}

// InsertEmpresa insere e devolve o registro com o id atribuído.
func (s *PostgresStore) InsertEmpresa(ctx context.Context, e registro.Empresa) (registro.Empresa, error) {
	const query = `
        INSERT INTO empresas (nome, cnpj, responsavel, telefone, email)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `

	if err := s.pool.QueryRow(ctx, query, e.Nome, e.CNPJ, e.Responsavel, e.Telefone, e.Email).Scan(&e.ID); err != nil {
		return registro.Empresa{}, erro(backendPostgres, EntidadeEmpresas, "insert", err)
	}
	return e, nil
}

// OverwriteEmpresas substitui a tabela inteira em uma transação.
func (s *PostgresStore) OverwriteEmpresas(ctx context.Context, itens []registro.Empresa) error {
	err := db.WithTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		return overwriteEmpresasTx(ctx, tx, itens)
	})
	if err != nil {
		return erro(backendPostgres, EntidadeEmpresas, "overwrite", err)
	}
	return nil
}

func (s *PostgresStore) LoadFuncionarios(ctx context.Context) ([]registro.Funcionario, error) {
	const query = `
        SELECT f.id, f.nome, f.cpf, f.funcao, f.empresa_id, e.nome, f.data_admissao
        FROM funcionarios f
        JOIN empresas e ON e.id = f.empresa_id
        ORDER BY f.id
    `

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, erro(backendPostgres, EntidadeFuncionarios, "load", err)
	}
	defer rows.Close()

	var itens []registro.Funcionario
	for rows.Next() {
		var (
			f   registro.Funcionario
			adm *time.Time
		)
		if err := rows.Scan(&f.ID, &f.Nome, &f.CPF, &f.Funcao, &f.EmpresaID, &f.Empresa, &adm); err != nil {
			return nil, erro(backendPostgres, EntidadeFuncionarios, "load", err)
		}
		if adm != nil {
			f.DataAdmissao = registro.NovaData(*adm)
		}
		itens = append(itens, f)
	}
	if rows.Err() != nil {
		return nil, erro(backendPostgres, EntidadeFuncionarios, "load", rows.Err())
	}
	return itens, nil
}

func (s *PostgresStore) InsertFuncionario(ctx context.Context, f registro.Funcionario) (registro.Funcionario, error) {
	const query = `
        INSERT INTO funcionarios (nome, cpf, funcao, empresa_id, data_admissao)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `

	if err := s.pool.QueryRow(ctx, query, f.Nome, f.CPF, f.Funcao, f.EmpresaID, dataOuNulo(f.DataAdmissao)).Scan(&f.ID); err != nil {
		return registro.Funcionario{}, erro(backendPostgres, EntidadeFuncionarios, "insert", err)
	}
	return f, nil
}

func (s *PostgresStore) OverwriteFuncionarios(ctx context.Context, itens []registro.Funcionario) error {
	err := db.WithTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		return overwriteFuncionariosTx(ctx, tx, itens)
	})
	if err != nil {
		return erro(backendPostgres, EntidadeFuncionarios, "overwrite", err)
	}
	return nil
}

func (s *PostgresStore) LoadASOs(ctx context.Context) ([]registro.ASO, error) {
	const query = `
        SELECT a.id, a.funcionario_id, f.nome, a.tipo, a.data, a.validade, a.url_arquivo
        FROM aso a
        JOIN funcionarios f ON f.id = a.funcionario_id
        ORDER BY a.id
    `

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, erro(backendPostgres, EntidadeASO, "load", err)
	}
	defer rows.Close()

	var itens []registro.ASO
	for rows.Next() {
		var (
			a           registro.ASO
			data, valid *time.Time
		)
		if err := rows.Scan(&a.ID, &a.FuncionarioID, &a.Funcionario, &a.Tipo, &data, &valid, &a.URLArquivo); err != nil {
			return nil, erro(backendPostgres, EntidadeASO, "load", err)
		}
		if data != nil {
			a.Data = registro.NovaData(*data)
		}
		if valid != nil {
			a.Validade = registro.NovaData(*valid)
		}
		itens = append(itens, a)
	}
	if rows.Err() != nil {
		return nil, erro(backendPostgres, EntidadeASO, "load", rows.Err())
	}
	return itens, nil
}

func (s *PostgresStore) InsertASO(ctx context.Context, a registro.ASO) (registro.ASO, error) {
	const query = `
        INSERT INTO aso (funcionario_id, tipo, data, validade, url_arquivo)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `

	if err := s.pool.QueryRow(ctx, query, a.FuncionarioID, a.Tipo, dataOuNulo(a.Data), dataOuNulo(a.Validade), a.URLArquivo).Scan(&a.ID); err != nil {
		return registro.ASO{}, erro(backendPostgres, EntidadeASO, "insert", err)
	}
	return a, nil
}

func (s *PostgresStore) OverwriteASOs(ctx context.Context, itens []registro.ASO) error {
	err := db.WithTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		return overwriteASOsTx(ctx, tx, itens)
	})
	if err != nil {
		return erro(backendPostgres, EntidadeASO, "overwrite", err)
	}
	return nil
}

func (s *PostgresStore) LoadTreinamentos(ctx context.Context) ([]registro.Treinamento, error) {
	const query = `
        SELECT t.id, t.funcionario_id, f.nome, t.treinamento, t.data, t.validade, t.url_arquivo
        FROM treinamentos t
        JOIN funcionarios f ON f.id = t.funcionario_id
        ORDER BY t.id
    `

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, erro(backendPostgres, EntidadeTreinamentos, "load", err)
	}
	defer rows.Close()

	var itens []registro.Treinamento
	for rows.Next() {
		var (
			t           registro.Treinamento
			data, valid *time.Time
		)
		if err := rows.Scan(&t.ID, &t.FuncionarioID, &t.Funcionario, &t.Nome, &data, &valid, &t.URLArquivo); err != nil {
			return nil, erro(backendPostgres, EntidadeTreinamentos, "load", err)
		}
		if data != nil {
			t.Data = registro.NovaData(*data)
		}
		if valid != nil {
			t.Validade = registro.NovaData(*valid)
		}
		itens = append(itens, t)
	}
	if rows.Err() != nil {
		return nil, erro(backendPostgres, EntidadeTreinamentos, "load", rows.Err())
	}
	return itens, nil
}

func (s *PostgresStore) InsertTreinamento(ctx context.Context, t registro.Treinamento) (registro.Treinamento, error) {
	const query = `
        INSERT INTO treinamentos (funcionario_id, treinamento, data, validade, url_arquivo)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `

	if err := s.pool.QueryRow(ctx, query, t.FuncionarioID, t.Nome, dataOuNulo(t.Data), dataOuNulo(t.Validade), t.URLArquivo).Scan(&t.ID); err != nil {
		return registro.Treinamento{}, erro(backendPostgres, EntidadeTreinamentos, "insert", err)
	}
	return t, nil
}

func (s *PostgresStore) OverwriteTreinamentos(ctx context.Context, itens []registro.Treinamento) error {
	err := db.WithTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		return overwriteTreinamentosTx(ctx, tx, itens)
	})
	if err != nil {
		return erro(backendPostgres, EntidadeTreinamentos, "overwrite", err)
	}
	return nil
}

func (s *PostgresStore) LoadLiberacoes(ctx context.Context) ([]registro.Liberacao, error) {
	const query = `
        SELECT id, empresa_id, empresa, status, observacao, decidida_em, analista
        FROM liberacoes
        ORDER BY id
    `

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, erro(backendPostgres, EntidadeLiberacoes, "load", err)
	}
	defer rows.Close()

	var itens []registro.Liberacao
	for rows.Next() {
		var l registro.Liberacao
		if err := rows.Scan(&l.ID, &l.EmpresaID, &l.Empresa, &l.Status, &l.Observacao, &l.DecididaEm, &l.Analista); err != nil {
			return nil, erro(backendPostgres, EntidadeLiberacoes, "load", err)
		}
		itens = append(itens, l)
	}
	if rows.Err() != nil {
		return nil, erro(backendPostgres, EntidadeLiberacoes, "load", rows.Err())
	}
	return itens, nil
}

func (s *PostgresStore) InsertLiberacao(ctx context.Context, l registro.Liberacao) (registro.Liberacao, error) {
	const query = `
        INSERT INTO liberacoes (empresa_id, empresa, status, observacao, decidida_em, analista)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `

	if err := s.pool.QueryRow(ctx, query, l.EmpresaID, l.Empresa, l.Status, l.Observacao, l.DecididaEm, l.Analista).Scan(&l.ID); err != nil {
		return registro.Liberacao{}, erro(backendPostgres, EntidadeLiberacoes, "insert", err)
	}
	return l, nil
}

// OverwriteTudo reescreve as quatro tabelas de cadastro em uma única
// transação, de modo que uma exclusão em cascata não deixe estado parcial.
func (s *PostgresStore) OverwriteTudo(ctx context.Context, empresas []registro.Empresa, funcionarios []registro.Funcionario, asos []registro.ASO, treinamentos []registro.Treinamento) error {
	err := db.WithTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		if err := overwriteASOsTx(ctx, tx, asos); err != nil {
			return err
		}
		if err := overwriteTreinamentosTx(ctx, tx, treinamentos); err != nil {
			return err
		}
		if err := overwriteFuncionariosTx(ctx, tx, funcionarios); err != nil {
			return err
		}
		return overwriteEmpresasTx(ctx, tx, empresas)
	})
	if err != nil {
		return erro(backendPostgres, EntidadeEmpresas, "overwrite-cascata", err)
	}
	return nil
}

func overwriteEmpresasTx(ctx context.Context, tx pgx.Tx, itens []registro.Empresa) error {
	if _, err := tx.Exec(ctx, `DELETE FROM empresas`); err != nil {
		return err
	}
	for _, e := range itens {
		const insert = `
            INSERT INTO empresas (id, nome, cnpj, responsavel, telefone, email)
            VALUES ($1, $2, $3, $4, $5, $6)
        `
		if _, err := tx.Exec(ctx, insert, e.ID, e.Nome, e.CNPJ, e.Responsavel, e.Telefone, e.Email); err != nil {
			return err
		}
	}
	return resetSerial(ctx, tx, "empresas")
}

func overwriteFuncionariosTx(ctx context.Context, tx pgx.Tx, itens []registro.Funcionario) error {
	if _, err := tx.Exec(ctx, `DELETE FROM funcionarios`); err != nil {
		return err
	}
	for _, f := range itens {
		const insert = `
            INSERT INTO funcionarios (id, nome, cpf, funcao, empresa_id, data_admissao)
            VALUES ($1, $2, $3, $4, $5, $6)
        `
		if _, err := tx.Exec(ctx, insert, f.ID, f.Nome, f.CPF, f.Funcao, f.EmpresaID, dataOuNulo(f.DataAdmissao)); err != nil {
			return err
		}
	}
	return resetSerial(ctx, tx, "funcionarios")
}

func overwriteASOsTx(ctx context.Context, tx pgx.Tx, itens []registro.ASO) error {
	if _, err := tx.Exec(ctx, `DELETE FROM aso`); err != nil {
		return err
	}
	for _, a := range itens {
		const insert = `
            INSERT INTO aso (id, funcionario_id, tipo, data, validade, url_arquivo)
            VALUES ($1, $2, $3, $4, $5, $6)
        `
		if _, err := tx.Exec(ctx, insert, a.ID, a.FuncionarioID, a.Tipo, dataOuNulo(a.Data), dataOuNulo(a.Validade), a.URLArquivo); err != nil {
			return err
		}
	}
	return resetSerial(ctx, tx, "aso")
}

func overwriteTreinamentosTx(ctx context.Context, tx pgx.Tx, itens []registro.Treinamento) error {
	if _, err := tx.Exec(ctx, `DELETE FROM treinamentos`); err != nil {
		return err
	}
	for _, t := range itens {
		const insert = `
            INSERT INTO treinamentos (id, funcionario_id, treinamento, data, validade, url_arquivo)
            VALUES ($1, $2, $3, $4, $5, $6)
        `
		if _, err := tx.Exec(ctx, insert, t.ID, t.FuncionarioID, t.Nome, dataOuNulo(t.Data), dataOuNulo(t.Validade), t.URLArquivo); err != nil {
			return err
		}
	}
	return resetSerial(ctx, tx, "treinamentos")
}

// resetSerial realinha a sequência do id após reescrita com ids explícitos.
// Nomes de tabela vêm de constantes internas, nunca de entrada do usuário.
func resetSerial(ctx context.Context, tx pgx.Tx, tabela string) error {
	query := fmt.Sprintf(
		`SELECT setval(pg_get_serial_sequence('%s', 'id'), GREATEST(COALESCE(MAX(id), 0), 1)) FROM %s`,
		tabela, tabela,
	)
	_, err := tx.Exec(ctx, query)
	return err
}

func dataOuNulo(d registro.Data) *time.Time {
	if !d.Valida {
		return nil
	}
	t := d.Time
	return &t
}
