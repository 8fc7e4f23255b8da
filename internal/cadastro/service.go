// Package cadastro concentra as operações de manutenção dos registros:
// inclusão, edição por reescrita de tabela, exclusão em cascata e importação
// em lote. As cascatas são regra de integridade da aplicação, já que o
// backend de planilha não tem chaves estrangeiras.
package cadastro

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/engeseg/sstcontrol/internal/registro"
	"github.com/engeseg/sstcontrol/internal/store"
	"github.com/engeseg/sstcontrol/internal/util"
)

var (
	ErrEmpresaNaoEncontrada     = errors.New("empresa não encontrada")
	ErrEmpresaJaCadastrada      = errors.New("empresa já cadastrada")
	ErrFuncionarioNaoEncontrado = errors.New("funcionário não encontrado")
	ErrASONaoEncontrado         = errors.New("ASO não encontrado")
	ErrTreinamentoNaoEncontrado = errors.New("treinamento não encontrado")
	ErrCampoDesconhecido        = errors.New("campo desconhecido")
	ErrNenhumaLinhaValida       = errors.New("nenhuma linha válida para importar")
)

// ErroCascataParcial indica que uma reescrita multi-tabela falhou depois de
// algumas tabelas já terem sido gravadas. As anteriores não são desfeitas;
// Concluidas nomeia o que já foi persistido.
type ErroCascataParcial struct {
	Concluidas []store.Entidade
	Err        error
}

func (e *ErroCascataParcial) Error() string {
	nomes := make([]string, len(e.Concluidas))
	for i, ent := range e.Concluidas {
		nomes[i] = string(ent)
	}
	return fmt.Sprintf("cascata interrompida após reescrever %s: %v", strings.Join(nomes, ", "), e.Err)
}

func (e *ErroCascataParcial) Unwrap() error { return e.Err }

// Service executa as operações de cadastro sobre um Store. Um mutex por
// entidade serializa o ciclo carregar-alterar-reescrever dentro do processo;
// travas são sempre adquiridas na mesma ordem para evitar deadlock.
type Service struct {
	store store.Store

	muEmpresas     sync.Mutex
	muFuncionarios sync.Mutex
	muASO          sync.Mutex
	muTreinamentos sync.Mutex
}

// NewService cria o serviço de cadastro.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// CadastrarEmpresa valida e insere uma nova empresa. Nome e CNPJ são
// obrigatórios; o nome é chave de negócio e não pode repetir.
func (s *Service) CadastrarEmpresa(ctx context.Context, e registro.Empresa) (registro.Empresa, error) {
	e.Nome = strings.TrimSpace(e.Nome)
	if err := util.RequireString(e.Nome, "nome da empresa"); err != nil {
		return registro.Empresa{}, err
	}
	if err := util.RequireString(e.CNPJ, "CNPJ"); err != nil {
		return registro.Empresa{}, err
	}
	if strings.TrimSpace(e.Email) != "" {
		if err := util.ValidateEmail(e.Email); err != nil {
			return registro.Empresa{}, err
		}
	}

	s.muEmpresas.Lock()
	defer s.muEmpresas.Unlock()

	existentes, err := s.store.LoadEmpresas(ctx)
	if err != nil {
		return registro.Empresa{}, err
	}
	for _, atual := range existentes {
		if atual.Nome == e.Nome {
			return registro.Empresa{}, ErrEmpresaJaCadastrada
		}
	}

	return s.store.InsertEmpresa(ctx, e)
}

// CadastrarFuncionario valida a referência à empresa e insere o funcionário.
func (s *Service) CadastrarFuncionario(ctx context.Context, f registro.Funcionario) (registro.Funcionario, error) {
	f.Nome = strings.TrimSpace(f.Nome)
	if err := util.RequireString(f.Nome, "nome do funcionário"); err != nil {
		return registro.Funcionario{}, err
	}
	if err := util.RequireString(f.CPF, "CPF"); err != nil {
		return registro.Funcionario{}, err
	}
	if err := util.RequireString(f.Empresa, "empresa"); err != nil {
		return registro.Funcionario{}, err
	}

	empresa, err := s.buscarEmpresa(ctx, f.Empresa)
	if err != nil {
		return registro.Funcionario{}, err
	}
	f.EmpresaID = empresa.ID

	s.muFuncionarios.Lock()
	defer s.muFuncionarios.Unlock()
	return s.store.InsertFuncionario(ctx, f)
}

// RegistrarASO valida tipo e referência ao funcionário e insere o atestado.
func (s *Service) RegistrarASO(ctx context.Context, a registro.ASO) (registro.ASO, error) {
	if err := util.RequireString(a.Funcionario, "funcionário"); err != nil {
		return registro.ASO{}, err
	}
	if !registro.TipoASOValido(a.Tipo) {
		return registro.ASO{}, &util.ErroValidacao{Msg: "tipo de ASO desconhecido"}
	}

	funcionario, err := s.buscarFuncionarioPorNome(ctx, a.Funcionario)
	if err != nil {
		return registro.ASO{}, err
	}
	a.FuncionarioID = funcionario.ID
	a.Funcionario = funcionario.Nome
	if strings.TrimSpace(a.URLArquivo) == "" {
		a.URLArquivo = registro.SemArquivo
	}

	s.muASO.Lock()
	defer s.muASO.Unlock()
	return s.store.InsertASO(ctx, a)
}

// RegistrarTreinamento valida nome e referência e insere o certificado.
func (s *Service) RegistrarTreinamento(ctx context.Context, t registro.Treinamento) (registro.Treinamento, error) {
	if err := util.RequireString(t.Funcionario, "funcionário"); err != nil {
		return registro.Treinamento{}, err
	}
	if err := util.RequireString(t.Nome, "nome do treinamento"); err != nil {
		return registro.Treinamento{}, err
	}

	funcionario, err := s.buscarFuncionarioPorNome(ctx, t.Funcionario)
	if err != nil {
		return registro.Treinamento{}, err
	}
	t.FuncionarioID = funcionario.ID
	t.Funcionario = funcionario.Nome
	if strings.TrimSpace(t.URLArquivo) == "" {
		t.URLArquivo = registro.SemArquivo
	}

	s.muTreinamentos.Lock()
	defer s.muTreinamentos.Unlock()
	return s.store.InsertTreinamento(ctx, t)
}

// EditarEmpresa altera um campo da empresa localizada pelo nome e reescreve
// a tabela. Renomear também atualiza o nome denormalizado nos funcionários.
func (s *Service) EditarEmpresa(ctx context.Context, nome, campo, valor string) error {
	s.muEmpresas.Lock()
	defer s.muEmpresas.Unlock()

	empresas, err := s.store.LoadEmpresas(ctx)
	if err != nil {
		return err
	}

	idx := -1
	for i, e := range empresas {
		if e.Nome == nome {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrEmpresaNaoEncontrada
	}

	valor = strings.TrimSpace(valor)
	renomeada := false
	switch campo {
	case "nome":
		if err := util.RequireString(valor, "nome da empresa"); err != nil {
			return err
		}
		for i, e := range empresas {
			if i != idx && e.Nome == valor {
				return ErrEmpresaJaCadastrada
			}
		}
		empresas[idx].Nome = valor
		renomeada = valor != nome
	case "cnpj":
		if err := util.RequireString(valor, "CNPJ"); err != nil {
			return err
		}
		empresas[idx].CNPJ = valor
	case "responsavel":
		empresas[idx].Responsavel = valor
	case "telefone":
		empresas[idx].Telefone = valor
	case "email":
		if valor != "" {
			if err := util.ValidateEmail(valor); err != nil {
				return err
			}
		}
		empresas[idx].Email = valor
	default:
		return ErrCampoDesconhecido
	}

	if err := s.store.OverwriteEmpresas(ctx, empresas); err != nil {
		return err
	}

	if !renomeada {
		return nil
	}

	// Propaga o novo nome para o campo denormalizado dos funcionários; no
	// backend de planilha é esse nome que materializa a referência.
	s.muFuncionarios.Lock()
	defer s.muFuncionarios.Unlock()

	funcionarios, err := s.store.LoadFuncionarios(ctx)
	if err != nil {
		return &ErroCascataParcial{Concluidas: []store.Entidade{store.EntidadeEmpresas}, Err: err}
	}
	for i := range funcionarios {
		if funcionarios[i].Empresa == nome {
			funcionarios[i].Empresa = valor
		}
	}
	if err := s.store.OverwriteFuncionarios(ctx, funcionarios); err != nil {
		return &ErroCascataParcial{Concluidas: []store.Entidade{store.EntidadeEmpresas}, Err: err}
	}
	return nil
}

// EditarFuncionario altera um campo do funcionário localizado por empresa e
// nome (nomes não são únicos entre empresas). Renomear propaga o nome
// denormalizado para ASOs e treinamentos.
func (s *Service) EditarFuncionario(ctx context.Context, empresa, nome, campo, valor string) error {
	s.muFuncionarios.Lock()
	defer s.muFuncionarios.Unlock()

	funcionarios, err := s.store.LoadFuncionarios(ctx)
	if err != nil {
		return err
	}

	idx := -1
	for i, f := range funcionarios {
		if f.Empresa == empresa && f.Nome == nome {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrFuncionarioNaoEncontrado
	}

	valor = strings.TrimSpace(valor)
	renomeado := false
	switch campo {
	case "nome":
		if err := util.RequireString(valor, "nome do funcionário"); err != nil {
			return err
		}
		funcionarios[idx].Nome = valor
		renomeado = valor != nome
	case "cpf":
		if err := util.RequireString(valor, "CPF"); err != nil {
			return err
		}
		funcionarios[idx].CPF = valor
	case "funcao":
		funcionarios[idx].Funcao = valor
	case "data_admissao":
		funcionarios[idx].DataAdmissao = registro.ParseData(valor)
	default:
		return ErrCampoDesconhecido
	}

	if err := s.store.OverwriteFuncionarios(ctx, funcionarios); err != nil {
		return err
	}

	if !renomeado {
		return nil
	}

	s.muASO.Lock()
	defer s.muASO.Unlock()
	s.muTreinamentos.Lock()
	defer s.muTreinamentos.Unlock()

	concluidas := []store.Entidade{store.EntidadeFuncionarios}

	asos, err := s.store.LoadASOs(ctx)
	if err != nil {
		return &ErroCascataParcial{Concluidas: concluidas, Err: err}
	}
	for i := range asos {
		if asos[i].FuncionarioID == funcionarios[idx].ID {
			asos[i].Funcionario = valor
		}
	}
	if err := s.store.OverwriteASOs(ctx, asos); err != nil {
		return &ErroCascataParcial{Concluidas: concluidas, Err: err}
	}
	concluidas = append(concluidas, store.EntidadeASO)

	treinamentos, err := s.store.LoadTreinamentos(ctx)
	if err != nil {
		return &ErroCascataParcial{Concluidas: concluidas, Err: err}
	}
	for i := range treinamentos {
		if treinamentos[i].FuncionarioID == funcionarios[idx].ID {
			treinamentos[i].Funcionario = valor
		}
	}
	if err := s.store.OverwriteTreinamentos(ctx, treinamentos); err != nil {
		return &ErroCascataParcial{Concluidas: concluidas, Err: err}
	}
	return nil
}

// ExcluirEmpresa remove a empresa, seus funcionários e os certificados
// desses funcionários. Em backends com suporte, a cascata inteira é uma
// única reescrita atômica; caso contrário é melhor esforço, tabela a tabela.
func (s *Service) ExcluirEmpresa(ctx context.Context, nome string) error {
	s.muEmpresas.Lock()
	defer s.muEmpresas.Unlock()
	s.muFuncionarios.Lock()
	defer s.muFuncionarios.Unlock()
	s.muASO.Lock()
	defer s.muASO.Unlock()
	s.muTreinamentos.Lock()
	defer s.muTreinamentos.Unlock()

	empresas, funcionarios, asos, treinamentos, err := s.carregarCadastro(ctx)
	if err != nil {
		return err
	}

	var alvo *registro.Empresa
	restantes := empresas[:0:0]
	for _, e := range empresas {
		if e.Nome == nome {
			e := e
			alvo = &e
			continue
		}
		restantes = append(restantes, e)
	}
	if alvo == nil {
		return ErrEmpresaNaoEncontrada
	}

	removidos := make(map[int64]bool)
	funcionariosRestantes := funcionarios[:0:0]
	for _, f := range funcionarios {
		if f.EmpresaID == alvo.ID {
			removidos[f.ID] = true
			continue
		}
		funcionariosRestantes = append(funcionariosRestantes, f)
	}

	asosRestantes := asos[:0:0]
	for _, a := range asos {
		if !removidos[a.FuncionarioID] {
			asosRestantes = append(asosRestantes, a)
		}
	}
	treinamentosRestantes := treinamentos[:0:0]
	for _, t := range treinamentos {
		if !removidos[t.FuncionarioID] {
			treinamentosRestantes = append(treinamentosRestantes, t)
		}
	}

	return s.gravarCascata(ctx, restantes, funcionariosRestantes, asosRestantes, treinamentosRestantes)
}

// ExcluirFuncionario remove o funcionário (localizado por empresa e nome) e
// seus ASOs e treinamentos.
func (s *Service) ExcluirFuncionario(ctx context.Context, empresa, nome string) error {
	s.muEmpresas.Lock()
	defer s.muEmpresas.Unlock()
	s.muFuncionarios.Lock()
	defer s.muFuncionarios.Unlock()
	s.muASO.Lock()
	defer s.muASO.Unlock()
	s.muTreinamentos.Lock()
	defer s.muTreinamentos.Unlock()

	empresas, funcionarios, asos, treinamentos, err := s.carregarCadastro(ctx)
	if err != nil {
		return err
	}

	var alvo *registro.Funcionario
	restantes := funcionarios[:0:0]
	for _, f := range funcionarios {
		if alvo == nil && f.Empresa == empresa && f.Nome == nome {
			f := f
			alvo = &f
			continue
		}
		restantes = append(restantes, f)
	}
	if alvo == nil {
		return ErrFuncionarioNaoEncontrado
	}

	asosRestantes := asos[:0:0]
	for _, a := range asos {
		if a.FuncionarioID != alvo.ID {
			asosRestantes = append(asosRestantes, a)
		}
	}
	treinamentosRestantes := treinamentos[:0:0]
	for _, t := range treinamentos {
		if t.FuncionarioID != alvo.ID {
			treinamentosRestantes = append(treinamentosRestantes, t)
		}
	}

	return s.gravarCascata(ctx, empresas, restantes, asosRestantes, treinamentosRestantes)
}

// AnexarArquivoASO grava a referência do documento no ASO indicado.
func (s *Service) AnexarArquivoASO(ctx context.Context, id int64, url string) error {
	s.muASO.Lock()
	defer s.muASO.Unlock()

	asos, err := s.store.LoadASOs(ctx)
	if err != nil {
		return err
	}
	idx := -1
	for i, a := range asos {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrASONaoEncontrado
	}
	asos[idx].URLArquivo = url
	return s.store.OverwriteASOs(ctx, asos)
}

// AnexarArquivoTreinamento grava a referência do documento no treinamento.
func (s *Service) AnexarArquivoTreinamento(ctx context.Context, id int64, url string) error {
	s.muTreinamentos.Lock()
	defer s.muTreinamentos.Unlock()

	treinamentos, err := s.store.LoadTreinamentos(ctx)
	if err != nil {
		return err
	}
	idx := -1
	for i, t := range treinamentos {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrTreinamentoNaoEncontrado
	}
	treinamentos[idx].URLArquivo = url
	return s.store.OverwriteTreinamentos(ctx, treinamentos)
}

// ImportarFuncionarios insere em lote os funcionários do texto informado,
// todos na mesma empresa e com a mesma data de admissão. Linhas recusadas
// não abortam o lote; lote sem nenhuma linha válida é erro.
func (s *Service) ImportarFuncionarios(ctx context.Context, empresa string, dataAdmissao registro.Data, texto string) (ResultadoImportacao, error) {
	alvo, err := s.buscarEmpresa(ctx, empresa)
	if err != nil {
		return ResultadoImportacao{}, err
	}

	validas, rejeitadas := ParseLote(texto)
	if len(validas) == 0 {
		return ResultadoImportacao{Rejeitadas: rejeitadas}, ErrNenhumaLinhaValida
	}

	s.muFuncionarios.Lock()
	defer s.muFuncionarios.Unlock()

	resultado := ResultadoImportacao{Rejeitadas: rejeitadas}
	for _, linha := range validas {
		f := registro.Funcionario{
			Nome:         linha.Nome,
			CPF:          linha.CPF,
			Funcao:       linha.Funcao,
			EmpresaID:    alvo.ID,
			Empresa:      alvo.Nome,
			DataAdmissao: dataAdmissao,
		}
		if _, err := s.store.InsertFuncionario(ctx, f); err != nil {
			return resultado, fmt.Errorf("após inserir %d funcionário(s): %w", resultado.Inseridos, err)
		}
		resultado.Inseridos++
	}
	return resultado, nil
}

func (s *Service) carregarCadastro(ctx context.Context) ([]registro.Empresa, []registro.Funcionario, []registro.ASO, []registro.Treinamento, error) {
	empresas, err := s.store.LoadEmpresas(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	funcionarios, err := s.store.LoadFuncionarios(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	asos, err := s.store.LoadASOs(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	treinamentos, err := s.store.LoadTreinamentos(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return empresas, funcionarios, asos, treinamentos, nil
}

// gravarCascata persiste as quatro tabelas, atômico quando o backend
// oferece OverwriteTudo, senão em melhor esforço com relato preciso.
func (s *Service) gravarCascata(ctx context.Context, empresas []registro.Empresa, funcionarios []registro.Funcionario, asos []registro.ASO, treinamentos []registro.Treinamento) error {
	if cascata, ok := s.store.(store.CascadeStore); ok {
		return cascata.OverwriteTudo(ctx, empresas, funcionarios, asos, treinamentos)
	}

	var concluidas []store.Entidade
	passo := func(entidade store.Entidade, grava func() error) error {
		if err := grava(); err != nil {
			if len(concluidas) > 0 {
				return &ErroCascataParcial{Concluidas: concluidas, Err: err}
			}
			return err
		}
		concluidas = append(concluidas, entidade)
		return nil
	}

	if err := passo(store.EntidadeEmpresas, func() error { return s.store.OverwriteEmpresas(ctx, empresas) }); err != nil {
		return err
	}
	if err := passo(store.EntidadeFuncionarios, func() error { return s.store.OverwriteFuncionarios(ctx, funcionarios) }); err != nil {
		return err
	}
	if err := passo(store.EntidadeASO, func() error { return s.store.OverwriteASOs(ctx, asos) }); err != nil {
		return err
	}
	return passo(store.EntidadeTreinamentos, func() error { return s.store.OverwriteTreinamentos(ctx, treinamentos) })
}

func (s *Service) buscarEmpresa(ctx context.Context, nome string) (registro.Empresa, error) {
	empresas, err := s.store.LoadEmpresas(ctx)
	if err != nil {
		return registro.Empresa{}, err
	}
	for _, e := range empresas {
		if e.Nome == strings.TrimSpace(nome) {
			return e, nil
		}
	}
	return registro.Empresa{}, ErrEmpresaNaoEncontrada
}

func (s *Service) buscarFuncionarioPorNome(ctx context.Context, nome string) (registro.Funcionario, error) {
	funcionarios, err := s.store.LoadFuncionarios(ctx)
	if err != nil {
		return registro.Funcionario{}, err
	}
	for _, f := range funcionarios {
		if f.Nome == strings.TrimSpace(nome) {
			return f, nil
		}
	}
	return registro.Funcionario{}, ErrFuncionarioNaoEncontrado
}
