package store

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/engeseg/sstcontrol/internal/registro"
)

const backendPlanilha = "planilha"

const (
	abaEmpresas     = "Empresas"
	abaFuncionarios = "Funcionarios"
	abaASO          = "ASO"
	abaTreinamentos = "Treinamentos"
	abaLiberacoes   = "Liberacoes"
)

// layoutDecidida é o formato do timestamp de decisão nas abas; as demais
// colunas de data não carregam horário.
const layoutDecidida = "02/01/2006 15:04:05"

var cabecalhos = map[string][]string{
	abaEmpresas:     {"ID", "Nome da Empresa", "CNPJ", "Responsável", "Telefone", "E-mail"},
	abaFuncionarios: {"ID", "Nome", "CPF", "Função", "Empresa", "Data de Admissão"},
	abaASO:          {"ID", "Funcionário", "Tipo", "Data", "Validade", "Arquivo"},
	abaTreinamentos: {"ID", "Funcionário", "Treinamento", "Data", "Validade", "Arquivo"},
	abaLiberacoes:   {"ID", "Empresa", "Status", "Observação", "Decidida em", "Analista"},
}

var ordemAbas = []string{abaEmpresas, abaFuncionarios, abaASO, abaTreinamentos, abaLiberacoes}

// PlanilhaStore persiste os registros em uma pasta de trabalho xlsx local,
// uma aba por entidade. Funcionários referenciam a empresa pelo nome
// denormalizado; os ids numéricos são resolvidos na leitura.
type PlanilhaStore struct {
	caminho string
	mu      sync.Mutex
}

// NewPlanilhaStore abre (ou cria) a planilha no caminho informado.
func NewPlanilhaStore(caminho string) (*PlanilhaStore, error) {
	s := &PlanilhaStore{caminho: caminho}

	if _, err := os.Stat(caminho); errors.Is(err, os.ErrNotExist) {
		f := excelize.NewFile()
		defer f.Close()
		for _, aba := range ordemAbas {
			if _, err := f.NewSheet(aba); err != nil {
				return nil, erro(backendPlanilha, Entidade(aba), "criar", err)
			}
			if err := escreverCabecalho(f, aba); err != nil {
				return nil, erro(backendPlanilha, Entidade(aba), "criar", err)
			}
		}
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, erro(backendPlanilha, EntidadeEmpresas, "criar", err)
		}
		if err := f.SaveAs(caminho); err != nil {
			return nil, erro(backendPlanilha, EntidadeEmpresas, "criar", err)
		}
	} else if err != nil {
		return nil, erro(backendPlanilha, EntidadeEmpresas, "abrir", err)
	}

	return s, nil
}

func (s *PlanilhaStore) LoadEmpresas(ctx context.Context) ([]registro.Empresa, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.caminho)
	if err != nil {
		return nil, erro(backendPlanilha, EntidadeEmpresas, "load", err)
	}
	defer f.Close()

	return lerEmpresas(f)
}

func (s *PlanilhaStore) InsertEmpresa(ctx context.Context, e registro.Empresa) (registro.Empresa, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.caminho)
	if err != nil {
		return registro.Empresa{}, erro(backendPlanilha, EntidadeEmpresas, "insert", err)
	}
	defer f.Close()

	itens, err := lerEmpresas(f)
	if err != nil {
		return registro.Empresa{}, err
	}

	e.ID = proximoID(len(itens), func(i int) int64 { return itens[i].ID })
	linha := []any{e.ID, e.Nome, e.CNPJ, e.Responsavel, e.Telefone, e.Email}
	if err := anexarLinha(f, abaEmpresas, len(itens), linha); err != nil {
		return registro.Empresa{}, erro(backendPlanilha, EntidadeEmpresas, "insert", err)
	}
	if err := f.Save(); err != nil {
		return registro.Empresa{}, erro(backendPlanilha, EntidadeEmpresas, "insert", err)
	}
	return e, nil
}

func (s *PlanilhaStore) OverwriteEmpresas(ctx context.Context, itens []registro.Empresa) error {
	linhas := make([][]any, len(itens))
	for i, e := range itens {
		linhas[i] = []any{e.ID, e.Nome, e.CNPJ, e.Responsavel, e.Telefone, e.Email}
	}
	return s.reescreverAba(abaEmpresas, EntidadeEmpresas, linhas)
}

func (s *PlanilhaStore) LoadFuncionarios(ctx context.Context) ([]registro.Funcionario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.caminho)
	if err != nil {
		return nil, erro(backendPlanilha, EntidadeFuncionarios, "load", err)
	}
	defer f.Close()

	return lerFuncionarios(f)
}

func (s *PlanilhaStore) InsertFuncionario(ctx context.Context, fn registro.Funcionario) (registro.Funcionario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.caminho)
	if err != nil {
		return registro.Funcionario{}, erro(backendPlanilha, EntidadeFuncionarios, "insert", err)
	}
	defer f.Close()

	itens, err := lerFuncionarios(f)
	if err != nil {
		return registro.Funcionario{}, err
	}

	fn.ID = proximoID(len(itens), func(i int) int64 { return itens[i].ID })
	linha := []any{fn.ID, fn.Nome, fn.CPF, fn.Funcao, fn.Empresa, fn.DataAdmissao.Planilha()}
	if err := anexarLinha(f, abaFuncionarios, len(itens), linha); err != nil {
		return registro.Funcionario{}, erro(backendPlanilha, EntidadeFuncionarios, "insert", err)
	}
	if err := f.Save(); err != nil {
		return registro.Funcionario{}, erro(backendPlanilha, EntidadeFuncionarios, "insert", err)
	}
	return fn, nil
}

func (s *PlanilhaStore) OverwriteFuncionarios(ctx context.Context, itens []registro.Funcionario) error {
	linhas := make([][]any, len(itens))
	for i, fn := range itens {
		linhas[i] = []any{fn.ID, fn.Nome, fn.CPF, fn.Funcao, fn.Empresa, fn.DataAdmissao.Planilha()}
	}
	return s.reescreverAba(abaFuncionarios, EntidadeFuncionarios, linhas)
}

func (s *PlanilhaStore) LoadASOs(ctx context.Context) ([]registro.ASO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.caminho)
	if err != nil {
		return nil, erro(backendPlanilha, EntidadeASO, "load", err)
	}
	defer f.Close()

	return lerASOs(f)
}

func (s *PlanilhaStore) InsertASO(ctx context.Context, a registro.ASO) (registro.ASO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.caminho)
	if err != nil {
		return registro.ASO{}, erro(backendPlanilha, EntidadeASO, "insert", err)
	}
	defer f.Close()

	itens, err := lerASOs(f)
	if err != nil {
		return registro.ASO{}, err
	}

	a.ID = proximoID(len(itens), func(i int) int64 { return itens[i].ID })
	if a.URLArquivo == "" {
		a.URLArquivo = registro.SemArquivo
	}
	linha := []any{a.ID, a.Funcionario, string(a.Tipo), a.Data.Planilha(), a.Validade.Planilha(), a.URLArquivo}
	if err := anexarLinha(f, abaASO, len(itens), linha); err != nil {
		return registro.ASO{}, erro(backendPlanilha, EntidadeASO, "insert", err)
	}
	if err := f.Save(); err != nil {
		return registro.ASO{}, erro(backendPlanilha, EntidadeASO, "insert", err)
	}
	return a, nil
}

func (s *PlanilhaStore) OverwriteASOs(ctx context.Context, itens []registro.ASO) error {
	linhas := make([][]any, len(itens))
	for i, a := range itens {
		linhas[i] = []any{a.ID, a.Funcionario, string(a.Tipo), a.Data.Planilha(), a.Validade.Planilha(), a.URLArquivo}
	}
	return s.reescreverAba(abaASO, EntidadeASO, linhas)
}

func (s *PlanilhaStore) LoadTreinamentos(ctx context.Context) ([]registro.Treinamento, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.caminho)
	if err != nil {
		return nil, erro(backendPlanilha, EntidadeTreinamentos, "load", err)
	}
	defer f.Close()

	return lerTreinamentos(f)
}

func (s *PlanilhaStore) InsertTreinamento(ctx context.Context, t registro.Treinamento) (registro.Treinamento, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.caminho)
	if err != nil {
		return registro.Treinamento{}, erro(backendPlanilha, EntidadeTreinamentos, "insert", err)
	}
	defer f.Close()

	itens, err := lerTreinamentos(f)
	if err != nil {
		return registro.Treinamento{}, err
	}

	t.ID = proximoID(len(itens), func(i int) int64 { return itens[i].ID })
	if t.URLArquivo == "" {
		t.URLArquivo = registro.SemArquivo
	}
	linha := []any{t.ID, t.Funcionario, t.Nome, t.Data.Planilha(), t.Validade.Planilha(), t.URLArquivo}
	if err := anexarLinha(f, abaTreinamentos, len(itens), linha); err != nil {
		return registro.Treinamento{}, erro(backendPlanilha, EntidadeTreinamentos, "insert", err)
	}
	if err := f.Save(); err != nil {
		return registro.Treinamento{}, erro(backendPlanilha, EntidadeTreinamentos, "insert", err)
	}
	return t, nil
}

func (s *PlanilhaStore) OverwriteTreinamentos(ctx context.Context, itens []registro.Treinamento) error {
	linhas := make([][]any, len(itens))
	for i, t := range itens {
		linhas[i] = []any{t.ID, t.Funcionario, t.Nome, t.Data.Planilha(), t.Validade.Planilha(), t.URLArquivo}
	}
	return s.reescreverAba(abaTreinamentos, EntidadeTreinamentos, linhas)
}

func (s *PlanilhaStore) LoadLiberacoes(ctx context.Context) ([]registro.Liberacao, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.caminho)
	if err != nil {
		return nil, erro(backendPlanilha, EntidadeLiberacoes, "load", err)
	}
	defer f.Close()

	return lerLiberacoes(f)
}

func (s *PlanilhaStore) InsertLiberacao(ctx context.Context, l registro.Liberacao) (registro.Liberacao, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.caminho)
	if err != nil {
		return registro.Liberacao{}, erro(backendPlanilha, EntidadeLiberacoes, "insert", err)
	}
	defer f.Close()

	itens, err := lerLiberacoes(f)
	if err != nil {
		return registro.Liberacao{}, err
	}

	l.ID = proximoID(len(itens), func(i int) int64 { return itens[i].ID })
	linha := []any{l.ID, l.Empresa, string(l.Status), l.Observacao, l.DecididaEm.Format(layoutDecidida), l.Analista}
	if err := anexarLinha(f, abaLiberacoes, len(itens), linha); err != nil {
		return registro.Liberacao{}, erro(backendPlanilha, EntidadeLiberacoes, "insert", err)
	}
	if err := f.Save(); err != nil {
		return registro.Liberacao{}, erro(backendPlanilha, EntidadeLiberacoes, "insert", err)
	}
	return l, nil
}

// reescreverAba substitui o conteúdo de uma aba pelo snapshot informado.
func (s *PlanilhaStore) reescreverAba(aba string, entidade Entidade, linhas [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.caminho)
	if err != nil {
		return erro(backendPlanilha, entidade, "overwrite", err)
	}
	defer f.Close()

	if err := f.DeleteSheet(aba); err != nil {
		return erro(backendPlanilha, entidade, "overwrite", err)
	}
	if _, err := f.NewSheet(aba); err != nil {
		return erro(backendPlanilha, entidade, "overwrite", err)
	}
	if err := escreverCabecalho(f, aba); err != nil {
		return erro(backendPlanilha, entidade, "overwrite", err)
	}
	for i, linha := range linhas {
		if err := escreverLinha(f, aba, i+2, linha); err != nil {
			return erro(backendPlanilha, entidade, "overwrite", err)
		}
	}
	if err := f.Save(); err != nil {
		return erro(backendPlanilha, entidade, "overwrite", err)
	}
	return nil
}

func lerEmpresas(f *excelize.File) ([]registro.Empresa, error) {
	linhas, err := linhasDeDados(f, abaEmpresas)
	if err != nil {
		return nil, erro(backendPlanilha, EntidadeEmpresas, "load", err)
	}

	var itens []registro.Empresa
	for _, linha := range linhas {
		id, ok := idDaLinha(linha)
		if !ok {
			continue
		}
		itens = append(itens, registro.Empresa{
			ID:          id,
			Nome:        celula(linha, 1),
			CNPJ:        celula(linha, 2),
			Responsavel: celula(linha, 3),
			Telefone:    celula(linha, 4),
			Email:       celula(linha, 5),
		})
	}
	return itens, nil
}

func lerFuncionarios(f *excelize.File) ([]registro.Funcionario, error) {
	empresas, err := lerEmpresas(f)
	if err != nil {
		return nil, err
	}
	idPorEmpresa := make(map[string]int64, len(empresas))
	for _, e := range empresas {
		idPorEmpresa[e.Nome] = e.ID
	}

	linhas, err := linhasDeDados(f, abaFuncionarios)
	if err != nil {
		return nil, erro(backendPlanilha, EntidadeFuncionarios, "load", err)
	}

	var itens []registro.Funcionario
	for _, linha := range linhas {
		id, ok := idDaLinha(linha)
		if !ok {
			continue
		}
		nomeEmpresa := celula(linha, 4)
		itens = append(itens, registro.Funcionario{
			ID:           id,
			Nome:         celula(linha, 1),
			CPF:          celula(linha, 2),
			Funcao:       celula(linha, 3),
			EmpresaID:    idPorEmpresa[nomeEmpresa],
			Empresa:      nomeEmpresa,
			DataAdmissao: parseDataCelula(celula(linha, 5)),
		})
	}
	return itens, nil
}

func lerASOs(f *excelize.File) ([]registro.ASO, error) {
	idPorFuncionario, err := mapaFuncionarios(f)
	if err != nil {
		return nil, err
	}

	linhas, err := linhasDeDados(f, abaASO)
	if err != nil {
		return nil, erro(backendPlanilha, EntidadeASO, "load", err)
	}

	var itens []registro.ASO
	for _, linha := range linhas {
		id, ok := idDaLinha(linha)
		if !ok {
			continue
		}
		nome := celula(linha, 1)
		itens = append(itens, registro.ASO{
			ID:            id,
			FuncionarioID: idPorFuncionario[nome],
			Funcionario:   nome,
			Tipo:          registro.TipoASO(celula(linha, 2)),
			Data:          parseDataCelula(celula(linha, 3)),
			Validade:      parseDataCelula(celula(linha, 4)),
			URLArquivo:    celula(linha, 5),
		})
	}
	return itens, nil
}

func lerTreinamentos(f *excelize.File) ([]registro.Treinamento, error) {
	idPorFuncionario, err := mapaFuncionarios(f)
	if err != nil {
		return nil, err
	}

	linhas, err := linhasDeDados(f, abaTreinamentos)
	if err != nil {
		return nil, erro(backendPlanilha, EntidadeTreinamentos, "load", err)
	}

	var itens []registro.Treinamento
	for _, linha := range linhas {
		id, ok := idDaLinha(linha)
		if !ok {
			continue
		}
		nome := celula(linha, 1)
		itens = append(itens, registro.Treinamento{
			ID:            id,
			FuncionarioID: idPorFuncionario[nome],
			Funcionario:   nome,
			Nome:          celula(linha, 2),
			Data:          parseDataCelula(celula(linha, 3)),
			Validade:      parseDataCelula(celula(linha, 4)),
			URLArquivo:    celula(linha, 5),
		})
	}
	return itens, nil
}

func lerLiberacoes(f *excelize.File) ([]registro.Liberacao, error) {
	empresas, err := lerEmpresas(f)
	if err != nil {
		return nil, err
	}
	idPorEmpresa := make(map[string]int64, len(empresas))
	for _, e := range empresas {
		idPorEmpresa[e.Nome] = e.ID
	}

	linhas, err := linhasDeDados(f, abaLiberacoes)
	if err != nil {
		return nil, erro(backendPlanilha, EntidadeLiberacoes, "load", err)
	}

	var itens []registro.Liberacao
	for _, linha := range linhas {
		id, ok := idDaLinha(linha)
		if !ok {
			continue
		}
		nomeEmpresa := celula(linha, 1)
		decidida, _ := time.ParseInLocation(layoutDecidida, celula(linha, 4), time.UTC)
		itens = append(itens, registro.Liberacao{
			ID:         id,
			EmpresaID:  idPorEmpresa[nomeEmpresa],
			Empresa:    nomeEmpresa,
			Status:     registro.StatusLiberacao(celula(linha, 2)),
			Observacao: celula(linha, 3),
			DecididaEm: decidida,
			Analista:   celula(linha, 5),
		})
	}
	return itens, nil
}

func mapaFuncionarios(f *excelize.File) (map[string]int64, error) {
	funcionarios, err := lerFuncionarios(f)
	if err != nil {
		return nil, err
	}
	m := make(map[string]int64, len(funcionarios))
	for _, fn := range funcionarios {
		if _, existe := m[fn.Nome]; !existe {
			m[fn.Nome] = fn.ID
		}
	}
	return m, nil
}

// linhasDeDados devolve as linhas de uma aba sem o cabeçalho.
func linhasDeDados(f *excelize.File, aba string) ([][]string, error) {
	linhas, err := f.GetRows(aba)
	if err != nil {
		return nil, err
	}
	if len(linhas) <= 1 {
		return nil, nil
	}
	return linhas[1:], nil
}

func escreverCabecalho(f *excelize.File, aba string) error {
	valores := make([]any, len(cabecalhos[aba]))
	for i, h := range cabecalhos[aba] {
		valores[i] = h
	}
	return escreverLinha(f, aba, 1, valores)
}

func escreverLinha(f *excelize.File, aba string, linha int, valores []any) error {
	for col, valor := range valores {
		cel, err := excelize.CoordinatesToCellName(col+1, linha)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(aba, cel, valor); err != nil {
			return err
		}
	}
	return nil
}

// anexarLinha escreve após as n linhas de dados existentes (cabeçalho na 1).
func anexarLinha(f *excelize.File, aba string, existentes int, valores []any) error {
	return escreverLinha(f, aba, existentes+2, valores)
}

func proximoID(n int, idEm func(int) int64) int64 {
	var max int64
	for i := 0; i < n; i++ {
		if id := idEm(i); id > max {
			max = id
		}
	}
	return max + 1
}

func idDaLinha(linha []string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(celula(linha, 0)), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func celula(linha []string, idx int) string {
	if idx < 0 || idx >= len(linha) {
		return ""
	}
	return strings.TrimSpace(linha[idx])
}

// parseDataCelula aceita os formatos textuais usuais e o serial numérico do
// Excel. Serial abaixo de 61 cai no bug histórico do ano 1900 e é descartado.
func parseDataCelula(s string) registro.Data {
	if d := registro.ParseData(s); d.Valida {
		return d
	}
	if serial, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && serial >= 61 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return registro.NovaData(t)
		}
	}
	return registro.Data{}
}

var _ Store = (*PlanilhaStore)(nil)
