package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/engeseg/sstcontrol/internal/registro"
)

func novaPlanilha(t *testing.T) *PlanilhaStore {
	t.Helper()
	s, err := NewPlanilhaStore(filepath.Join(t.TempDir(), "registros.xlsx"))
	if err != nil {
		t.Fatalf("criar planilha: %v", err)
	}
	return s
}

func TestPlanilhaCriaAbasVazias(t *testing.T) {
	s := novaPlanilha(t)
	ctx := context.Background()

	empresas, err := s.LoadEmpresas(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(empresas) != 0 {
		t.Fatalf("empresas = %+v", empresas)
	}

	f, err := excelize.OpenFile(s.caminho)
	if err != nil {
		t.Fatalf("abrir: %v", err)
	}
	defer f.Close()
	for _, aba := range ordemAbas {
		if idx, err := f.GetSheetIndex(aba); err != nil || idx < 0 {
			t.Fatalf("aba %q ausente", aba)
		}
	}
}

func TestPlanilhaInsertResolveReferencias(t *testing.T) {
	s := novaPlanilha(t)
	ctx := context.Background()

	empresa, err := s.InsertEmpresa(ctx, registro.Empresa{Nome: "Alfa", CNPJ: "11.111"})
	if err != nil {
		t.Fatalf("empresa: %v", err)
	}
	if empresa.ID != 1 {
		t.Fatalf("id = %d", empresa.ID)
	}

	fn, err := s.InsertFuncionario(ctx, registro.Funcionario{
		Nome:         "Ana",
		CPF:          "111",
		Funcao:       "Montadora",
		Empresa:      "Alfa",
		DataAdmissao: registro.ParseData("01/02/2026"),
	})
	if err != nil {
		t.Fatalf("funcionário: %v", err)
	}

	if _, err := s.InsertASO(ctx, registro.ASO{
		Funcionario: "Ana",
		Tipo:        registro.ASOAdmissional,
		Data:        registro.ParseData("01/02/2026"),
		Validade:    registro.ParseData("01/02/2027"),
	}); err != nil {
		t.Fatalf("aso: %v", err)
	}

	// A planilha guarda o nome; ids voltam resolvidos na leitura.
	funcionarios, err := s.LoadFuncionarios(ctx)
	if err != nil {
		t.Fatalf("load funcionários: %v", err)
	}
	if len(funcionarios) != 1 || funcionarios[0].EmpresaID != empresa.ID {
		t.Fatalf("funcionarios = %+v", funcionarios)
	}
	if funcionarios[0].DataAdmissao.ISO() != "2026-02-01" {
		t.Fatalf("admissão = %q", funcionarios[0].DataAdmissao.ISO())
	}

	asos, err := s.LoadASOs(ctx)
	if err != nil {
		t.Fatalf("load asos: %v", err)
	}
	if len(asos) != 1 || asos[0].FuncionarioID != fn.ID {
		t.Fatalf("asos = %+v", asos)
	}
	if asos[0].URLArquivo != registro.SemArquivo {
		t.Fatalf("arquivo = %q", asos[0].URLArquivo)
	}
	if asos[0].Validade.ISO() != "2027-02-01" {
		t.Fatalf("validade = %q", asos[0].Validade.ISO())
	}
}

func TestPlanilhaOverwriteSubstituiTudo(t *testing.T) {
	s := novaPlanilha(t)
	ctx := context.Background()

	for _, nome := range []string{"Alfa", "Beta", "Gama"} {
		if _, err := s.InsertEmpresa(ctx, registro.Empresa{Nome: nome, CNPJ: "x"}); err != nil {
			t.Fatalf("insert %s: %v", nome, err)
		}
	}

	restantes := []registro.Empresa{{ID: 2, Nome: "Beta", CNPJ: "x"}}
	if err := s.OverwriteEmpresas(ctx, restantes); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	empresas, err := s.LoadEmpresas(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(empresas) != 1 || empresas[0].Nome != "Beta" {
		t.Fatalf("empresas = %+v", empresas)
	}

	// Reescrever o mesmo snapshot é idempotente.
	if err := s.OverwriteEmpresas(ctx, restantes); err != nil {
		t.Fatalf("reescrever: %v", err)
	}
	empresas, err = s.LoadEmpresas(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(empresas) != 1 || empresas[0].Nome != "Beta" {
		t.Fatalf("empresas = %+v", empresas)
	}
}

func TestPlanilhaIDNaoReutilizaAposRemocao(t *testing.T) {
	s := novaPlanilha(t)
	ctx := context.Background()

	if _, err := s.InsertEmpresa(ctx, registro.Empresa{Nome: "Alfa", CNPJ: "x"}); err != nil {
		t.Fatal(err)
	}
	segunda, err := s.InsertEmpresa(ctx, registro.Empresa{Nome: "Beta", CNPJ: "x"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.OverwriteEmpresas(ctx, []registro.Empresa{segunda}); err != nil {
		t.Fatal(err)
	}

	terceira, err := s.InsertEmpresa(ctx, registro.Empresa{Nome: "Gama", CNPJ: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if terceira.ID != segunda.ID+1 {
		t.Fatalf("id = %d, esperado %d", terceira.ID, segunda.ID+1)
	}
}

func TestPlanilhaLiberacaoGuardaTimestamp(t *testing.T) {
	s := novaPlanilha(t)
	ctx := context.Background()

	if _, err := s.InsertEmpresa(ctx, registro.Empresa{Nome: "Alfa", CNPJ: "x"}); err != nil {
		t.Fatal(err)
	}

	decidida := time.Date(2026, 6, 10, 9, 30, 15, 0, time.UTC)
	if _, err := s.InsertLiberacao(ctx, registro.Liberacao{
		Empresa:    "Alfa",
		Status:     registro.StatusLiberado,
		Analista:   "Carla",
		DecididaEm: decidida,
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	liberacoes, err := s.LoadLiberacoes(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(liberacoes) != 1 {
		t.Fatalf("liberacoes = %+v", liberacoes)
	}
	l := liberacoes[0]
	if !l.DecididaEm.Equal(decidida) {
		t.Fatalf("DecididaEm = %v, esperado %v", l.DecididaEm, decidida)
	}
	if l.EmpresaID != 1 || l.Status != registro.StatusLiberado {
		t.Fatalf("liberacao = %+v", l)
	}
}

func TestParseDataCelulaSerial(t *testing.T) {
	// 45000 é 15/03/2023 no calendário do Excel.
	d := parseDataCelula("45000")
	if !d.Valida || d.ISO() != "2023-03-15" {
		t.Fatalf("serial 45000 = %+v (%s)", d, d.ISO())
	}

	if parseDataCelula("30").Valida {
		t.Fatal("serial da zona do bug de 1900 deveria ser descartado")
	}
	if parseDataCelula("texto").Valida {
		t.Fatal("texto arbitrário deveria ser descartado")
	}
	if !parseDataCelula("15/03/2023").Valida {
		t.Fatal("data textual deveria valer")
	}
}
