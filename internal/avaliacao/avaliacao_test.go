package avaliacao

import (
	"strings"
	"testing"
	"time"

	"github.com/engeseg/sstcontrol/internal/registro"
)

var agora = time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

func dataValida() registro.Data  { return registro.NovaData(agora.AddDate(0, 6, 0)) }
func dataVencida() registro.Data { return registro.NovaData(agora.AddDate(0, -1, 0)) }

func funcionario(id int64, nome, empresa string) registro.Funcionario {
	return registro.Funcionario{ID: id, Nome: nome, CPF: "000", Empresa: empresa, EmpresaID: 1}
}

func TestAvaliarSemFuncionarios(t *testing.T) {
	r := Avaliar("Alfa", nil, nil, nil, nil, agora)
	if r.Status != registro.StatusNaoLiberado {
		t.Fatalf("status = %q", r.Status)
	}
	if len(r.Motivos) != 1 || r.Motivos[0] != "nenhum funcionário cadastrado" {
		t.Fatalf("motivos = %v", r.Motivos)
	}
	if r.Manual {
		t.Fatal("avaliação automática não pode ser manual")
	}
}

func TestAvaliarTudoEmDia(t *testing.T) {
	funcionarios := []registro.Funcionario{funcionario(1, "Ana", "Alfa")}
	asos := []registro.ASO{{ID: 1, FuncionarioID: 1, Tipo: registro.ASOPeriodico, Validade: dataValida()}}
	treinamentos := []registro.Treinamento{{ID: 1, FuncionarioID: 1, Nome: "NR-35", Validade: dataValida()}}

	r := Avaliar("Alfa", funcionarios, asos, treinamentos, nil, agora)
	if r.Status != registro.StatusPendente {
		t.Fatalf("status = %q, esperado Pendente", r.Status)
	}
	if len(r.Motivos) != 1 || r.Motivos[0] != "aguardando análise" {
		t.Fatalf("motivos = %v", r.Motivos)
	}
}

func TestAvaliarMotivosPorFuncionario(t *testing.T) {
	funcionarios := []registro.Funcionario{
		funcionario(1, "Ana", "Alfa"),
		funcionario(2, "Bruno", "Alfa"),
		funcionario(3, "Clara", "Alfa"),
		funcionario(4, "Davi", "Outra"),
	}
	asos := []registro.ASO{
		{ID: 1, FuncionarioID: 1, Validade: dataVencida()},
		{ID: 2, FuncionarioID: 2, Validade: dataValida()},
		{ID: 3, FuncionarioID: 3, Validade: dataValida()},
	}
	treinamentos := []registro.Treinamento{
		{ID: 1, FuncionarioID: 1, Nome: "NR-35", Validade: dataValida()},
		{ID: 2, FuncionarioID: 2, Nome: "NR-35", Validade: dataVencida()},
		{ID: 3, FuncionarioID: 3, Nome: "NR-35", Validade: dataValida()},
	}

	r := Avaliar("Alfa", funcionarios, asos, treinamentos, nil, agora)
	if r.Status != registro.StatusNaoLiberado {
		t.Fatalf("status = %q", r.Status)
	}

	esperados := []string{
		"Ana: ASO vencido",
		"Bruno: todos os treinamentos vencidos",
	}
	for _, esperado := range esperados {
		if !contemMotivo(r.Motivos, esperado) {
			t.Fatalf("motivo %q ausente em %v", esperado, r.Motivos)
		}
	}
	for _, m := range r.Motivos {
		if strings.HasPrefix(m, "Clara") || strings.HasPrefix(m, "Davi") {
			t.Fatalf("motivo inesperado: %q", m)
		}
	}
}

func TestAvaliarCertificadosAusentes(t *testing.T) {
	funcionarios := []registro.Funcionario{funcionario(1, "Ana", "Alfa")}

	r := Avaliar("Alfa", funcionarios, nil, nil, nil, agora)
	if r.Status != registro.StatusNaoLiberado {
		t.Fatalf("status = %q", r.Status)
	}
	if !contemMotivo(r.Motivos, "Ana: ASO não encontrado") {
		t.Fatalf("motivos = %v", r.Motivos)
	}
	if !contemMotivo(r.Motivos, "Ana: nenhum treinamento encontrado") {
		t.Fatalf("motivos = %v", r.Motivos)
	}
}

// O ASO vigente é o de maior validade: um vencido ao lado de um válido não
// reprova. Treinamentos seguem a mesma regra por nome do certificado.
func TestAvaliarConsideraMaiorValidade(t *testing.T) {
	funcionarios := []registro.Funcionario{funcionario(1, "Ana", "Alfa")}
	asos := []registro.ASO{
		{ID: 1, FuncionarioID: 1, Validade: dataVencida()},
		{ID: 2, FuncionarioID: 1, Validade: dataValida()},
	}
	treinamentos := []registro.Treinamento{
		{ID: 1, FuncionarioID: 1, Nome: "NR-35", Validade: dataVencida()},
		{ID: 2, FuncionarioID: 1, Nome: "NR-35", Validade: dataValida()},
	}

	r := Avaliar("Alfa", funcionarios, asos, treinamentos, nil, agora)
	if r.Status != registro.StatusPendente {
		t.Fatalf("status = %q, motivos = %v", r.Status, r.Motivos)
	}
}

func TestOverrideManualDentroDaJanela(t *testing.T) {
	historico := []registro.Liberacao{
		{ID: 1, Empresa: "Alfa", Status: registro.StatusLiberado, Analista: "Carla", DecididaEm: agora.Add(-23*time.Hour - 59*time.Minute)},
	}

	r := Avaliar("Alfa", nil, nil, nil, historico, agora)
	if !r.Manual {
		t.Fatal("decisão recente deveria prevalecer")
	}
	if r.Status != registro.StatusLiberado {
		t.Fatalf("status = %q", r.Status)
	}
}

func TestOverrideManualNaJanelaExata(t *testing.T) {
	historico := []registro.Liberacao{
		{ID: 1, Empresa: "Alfa", Status: registro.StatusLiberado, Analista: "Carla", DecididaEm: agora.Add(-JanelaOverride)},
	}

	// Exatamente 24h ainda vale; um minuto a mais, não.
	r := Avaliar("Alfa", nil, nil, nil, historico, agora)
	if !r.Manual {
		t.Fatal("limite de 24h é inclusivo")
	}

	historico[0].DecididaEm = agora.Add(-JanelaOverride - time.Minute)
	r = Avaliar("Alfa", nil, nil, nil, historico, agora)
	if r.Manual {
		t.Fatal("decisão expirada não deveria prevalecer")
	}
	if r.Status != registro.StatusNaoLiberado {
		t.Fatalf("status = %q", r.Status)
	}
}

func TestOverrideManualUsaDecisaoMaisRecente(t *testing.T) {
	historico := []registro.Liberacao{
		{ID: 1, Empresa: "Alfa", Status: registro.StatusLiberado, Analista: "Carla", DecididaEm: agora.Add(-10 * time.Hour)},
		{ID: 2, Empresa: "Alfa", Status: registro.StatusNaoLiberado, Analista: "Davi", Observacao: "doc pendente", DecididaEm: agora.Add(-2 * time.Hour)},
		{ID: 3, Empresa: "Beta", Status: registro.StatusLiberado, Analista: "Carla", DecididaEm: agora.Add(-time.Hour)},
	}

	r := Avaliar("Alfa", nil, nil, nil, historico, agora)
	if !r.Manual || r.Status != registro.StatusNaoLiberado {
		t.Fatalf("resultado = %+v", r)
	}
	if !contemMotivo(r.Motivos, "doc pendente") {
		t.Fatalf("observação ausente: %v", r.Motivos)
	}
}

func TestOverrideManualNoFuturoNaoVale(t *testing.T) {
	historico := []registro.Liberacao{
		{ID: 1, Empresa: "Alfa", Status: registro.StatusLiberado, Analista: "Carla", DecididaEm: agora.Add(time.Hour)},
	}

	r := Avaliar("Alfa", nil, nil, nil, historico, agora)
	if r.Manual {
		t.Fatal("decisão com timestamp futuro não deveria prevalecer")
	}
}

func contemMotivo(motivos []string, alvo string) bool {
	for _, m := range motivos {
		if m == alvo {
			return true
		}
	}
	return false
}
