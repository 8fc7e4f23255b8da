// Package avaliacao deriva o status de liberação de uma empresa a partir dos
// snapshots de funcionários, ASOs, treinamentos e do histórico de decisões.
// Todas as funções são puras: nenhuma toca o armazenamento.
package avaliacao

import (
	"fmt"
	"time"

	"github.com/engeseg/sstcontrol/internal/registro"
)

// JanelaOverride é o período em que uma decisão manual suprime a avaliação
// automática, contado a partir do timestamp da decisão.
const JanelaOverride = 24 * time.Hour

// Resultado é o veredito de uma avaliação: o status e as razões legíveis
// que o sustentam. Override manual vem com a observação registrada.
type Resultado struct {
	Status  registro.StatusLiberacao `json:"status"`
	Motivos []string                 `json:"motivos"`
	Manual  bool                     `json:"manual"`
}

// Avaliar computa o status da empresa no instante informado.
//
// A ausência de dados nunca é erro: empresa sem funcionários, funcionário sem
// ASO ou sem treinamento são condições reprovadas com motivo próprio. Uma
// decisão manual registrada há menos de 24 horas prevalece integralmente
// sobre o resultado automático.
func Avaliar(empresa string, funcionarios []registro.Funcionario, asos []registro.ASO, treinamentos []registro.Treinamento, historico []registro.Liberacao, agora time.Time) Resultado {
	if r, ok := overrideManual(empresa, historico, agora); ok {
		return r
	}
	return avaliarAutomatico(empresa, funcionarios, asos, treinamentos, agora)
}

func avaliarAutomatico(empresa string, funcionarios []registro.Funcionario, asos []registro.ASO, treinamentos []registro.Treinamento, agora time.Time) Resultado {
	var doEmpresa []registro.Funcionario
	for _, f := range funcionarios {
		if f.Empresa == empresa {
			doEmpresa = append(doEmpresa, f)
		}
	}

	if len(doEmpresa) == 0 {
		return Resultado{
			Status:  registro.StatusNaoLiberado,
			Motivos: []string{"nenhum funcionário cadastrado"},
		}
	}

	var motivos []string
	for _, f := range doEmpresa {
		motivos = append(motivos, motivosFuncionario(f, asos, treinamentos, agora)...)
	}

	if len(motivos) > 0 {
		return Resultado{Status: registro.StatusNaoLiberado, Motivos: motivos}
	}

	// Tudo em dia: aguarda análise manual.
	return Resultado{Status: registro.StatusPendente, Motivos: []string{"aguardando análise"}}
}

// motivosFuncionario verifica os dois eixos de conformidade de um
// funcionário, de forma independente: ASO vigente e treinamento vigente.
func motivosFuncionario(f registro.Funcionario, asos []registro.ASO, treinamentos []registro.Treinamento, agora time.Time) []string {
	var motivos []string

	var temASO bool
	var maiorValidade registro.Data
	for _, a := range asos {
		if a.FuncionarioID != f.ID {
			continue
		}
		temASO = true
		if a.Validade.DepoisDe(maiorValidade) {
			maiorValidade = a.Validade
		}
	}
	switch {
	case !temASO:
		motivos = append(motivos, fmt.Sprintf("%s: ASO não encontrado", f.Nome))
	case maiorValidade.VencidaEm(agora):
		motivos = append(motivos, fmt.Sprintf("%s: ASO vencido", f.Nome))
	}

	var temTreinamento, temVigente bool
	for _, t := range treinamentos {
		if t.FuncionarioID != f.ID {
			continue
		}
		temTreinamento = true
		if !t.Validade.VencidaEm(agora) {
			temVigente = true
		}
	}
	switch {
	case !temTreinamento:
		motivos = append(motivos, fmt.Sprintf("%s: nenhum treinamento encontrado", f.Nome))
	case !temVigente:
		motivos = append(motivos, fmt.Sprintf("%s: todos os treinamentos vencidos", f.Nome))
	}

	return motivos
}

// overrideManual procura a decisão mais recente da empresa e a devolve se
// ainda estiver dentro da janela de 24 horas (limite inclusivo).
func overrideManual(empresa string, historico []registro.Liberacao, agora time.Time) (Resultado, bool) {
	var ultima *registro.Liberacao
	for i := range historico {
		l := &historico[i]
		if l.Empresa != empresa {
			continue
		}
		if ultima == nil || l.DecididaEm.After(ultima.DecididaEm) {
			ultima = l
		}
	}
	if ultima == nil {
		return Resultado{}, false
	}

	idade := agora.Sub(ultima.DecididaEm)
	if idade < 0 || idade > JanelaOverride {
		return Resultado{}, false
	}

	motivo := fmt.Sprintf("decisão manual de %s em %s", ultima.Analista, ultima.DecididaEm.Format("02/01/2006 15:04"))
	motivos := []string{motivo}
	if ultima.Observacao != "" {
		motivos = append(motivos, ultima.Observacao)
	}
	return Resultado{Status: ultima.Status, Motivos: motivos, Manual: true}, true
}
