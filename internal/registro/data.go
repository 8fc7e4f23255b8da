package registro

import (
	"encoding/json"
	"strings"
	"time"
)

// Data é uma data de calendário sem componente de horário. O valor zero
// significa "ausente ou ilegível" e reprova qualquer verificação de vigência.
type Data struct {
	Time   time.Time
	Valida bool
}

// Formatos aceitos na leitura, na ordem em que são tentados. Planilhas usam
// dia/mês/ano; o backend relacional e a API usam ISO.
var formatosData = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"2/1/2006",
	"2006-01-02T15:04:05Z07:00",
}

// NovaData constrói uma Data válida truncando o horário.
func NovaData(t time.Time) Data {
	y, m, d := t.Date()
	return Data{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valida: true}
}

// ParseData interpreta uma data serializada. Vazio, "N/A" ou formato
// desconhecido resultam em Data inválida, nunca em erro.
func ParseData(s string) Data {
	s = strings.TrimSpace(s)
	if s == "" || s == SemArquivo {
		return Data{}
	}
	for _, layout := range formatosData {
		if t, err := time.Parse(layout, s); err == nil {
			return NovaData(t)
		}
	}
	return Data{}
}

// VencidaEm responde se a data já passou em relação ao dia de referência.
// Uma data ausente conta como vencida. Vencimento no próprio dia ainda vale.
func (d Data) VencidaEm(referencia time.Time) bool {
	if !d.Valida {
		return true
	}
	ry, rm, rd := referencia.Date()
	hoje := time.Date(ry, rm, rd, 0, 0, 0, 0, time.UTC)
	return d.Time.Before(hoje)
}

// DepoisDe compara duas datas; datas inválidas nunca vêm depois.
func (d Data) DepoisDe(outra Data) bool {
	if !d.Valida {
		return false
	}
	if !outra.Valida {
		return true
	}
	return d.Time.After(outra.Time)
}

// ISO devolve a forma ano-mês-dia, ou vazio para datas ausentes.
func (d Data) ISO() string {
	if !d.Valida {
		return ""
	}
	return d.Time.Format("2006-01-02")
}

// Planilha devolve a forma dia/mês/ano usada nas abas, ou vazio.
func (d Data) Planilha() string {
	if !d.Valida {
		return ""
	}
	return d.Time.Format("02/01/2006")
}

// MarshalJSON serializa como "2006-01-02" ou null.
func (d Data) MarshalJSON() ([]byte, error) {
	if !d.Valida {
		return []byte("null"), nil
	}
	return json.Marshal(d.ISO())
}

// UnmarshalJSON aceita null ou qualquer formato reconhecido por ParseData.
func (d *Data) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Data{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*d = ParseData(s)
	return nil
}
