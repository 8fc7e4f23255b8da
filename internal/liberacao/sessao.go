package liberacao

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/engeseg/sstcontrol/internal/registro"
)

// ErrSessaoNaoEncontrada indica sessão expirada ou inexistente.
var ErrSessaoNaoEncontrada = errors.New("sessão de análise não encontrada")

// Sessao é o estado de uma análise em andamento. Nada aqui é persistido nos
// registros: abandonar a sessão descarta a decisão pendente sem efeito.
type Sessao struct {
	ID       string                    `json:"id"`
	Empresa  string                    `json:"empresa,omitempty"`
	Pendente *registro.StatusLiberacao `json:"pendente,omitempty"`
	CriadaEm time.Time                 `json:"criada_em"`
}

// SessaoStore guarda sessões de análise com expiração.
type SessaoStore interface {
	Salvar(ctx context.Context, s Sessao, ttl time.Duration) error
	Buscar(ctx context.Context, id string) (Sessao, error)
	Remover(ctx context.Context, id string) error
}

// MemoriaSessaoStore guarda sessões no próprio processo. É o padrão quando
// não há Redis configurado; basta para a ferramenta interna de baixa
// concorrência, mas sessões não sobrevivem a reinícios.
type MemoriaSessaoStore struct {
	mu      sync.Mutex
	sessoes map[string]sessaoGuardada
	agoraFn func() time.Time
}

type sessaoGuardada struct {
	sessao Sessao
	expira time.Time
}

// NewMemoriaSessaoStore cria o armazenamento em memória.
func NewMemoriaSessaoStore() *MemoriaSessaoStore {
	return &MemoriaSessaoStore{
		sessoes: make(map[string]sessaoGuardada),
		agoraFn: time.Now,
	}
}

func (m *MemoriaSessaoStore) Salvar(ctx context.Context, s Sessao, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	agora := m.agoraFn()
	m.sessoes[s.ID] = sessaoGuardada{sessao: s, expira: agora.Add(ttl)}

	// Limpeza oportunista das sessões abandonadas.
	for id, g := range m.sessoes {
		if g.expira.Before(agora) {
			delete(m.sessoes, id)
		}
	}
	return nil
}

func (m *MemoriaSessaoStore) Buscar(ctx context.Context, id string) (Sessao, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.sessoes[id]
	if !ok || g.expira.Before(m.agoraFn()) {
		return Sessao{}, ErrSessaoNaoEncontrada
	}
	return g.sessao, nil
}

func (m *MemoriaSessaoStore) Remover(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessoes, id)
	return nil
}
