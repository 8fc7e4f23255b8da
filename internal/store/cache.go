package store

import (
	"context"
	"slices"
	"sync"

	"github.com/engeseg/sstcontrol/internal/registro"
)

// CacheStore memoriza o último snapshot carregado de cada entidade e o
// descarta a cada mutação bem-sucedida daquela entidade, de modo que a
// próxima leitura volte ao backend. Cada Load devolve uma cópia: quem
// edita o snapshot e falha na reescrita não pode sujar o cache, e leituras
// concorrentes nunca enxergam uma fatia em mutação.
type CacheStore struct {
	inner Store

	mu           sync.Mutex
	empresas     []registro.Empresa
	funcionarios []registro.Funcionario
	asos         []registro.ASO
	treinamentos []registro.Treinamento
	liberacoes   []registro.Liberacao
	valido       map[Entidade]bool
}

// NewCacheStore envolve um backend com cache de snapshots. Se o backend
// suportar reescrita em cascata, o valor devolvido também suporta.
func NewCacheStore(inner Store) Store {
	c := &CacheStore{inner: inner, valido: make(map[Entidade]bool)}
	if cascata, ok := inner.(CascadeStore); ok {
		return &cacheComCascata{CacheStore: c, cascata: cascata}
	}
	return c
}

// Invalidate descarta o snapshot de uma entidade.
func (c *CacheStore) Invalidate(e Entidade) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valido[e] = false
}

// InvalidateAll descarta todos os snapshots.
func (c *CacheStore) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range []Entidade{EntidadeEmpresas, EntidadeFuncionarios, EntidadeASO, EntidadeTreinamentos, EntidadeLiberacoes} {
		c.valido[e] = false
	}
}

func (c *CacheStore) LoadEmpresas(ctx context.Context) ([]registro.Empresa, error) {
	c.mu.Lock()
	if c.valido[EntidadeEmpresas] {
		itens := slices.Clone(c.empresas)
		c.mu.Unlock()
		return itens, nil
	}
	c.mu.Unlock()

	itens, err := c.inner.LoadEmpresas(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.empresas = itens
	c.valido[EntidadeEmpresas] = true
	c.mu.Unlock()
	return slices.Clone(itens), nil
}

func (c *CacheStore) InsertEmpresa(ctx context.Context, e registro.Empresa) (registro.Empresa, error) {
	inserida, err := c.inner.InsertEmpresa(ctx, e)
	if err != nil {
		return registro.Empresa{}, err
	}
	c.Invalidate(EntidadeEmpresas)
	return inserida, nil
}

func (c *CacheStore) OverwriteEmpresas(ctx context.Context, itens []registro.Empresa) error {
	if err := c.inner.OverwriteEmpresas(ctx, itens); err != nil {
		return err
	}
	c.Invalidate(EntidadeEmpresas)
	return nil
}

func (c *CacheStore) LoadFuncionarios(ctx context.Context) ([]registro.Funcionario, error) {
	c.mu.Lock()
	if c.valido[EntidadeFuncionarios] {
		itens := slices.Clone(c.funcionarios)
		c.mu.Unlock()
		return itens, nil
	}
	c.mu.Unlock()

	itens, err := c.inner.LoadFuncionarios(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.funcionarios = itens
	c.valido[EntidadeFuncionarios] = true
	c.mu.Unlock()
	return slices.Clone(itens), nil
}

func (c *CacheStore) InsertFuncionario(ctx context.Context, f registro.Funcionario) (registro.Funcionario, error) {
	inserido, err := c.inner.InsertFuncionario(ctx, f)
	if err != nil {
		return registro.Funcionario{}, err
	}
	c.Invalidate(EntidadeFuncionarios)
	return inserido, nil
}

func (c *CacheStore) OverwriteFuncionarios(ctx context.Context, itens []registro.Funcionario) error {
	if err := c.inner.OverwriteFuncionarios(ctx, itens); err != nil {
		return err
	}
	c.Invalidate(EntidadeFuncionarios)
	return nil
}

func (c *CacheStore) LoadASOs(ctx context.Context) ([]registro.ASO, error) {
	c.mu.Lock()
	if c.valido[EntidadeASO] {
		itens := slices.Clone(c.asos)
		c.mu.Unlock()
		return itens, nil
	}
	c.mu.Unlock()

	itens, err := c.inner.LoadASOs(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.asos = itens
	c.valido[EntidadeASO] = true
	c.mu.Unlock()
	return slices.Clone(itens), nil
}

func (c *CacheStore) InsertASO(ctx context.Context, a registro.ASO) (registro.ASO, error) {
	inserido, err := c.inner.InsertASO(ctx, a)
	if err != nil {
		return registro.ASO{}, err
	}
	c.Invalidate(EntidadeASO)
	return inserido, nil
}

func (c *CacheStore) OverwriteASOs(ctx context.Context, itens []registro.ASO) error {
	if err := c.inner.OverwriteASOs(ctx, itens); err != nil {
		return err
	}
	c.Invalidate(EntidadeASO)
	return nil
}

func (c *CacheStore) LoadTreinamentos(ctx context.Context) ([]registro.Treinamento, error) {
	c.mu.Lock()
	if c.valido[EntidadeTreinamentos] {
		itens := slices.Clone(c.treinamentos)
		c.mu.Unlock()
		return itens, nil
	}
	c.mu.Unlock()

	itens, err := c.inner.LoadTreinamentos(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.treinamentos = itens
	c.valido[EntidadeTreinamentos] = true
	c.mu.Unlock()
	return slices.Clone(itens), nil
}

func (c *CacheStore) InsertTreinamento(ctx context.Context, t registro.Treinamento) (registro.Treinamento, error) {
	inserido, err := c.inner.InsertTreinamento(ctx, t)
	if err != nil {
		return registro.Treinamento{}, err
	}
	c.Invalidate(EntidadeTreinamentos)
	return inserido, nil
}

func (c *CacheStore) OverwriteTreinamentos(ctx context.Context, itens []registro.Treinamento) error {
	if err := c.inner.OverwriteTreinamentos(ctx, itens); err != nil {
		return err
	}
	c.Invalidate(EntidadeTreinamentos)
	return nil
}

func (c *CacheStore) LoadLiberacoes(ctx context.Context) ([]registro.Liberacao, error) {
	c.mu.Lock()
	if c.valido[EntidadeLiberacoes] {
		itens := slices.Clone(c.liberacoes)
		c.mu.Unlock()
		return itens, nil
	}
	c.mu.Unlock()

	itens, err := c.inner.LoadLiberacoes(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.liberacoes = itens
	c.valido[EntidadeLiberacoes] = true
	c.mu.Unlock()
	return slices.Clone(itens), nil
}

func (c *CacheStore) InsertLiberacao(ctx context.Context, l registro.Liberacao) (registro.Liberacao, error) {
	inserida, err := c.inner.InsertLiberacao(ctx, l)
	if err != nil {
		return registro.Liberacao{}, err
	}
	c.Invalidate(EntidadeLiberacoes)
	return inserida, nil
}

// cacheComCascata propaga OverwriteTudo para backends que o suportam.
type cacheComCascata struct {
	*CacheStore
	cascata CascadeStore
}

func (c *cacheComCascata) OverwriteTudo(ctx context.Context, empresas []registro.Empresa, funcionarios []registro.Funcionario, asos []registro.ASO, treinamentos []registro.Treinamento) error {
	if err := c.cascata.OverwriteTudo(ctx, empresas, funcionarios, asos, treinamentos); err != nil {
		return err
	}
	c.InvalidateAll()
	return nil
}

var _ Store = (*CacheStore)(nil)
var _ CascadeStore = (*cacheComCascata)(nil)
