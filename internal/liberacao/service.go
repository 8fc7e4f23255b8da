// Package liberacao implementa o fluxo de análise manual: autenticação pelo
// segredo compartilhado, seleção de empresa, decisão pendente e confirmação,
// que grava uma entrada no histórico de liberações.
package liberacao

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/engeseg/sstcontrol/internal/auth"
	"github.com/engeseg/sstcontrol/internal/avaliacao"
	"github.com/engeseg/sstcontrol/internal/registro"
	"github.com/engeseg/sstcontrol/internal/store"
	"github.com/engeseg/sstcontrol/internal/util"
)

var (
	ErrSenhaIncorreta        = errors.New("senha incorreta")
	ErrEmpresaNaoEncontrada  = errors.New("empresa não encontrada")
	ErrEmpresaNaoSelecionada = errors.New("nenhuma empresa selecionada")
	ErrDecisaoAusente        = errors.New("nenhuma decisão pendente para confirmar")
	ErrStatusInvalido        = errors.New("status de decisão desconhecido")
)

// Service conduz a máquina de estados da análise. Nenhuma decisão é
// persistida antes de Confirmar; trocar de empresa ou abandonar a sessão
// descarta a escolha pendente.
type Service struct {
	store     store.Store
	sessoes   SessaoStore
	jwt       *auth.JWTManager
	senhaHash string
	agora     func() time.Time
}

// NewService monta o fluxo de liberação. senhaHash é o hash Argon2id do
// segredo compartilhado dos analistas.
func NewService(st store.Store, sessoes SessaoStore, jwt *auth.JWTManager, senhaHash string) *Service {
	return &Service{
		store:     st,
		sessoes:   sessoes,
		jwt:       jwt,
		senhaHash: senhaHash,
		agora:     time.Now,
	}
}

// Autenticar confere o segredo compartilhado e abre uma sessão de análise.
// Senha errada devolve ErrSenhaIncorreta, sem bloqueio nem limite de
// tentativas (o rate limit do transporte cobre abuso).
func (s *Service) Autenticar(ctx context.Context, senha string) (token string, err error) {
	ok, err := auth.Verify(senha, s.senhaHash)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrSenhaIncorreta
	}

	sessao := Sessao{ID: uuid.NewString(), CriadaEm: s.agora().UTC()}
	if err := s.sessoes.Salvar(ctx, sessao, s.jwt.SessionTTL()); err != nil {
		return "", err
	}

	return s.jwt.GenerateSessionToken(sessao.ID)
}

// Sessao devolve o estado atual da análise.
func (s *Service) Sessao(ctx context.Context, id string) (Sessao, error) {
	return s.sessoes.Buscar(ctx, id)
}

// Encerrar descarta a sessão; qualquer decisão pendente se perde, de
// propósito.
func (s *Service) Encerrar(ctx context.Context, id string) error {
	return s.sessoes.Remover(ctx, id)
}

// SelecionarEmpresa aponta a análise para uma empresa existente e zera a
// decisão pendente anterior.
func (s *Service) SelecionarEmpresa(ctx context.Context, sessaoID, empresa string) (Sessao, error) {
	sessao, err := s.sessoes.Buscar(ctx, sessaoID)
	if err != nil {
		return Sessao{}, err
	}

	empresa = strings.TrimSpace(empresa)
	if _, err := s.buscarEmpresa(ctx, empresa); err != nil {
		return Sessao{}, err
	}

	sessao.Empresa = empresa
	sessao.Pendente = nil
	if err := s.sessoes.Salvar(ctx, sessao, s.jwt.SessionTTL()); err != nil {
		return Sessao{}, err
	}
	return sessao, nil
}

// Decidir registra na sessão a intenção do analista (Liberar, Pendenciar ou
// Recusar). Nada vai ao histórico até a confirmação.
func (s *Service) Decidir(ctx context.Context, sessaoID string, status registro.StatusLiberacao) (Sessao, error) {
	if !registro.StatusValido(status) {
		return Sessao{}, ErrStatusInvalido
	}

	sessao, err := s.sessoes.Buscar(ctx, sessaoID)
	if err != nil {
		return Sessao{}, err
	}
	if sessao.Empresa == "" {
		return Sessao{}, ErrEmpresaNaoSelecionada
	}

	sessao.Pendente = &status
	if err := s.sessoes.Salvar(ctx, sessao, s.jwt.SessionTTL()); err != nil {
		return Sessao{}, err
	}
	return sessao, nil
}

// Confirmar grava a decisão pendente no histórico com o timestamp atual e
// volta a sessão ao estado "empresa selecionada". Nome do analista é sempre
// obrigatório; observação só quando o status é Pendente.
func (s *Service) Confirmar(ctx context.Context, sessaoID, analista, observacao string) (registro.Liberacao, error) {
	sessao, err := s.sessoes.Buscar(ctx, sessaoID)
	if err != nil {
		return registro.Liberacao{}, err
	}
	if sessao.Empresa == "" {
		return registro.Liberacao{}, ErrEmpresaNaoSelecionada
	}
	if sessao.Pendente == nil {
		return registro.Liberacao{}, ErrDecisaoAusente
	}

	if err := util.RequireString(analista, "nome do analista"); err != nil {
		return registro.Liberacao{}, err
	}
	if *sessao.Pendente == registro.StatusPendente {
		if err := util.RequireString(observacao, "observação"); err != nil {
			return registro.Liberacao{}, err
		}
	}

	// A empresa pode ter sido excluída entre a seleção e a confirmação.
	empresa, err := s.buscarEmpresa(ctx, sessao.Empresa)
	if err != nil {
		return registro.Liberacao{}, err
	}

	entrada := registro.Liberacao{
		EmpresaID:  empresa.ID,
		Empresa:    empresa.Nome,
		Status:     *sessao.Pendente,
		Observacao: strings.TrimSpace(observacao),
		DecididaEm: s.agora().UTC(),
		Analista:   strings.TrimSpace(analista),
	}

	gravada, err := s.store.InsertLiberacao(ctx, entrada)
	if err != nil {
		return registro.Liberacao{}, err
	}

	sessao.Pendente = nil
	if err := s.sessoes.Salvar(ctx, sessao, s.jwt.SessionTTL()); err != nil {
		return registro.Liberacao{}, err
	}
	return gravada, nil
}

// Historico lista as entradas de liberação, opcionalmente de uma só empresa.
func (s *Service) Historico(ctx context.Context, empresa string) ([]registro.Liberacao, error) {
	todas, err := s.store.LoadLiberacoes(ctx)
	if err != nil {
		return nil, err
	}
	if empresa == "" {
		return todas, nil
	}
	var filtradas []registro.Liberacao
	for _, l := range todas {
		if l.Empresa == empresa {
			filtradas = append(filtradas, l)
		}
	}
	return filtradas, nil
}

// Avaliar carrega os snapshots e computa o status da empresa agora.
func (s *Service) Avaliar(ctx context.Context, empresa string) (avaliacao.Resultado, error) {
	if _, err := s.buscarEmpresa(ctx, empresa); err != nil {
		return avaliacao.Resultado{}, err
	}

	funcionarios, err := s.store.LoadFuncionarios(ctx)
	if err != nil {
		return avaliacao.Resultado{}, err
	}
	asos, err := s.store.LoadASOs(ctx)
	if err != nil {
		return avaliacao.Resultado{}, err
	}
	treinamentos, err := s.store.LoadTreinamentos(ctx)
	if err != nil {
		return avaliacao.Resultado{}, err
	}
	historico, err := s.store.LoadLiberacoes(ctx)
	if err != nil {
		return avaliacao.Resultado{}, err
	}

	return avaliacao.Avaliar(empresa, funcionarios, asos, treinamentos, historico, s.agora()), nil
}

func (s *Service) buscarEmpresa(ctx context.Context, nome string) (registro.Empresa, error) {
	empresas, err := s.store.LoadEmpresas(ctx)
	if err != nil {
		return registro.Empresa{}, err
	}
	for _, e := range empresas {
		if e.Nome == nome {
			return e, nil
		}
	}
	return registro.Empresa{}, ErrEmpresaNaoEncontrada
}
