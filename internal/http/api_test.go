package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/engeseg/sstcontrol/internal/auth"
	"github.com/engeseg/sstcontrol/internal/cadastro"
	"github.com/engeseg/sstcontrol/internal/config"
	"github.com/engeseg/sstcontrol/internal/liberacao"
	"github.com/engeseg/sstcontrol/internal/registro"
	"github.com/engeseg/sstcontrol/internal/storage"
	"github.com/engeseg/sstcontrol/internal/store"
)

type memStore struct {
	empresas     []registro.Empresa
	funcionarios []registro.Funcionario
	asos         []registro.ASO
	treinamentos []registro.Treinamento
	liberacoes   []registro.Liberacao
	proximoID    int64
}

func (m *memStore) id() int64 {
	m.proximoID++
	return m.proximoID
}

func (m *memStore) LoadEmpresas(ctx context.Context) ([]registro.Empresa, error) {
	return m.empresas, nil
}
func (m *memStore) InsertEmpresa(ctx context.Context, e registro.Empresa) (registro.Empresa, error) {
	e.ID = m.id()
	m.empresas = append(m.empresas, e)
	return e, nil
}
func (m *memStore) OverwriteEmpresas(ctx context.Context, itens []registro.Empresa) error {
	m.empresas = itens
	return nil
}
func (m *memStore) LoadFuncionarios(ctx context.Context) ([]registro.Funcionario, error) {
	return m.funcionarios, nil
}
func (m *memStore) InsertFuncionario(ctx context.Context, f registro.Funcionario) (registro.Funcionario, error) {
	f.ID = m.id()
	m.funcionarios = append(m.funcionarios, f)
	return f, nil
}
func (m *memStore) OverwriteFuncionarios(ctx context.Context, itens []registro.Funcionario) error {
	m.funcionarios = itens
	return nil
}
func (m *memStore) LoadASOs(ctx context.Context) ([]registro.ASO, error) {
	return m.asos, nil
}
func (m *memStore) InsertASO(ctx context.Context, a registro.ASO) (registro.ASO, error) {
	a.ID = m.id()
	m.asos = append(m.asos, a)
	return a, nil
}
func (m *memStore) OverwriteASOs(ctx context.Context, itens []registro.ASO) error {
	m.asos = itens
	return nil
}
func (m *memStore) LoadTreinamentos(ctx context.Context) ([]registro.Treinamento, error) {
	return m.treinamentos, nil
}
func (m *memStore) InsertTreinamento(ctx context.Context, t registro.Treinamento) (registro.Treinamento, error) {
	t.ID = m.id()
	m.treinamentos = append(m.treinamentos, t)
	return t, nil
}
func (m *memStore) OverwriteTreinamentos(ctx context.Context, itens []registro.Treinamento) error {
	m.treinamentos = itens
	return nil
}
func (m *memStore) LoadLiberacoes(ctx context.Context) ([]registro.Liberacao, error) {
	return m.liberacoes, nil
}
func (m *memStore) InsertLiberacao(ctx context.Context, l registro.Liberacao) (registro.Liberacao, error) {
	l.ID = m.id()
	m.liberacoes = append(m.liberacoes, l)
	return l, nil
}

var _ store.Store = (*memStore)(nil)

// capturaUploader guarda o último documento enviado.
type capturaUploader struct {
	ultimaKey string
}

func (c *capturaUploader) Upload(ctx context.Context, input storage.UploadInput) (*storage.UploadResult, error) {
	c.ultimaKey = input.Key
	return &storage.UploadResult{URL: "https://docs.local/" + input.Key}, nil
}

const senhaAPI = "segredo-compartilhado"

func montarAPI(t *testing.T) (http.Handler, *memStore, *capturaUploader) {
	t.Helper()
	uploader := &capturaUploader{}
	api, ms := montarAPIComUploader(t, uploader)
	return api, ms, uploader
}

func montarAPIComUploader(t *testing.T, uploader storage.Uploader) (http.Handler, *memStore) {
	t.Helper()

	hash, err := auth.Hash(senhaAPI)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	ms := &memStore{}
	jwtManager := auth.NewJWTManager("um-segredo-de-teste-com-32-chars!", time.Hour)

	cfg := &config.Config{
		StoreBackend:    config.BackendPlanilha,
		RateLimitPublic: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		RateLimitAuth:   config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}

	cad := cadastro.NewService(ms)
	lib := liberacao.NewService(ms, liberacao.NewMemoriaSessaoStore(), jwtManager, hash)

	return NewRouter(cfg, ms, uploader, cad, lib, jwtManager), ms
}

func fazerLogin(t *testing.T, api http.Handler) string {
	t.Helper()

	rec := executar(api, http.MethodPost, "/auth/login", "", map[string]any{"senha": senhaAPI})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("login: %v", err)
	}
	return resp.Data.AccessToken
}

func executar(api http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	return rec
}

func TestRotasExigemToken(t *testing.T) {
	api, _, _ := montarAPI(t)

	rotas := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/empresas/"},
		{http.MethodPost, "/funcionarios/"},
		{http.MethodGet, "/liberacoes"},
		{http.MethodPost, "/liberacao/confirmar"},
	}

	for _, rota := range rotas {
		rec := executar(api, rota.method, rota.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: status %d", rota.method, rota.path, rec.Code)
		}
	}
}

func TestLoginSenhaErrada(t *testing.T) {
	api, _, _ := montarAPI(t)

	rec := executar(api, http.MethodPost, "/auth/login", "", map[string]any{"senha": "outra"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestFluxoCRUDCompleto(t *testing.T) {
	api, ms, _ := montarAPI(t)
	token := fazerLogin(t, api)

	rec := executar(api, http.MethodPost, "/empresas/", token, registro.Empresa{Nome: "Alfa", CNPJ: "11.111"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("criar empresa: %d: %s", rec.Code, rec.Body.String())
	}

	rec = executar(api, http.MethodPost, "/funcionarios/", token, map[string]any{"nome": "Ana", "cpf": "111", "empresa": "Alfa"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("criar funcionário: %d: %s", rec.Code, rec.Body.String())
	}

	rec = executar(api, http.MethodPost, "/aso/", token, map[string]any{"funcionario": "Ana", "tipo": "Admissional", "validade": "2027-01-01"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("criar ASO: %d: %s", rec.Code, rec.Body.String())
	}

	rec = executar(api, http.MethodPatch, "/empresas/Alfa", token, map[string]any{"campo": "nome", "valor": "Alfa Engenharia"})
	if rec.Code != http.StatusOK {
		t.Fatalf("renomear: %d: %s", rec.Code, rec.Body.String())
	}
	if ms.funcionarios[0].Empresa != "Alfa Engenharia" {
		t.Fatalf("funcionário aponta para %q", ms.funcionarios[0].Empresa)
	}

	rec = executar(api, http.MethodGet, "/funcionarios/?empresa=Alfa+Engenharia", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("listar: %d", rec.Code)
	}

	rec = executar(api, http.MethodDelete, "/empresas/Alfa%20Engenharia", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("excluir: %d: %s", rec.Code, rec.Body.String())
	}
	if len(ms.funcionarios) != 0 || len(ms.asos) != 0 {
		t.Fatalf("cascata incompleta: %+v / %+v", ms.funcionarios, ms.asos)
	}
}

func TestErrosViramEnvelope(t *testing.T) {
	api, _, _ := montarAPI(t)
	token := fazerLogin(t, api)

	rec := executar(api, http.MethodDelete, "/empresas/Inexistente", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "REFERENCE" {
		t.Fatalf("code = %q", resp.Error.Code)
	}

	rec = executar(api, http.MethodPost, "/empresas/", token, map[string]any{"nome": "", "cnpj": "1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestImportacaoEmLote(t *testing.T) {
	api, ms, _ := montarAPI(t)
	token := fazerLogin(t, api)

	rec := executar(api, http.MethodPost, "/empresas/", token, registro.Empresa{Nome: "Alfa", CNPJ: "11.111"})
	if rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}

	rec = executar(api, http.MethodPost, "/funcionarios/importar", token, map[string]any{
		"empresa":       "Alfa",
		"data_admissao": "2026-06-01",
		"texto":         "Ana,111\nBruno,222,Soldador\n\nlixo",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Importacao cadastro.ResultadoImportacao `json:"importacao"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Importacao.Inseridos != 2 || len(resp.Data.Importacao.Rejeitadas) != 1 {
		t.Fatalf("importação = %+v", resp.Data.Importacao)
	}
	if len(ms.funcionarios) != 2 {
		t.Fatalf("funcionarios = %+v", ms.funcionarios)
	}

	// Lote sem linha válida é recusado por inteiro.
	rec = executar(api, http.MethodPost, "/funcionarios/importar", token, map[string]any{
		"empresa": "Alfa",
		"texto":   "\nlixo\n",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestFluxoDeLiberacaoHTTP(t *testing.T) {
	api, ms, _ := montarAPI(t)
	token := fazerLogin(t, api)

	rec := executar(api, http.MethodPost, "/empresas/", token, registro.Empresa{Nome: "Alfa", CNPJ: "11.111"})
	if rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}

	rec = executar(api, http.MethodPost, "/liberacao/selecionar", token, map[string]any{"empresa": "Alfa"})
	if rec.Code != http.StatusOK {
		t.Fatalf("selecionar: %d: %s", rec.Code, rec.Body.String())
	}

	// Confirmar antes de decidir é recusado.
	rec = executar(api, http.MethodPost, "/liberacao/confirmar", token, map[string]any{"analista": "Carla"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("confirmar sem decisão: %d", rec.Code)
	}

	rec = executar(api, http.MethodPost, "/liberacao/decidir", token, map[string]any{"status": "Liberado"})
	if rec.Code != http.StatusOK {
		t.Fatalf("decidir: %d: %s", rec.Code, rec.Body.String())
	}

	rec = executar(api, http.MethodPost, "/liberacao/confirmar", token, map[string]any{"analista": "Carla"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("confirmar: %d: %s", rec.Code, rec.Body.String())
	}
	if len(ms.liberacoes) != 1 || ms.liberacoes[0].Status != registro.StatusLiberado {
		t.Fatalf("histórico = %+v", ms.liberacoes)
	}

	rec = executar(api, http.MethodGet, "/liberacoes?empresa=Alfa", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("histórico: %d", rec.Code)
	}

	rec = executar(api, http.MethodGet, "/empresas/Alfa/avaliacao", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("avaliação: %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data struct {
			Avaliacao struct {
				Status string `json:"status"`
				Manual bool   `json:"manual"`
			} `json:"avaliacao"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Data.Avaliacao.Manual || resp.Data.Avaliacao.Status != "Liberado" {
		t.Fatalf("avaliação = %+v", resp.Data.Avaliacao)
	}
}

func TestUploadDeDocumento(t *testing.T) {
	api, ms, uploader := montarAPI(t)
	token := fazerLogin(t, api)

	rec := executar(api, http.MethodPost, "/empresas/", token, registro.Empresa{Nome: "Alfa", CNPJ: "11.111"})
	if rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}
	rec = executar(api, http.MethodPost, "/funcionarios/", token, map[string]any{"nome": "Ana", "cpf": "111", "empresa": "Alfa"})
	if rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}
	rec = executar(api, http.MethodPost, "/aso/", token, map[string]any{"funcionario": "Ana", "tipo": "Admissional"})
	if rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}
	asoID := ms.asos[0].ID

	var corpo bytes.Buffer
	mw := multipart.NewWriter(&corpo)
	parte, err := mw.CreateFormFile("arquivo", "aso.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parte.Write([]byte("%PDF-1.4 conteudo")); err != nil {
		t.Fatal(err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/aso/%d/arquivo", asoID), &corpo)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	recUpload := httptest.NewRecorder()
	api.ServeHTTP(recUpload, req)

	if recUpload.Code != http.StatusOK {
		t.Fatalf("upload: %d: %s", recUpload.Code, recUpload.Body.String())
	}
	if uploader.ultimaKey == "" {
		t.Fatal("uploader não foi chamado")
	}
	if ms.asos[0].ID != asoID || ms.asos[0].URLArquivo == registro.SemArquivo {
		t.Fatalf("arquivo não anexado: %+v", ms.asos[0])
	}
}

func TestUploadSemArmazenamento(t *testing.T) {
	api, _ := montarAPIComUploader(t, storage.NoopUploader{})
	token := fazerLogin(t, api)

	rec := executar(api, http.MethodPost, "/empresas/", token, registro.Empresa{Nome: "Alfa", CNPJ: "11.111"})
	if rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}

	var corpo bytes.Buffer
	mw := multipart.NewWriter(&corpo)
	_, _ = mw.CreateFormFile("arquivo", "aso.pdf")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/aso/1/arquivo", &corpo)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec2 := httptest.NewRecorder()
	api.ServeHTTP(rec2, req)

	if rec2.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d: %s", rec2.Code, rec2.Body.String())
	}
}
