package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/engeseg/sstcontrol/internal/auth"
	"github.com/engeseg/sstcontrol/internal/cadastro"
	"github.com/engeseg/sstcontrol/internal/config"
	httpmiddleware "github.com/engeseg/sstcontrol/internal/http/middleware"
	"github.com/engeseg/sstcontrol/internal/liberacao"
	"github.com/engeseg/sstcontrol/internal/storage"
	"github.com/engeseg/sstcontrol/internal/store"
)

// Handler agrupa os serviços atendidos pela API.
type Handler struct {
	store     store.Store
	cadastro  *cadastro.Service
	liberacao *liberacao.Service
	storage   storage.Uploader

	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
}

// NewRouter monta o roteador com os serviços já construídos.
func NewRouter(cfg *config.Config, st store.Store, uploader storage.Uploader, cad *cadastro.Service, lib *liberacao.Service, jwtManager *auth.JWTManager) http.Handler {
	h := &Handler{
		store:         st,
		cadastro:      cad,
		liberacao:     lib,
		storage:       uploader,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging(cfg.StoreBackend))
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)
		public.Post("/auth/login", h.Login)
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(jwtManager))
		private.Use(httpmiddleware.SessaoRateLimit(h.authLimiter))

		private.Route("/empresas", func(r chi.Router) {
			r.Get("/", h.ListEmpresas)
			r.Post("/", h.CreateEmpresa)
			r.Patch("/{nome}", h.UpdateEmpresa)
			r.Delete("/{nome}", h.DeleteEmpresa)
			r.Get("/{nome}/avaliacao", h.AvaliacaoEmpresa)
		})

		private.Route("/funcionarios", func(r chi.Router) {
			r.Get("/", h.ListFuncionarios)
			r.Post("/", h.CreateFuncionario)
			r.Post("/importar", h.ImportFuncionarios)
			r.Patch("/{empresa}/{nome}", h.UpdateFuncionario)
			r.Delete("/{empresa}/{nome}", h.DeleteFuncionario)
		})

		private.Route("/aso", func(r chi.Router) {
			r.Get("/", h.ListASOs)
			r.Post("/", h.CreateASO)
			r.Post("/{id}/arquivo", h.UploadArquivoASO)
		})

		private.Route("/treinamentos", func(r chi.Router) {
			r.Get("/", h.ListTreinamentos)
			r.Post("/", h.CreateTreinamento)
			r.Post("/{id}/arquivo", h.UploadArquivoTreinamento)
		})

		private.Get("/liberacoes", h.ListLiberacoes)
		private.Route("/liberacao", func(r chi.Router) {
			r.Get("/sessao", h.SessaoAtual)
			r.Post("/selecionar", h.SelecionarEmpresa)
			r.Post("/decidir", h.Decidir)
			r.Post("/confirmar", h.Confirmar)
			r.Post("/encerrar", h.EncerrarSessao)
		})
	})

	return r
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready confirma que o backend de registros responde.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.LoadEmpresas(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "STORE", fmt.Sprintf("backend indisponível: %v", err), nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
