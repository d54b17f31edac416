// Package dashboard serves the iStock web views. Every page is rendered
// from the report markdown and talks to the API through the client
// package, keeping the JWT in an HttpOnly cookie.
package dashboard

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"istock.com/client"
	"istock.com/dto"
	"istock.com/report"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"login", "register", "markdown", "stocks", "portfolio"}

type Config struct {
	APIBaseURL   string
	Timeout      time.Duration
	HTTPClient   *http.Client
	Logger       *zap.Logger
	Version      string
	SecureCookie bool
	Now          func() time.Time
}

type Server struct {
	cfg    Config
	logger *zap.Logger
	pages  map[string]*template.Template
	md     goldmark.Markdown
}

func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	base, err := template.New("pages").Option("missingkey=zero").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.New("content").Parse(`{{template "` + name + `" .}}`); err != nil {
			return nil, err
		}
		pages[name] = t
	}

	return &Server{
		cfg:    cfg,
		logger: cfg.Logger.With(zap.String("caller", "dashboard")),
		pages:  pages,
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/login", s.loginPage)
	r.Post("/login", s.login)
	r.Get("/register", s.registerPage)
	r.Post("/register", s.register)
	r.Post("/logout", s.logout)

	r.Group(func(r chi.Router) {
		r.Use(requireToken)
		r.Get("/", s.dashboard)
		r.Get("/stocks", s.stocks)
		r.Get("/portfolio", s.portfolio)
		r.Post("/portfolio/items", s.addItem)
		r.Post("/portfolio/items/{stockID}", s.updateItem)
		r.Post("/portfolio/items/{stockID}/delete", s.deleteItem)
		r.Get("/report", s.report)
	})
	return r
}

// requireToken sends visitors without a token cookie to the login page.
func requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(TokenCookie); err != nil || c.Value == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// client builds an API client whose token lives in this request's cookie.
// A 401 clears the cookie through the store.
func (s *Server) client(w http.ResponseWriter, r *http.Request) *client.Client {
	return client.New(client.Config{
		BaseURL:    s.cfg.APIBaseURL,
		Timeout:    s.cfg.Timeout,
		HTTPClient: s.cfg.HTTPClient,
		Store:      newCookieStore(w, r, s.cfg.SecureCookie),
		Logger:     s.logger.With(zap.String("request_id", middleware.GetReqID(r.Context()))),
	})
}

func (s *Server) loader(c *client.Client) *report.Loader {
	l := report.NewLoader(c, s.logger)
	l.Now = s.cfg.Now
	return l
}

type page struct {
	Title         string
	Authenticated bool
	User          string
	Error         string
	Version       string
	Form          map[string]string
	Body          template.HTML

	Filter     report.Filter
	Markets    []string
	Industries []string
	Selected   string
	Holdings   []dto.PortfolioDetail
}

func (s *Server) markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (s *Server) render(w http.ResponseWriter, status int, name string, p page) {
	p.Version = s.cfg.Version
	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, "layout", p); err != nil {
		s.logger.Error("render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderMarkdown(w http.ResponseWriter, name string, src string, p page) {
	body, err := s.markdown(src)
	if err != nil {
		s.logger.Error("convert markdown", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	p.Body = body
	s.render(w, http.StatusOK, name, p)
}

func (s *Server) toLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.logger.Error("render view", zap.Error(err))
	http.Error(w, "failed to render page", http.StatusInternalServerError)
}
