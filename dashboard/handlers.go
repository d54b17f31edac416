package dashboard

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"istock.com/client"
	"istock.com/dto"
	"istock.com/report"
)

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "login", page{Title: "Log in", Error: r.URL.Query().Get("error")})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, "login", page{Title: "Log in", Error: "Invalid form"})
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")

	sess := client.NewSession(s.client(w, r))
	if err := sess.Login(r.Context(), username, password); err != nil {
		s.logger.Info("login failed", zap.String("username", username), zap.Error(err))
		s.render(w, http.StatusUnauthorized, "login", page{
			Title: "Log in",
			Error: sess.Err(),
			Form:  map[string]string{"username": username},
		})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) registerPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "register", page{Title: "Register"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, "register", page{Title: "Register", Error: "Invalid form"})
		return
	}
	req := dto.RegisterRequest{
		Username:  strings.TrimSpace(r.PostForm.Get("username")),
		Email:     strings.TrimSpace(r.PostForm.Get("email")),
		Password:  r.PostForm.Get("password"),
		FullName:  strings.TrimSpace(r.PostForm.Get("full_name")),
		RiskLevel: r.PostForm.Get("risk_level"),
	}

	sess := client.NewSession(s.client(w, r))
	if err := sess.Register(r.Context(), req); err != nil {
		s.render(w, http.StatusBadRequest, "register", page{
			Title: "Register",
			Error: sess.Err(),
			Form: map[string]string{
				"username":  req.Username,
				"email":     req.Email,
				"full_name": req.FullName,
			},
		})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := client.NewSession(s.client(w, r)).Logout(); err != nil {
		s.logger.Warn("logout", zap.Error(err))
	}
	s.toLogin(w, r)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	l := s.loader(s.client(w, r))
	view, err := l.Dashboard(r.Context())
	if report.Unauthorized(err) {
		s.toLogin(w, r)
		return
	}
	src, err := report.RenderDashboard(view)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.renderMarkdown(w, "markdown", src, page{Title: "Dashboard", Authenticated: true, User: view.User})
}

func (s *Server) stocks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := report.Filter{
		Market:   q.Get("market"),
		Industry: q.Get("industry"),
		Search:   strings.TrimSpace(q.Get("search")),
	}
	selected := strings.TrimSpace(q.Get("selected"))

	l := s.loader(s.client(w, r))
	view, all, err := l.Stocks(r.Context(), f, selected)
	if report.Unauthorized(err) {
		s.toLogin(w, r)
		return
	}
	src, err := report.RenderStocks(view)
	if err != nil {
		s.fail(w, err)
		return
	}
	markets, industries := report.Options(all)
	s.renderMarkdown(w, "stocks", src, page{
		Title:         "Stocks",
		Authenticated: true,
		Filter:        f,
		Markets:       markets,
		Industries:    industries,
		Selected:      selected,
	})
}

func (s *Server) portfolio(w http.ResponseWriter, r *http.Request) {
	l := s.loader(s.client(w, r))
	view, err := l.Portfolio(r.Context())
	if report.Unauthorized(err) {
		s.toLogin(w, r)
		return
	}
	src, err := report.RenderPortfolio(view)
	if err != nil {
		s.fail(w, err)
		return
	}
	p := page{Title: "Portfolio", Authenticated: true, Error: r.URL.Query().Get("error")}
	if !view.Demo {
		p.Holdings = view.Details
	}
	if u := l.CachedUser(); u != nil {
		p.User = u.Username
	}
	s.renderMarkdown(w, "portfolio", src, p)
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		backToPortfolio(w, r, "Invalid form")
		return
	}
	stockID, err1 := strconv.ParseUint(r.PostForm.Get("stock_id"), 10, 64)
	qty, err2 := strconv.Atoi(r.PostForm.Get("quantity"))
	cost, err3 := strconv.ParseFloat(r.PostForm.Get("avg_cost"), 64)
	if err1 != nil || err2 != nil || err3 != nil || qty <= 0 || cost <= 0 {
		backToPortfolio(w, r, "Stock ID, a positive quantity and a positive average cost are required")
		return
	}

	s.mutate(w, r, func(c *client.Client, userID string) error {
		_, err := c.AddPortfolioItem(r.Context(), userID, dto.CreatePortfolioItemRequest{
			StockID:  uint(stockID),
			Quantity: qty,
			AvgCost:  cost,
		})
		return err
	})
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	stockID, err := strconv.ParseUint(chi.URLParam(r, "stockID"), 10, 64)
	if err != nil {
		backToPortfolio(w, r, "Invalid stock ID")
		return
	}
	if err := r.ParseForm(); err != nil {
		backToPortfolio(w, r, "Invalid form")
		return
	}

	var req dto.UpdatePortfolioItemRequest
	if v := r.PostForm.Get("quantity"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			backToPortfolio(w, r, "Quantity must be a positive number")
			return
		}
		req.Quantity = &n
	}
	if v := r.PostForm.Get("avg_cost"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			backToPortfolio(w, r, "Average cost must be a positive number")
			return
		}
		req.AvgCost = &f
	}

	s.mutate(w, r, func(c *client.Client, userID string) error {
		_, err := c.UpdatePortfolioItem(r.Context(), userID, uint(stockID), req)
		return err
	})
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	stockID, err := strconv.ParseUint(chi.URLParam(r, "stockID"), 10, 64)
	if err != nil {
		backToPortfolio(w, r, "Invalid stock ID")
		return
	}
	s.mutate(w, r, func(c *client.Client, userID string) error {
		return c.DeletePortfolioItem(r.Context(), userID, uint(stockID))
	})
}

// mutate resolves the current user, runs fn and returns to the portfolio
// page, carrying any failure message in the query string.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(c *client.Client, userID string) error) {
	c := s.client(w, r)
	user, err := c.CurrentUser(r.Context())
	if err == nil {
		err = fn(c, user.ID)
	}
	switch {
	case report.Unauthorized(err):
		s.toLogin(w, r)
	case err != nil:
		s.logger.Warn("portfolio update failed", zap.Error(err))
		backToPortfolio(w, r, report.Notice(err))
	default:
		http.Redirect(w, r, "/portfolio", http.StatusSeeOther)
	}
}

func backToPortfolio(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/portfolio?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	l := s.loader(s.client(w, r))
	full, err := l.Full(r.Context())
	if report.Unauthorized(err) {
		s.toLogin(w, r)
		return
	}
	src, err := report.RenderFull(full)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.renderMarkdown(w, "markdown", src, page{Title: "Report", Authenticated: true, User: full.Dashboard.User})
}
