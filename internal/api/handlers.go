package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"storefront/internal/account"
	"storefront/internal/browse"
	"storefront/internal/catalog"
	xerrors "storefront/internal/errors"
	"storefront/internal/render"
	"storefront/internal/session"
)

var (
	errNotFound         = xerrors.New(xerrors.CodeNotFound, "route not found")
	errMethodNotAllowed = xerrors.New(xerrors.CodeInvalidArgument, "method not allowed")
)

type loginRequest struct {
	// Identifier 可以是用户名或邮箱。
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

func (req loginRequest) identifier() string {
	switch {
	case req.Identifier != "":
		return req.Identifier
	case req.Username != "":
		return req.Username
	default:
		return req.Email
	}
}

type registerResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type loginResponse struct {
	Token     string          `json:"token"`
	User      account.Account `json:"user"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req account.Registration
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	acct, err := s.accounts.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{ID: acct.ID, Username: acct.Username})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.sessions.Login(r.Context(), req.identifier(), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: sess.Token, User: sess.User, ExpiresAt: sess.ExpiresAt})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	if err := s.sessions.Logout(r.Context(), sess.Token); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	writeJSON(w, http.StatusOK, sess.User)
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := browse.ParseQuery(r.URL.Query(), s.cfg.MaxPageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if filter.PageSize == 0 {
		filter.PageSize = s.cfg.PageSize
	}

	products, err := s.catalog.ListProducts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, render.NewGrid(browse.Apply(products, filter)))
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, catalog.ErrProductNotFound)
		return
	}
	product, err := s.catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, render.NewDetail(*product))
}

// handleFacets 并发获取分类与商品列表后计算侧边栏数据。
func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	var (
		categories []string
		products   []catalog.Product
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		categories, err = s.catalog.ListCategories(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.catalog.ListProducts(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, browse.BuildFacets(categories, products))
}
