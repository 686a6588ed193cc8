package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/SkyMonder/SkyCalling/internal/adapters/auth"
	"github.com/SkyMonder/SkyCalling/internal/app/orch"
	"github.com/SkyMonder/SkyCalling/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	sessionIdentityKey = "identity"
	ctxIdentityKey     = "identity"

	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userView struct {
	ID       domain.Identity `json:"id"`
	Username string          `json:"username"`
	Online   *bool           `json:"online,omitempty"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

type accountHandlers struct {
	accounts *auth.Accounts
	orch     *orch.Orchestrator
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUsernameEmpty),
		errors.Is(err, domain.ErrUsernameTooLong),
		errors.Is(err, domain.ErrPasswordEmpty),
		errors.Is(err, domain.ErrPasswordTooLong):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWith(c *gin.Context, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (h *accountHandlers) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid body"})
		return
	}
	u, err := h.accounts.Register(c.Request.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": userView{ID: u.ID, Username: u.Username}})
}

func (h *accountHandlers) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid body"})
		return
	}
	token, u, err := h.accounts.Login(c.Request.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		abortWith(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionIdentityKey, string(u.ID))
	if err := session.Save(); err != nil {
		abortWith(c, err)
		return
	}
	log.Info().Str("module", "adapters.http").Str("identity", string(u.ID)).Msg("login")
	c.JSON(http.StatusOK, loginResponse{Token: token, User: userView{ID: u.ID, Username: u.Username}})
}

func (h *accountHandlers) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// requireUser accepts a bearer token or a login session.
func (h *accountHandlers) requireUser(c *gin.Context) {
	if bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		u, err := h.accounts.Tokens.Authenticate(c.Request.Context(), strings.TrimSpace(bearer))
		if err != nil {
			abortWith(c, err)
			return
		}
		c.Set(ctxIdentityKey, u.ID)
		c.Next()
		return
	}

	if id, ok := sessions.Default(c).Get(sessionIdentityKey).(string); ok && id != "" {
		c.Set(ctxIdentityKey, domain.Identity(id))
		c.Next()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
}

func identityOf(c *gin.Context) domain.Identity {
	id, _ := c.Get(ctxIdentityKey)
	identity, _ := id.(domain.Identity)
	return identity
}

// me returns the current user with a fresh token for the signaling socket.
func (h *accountHandlers) me(c *gin.Context) {
	u, err := h.accounts.User(c.Request.Context(), identityOf(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	token, err := h.accounts.Tokens.Issue(u)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{Token: token, User: userView{ID: u.ID, Username: u.Username}})
}

func (h *accountHandlers) searchUsers(c *gin.Context) {
	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxSearchLimit)
	}

	self := identityOf(c)
	// one extra row so excluding the caller still fills the page
	found, err := h.accounts.Users.Search(c.Request.Context(), strings.TrimSpace(c.Query("q")), limit+1)
	if err != nil {
		abortWith(c, err)
		return
	}
	out := make([]userView, 0, len(found))
	for _, u := range found {
		if u.ID == self || len(out) == limit {
			continue
		}
		online := h.orch.Bindings.IsBound(u.ID)
		out = append(out, userView{ID: u.ID, Username: u.Username, Online: &online})
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}
