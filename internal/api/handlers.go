package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"insightportal/internal/apperr"
	"insightportal/internal/auth"
	"insightportal/internal/chat"
	"insightportal/internal/credentials"
	"insightportal/internal/dashboard"
	"insightportal/internal/models"
)

// Dashboard names used as keys of the dashboard_roles config section.
const (
	DashboardOverview    = "overview"
	DashboardCyber       = "cyber"
	DashboardIT          = "it"
	DashboardDataScience = "data-science"
)

// Handler wires HTTP routes to the credential store, the session gate, the
// dashboards and the chat history.
type Handler struct {
	users      *credentials.Store
	auth       *auth.Service
	dashboards *dashboard.Service
	chat       *chat.History
	roles      map[string][]models.Role
	selfRoles  map[models.Role]bool
	logger     *zap.Logger
}

// NewHandler constructs a Handler. dashboardRoles maps a dashboard name to the
// roles allowed to open it; a dashboard without an entry is open to every
// logged-in user. Unknown role names are dropped with a warning.
func NewHandler(users *credentials.Store, authService *auth.Service, dashboards *dashboard.Service, history *chat.History, dashboardRoles map[string][]string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	roles := make(map[string][]models.Role, len(dashboardRoles))
	for name, list := range dashboardRoles {
		for _, r := range list {
			role, ok := models.ParseRole(r)
			if !ok {
				logger.Warn("ignoring unknown dashboard role", zap.String("dashboard", name), zap.String("role", r))
				continue
			}
			roles[name] = append(roles[name], role)
		}
	}
	return &Handler{
		users:      users,
		auth:       authService,
		dashboards: dashboards,
		chat:       history,
		roles:      roles,
		selfRoles:  map[models.Role]bool{models.RoleUser: true},
		logger:     logger,
	}
}

// AllowSelfRegistration sets the roles the public register endpoint may
// assign. Until it is called, or when roles holds no valid name, only the
// plain user role is accepted; other accounts come from the users command.
func (h *Handler) AllowSelfRegistration(roles []string) {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		role, ok := models.ParseRole(r)
		if !ok {
			h.logger.Warn("ignoring unknown self-registration role", zap.String("role", r))
			continue
		}
		allowed[role] = true
	}
	if len(allowed) == 0 {
		allowed[models.RoleUser] = true
	}
	h.selfRoles = allowed
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.healthz)

	api := router.Group("/api")
	api.POST("/users/register", h.registerUser)
	api.POST("/users/login", h.loginUser)

	protected := api.Group("")
	protected.Use(h.auth.Middleware(), h.auth.CSRFMiddleware())
	protected.POST("/users/logout", h.logoutUser)
	protected.GET("/users/me", h.currentUser)

	dashboards := protected.Group("/dashboards")
	dashboards.GET("/overview", auth.RequireRole(h.roles[DashboardOverview]...), h.overview)
	dashboards.GET("/cyber", auth.RequireRole(h.roles[DashboardCyber]...), h.cyberDashboard)
	dashboards.GET("/it", auth.RequireRole(h.roles[DashboardIT]...), h.itDashboard)
	dashboards.GET("/data-science", auth.RequireRole(h.roles[DashboardDataScience]...), h.dataScienceDashboard)

	protected.GET("/chat", h.listChat)
	protected.POST("/chat", h.sendChat)
	protected.DELETE("/chat", h.resetChat)
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) registerUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	role := models.RoleUser
	if strings.TrimSpace(req.Role) != "" {
		parsed, ok := models.ParseRole(req.Role)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role " + req.Role})
			return
		}
		role = parsed
	}
	if !h.selfRoles[role] {
		c.JSON(http.StatusForbidden, gin.H{"error": "role " + string(role) + " cannot be self-assigned"})
		return
	}
	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password, role)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"role":       user.Role,
		"created_at": user.CreatedAt,
	})
}

func (h *Handler) loginUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	authToken, err := h.auth.IssueToken(c.Request.Context(), user)
	if err != nil {
		h.writeError(c, err)
		return
	}
	csrfToken, err := h.auth.NewCSRFToken()
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.setAuthCookies(c, authToken, csrfToken)
	h.logger.Info("user logged in", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"role":       user.Role,
		"created_at": user.CreatedAt,
		"auth_token": authToken,
	})
}

func (h *Handler) logoutUser(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := h.auth.RevokeToken(c.Request.Context(), session.Token); err != nil {
		h.writeError(c, err)
		return
	}
	session.Logout()
	h.clearAuthCookies(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) currentUser(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) overview(c *gin.Context) {
	ov, err := h.dashboards.Overview(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ov)
}

func (h *Handler) cyberDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboards.Cyber(queryFilters(c)))
}

func (h *Handler) itDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboards.IT(queryFilters(c)))
}

func (h *Handler) dataScienceDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboards.DataScience())
}

// queryFilters reads repeated query parameters, e.g. ?severity=High&severity=Low.
func queryFilters(c *gin.Context) dashboard.Filters {
	filters := dashboard.Filters{}
	for key, values := range c.Request.URL.Query() {
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				filters[key] = append(filters[key], v)
			}
		}
	}
	return filters
}

func (h *Handler) listChat(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	messages, err := h.chat.List(c.Request.Context(), session.Token)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *Handler) sendChat(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	messages, err := h.chat.Send(c.Request.Context(), session.Token, req.Content)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *Handler) resetChat(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	msg, err := h.chat.Reset(c.Request.Context(), session.Token)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": []*models.Message{msg}})
}

func (h *Handler) session(c *gin.Context) (*models.Session, bool) {
	session, ok := auth.SessionFromContext(c)
	if !ok || !session.IsAuthorized() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required", "redirect": auth.LoginPath})
		return nil, false
	}
	return session, true
}

// writeError maps the error taxonomy onto HTTP statuses.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch apperr.GetCode(err) {
	case apperr.CodeValidation:
		status, msg = http.StatusBadRequest, err.Error()
	case apperr.CodeDuplicateUser:
		status, msg = http.StatusConflict, apperr.ErrDuplicateUser.Message
	case apperr.CodeInvalidCredentials:
		status, msg = http.StatusUnauthorized, apperr.ErrInvalidCredentials.Message
	case apperr.CodeNotFound:
		status, msg = http.StatusNotFound, err.Error()
	case apperr.CodeStorageUnavailable:
		status, msg = http.StatusServiceUnavailable, apperr.ErrStorageUnavailable.Message
	}
	if ctxErr := c.Request.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		status, msg = http.StatusRequestTimeout, "request cancelled"
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": msg})
}

func (h *Handler) setAuthCookies(c *gin.Context, authToken, csrfToken string) {
	ttl := int(h.auth.TokenTTL().Seconds())
	if ttl <= 0 {
		ttl = 3600
	}
	secure := gin.Mode() == gin.ReleaseMode
	setCookie(c, &http.Cookie{
		Name:     h.auth.AuthCookieName(),
		Value:    authToken,
		MaxAge:   ttl,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	setCookie(c, &http.Cookie{
		Name:     h.auth.CSRFCookieName(),
		Value:    csrfToken,
		MaxAge:   ttl,
		Path:     "/",
		Secure:   secure,
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearAuthCookies(c *gin.Context) {
	for _, name := range []string{h.auth.AuthCookieName(), h.auth.CSRFCookieName()} {
		setCookie(c, &http.Cookie{
			Name:     name,
			Value:    "",
			MaxAge:   -1,
			Path:     "/",
			Secure:   gin.Mode() == gin.ReleaseMode,
			HttpOnly: name == h.auth.AuthCookieName(),
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func setCookie(c *gin.Context, ck *http.Cookie) {
	if ck == nil {
		return
	}
	http.SetCookie(c.Writer, ck)
}
