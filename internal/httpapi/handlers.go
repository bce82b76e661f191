package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ragaccess/internal/apperr"
	"ragaccess/internal/auth"
	"ragaccess/internal/rbac"
	"ragaccess/internal/retrieval"
)

// respondError writes the uniform error shape every endpoint returns (spec
// §6.1: "{error: <short-code>, message: <human-readable>}").
func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}

// respondTyped maps an apperr.Kind to the status codes enumerated in spec
// §7, the single total switch the propagation policy requires.
func respondTyped(c *gin.Context, err error, logger *zap.Logger) {
	kind := apperr.As(err)
	switch kind {
	case apperr.KindValidation:
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
	case apperr.KindAuthentication:
		respondError(c, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
	case apperr.KindNotFound:
		respondError(c, http.StatusUnauthorized, "not_found", "resource not found")
	case apperr.KindDependencyFatal:
		logger.Error("dependency fatal", zap.Error(err))
		respondError(c, http.StatusServiceUnavailable, "dependency_unavailable", "a required dependency is unavailable")
	case apperr.KindTimeout:
		respondError(c, http.StatusGatewayTimeout, "timeout", "request deadline exceeded")
	case apperr.KindOverload:
		c.Header("Retry-After", "1")
		respondError(c, http.StatusServiceUnavailable, "overloaded", "too many concurrent requests")
	default:
		logger.Error("unexpected error", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil || req.Username == "" || req.Password == "" {
		respondError(c, http.StatusBadRequest, "validation_error", "username and password are required")
		return
	}

	tokens, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondTyped(c, err, s.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"token_type":    "bearer",
		"expires_in":    tokens.ExpiresInSecs,
		"user": gin.H{
			"username": req.Username,
		},
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil && req.RefreshToken == "" {
		req.RefreshToken = bearerToken(c.GetHeader("Authorization"))
	}
	if req.RefreshToken == "" {
		respondError(c, http.StatusBadRequest, "validation_error", "refresh_token is required")
		return
	}

	tokens, err := s.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondTyped(c, err, s.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": tokens.AccessToken,
		"token_type":   "bearer",
		"expires_in":   tokens.ExpiresInSecs,
	})
}

func (s *Server) handleProfile(c *gin.Context) {
	identity := mustIdentity(c)

	engine := rbac.New(s.rbacConfig, identity.Roles)
	canonical := engine.Resolve()
	permissions := engine.EffectivePermissions()

	roleList := make([]string, 0, len(canonical))
	for r := range canonical {
		roleList = append(roleList, r)
	}
	permList := make([]string, 0, len(permissions))
	for p := range permissions {
		permList = append(permList, p)
	}

	c.JSON(http.StatusOK, gin.H{
		"username":    identity.Username,
		"role":        roleList,
		"permissions": permList,
	})
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (s *Server) handleQuery(c *gin.Context) {
	identity := mustIdentity(c)

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "malformed request body")
		return
	}

	result, err := s.orchestrator.Query(c.Request.Context(), retrieval.Identity{
		Username: identity.Username,
		Roles:    identity.Roles,
	}, req.Query, req.TopK)
	if err != nil {
		respondTyped(c, err, s.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":                  result.Query,
		"normalized_query":       result.NormalizedQuery,
		"results":                result.Results,
		"confidence":             result.ConfidenceBand,
		"accessible_departments": result.AccessibleDepartments,
		"reason":                 result.Reason,
	})
}

func mustIdentity(c *gin.Context) *auth.Identity {
	v, _ := c.Get(identityKey)
	identity, _ := v.(*auth.Identity)
	return identity
}
