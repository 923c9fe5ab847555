package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"egressos/models"
	"egressos/pkg/registry"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func (a *app) setupRoutes(r *gin.Engine) {
	r.POST("/login", a.loginHandler)
	r.POST("/refresh", a.refreshHandler)
	r.POST("/revoke_refresh", a.revokeRefreshHandler)
	r.GET("/health", a.healthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authGroup := r.Group("")
	authGroup.Use(a.jwtAuthMiddleware())
	authGroup.GET("/me", a.meHandler)
	authGroup.GET("/reference", a.referenceHandler)

	authGroup.GET("/persons/search", a.searchPersonsHandler)
	authGroup.POST("/persons/search", a.searchPersonsHandler)
	authGroup.POST("/persons", a.createPersonHandler)
	authGroup.GET("/persons/:id", a.getPersonHandler)
	authGroup.PUT("/persons/:id", a.updatePersonHandler)
	authGroup.POST("/persons/:id/photo", a.replacePhotoHandler)
	authGroup.GET("/image/:infopen", a.imageHandler)
	authGroup.GET("/image/:infopen/thumbnail", a.thumbnailHandler)
	authGroup.GET("/export/csv", a.exportPersonsCSVHandler)
	authGroup.POST("/export/csv", a.exportPersonsCSVHandler)
	authGroup.GET("/export/xlsx", a.exportPersonsXLSXHandler)
	authGroup.POST("/export/xlsx", a.exportPersonsXLSXHandler)
	authGroup.GET("/map/points", a.mapPointsHandler)

	authGroup.GET("/judicial/search", a.searchJudicialHandler)
	authGroup.POST("/judicial/search", a.searchJudicialHandler)
	authGroup.GET("/judicial/persons", a.judicialPersonsHandler)
	authGroup.POST("/judicial", a.createJudicialHandler)
	authGroup.GET("/judicial/:id", a.getJudicialHandler)
	authGroup.PUT("/judicial/:id", a.updateJudicialHandler)
	authGroup.DELETE("/judicial/:id", a.deleteJudicialHandler)
	authGroup.GET("/judicial/export/csv", a.exportJudicialCSVHandler)
	authGroup.GET("/judicial/export/xlsx", a.exportJudicialXLSXHandler)

	admin := authGroup.Group("")
	admin.Use(requireRole(models.RoleAdministrator))
	admin.DELETE("/persons/:id", a.deletePersonHandler)
	admin.POST("/staff", a.createStaffHandler)
}

// respondError maps registry errors to status codes.
func (a *app) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, registry.ErrDuplicateInfopen):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case registry.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, registry.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		a.log.Error("request error", zap.String("route", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// pageParam reads page from the query string or form body; anything
// unparsable means the first page.
func pageParam(c *gin.Context) int {
	v := c.Query("page")
	if v == "" {
		v = c.PostForm("page")
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 1
	}
	return n
}

func (a *app) healthHandler(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *app) meHandler(c *gin.Context) {
	var user models.User
	if err := a.db.Preload("Role").Where("username = ?", c.GetString("username")).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "username": user.Username, "role": user.Role.Name})
}

func (a *app) referenceHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"enterprises":    a.ref.Enterprises(),
		"municipalities": a.ref.Municipalities(),
	})
}

func (a *app) loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" form:"username" binding:"required"`
		Password string `json:"password" form:"password" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := a.authenticate(req.Username, req.Password)
	if err != nil {
		a.log.Info("login rejected", zap.String("username", req.Username))
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	tokenString, err := a.signAccessToken(user, loginTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	refreshToken, err := a.createRefreshToken(a.db, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken, "role": user.Role.Name})
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func (a *app) refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := a.findRefreshToken(req.RefreshToken)
	if err != nil || !rt.Usable(a.now()) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	var user models.User
	if err := a.db.Preload("Role").First(&user, rt.UserID).Error; err != nil || !user.Active {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	tokenString, err := a.signAccessToken(user, accessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	newRT, err := a.rotateRefreshToken(rt)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

// revokeRefreshHandler revokes a given refresh token (used on logout)
func (a *app) revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := a.findRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	if err := a.db.Model(rt).Update("revoked", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}

func (a *app) createStaffHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := a.registerStaff(req.Username, req.Password, req.Role)
	switch {
	case errors.Is(err, errUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, errUsernameRequired), errors.Is(err, errPasswordTooShort), errors.Is(err, errUnknownRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		a.respondError(c, err)
		return
	}
	a.log.Info("staff user created", zap.String("username", user.Username), zap.String("by", c.GetString("username")))
	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "username": user.Username, "role": user.Role.Name})
}
