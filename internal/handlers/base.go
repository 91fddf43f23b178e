package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"startuppush/internal/logger"
	"startuppush/internal/middleware"
	"startuppush/internal/models"
	"startuppush/internal/services"
)

// statusFor 业务错误到 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrUserRestricted):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInsufficientPoints):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrAlreadyVoted),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrSoldOut),
		errors.Is(err, services.ErrPromotionActive):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError 业务错误只记 debug，内部错误记 error 并返回通用信息
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	l := logger.Ctx(c.Request.Context())
	if status == http.StatusInternalServerError {
		l.Error().Err(err).Str("path", c.Request.URL.Path).Msg("internal error")
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}
	l.Debug().Err(err).Int("status", status).Msg("request rejected")
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}
