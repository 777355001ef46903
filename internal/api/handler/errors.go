package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/postr/internal/service"
	"github.com/d60-Lab/postr/pkg/response"
)

// renderError 按服务层错误选择状态码：NotFound 404，鉴权 401，输入 400，其余 500
func renderError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrInvalidToken):
		response.Unauthorized(c, "invalid or missing token")
	case errors.As(err, &verrs):
		response.BadRequest(c, response.ValidationMessage(verrs))
	case errors.Is(err, service.ErrBadRequest), errors.Is(err, service.ErrFollowSelf):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrConflict):
		response.InternalErrorWithMessage(c, err, service.ErrConflict.Error())
	case errors.Is(err, service.ErrPersistence):
		response.InternalErrorWithMessage(c, err, service.ErrPersistence.Error())
	default:
		response.InternalError(c, err)
	}
}
