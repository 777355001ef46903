package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/d60-Lab/postr/pkg/logger"
)

// Response 非 2xx 响应体
type Response struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Success 2xx 时直接输出业务数据，不再包一层
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	abort(c, http.StatusUnauthorized, message)
}

func NotFound(c *gin.Context, message string) {
	abort(c, http.StatusNotFound, message)
}

// InternalError 记录日志并上报 Sentry，响应中不带错误细节
func InternalError(c *gin.Context, err error) {
	InternalErrorWithMessage(c, err, "internal server error")
}

// InternalErrorWithMessage 同 InternalError，message 由调用方给出且必须不含内部细节
func InternalErrorWithMessage(c *gin.Context, err error, message string) {
	logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))

	if hub := sentry.CurrentHub(); hub != nil {
		hub.Clone().CaptureException(err)
	}
	abort(c, http.StatusInternalServerError, message)
}

// BindError 请求体或路径参数绑定失败，统一 400
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		BadRequest(c, ValidationMessage(verrs))
		return
	}
	BadRequest(c, "malformed request: "+err.Error())
}

// ValidationMessage 把 validator 的字段错误拼成一行可读文本
func ValidationMessage(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			parts = append(parts, fmt.Sprintf("%s must be a valid email", fe.Field()))
		case "uuid", "uuid4":
			parts = append(parts, fmt.Sprintf("%s must be a uuid", fe.Field()))
		case "max", "min":
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{Status: status, Message: message})
}
