package handler

import (
	"errors"
	"net/http"

	"github.com/blues/fbs/internal/chain"
	"github.com/blues/fbs/internal/logic"
	"github.com/gin-gonic/gin"
)

// Response 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data"`
}

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// LogicErrorResponse 将业务错误映射为带稳定错误码的响应
func LogicErrorResponse(c *gin.Context, err error) {
	var logicErr *logic.LogicError
	if errors.As(err, &logicErr) {
		c.JSON(statusForCode(logicErr.Code), Response{
			Success: false,
			Message: logicErr.Message,
			Code:    logicErr.Code,
			Data:    nil,
		})
		return
	}

	var cfgErr *chain.ConfigError
	if errors.As(err, &cfgErr) {
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Message: err.Error(),
			Code:    "CHAIN_CONFIG_ERROR",
			Data:    nil,
		})
		return
	}

	ErrorResponse(c, http.StatusInternalServerError, err.Error())
}

// statusForCode 业务错误码到HTTP状态码的映射
func statusForCode(code string) int {
	switch code {
	case "PROJECT_NOT_FOUND", "PURPOSE_NOT_FOUND", "CONTRIBUTION_NOT_FOUND", "BRIDGE_RUN_NOT_FOUND":
		return http.StatusNotFound
	case "NOT_PROJECT_OWNER":
		return http.StatusForbidden
	case "BRIDGE_REQUIRES_GOAL_ACHIEVED", "PROJECT_ALREADY_BRIDGED",
		"BRIDGE_RUN_ALREADY_CONFIRMED", "BRIDGE_RUN_NO_DEST_TX", "PROJECT_NOT_BRIDGED":
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
