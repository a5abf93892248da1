package logic

import "fmt"

// LogicError 带稳定错误码的业务错误，handler层据此映射HTTP状态
type LogicError struct {
	Code    string
	Message string
}

func (e *LogicError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// 校验类错误，在任何网络或存储操作之前拒绝
var (
	ErrProjectNotFound      = &LogicError{Code: "PROJECT_NOT_FOUND", Message: "项目不存在"}
	ErrPurposeNotFound      = &LogicError{Code: "PURPOSE_NOT_FOUND", Message: "用途不存在或不属于该项目"}
	ErrInvalidCurrency      = &LogicError{Code: "INVALID_CURRENCY", Message: "不支持的代币"}
	ErrInvalidTxHash        = &LogicError{Code: "INVALID_TX_HASH", Message: "交易哈希格式无效"}
	ErrInvalidAddress       = &LogicError{Code: "INVALID_ADDRESS", Message: "地址格式无效"}
	ErrInvalidProvider      = &LogicError{Code: "INVALID_PROVIDER", Message: "不支持的桥接方式"}
	ErrContributionNotFound = &LogicError{Code: "CONTRIBUTION_NOT_FOUND", Message: "出资记录不存在"}
	ErrBridgeRunNotFound    = &LogicError{Code: "BRIDGE_RUN_NOT_FOUND", Message: "桥接记录不存在"}
)

// 授权类错误，在任何状态变更之前拒绝
var (
	ErrNotProjectOwner = &LogicError{Code: "NOT_PROJECT_OWNER", Message: "调用者不是项目所有者"}
)

// 状态机类错误
var (
	ErrGoalNotAchieved     = &LogicError{Code: "BRIDGE_REQUIRES_GOAL_ACHIEVED", Message: "募资目标尚未达成，不能准备桥接"}
	ErrAlreadyBridged      = &LogicError{Code: "PROJECT_ALREADY_BRIDGED", Message: "项目已桥接，如需重新准备请使用force"}
	ErrRunAlreadyConfirmed = &LogicError{Code: "BRIDGE_RUN_ALREADY_CONFIRMED", Message: "桥接记录已确认，不可变更"}
	ErrNoDestTxHash        = &LogicError{Code: "BRIDGE_RUN_NO_DEST_TX", Message: "桥接记录尚未回填目标链交易哈希"}
	ErrProjectNotBridged   = &LogicError{Code: "PROJECT_NOT_BRIDGED", Message: "项目尚未桥接，不能记录分配"}
)
