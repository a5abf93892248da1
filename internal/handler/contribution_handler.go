package handler

import (
	"net/http"

	"github.com/blues/fbs/internal/logic"
	"github.com/blues/fbs/internal/model"
	"github.com/gin-gonic/gin"
)

// ContributionHandler 出资处理器
type ContributionHandler struct {
	contributionLogic *logic.ContributionLogic
}

// NewContributionHandler 创建出资处理器
func NewContributionHandler(contributionLogic *logic.ContributionLogic) *ContributionHandler {
	return &ContributionHandler{
		contributionLogic: contributionLogic,
	}
}

// SubmitContribution 提交出资交易哈希并验证，同一哈希可安全重复提交
func (h *ContributionHandler) SubmitContribution(c *gin.Context) {
	var req SubmitContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.contributionLogic.SubmitOrReverify(c.Request.Context(), logic.SubmitInput{
		ProjectId:   req.ProjectId,
		PurposeId:   req.PurposeId,
		ChainId:     req.ChainId,
		Currency:    model.Currency(req.Currency),
		TxHash:      req.TxHash,
		FromAddress: req.FromAddress,
		ToAddress:   req.ToAddress,
		AmountHuman: req.AmountHuman,
	})
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "出资提交成功", VerifyContributionResponse{
		Verified:     result.Verified,
		Reason:       string(result.Reason),
		Contribution: ToContributionResponse(result.Contribution),
	})
}

// ReverifyContribution 对待确认记录重新验证
func (h *ContributionHandler) ReverifyContribution(c *gin.Context) {
	txHash := c.Param("txHash")

	result, err := h.contributionLogic.Reverify(c.Request.Context(), txHash)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "复核完成", VerifyContributionResponse{
		Verified:     result.Verified,
		Reason:       string(result.Reason),
		Contribution: ToContributionResponse(result.Contribution),
	})
}
