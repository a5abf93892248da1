package handler

import (
	"net/http"
	"strconv"

	"github.com/blues/fbs/internal/logic"
	"github.com/blues/fbs/internal/model"
	"github.com/gin-gonic/gin"
)

// BridgeHandler 桥接处理器
type BridgeHandler struct {
	bridgeLogic       *logic.BridgeLogic
	distributionLogic *logic.DistributionLogic
}

// NewBridgeHandler 创建桥接处理器
func NewBridgeHandler(bridgeLogic *logic.BridgeLogic, distributionLogic *logic.DistributionLogic) *BridgeHandler {
	return &BridgeHandler{
		bridgeLogic:       bridgeLogic,
		distributionLogic: distributionLogic,
	}
}

// PrepareBridge 准备桥接，创建桥接记录并返回外部执行转账所需的信息
func (h *BridgeHandler) PrepareBridge(c *gin.Context) {
	projectId, ok := parseProjectId(c)
	if !ok {
		return
	}

	var req PrepareBridgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.bridgeLogic.Prepare(c.Request.Context(), logic.PrepareBridgeInput{
		ProjectId:        projectId,
		CallerAddress:    req.CallerAddress,
		Currency:         model.Currency(req.Currency),
		Provider:         model.BridgeProvider(req.Provider),
		SourceChainId:    req.SourceChainId,
		SourceAddress:    req.SourceAddress,
		VaultAddress:     req.VaultAddress,
		RecipientAddress: req.RecipientAddress,
		DryRun:           req.DryRun,
		Force:            req.Force,
		Note:             req.Note,
	})
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "桥接准备完成", PrepareBridgeResponse{
		BridgeRun:    ToBridgeRunResponse(result.Run),
		Instructions: result.Instructions,
	})
}

// AttachBridgeTx 回填目标链交易哈希
func (h *BridgeHandler) AttachBridgeTx(c *gin.Context) {
	projectId, ok := parseProjectId(c)
	if !ok {
		return
	}

	runId, err := strconv.ParseInt(c.Param("runId"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的桥接记录ID")
		return
	}

	var req AttachBridgeTxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	run, err := h.bridgeLogic.AttachTx(projectId, req.CallerAddress, runId, req.DestTxHash)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "目标链交易哈希已保存", AttachBridgeTxResponse{
		Saved:       true,
		BridgeRunId: run.Id,
		DestTxHash:  run.DestTxHash,
	})
}

// ReverifyBridge 对照目标链证据复核桥接
func (h *BridgeHandler) ReverifyBridge(c *gin.Context) {
	projectId, ok := parseProjectId(c)
	if !ok {
		return
	}

	var req ReverifyBridgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.bridgeLogic.Reverify(c.Request.Context(), projectId, req.CallerAddress, req.BridgeRunId)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "复核完成", result)
}

// GetBridgeRuns 获取项目的桥接历史
func (h *BridgeHandler) GetBridgeRuns(c *gin.Context) {
	projectId, ok := parseProjectId(c)
	if !ok {
		return
	}

	runs, err := h.bridgeLogic.ListRuns(projectId)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取桥接记录成功", gin.H{
		"runs": ToBridgeRunResponseList(runs),
	})
}

// RecordDistribution 追加分配记录
func (h *BridgeHandler) RecordDistribution(c *gin.Context) {
	projectId, ok := parseProjectId(c)
	if !ok {
		return
	}

	var req RecordDistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	run, err := h.distributionLogic.RecordDistribution(logic.RecordDistributionInput{
		ProjectId:     projectId,
		CallerAddress: req.CallerAddress,
		PlanJSON:      req.PlanJSON,
		TxHashes:      req.TxHashes,
		Note:          req.Note,
	})
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "分配记录已保存", run)
}

// GetDistributions 获取项目的分配记录
func (h *BridgeHandler) GetDistributions(c *gin.Context) {
	projectId, ok := parseProjectId(c)
	if !ok {
		return
	}

	runs, err := h.distributionLogic.ListDistributions(projectId)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取分配记录成功", gin.H{"runs": runs})
}

// parseProjectId 解析路径中的项目ID
func parseProjectId(c *gin.Context) (int64, bool) {
	projectId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return 0, false
	}
	return projectId, true
}
