package handler

import (
	"net/http"
	"strconv"

	"github.com/blues/fbs/internal/logic"
	"github.com/blues/fbs/internal/model"
	"github.com/gin-gonic/gin"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	projectLogic  *logic.ProjectLogic
	progressLogic *logic.ProgressLogic
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(projectLogic *logic.ProjectLogic, progressLogic *logic.ProgressLogic) *ProjectHandler {
	return &ProjectHandler{
		projectLogic:  projectLogic,
		progressLogic: progressLogic,
	}
}

// CreateProject 创建项目
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.projectLogic.CreateProject(logic.CreateProjectInput{
		Title:        req.Title,
		Description:  req.Description,
		OwnerAddress: req.OwnerAddress,
		Currency:     model.Currency(req.Currency),
		TargetAmount: req.TargetAmount,
		Purposes:     req.Purposes,
	})
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "项目创建成功", detail)
}

// GetProjects 获取项目列表
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	status := c.Query("status")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	projects, total, err := h.projectLogic.GetProjects(status, page, pageSize)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	pagination := Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}

	SuccessResponse(c, http.StatusOK, "获取项目列表成功", gin.H{
		"projects":   projects,
		"pagination": pagination,
	})
}

// GetProject 获取项目详情
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectId, ok := parseProjectId(c)
	if !ok {
		return
	}

	detail, err := h.projectLogic.GetProject(projectId)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取项目详情成功", detail)
}

// GetProjectProgress 获取项目募资进度
func (h *ProjectHandler) GetProjectProgress(c *gin.Context) {
	projectId, ok := parseProjectId(c)
	if !ok {
		return
	}

	progress, err := h.progressLogic.GetProjectProgress(projectId)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取募资进度成功", progress)
}
