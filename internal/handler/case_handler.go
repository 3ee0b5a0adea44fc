package handler

import (
	"errors"
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/internal/workflow"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CaseHandler struct {
	caseService service.CaseService
}

func NewCaseHandler(caseService service.CaseService) *CaseHandler {
	return &CaseHandler{caseService: caseService}
}

func (h *CaseHandler) RegisterRoutes(router *gin.RouterGroup) {
	cases := router.Group("/api/cases")
	cases.Use(middleware.RequireAuth())
	{
		cases.POST("", h.CreateCase)
		cases.GET("", h.ListCases)
		cases.GET("/:id", h.GetCase)
		cases.PUT("/:id/fields/:field", h.EditField)
		cases.POST("/:id/submit", h.Submit)
		cases.POST("/:id/approve", h.Approve)
		cases.POST("/:id/reject", h.Reject)
		cases.POST("/:id/regenerate", h.Regenerate)
		cases.POST("/:id/admin-override", h.AdminOverride)
		cases.PUT("/:id/shareable", h.SetShareable)
		cases.DELETE("/:id", h.DeleteCase)
	}
}

// actorFrom resolves the verified identity set by RequireAuth.
func actorFrom(c *gin.Context) (service.Actor, bool) {
	rawID, _ := c.Get("userID")
	idStr, _ := rawID.(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return service.Actor{}, false
	}
	rawRole, _ := c.Get("userRole")
	roleStr, _ := rawRole.(string)
	return service.Actor{ID: id, Role: workflow.Role(roleStr)}, true
}

// writeCaseError maps the service error taxonomy onto HTTP statuses.
func writeCaseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.Is(err, service.ErrPermissionDenied), errors.Is(err, workflow.ErrForbiddenRole):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrMissingComment),
		errors.Is(err, service.ErrUnknownField),
		errors.Is(err, service.ErrInvalidPayload):
		c.JSON(http.StatusUnprocessableEntity, response.Error(http.StatusUnprocessableEntity, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	}
}

// CreateCase opens a new business case owned by the caller
// @Summary      Create business case
// @Description  Creates a business case in the initial intake drafting status
// @Tags         cases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateCaseRequest  true  "Create Case Payload"
// @Success      201      {object}  response.Response{data=service.CaseResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/cases [post]
func (h *CaseHandler) CreateCase(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req service.CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.caseService.CreateCase(c.Request.Context(), actor, req)
	if err != nil {
		writeCaseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListCases returns the cases visible to the caller
// @Summary      List business cases
// @Description  Owners see their cases, approvers their pending queue, admins everything
// @Tags         cases
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Paged}
// @Router       /api/cases [get]
func (h *CaseHandler) ListCases(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	cases, total, err := h.caseService.ListCases(c.Request.Context(), actor, params.Page, params.Limit)
	if err != nil {
		writeCaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Page(cases, total, params.Page, params.Limit))
}

// GetCase returns the full case record including history
// @Summary      Get business case
// @Tags         cases
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Case ID"
// @Success      200  {object}  response.Response{data=service.CaseResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/cases/{id} [get]
func (h *CaseHandler) GetCase(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.caseService.GetCase(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeCaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// EditField updates one stage content field
// @Summary      Edit stage field
// @Description  Owner-only, and only while the case is in the field's segment drafting status
// @Tags         cases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true  "Case ID"
// @Param        field  path      string  true  "Stage field name"
// @Param        payload  body    object  true  "{\"value\": \"...\"}"
// @Success      200    {object}  response.Response{data=service.CaseResponse}
// @Failure      403    {object}  response.Response
// @Failure      409    {object}  response.Response
// @Failure      422    {object}  response.Response
// @Router       /api/cases/{id}/fields/{field} [put]
func (h *CaseHandler) EditField(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req struct {
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.caseService.EditField(c.Request.Context(), actor, c.Param("id"), c.Param("field"), req.Value)
	if err != nil {
		writeCaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Submit moves a drafted segment into pending review
// @Summary      Submit for review
// @Tags         cases
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Case ID"
// @Success      200  {object}  response.Response{data=service.CaseResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/cases/{id}/submit [post]
func (h *CaseHandler) Submit(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.caseService.Submit(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeCaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Approve advances a pending review to the next segment
// @Summary      Approve segment review
// @Tags         cases
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Case ID"
// @Success      200  {object}  response.Response{data=service.CaseResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/cases/{id}/approve [post]
func (h *CaseHandler) Approve(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.caseService.Approve(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeCaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Reject sends a pending review back with a mandatory reason
// @Summary      Reject segment review
// @Tags         cases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Case ID"
// @Param        payload  body      service.RejectCaseRequest  true  "Rejection reason"
// @Success      200      {object}  response.Response{data=service.CaseResponse}
// @Failure      403      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/cases/{id}/reject [post]
func (h *CaseHandler) Reject(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req service.RejectCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Reason presence is enforced by the workflow engine, which
		// reports the specific missing-comment error.
		req.Reason = ""
	}

	result, err := h.caseService.Reject(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		writeCaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Regenerate reopens a rejected segment for rework
// @Summary      Regenerate after rejection
// @Tags         cases
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Case ID"
// @Success      200  {object}  response.Response{data=service.CaseResponse}
// @Failure      403  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/cases/{id}/regenerate [post]
func (h *CaseHandler) Regenerate(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.caseService.Regenerate(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeCaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// AdminOverride sets the status directly, outside the guarded graph
// @Summary      Admin status override
// @Tags         cases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Case ID"
// @Param        payload  body      service.AdminOverrideRequest  true  "Target status and reason"
// @Success      200      {object}  response.Response{data=service.CaseResponse}
// @Failure      403      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/cases/{id}/admin-override [post]
func (h *CaseHandler) AdminOverride(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req service.AdminOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.caseService.AdminOverride(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		writeCaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// SetShareable flips third-party read access on an approved case
// @Summary      Set shareable flag
// @Tags         cases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "Case ID"
// @Param        payload  body      service.SetShareableRequest  true  "Shareable flag"
// @Success      200      {object}  response.Response{data=service.CaseResponse}
// @Failure      403      {object}  response.Response
// @Router       /api/cases/{id}/shareable [put]
func (h *CaseHandler) SetShareable(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req service.SetShareableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.caseService.SetShareable(c.Request.Context(), actor, c.Param("id"), *req.Shareable)
	if err != nil {
		writeCaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// DeleteCase hard-deletes a case. Admin only; owners cannot delete.
// @Summary      Delete business case
// @Tags         cases
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Case ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/cases/{id} [delete]
func (h *CaseHandler) DeleteCase(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if err := h.caseService.DeleteCase(c.Request.Context(), actor, c.Param("id")); err != nil {
		writeCaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Business case deleted"))
}
