package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	subjectdomain "github.com/railzwaylabs/metering/internal/subject/domain"
	"github.com/railzwaylabs/metering/pkg/db/pagination"
)

type createSubjectRequest struct {
	Key              string         `json:"key"`
	DisplayName      *string        `json:"display_name"`
	Metadata         map[string]any `json:"metadata"`
	StripeCustomerID *string        `json:"stripe_customer_id"`
}

type updateSubjectRequest struct {
	DisplayName      *string        `json:"display_name,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	StripeCustomerID *string        `json:"stripe_customer_id,omitempty"`
}

// @Summary      Create Subject
// @Description  Register a resource consumer
// @Tags         subjects
// @Accept       json
// @Produce      json
// @Param        X-Namespace  header  string  true  "Namespace"
// @Param        request body createSubjectRequest true "Create Subject Request"
// @Success      201  {object}  DataResponse
// @Router       /subjects [post]
func (s *Server) CreateSubject(c *gin.Context) {
	var req createSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subjectSvc.Create(c.Request.Context(), subjectdomain.CreateRequest{
		Key:              strings.TrimSpace(req.Key),
		DisplayName:      req.DisplayName,
		Metadata:         req.Metadata,
		StripeCustomerID: req.StripeCustomerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}

// @Summary      Get Subject
// @Tags         subjects
// @Produce      json
// @Param        X-Namespace  header  string  true  "Namespace"
// @Param        id           path    string  true  "Subject ID"
// @Success      200  {object}  DataResponse
// @Router       /subjects/{id} [get]
func (s *Server) GetSubject(c *gin.Context) {
	resp, err := s.subjectSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// @Summary      List Subjects
// @Tags         subjects
// @Produce      json
// @Param        X-Namespace  header  string  true   "Namespace"
// @Param        key          query   string  false  "Key"
// @Param        page_token   query   string  false  "Page Token"
// @Param        page_size    query   int     false  "Page Size"
// @Success      200  {object}  ListResponse
// @Router       /subjects [get]
func (s *Server) ListSubjects(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Key string `form:"key"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subjectSvc.List(c.Request.Context(), subjectdomain.ListRequest{
		Key:       strings.TrimSpace(query.Key),
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, resp.Subjects, &resp.PageInfo)
}

// @Summary      Update Subject
// @Tags         subjects
// @Accept       json
// @Produce      json
// @Param        X-Namespace  header  string  true  "Namespace"
// @Param        id           path    string  true  "Subject ID"
// @Param        request body updateSubjectRequest true "Update Subject Request"
// @Success      200  {object}  DataResponse
// @Router       /subjects/{id} [patch]
func (s *Server) UpdateSubject(c *gin.Context) {
	var req updateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subjectSvc.Update(c.Request.Context(), subjectdomain.UpdateRequest{
		ID:               c.Param("id"),
		DisplayName:      req.DisplayName,
		Metadata:         req.Metadata,
		StripeCustomerID: req.StripeCustomerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// @Summary      Delete Subject
// @Tags         subjects
// @Produce      json
// @Param        X-Namespace  header  string  true  "Namespace"
// @Param        id           path    string  true  "Subject ID"
// @Success      200  {object}  DataResponse
// @Router       /subjects/{id} [delete]
func (s *Server) DeleteSubject(c *gin.Context) {
	if err := s.subjectSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"deleted": true})
}
