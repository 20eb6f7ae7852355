package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	meterdomain "github.com/railzwaylabs/metering/internal/meter/domain"
	"github.com/railzwaylabs/metering/pkg/db/pagination"
)

type createMeterRequest struct {
	Key           string            `json:"key"`
	Name          string            `json:"name"`
	Description   *string           `json:"description"`
	Aggregation   string            `json:"aggregation"`
	EventType     string            `json:"event_type"`
	EventFrom     *time.Time        `json:"event_from"`
	ValueProperty *string           `json:"value_property"`
	GroupBy       map[string]string `json:"group_by"`
}

type updateMeterRequest struct {
	Name          *string           `json:"name,omitempty"`
	Description   *string           `json:"description,omitempty"`
	ValueProperty *string           `json:"value_property,omitempty"`
	GroupBy       map[string]string `json:"group_by,omitempty"`
}

// @Summary      Create Meter
// @Description  Register an aggregation rule over an event type
// @Tags         meters
// @Accept       json
// @Produce      json
// @Param        X-Namespace  header  string  true  "Namespace"
// @Param        request body createMeterRequest true "Create Meter Request"
// @Success      201  {object}  DataResponse
// @Router       /meters [post]
func (s *Server) CreateMeter(c *gin.Context) {
	var req createMeterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.meterSvc.Create(c.Request.Context(), meterdomain.CreateRequest{
		Key:           strings.TrimSpace(req.Key),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Aggregation:   meterdomain.Aggregation(strings.ToUpper(strings.TrimSpace(req.Aggregation))),
		EventType:     strings.TrimSpace(req.EventType),
		EventFrom:     req.EventFrom,
		ValueProperty: req.ValueProperty,
		GroupBy:       req.GroupBy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}

// @Summary      Get Meter
// @Tags         meters
// @Produce      json
// @Param        X-Namespace  header  string  true  "Namespace"
// @Param        id           path    string  true  "Meter ID"
// @Success      200  {object}  DataResponse
// @Router       /meters/{id} [get]
func (s *Server) GetMeter(c *gin.Context) {
	resp, err := s.meterSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// @Summary      List Meters
// @Tags         meters
// @Produce      json
// @Param        X-Namespace  header  string  true   "Namespace"
// @Param        key          query   string  false  "Key"
// @Param        event_type   query   string  false  "Event Type"
// @Param        page_token   query   string  false  "Page Token"
// @Param        page_size    query   int     false  "Page Size"
// @Success      200  {object}  ListResponse
// @Router       /meters [get]
func (s *Server) ListMeters(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Key       string `form:"key"`
		EventType string `form:"event_type"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.meterSvc.List(c.Request.Context(), meterdomain.ListRequest{
		Key:       strings.TrimSpace(query.Key),
		EventType: strings.TrimSpace(query.EventType),
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, resp.Meters, &resp.PageInfo)
}

// @Summary      Update Meter
// @Tags         meters
// @Accept       json
// @Produce      json
// @Param        X-Namespace  header  string  true  "Namespace"
// @Param        id           path    string  true  "Meter ID"
// @Param        request body updateMeterRequest true "Update Meter Request"
// @Success      200  {object}  DataResponse
// @Router       /meters/{id} [patch]
func (s *Server) UpdateMeter(c *gin.Context) {
	var req updateMeterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.meterSvc.Update(c.Request.Context(), meterdomain.UpdateRequest{
		ID:            c.Param("id"),
		Name:          req.Name,
		Description:   req.Description,
		ValueProperty: req.ValueProperty,
		GroupBy:       req.GroupBy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// @Summary      Delete Meter
// @Description  Soft-delete a meter; it stops matching events immediately
// @Tags         meters
// @Produce      json
// @Param        X-Namespace  header  string  true  "Namespace"
// @Param        id           path    string  true  "Meter ID"
// @Success      200  {object}  DataResponse
// @Router       /meters/{id} [delete]
func (s *Server) DeleteMeter(c *gin.Context) {
	if err := s.meterSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"deleted": true})
}
