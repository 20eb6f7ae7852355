package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	featuredomain "github.com/railzwaylabs/metering/internal/feature/domain"
	"github.com/railzwaylabs/metering/pkg/db/pagination"
)

type createFeatureRequest struct {
	Key         string         `json:"key"`
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	FeatureType string         `json:"feature_type"`
	MeterID     *string        `json:"meter_id"`
	Metadata    map[string]any `json:"metadata"`
}

type updateFeatureRequest struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	MeterID     *string        `json:"meter_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// @Summary      Create Feature
// @Description  Register a product capability, optionally backed by a meter
// @Tags         features
// @Accept       json
// @Produce      json
// @Param        X-Namespace  header  string  true  "Namespace"
// @Param        request body createFeatureRequest true "Create Feature Request"
// @Success      201  {object}  DataResponse
// @Router       /features [post]
func (s *Server) CreateFeature(c *gin.Context) {
	var req createFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.featureSvc.Create(c.Request.Context(), featuredomain.CreateRequest{
		Key:         strings.TrimSpace(req.Key),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		FeatureType: featuredomain.FeatureType(strings.TrimSpace(req.FeatureType)),
		MeterID:     req.MeterID,
		Metadata:    req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}

// @Summary      Get Feature
// @Tags         features
// @Produce      json
// @Param        X-Namespace  header  string  true  "Namespace"
// @Param        id           path    string  true  "Feature ID"
// @Success      200  {object}  DataResponse
// @Router       /features/{id} [get]
func (s *Server) GetFeature(c *gin.Context) {
	resp, err := s.featureSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// @Summary      List Features
// @Tags         features
// @Produce      json
// @Param        X-Namespace   header  string  true   "Namespace"
// @Param        key           query   string  false  "Key"
// @Param        feature_type  query   string  false  "Feature Type"
// @Param        page_token    query   string  false  "Page Token"
// @Param        page_size     query   int     false  "Page Size"
// @Success      200  {object}  ListResponse
// @Router       /features [get]
func (s *Server) ListFeatures(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Key         string `form:"key"`
		FeatureType string `form:"feature_type"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := featuredomain.ListRequest{
		Key:       strings.TrimSpace(query.Key),
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
	}
	if ft := strings.TrimSpace(query.FeatureType); ft != "" {
		featureType := featuredomain.FeatureType(ft)
		req.FeatureType = &featureType
	}

	resp, err := s.featureSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, resp.Features, &resp.PageInfo)
}

// @Summary      Update Feature
// @Tags         features
// @Accept       json
// @Produce      json
// @Param        X-Namespace  header  string  true  "Namespace"
// @Param        id           path    string  true  "Feature ID"
// @Param        request body updateFeatureRequest true "Update Feature Request"
// @Success      200  {object}  DataResponse
// @Router       /features/{id} [patch]
func (s *Server) UpdateFeature(c *gin.Context) {
	var req updateFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.featureSvc.Update(c.Request.Context(), featuredomain.UpdateRequest{
		ID:          c.Param("id"),
		Name:        req.Name,
		Description: req.Description,
		MeterID:     req.MeterID,
		Metadata:    req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// @Summary      Delete Feature
// @Tags         features
// @Produce      json
// @Param        X-Namespace  header  string  true  "Namespace"
// @Param        id           path    string  true  "Feature ID"
// @Success      200  {object}  DataResponse
// @Router       /features/{id} [delete]
func (s *Server) DeleteFeature(c *gin.Context) {
	if err := s.featureSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"deleted": true})
}
