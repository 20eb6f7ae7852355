package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	eventdomain "github.com/railzwaylabs/metering/internal/event/domain"
)

const maxBatchErrorsReturned = 10

// @Summary      Ingest Event
// @Description  Ingest a single usage event
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        X-Namespace      header  string  true   "Namespace"
// @Param        Idempotency-Key  header  string  false  "Idempotency Key"
// @Param        request body eventdomain.IngestEventRequest true "Ingest Event Request"
// @Success      201  {object}  eventdomain.IngestResponse
// @Router       /events [post]
func (s *Server) IngestEvent(c *gin.Context) {
	var req eventdomain.IngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.eventSvc.Ingest(c.Request.Context(), req, idempotencyKeyFromHeader(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// A replay of a previously stored result is 200, a fresh ingest 201.
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// @Summary      Ingest Event Batch
// @Description  Ingest up to 1000 usage events with per-event failure isolation
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        X-Namespace      header  string  true   "Namespace"
// @Param        Idempotency-Key  header  string  false  "Idempotency Key"
// @Param        request body eventdomain.IngestBatchRequest true "Ingest Batch Request"
// @Success      201  {object}  eventdomain.IngestBatchResponse
// @Router       /events/batch [post]
func (s *Server) IngestEventBatch(c *gin.Context) {
	var req eventdomain.IngestBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.eventSvc.IngestBatch(c.Request.Context(), req, idempotencyKeyFromHeader(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// The full error list stays in the service response; the wire caps it
	// so a poisoned batch cannot flood the client.
	if len(resp.Errors) > maxBatchErrorsReturned {
		resp.Errors = resp.Errors[:maxBatchErrorsReturned]
	}

	status := http.StatusCreated
	switch {
	case resp.Replayed:
		status = http.StatusOK
	case resp.FailedEvents > 0:
		status = http.StatusMultiStatus
	}
	c.JSON(status, resp)
}

// @Summary      List Events
// @Description  List raw ingested events
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        X-Namespace  header  string  true   "Namespace"
// @Param        meterId      query   string  false  "Meter ID"
// @Param        subjectId    query   string  false  "Subject ID"
// @Param        from         query   string  false  "From (RFC3339)"
// @Param        to           query   string  false  "To (RFC3339)"
// @Param        limit        query   int     false  "Limit"
// @Param        offset       query   int     false  "Offset"
// @Success      200  {object}  eventdomain.ListResponse
// @Router       /events [get]
func (s *Server) ListEvents(c *gin.Context) {
	req := eventdomain.ListRequest{
		MeterID:   strings.TrimSpace(c.Query("meterId")),
		SubjectID: strings.TrimSpace(c.Query("subjectId")),
	}

	if from, ok := parseTimeQuery(c, "from"); !ok {
		return
	} else {
		req.From = from
	}
	if to, ok := parseTimeQuery(c, "to"); !ok {
		return
	} else {
		req.To = to
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a non-negative integer"))
			return
		}
		req.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			AbortWithError(c, newValidationError("offset", "invalid_offset", "offset must be a non-negative integer"))
			return
		}
		req.Offset = offset
	}

	resp, err := s.eventSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

func parseTimeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		AbortWithError(c, newValidationError(name, "invalid_time", name+" must be RFC3339"))
		return nil, false
	}
	return &t, true
}
