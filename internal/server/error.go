package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	eventdomain "github.com/railzwaylabs/metering/internal/event/domain"
	featuredomain "github.com/railzwaylabs/metering/internal/feature/domain"
	meterdomain "github.com/railzwaylabs/metering/internal/meter/domain"
	quotadomain "github.com/railzwaylabs/metering/internal/quota/domain"
	subjectdomain "github.com/railzwaylabs/metering/internal/subject/domain"
	usagedomain "github.com/railzwaylabs/metering/internal/usage/domain"
)

type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *apiError) Error() string {
	return e.Message
}

func newValidationError(field, code, message string) error {
	return &apiError{
		Status:  http.StatusBadRequest,
		Code:    code,
		Message: message,
		Field:   field,
	}
}

func invalidRequestError() error {
	return &apiError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "request body could not be parsed",
	}
}

// AbortWithError translates domain sentinels into transport statuses. The
// fallback is 500 with an opaque message so storage details never leak.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	status := http.StatusInternalServerError
	code := "internal_error"
	message := "internal server error"

	switch {
	case isValidationError(err):
		status = http.StatusBadRequest
		code = err.Error()
		message = err.Error()
	case errors.Is(err, meterdomain.ErrNoMeterForEvent):
		status = http.StatusBadRequest
		code = "no_meter_for_event_type"
		message = "no meter is configured for this event type"
	case isNotFoundError(err):
		status = http.StatusNotFound
		code = err.Error()
		message = err.Error()
	case isConflictError(err):
		status = http.StatusConflict
		code = err.Error()
		message = err.Error()
	case errors.Is(err, quotadomain.ErrNamespaceEventsQuotaExceeded):
		status = http.StatusTooManyRequests
		code = err.Error()
		message = "namespace event quota exceeded"
	}

	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		meterdomain.ErrInvalidNamespace,
		meterdomain.ErrInvalidKey,
		meterdomain.ErrInvalidName,
		meterdomain.ErrInvalidAggregation,
		meterdomain.ErrInvalidEventType,
		meterdomain.ErrInvalidID,
		subjectdomain.ErrInvalidNamespace,
		subjectdomain.ErrInvalidKey,
		subjectdomain.ErrInvalidID,
		featuredomain.ErrInvalidNamespace,
		featuredomain.ErrInvalidKey,
		featuredomain.ErrInvalidName,
		featuredomain.ErrInvalidType,
		featuredomain.ErrInvalidMeterID,
		featuredomain.ErrInvalidID,
		eventdomain.ErrInvalidNamespace,
		eventdomain.ErrInvalidSubject,
		eventdomain.ErrInvalidEventType,
		eventdomain.ErrInvalidIdempotencyKey,
		eventdomain.ErrEmptyBatch,
		eventdomain.ErrBatchTooLarge,
		eventdomain.ErrInvalidMeterID,
		eventdomain.ErrInvalidSubjectID,
		usagedomain.ErrInvalidNamespace,
		usagedomain.ErrInvalidTimeRange,
		usagedomain.ErrInvalidWindowSize,
		usagedomain.ErrInvalidMeterID,
		usagedomain.ErrInvalidSubjectID,
		usagedomain.ErrGroupByUnsupported,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func isNotFoundError(err error) bool {
	return errors.Is(err, meterdomain.ErrNotFound) ||
		errors.Is(err, subjectdomain.ErrNotFound) ||
		errors.Is(err, featuredomain.ErrNotFound)
}

func isConflictError(err error) bool {
	return errors.Is(err, meterdomain.ErrAlreadyExists) ||
		errors.Is(err, subjectdomain.ErrAlreadyExists) ||
		errors.Is(err, featuredomain.ErrAlreadyExists)
}
