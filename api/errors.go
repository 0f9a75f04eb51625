package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aluiziolira/go-scrape-stores/scraper"
	"github.com/aluiziolira/go-scrape-stores/stores"
)

const (
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeInvalidProfile = "INVALID_PROFILE"
	ErrCodeDuplicateStore = "DUPLICATE_STORE"
	ErrCodeStoreNotFound  = "STORE_NOT_FOUND"
	ErrCodeInvalidField   = "INVALID_FIELD"
	ErrCodeScrapeFailed   = "SCRAPE_FAILED"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category,omitempty"`
}

// ErrorResponse wraps ErrorDetail.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// apiError carries the status and code to respond with.
type apiError struct {
	status int
	code   string
	err    error
}

func (e apiError) Error() string {
	return e.err.Error()
}

func (e apiError) Unwrap() error {
	return e.err
}

var errRateLimited = apiError{
	status: http.StatusTooManyRequests,
	code:   ErrCodeRateLimited,
	err:    errors.New("too many scrape requests, please slow down"),
}

func invalidInput(err error) error {
	return apiError{status: http.StatusBadRequest, code: ErrCodeInvalidInput, err: err}
}

// classify maps domain errors to a status and code.
func classify(err error) (int, ErrorDetail) {
	var apiErr apiError
	if errors.As(err, &apiErr) {
		return apiErr.status, ErrorDetail{Code: apiErr.code, Message: err.Error()}
	}

	switch {
	case errors.Is(err, stores.ErrDuplicateStore):
		return http.StatusConflict, ErrorDetail{Code: ErrCodeDuplicateStore, Message: err.Error()}
	case errors.Is(err, stores.ErrIndexOutOfRange):
		return http.StatusNotFound, ErrorDetail{Code: ErrCodeStoreNotFound, Message: err.Error()}
	case errors.Is(err, stores.ErrInvalidProfile):
		category := scraper.ErrorTypeLabel(err)
		if category != "selector" {
			category = "invalid_profile"
		}
		return http.StatusBadRequest, ErrorDetail{Code: ErrCodeInvalidProfile, Message: err.Error(), Category: category}
	}

	switch category := scraper.ErrorTypeLabel(err); category {
	case "invalid_profile", "selector":
		return http.StatusBadRequest, ErrorDetail{Code: ErrCodeInvalidProfile, Message: err.Error(), Category: category}
	case "network", "http_status", "body_read":
		return http.StatusBadGateway, ErrorDetail{Code: ErrCodeScrapeFailed, Message: err.Error(), Category: category}
	}

	return http.StatusInternalServerError, ErrorDetail{Code: ErrCodeInternal, Message: err.Error()}
}

func respondError(c *gin.Context, err error) {
	status, detail := classify(err)
	c.JSON(status, ErrorResponse{Error: detail})
}

func abortWithError(c *gin.Context, err error) {
	status, detail := classify(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: detail})
}
