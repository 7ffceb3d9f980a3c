package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sievelab/sieved/domain"
	"github.com/sievelab/sieved/internal/rest/request"
	"github.com/sievelab/sieved/internal/rest/response"
)

// Error kinds returned to clients alongside the human-readable message.
const (
	KindInvalidBound  = "invalid_bound"
	KindUnknownDomain = "unknown_domain"
	KindTimeout       = "computation_timeout"
	KindInternal      = "internal"
)

// ResponseError represent the response error struct
type ResponseError struct {
	Kind    string `json:"error"`
	Message string `json:"message"`
}

// SieveHandler represent the httphandler for sieve queries
type SieveHandler struct {
	Service domain.SieveUsecase
}

func NewSieveHandler(svc domain.SieveUsecase) *SieveHandler {
	return &SieveHandler{
		Service: svc,
	}
}

// Query serves GET /sieve?domain=<id>&lower=<int>&upper=<int>
func (h *SieveHandler) Query(c *gin.Context) {
	var req request.SieveQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ResponseError{Kind: KindInvalidBound, Message: err.Error()})
		return
	}

	ctx := c.Request.Context()
	res, err := h.Service.Query(ctx, req.DomainKey(), req.ToRange())
	if err != nil {
		status, kind := statusForError(err)
		c.JSON(status, ResponseError{Kind: kind, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, response.NewSieveRangeFromDomain(&res))
}

// Domains lists the configured filter domains.
func (h *SieveHandler) Domains(c *gin.Context) {
	c.JSON(http.StatusOK, response.NewDomainList(h.Service.Domains(c.Request.Context())))
}

// Stats reports the cached state per domain.
func (h *SieveHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.Stats(c.Request.Context()))
}

// statusForError maps service errors onto HTTP status plus a machine
// readable error kind.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidBound):
		return http.StatusBadRequest, KindInvalidBound
	case errors.Is(err, domain.ErrUnknownDomain):
		return http.StatusNotFound, KindUnknownDomain
	case errors.Is(err, domain.ErrComputationTimeout):
		return http.StatusGatewayTimeout, KindTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest, KindInternal
	default:
		logrus.Error(err)
		return http.StatusInternalServerError, KindInternal
	}
}
