package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fjod/cartlink/api-gateway/internal/domain"
	"github.com/fjod/cartlink/api-gateway/internal/service"
	"github.com/fjod/cartlink/pkg/circuitbreaker"
	"github.com/fjod/cartlink/pkg/commercetools"
	"github.com/fjod/cartlink/pkg/logger"
)

// ErrorResponse is the body of every failed request. Code is the HTTP status,
// or the commerce platform's status when the failure came from there.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    int    `json:"code"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("failed to encode response")
	}
}

func respondRaw(ctx context.Context, w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("failed to write response")
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message, details string) {
	respondJSON(ctx, w, status, ErrorResponse{
		Error:   message,
		Details: details,
		Code:    status,
	})
}

// handleError maps an error from the service layer to a response. message is
// the fallback text used for failures that carry no category of their own.
func handleError(ctx context.Context, w http.ResponseWriter, err error, message string) {
	var linkErr *service.LinkError
	if errors.As(err, &linkErr) {
		handleLinkError(ctx, w, linkErr)
		return
	}

	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondError(ctx, w, http.StatusBadRequest, "Invalid request", vErr.Error())
		return
	case errors.Is(err, service.ErrLinkNotFound):
		respondError(ctx, w, http.StatusNotFound, "Cart not found", "")
		return
	case errors.Is(err, service.ErrCustomerNotFound):
		respondError(ctx, w, http.StatusNotFound, "Customer not found", "")
		return
	case errors.Is(err, service.ErrLedgerDisabled):
		respondError(ctx, w, http.StatusNotImplemented, "Link ledger is not configured", "")
		return
	case errors.Is(err, circuitbreaker.ErrOpen):
		respondError(ctx, w, http.StatusServiceUnavailable, message, "commerce platform unavailable")
		return
	case errors.Is(err, context.DeadlineExceeded):
		respondError(ctx, w, http.StatusGatewayTimeout, message, "timeout")
		return
	}

	if code := commercetools.StatusCode(err); code != 0 {
		respondJSON(ctx, w, upstreamStatus(code), ErrorResponse{Error: message, Details: err.Error(), Code: code})
		return
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		handleGRPCError(ctx, w, st, message)
		return
	}

	logger.FromContext(ctx).Error().Err(err).Msg(message)
	respondError(ctx, w, http.StatusInternalServerError, message, err.Error())
}

func handleLinkError(ctx context.Context, w http.ResponseWriter, e *service.LinkError) {
	switch e.Category {
	case service.CategoryValidation:
		respondError(ctx, w, http.StatusBadRequest, "Invalid link request", e.Err.Error())
	case service.CategoryInvalidDiscountCode:
		respondJSON(ctx, w, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid discount code",
			Details: e.Err.Error(),
			Code:    remoteOr(e.Err, http.StatusBadRequest),
		})
	case service.CategoryInvalidCart:
		respondJSON(ctx, w, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid cart configuration",
			Details: e.Err.Error(),
			Code:    remoteOr(e.Err, http.StatusBadRequest),
		})
	case service.CategoryVersionConflict:
		respondJSON(ctx, w, http.StatusConflict, ErrorResponse{
			Error:   "Cart was modified concurrently",
			Details: e.Err.Error(),
			Code:    remoteOr(e.Err, http.StatusConflict),
		})
	default:
		if st, ok := status.FromError(e.Err); ok && st.Code() != codes.Unknown && commercetools.StatusCode(e.Err) == 0 {
			handleGRPCError(ctx, w, st, "Failed to create link")
			return
		}
		code := remoteOr(e.Err, http.StatusBadGateway)
		respondJSON(ctx, w, upstreamStatus(code), ErrorResponse{
			Error:   "Failed to create link",
			Details: e.Err.Error(),
			Code:    code,
		})
	}
}

func remoteOr(err error, fallback int) int {
	if code := commercetools.StatusCode(err); code != 0 {
		return code
	}
	return fallback
}

// upstreamStatus is the status returned to the caller for a remote failure.
func upstreamStatus(remote int) int {
	switch {
	case remote == http.StatusNotFound, remote == http.StatusConflict, remote == http.StatusBadRequest:
		return remote
	case remote >= 500:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleGRPCError converts a Google Cloud client status to HTTP.
func handleGRPCError(ctx context.Context, w http.ResponseWriter, st *status.Status, message string) {
	var httpStatus int

	switch st.Code() {
	case codes.InvalidArgument, codes.FailedPrecondition:
		httpStatus = http.StatusBadRequest
	case codes.NotFound:
		httpStatus = http.StatusNotFound
	case codes.AlreadyExists:
		httpStatus = http.StatusConflict
	case codes.Unauthenticated:
		httpStatus = http.StatusUnauthorized
	case codes.PermissionDenied:
		httpStatus = http.StatusForbidden
	case codes.ResourceExhausted:
		httpStatus = http.StatusTooManyRequests
	case codes.Unavailable:
		httpStatus = http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		httpStatus = http.StatusGatewayTimeout
	default:
		httpStatus = http.StatusInternalServerError
	}

	respondError(ctx, w, httpStatus, message, st.Message())
}
