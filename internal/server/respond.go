package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/invoice-tracker/internal/common"
	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
	"github.com/joseph-ayodele/invoice-tracker/internal/pipeline"
)

// ProcessingResult is the upload endpoint envelope.
type ProcessingResult struct {
	Success        bool                    `json:"success"`
	Data           *entity.Invoice         `json:"data,omitempty"`
	Summary        *entity.Summary         `json:"summary,omitempty"`
	Enrichment     *pipeline.EnrichOutcome `json:"enrichment,omitempty"`
	Deduplicated   bool                    `json:"deduplicated,omitempty"`
	Error          string                  `json:"error,omitempty"`
	ProcessingTime int64                   `json:"processingTime,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("http.write_failed", "error", err)
	}
}

// httpStatus maps core and validation errors onto response codes.
func httpStatus(err error) int {
	var mde pipeline.MissingDocumentError
	switch {
	case errors.As(err, &mde):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, common.ErrInvalidInput), common.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal causes; AppError messages are written for users.
func publicMessage(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	var mde pipeline.MissingDocumentError
	if errors.As(err, &mde) {
		return mde.Error()
	}
	switch httpStatus(err) {
	case http.StatusInternalServerError:
		return "internal error"
	case http.StatusBadGateway:
		return "document processing service unavailable"
	}
	return err.Error()
}

// validateUploadMeta bounds the client-supplied name and type before the
// content is looked at.
func validateUploadMeta(name, mimeType string) error {
	return common.NewValidator().
		Field("name", name, common.MaxLength(255)).
		Field("mimeType", mimeType, common.MaxLength(127)).
		Error()
}

// grpcError converts an error into a gRPC status error.
func grpcError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var mde pipeline.MissingDocumentError
	if errors.As(err, &mde) {
		return status.Error(codes.FailedPrecondition, mde.Error())
	}
	return status.Error(common.GRPCCode(err), publicMessage(err))
}
