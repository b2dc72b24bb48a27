package errutil

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/utils/logging"
)

// Handle logs err with its goerr values and reports it to Sentry when a
// client is configured. It returns err unchanged.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)

	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error(msg,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error(msg, "error", err.Error())
	}

	if hub := sentry.CurrentHub(); hub.Client() != nil {
		hub.CaptureException(err)
	}

	return err
}

// StatusCode maps an error onto the HTTP status reported to clients
func StatusCode(err error) int {
	var apiErr *model.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Status >= 400:
		return apiErr.Status
	case errors.Is(err, model.ErrInvalidForm),
		errors.Is(err, model.ErrInvalidFieldValue),
		errors.Is(err, model.ErrInvalidFilter),
		errors.Is(err, model.ErrInvalidRecord):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrSubmitInFlight):
		return http.StatusConflict
	case errors.Is(err, model.ErrRecordNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// HandleHTTP logs err and writes it as a {status, message, errorcode} JSON
// body. 5xx responses hide the internal message.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	status := StatusCode(err)
	body := model.APIError{Status: status, Message: model.ErrorDetail(err)}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		body.ErrorCode = apiErr.ErrorCode
	}

	if status >= http.StatusInternalServerError {
		_ = Handle(ctx, err, "HTTP error")
		body.Message = http.StatusText(status)
	} else {
		logging.From(ctx).Info("HTTP client error",
			slog.Int("status", status),
			slog.String("error", err.Error()))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.From(ctx).Warn("failed to write error response", "error", err)
	}
}
