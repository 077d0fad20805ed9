package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "hatch/pkg/domain-errors"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the error envelope for err. Descriptions of internal errors
// are never sent to the client.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := errorResponse{Error: string(code)}
	var de *dErrors.Error
	if code != dErrors.CodeInternal && errors.As(err, &de) {
		resp.ErrorDescription = de.Message
	}
	WriteJSON(w, code.HTTPStatus(), resp)
}

// WriteStatus writes an error envelope for a bare status, used where a request
// is refused before any handler produced a domain error.
func WriteStatus(w http.ResponseWriter, status int, description string) {
	resp := errorResponse{Error: codeForStatus(status)}
	if status < http.StatusInternalServerError {
		resp.ErrorDescription = description
	}
	WriteJSON(w, status, resp)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(dErrors.CodeBadRequest)
	case http.StatusUnauthorized:
		return string(dErrors.CodeUnauthorized)
	case http.StatusForbidden:
		return string(dErrors.CodeForbidden)
	case http.StatusNotFound:
		return string(dErrors.CodeNotFound)
	case http.StatusConflict:
		return string(dErrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(dErrors.CodeTooManyRequests)
	default:
		return string(dErrors.CodeInternal)
	}
}

// Validatable is implemented by request bodies that normalize and check
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes a JSON body into T and validates it. On failure the
// error response is already written and ok is false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var req T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		logger.WarnContext(r.Context(), "failed to decode request body", "error", err)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return nil, false
	}
	if err := PT(&req).Validate(); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return &req, true
}
