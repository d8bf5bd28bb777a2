package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/inkpath/plotline/pkg/errors"
	"github.com/inkpath/plotline/pkg/store"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error to an HTTP status and a structured JSON body.
func writeError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	if code == "" {
		if errors.Is(err, store.ErrNotFound) {
			code = apperrors.ErrCodeStoryNotFound
		} else {
			code = apperrors.ErrCodeInternal
		}
	}

	var body errorBody
	body.Error.Code = string(code)
	body.Error.Message = apperrors.UserMessage(err)
	writeJSON(w, statusFor(code), body)
}

func statusFor(code apperrors.Code) int {
	switch code {
	case apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeInvalidStory,
		apperrors.ErrCodeInvalidFormat,
		apperrors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound,
		apperrors.ErrCodeCardNotFound,
		apperrors.ErrCodeStoryNotFound,
		apperrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeUnsupported:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes a request body, tolerating an empty body for endpoints
// where every field is optional.
func decodeJSON(req *http.Request, v any) error {
	dec := json.NewDecoder(req.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}
