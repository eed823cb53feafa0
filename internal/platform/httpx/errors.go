package httpx

import (
	"errors"
	"net/http"

	"github.com/salesdesk/salesdesk/internal/api"
)

// ErrBadRequest marks malformed console input on JSON endpoints.
var ErrBadRequest = errors.New("bad request")

// RespondError maps a backend or input error to an RFC7807 problem. The
// backend's own message is passed through when it sent one.
func RespondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrBadRequest) {
		Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	status := api.StatusOf(err)
	switch status {
	case http.StatusUnauthorized:
		Problem(w, status, "Unauthorized", api.Message(err, ""))
	case http.StatusForbidden:
		Problem(w, status, "Forbidden", api.Message(err, ""))
	case http.StatusNotFound:
		Problem(w, status, "Not Found", api.Message(err, ""))
	case http.StatusConflict:
		Problem(w, status, "Conflict", api.Message(err, ""))
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		Problem(w, status, "Validation Failed", api.Message(err, ""))
	default:
		Problem(w, http.StatusBadGateway, "Backend Unavailable", "")
	}
}
