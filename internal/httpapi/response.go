package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/clusterml/master/internal/apierr"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"kind":    kind,
			"message": message,
		},
	})
}

// writeAPIErr maps the supervisor error taxonomy onto HTTP status codes.
func writeAPIErr(w http.ResponseWriter, err error) {
	apiErr, ok := apierr.As(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, string(apierr.KindInternal), err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch apiErr.Kind {
	case apierr.KindNotFound, apierr.KindUnknownWorker:
		status = http.StatusNotFound
	case apierr.KindValidation, apierr.KindInvalidQuantity:
		status = http.StatusUnprocessableEntity
	case apierr.KindInvalidTransition:
		status = http.StatusConflict
	case apierr.KindUnauthenticated:
		status = http.StatusUnauthorized
	case apierr.KindForbidden:
		status = http.StatusForbidden
	case apierr.KindInternal:
		status = http.StatusInternalServerError
	}
	writeError(w, status, string(apiErr.Kind), apiErr.Message)
}
