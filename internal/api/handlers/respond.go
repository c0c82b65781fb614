package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/wonny/crmgeek/backend/internal/apperr"
	"github.com/wonny/crmgeek/backend/pkg/logger"
)

// maxBodyBytes caps request bodies; PRO uploads carry whole sales exports
const maxBodyBytes = 16 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError renders a typed error; untyped ones are logged and hidden
func respondError(w http.ResponseWriter, log *logger.Logger, err error) {
	status, body := apperr.ToBody(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
	}
	respondJSON(w, status, body)
}

// decodeJSON reads a JSON body into dst; numbers stay json.Number
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return apperr.NoData("request body is empty")
		}
		return apperr.Validation("request body is not valid JSON").WithDetail(err.Error())
	}
	return nil
}
