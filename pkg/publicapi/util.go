package publicapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(res http.ResponseWriter, req *http.Request, statusCode int, body any) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	if err := json.NewEncoder(res).Encode(body); err != nil {
		log.Ctx(req.Context()).Error().Err(err).Msg("failed to write response")
	}
}

func httpError(res http.ResponseWriter, req *http.Request, err error, statusCode int) {
	log.Ctx(req.Context()).Debug().Err(err).Int("status", statusCode).Str("path", req.URL.Path).Msg("request failed")
	writeJSON(res, req, statusCode, ErrorResponse{Error: err.Error()})
}
