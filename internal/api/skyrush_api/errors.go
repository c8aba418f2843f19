package skyrush_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/BearBump/SkyRush/internal/apperr"
	"github.com/BearBump/SkyRush/internal/logger"
	"go.uber.org/zap"
)

type errorBody struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

func (a *SkyRushAPI) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context()).Warn("write response", zap.Error(err))
	}
}

// writeError is the single place where errors become HTTP responses.
func (a *SkyRushAPI) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	log := logger.FromContext(r.Context())
	if kind == apperr.KindInternal {
		log.Error("request failed", zap.String("kind", kind.String()), zap.Error(err))
	} else {
		log.Warn("request rejected", zap.String("kind", kind.String()), zap.String("reason", apperr.PublicMessage(err)))
	}

	body := errorBody{Message: apperr.PublicMessage(err)}
	if !a.opts.Production {
		body.Stack = fmt.Sprintf("%+v", err)
	}
	a.writeJSON(w, r, kind.HTTPStatus(), body)
}

func (a *SkyRushAPI) decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	return nil
}
