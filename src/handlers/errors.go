package handlers

import (
	"errors"
	"net/http"

	"github.com/username/nanopos/src/commands"
	"github.com/username/nanopos/src/logger"
	"github.com/username/nanopos/src/nano"
	"github.com/username/nanopos/src/services"
	"github.com/username/nanopos/src/units"
	"github.com/username/nanopos/src/utils"
)

// writeServiceError maps a service or command error to a status code.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *commands.ValidationError
	if errors.As(err, &verr) {
		utils.SendJSON(w, map[string]interface{}{"error": verr.Error(), "validation": verr}, http.StatusBadRequest)
		return
	}

	status := http.StatusInternalServerError
	message := err.Error()
	switch {
	case errors.Is(err, services.ErrSnapshotFailed):
		message = services.RestartMessage
	case errors.Is(err, services.ErrSyncFailed), errors.Is(err, services.ErrPriceUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, services.ErrNoAddress), errors.Is(err, services.ErrSettingsIncomplete),
		errors.Is(err, services.ErrNoActiveWatch):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInvalidItem), errors.Is(err, services.ErrInvalidSetting),
		errors.Is(err, services.ErrParsingFailed), errors.Is(err, units.ErrInvalidAmount),
		errors.Is(err, nano.ErrInvalidAddress):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidPIN):
		status = http.StatusUnauthorized
	default:
		message = "internal error"
	}
	logger.FromContext(r.Context()).Error("Request failed", "path", r.URL.Path, "status", status, "error", err)
	utils.SendJSONError(w, message, status)
}
