package handlers

import (
	"io"
	"net/http"

	"github.com/username/nanopos/src/commands"
	"github.com/username/nanopos/src/logger"
	"github.com/username/nanopos/src/utils"
)

const maxCommandBodyBytes = 1 << 20

type CommandHandler struct {
	dispatcher *commands.Dispatcher
}

func NewCommandHandler(dispatcher *commands.Dispatcher) *CommandHandler {
	return &CommandHandler{dispatcher: dispatcher}
}

// HandleCommand decodes one {command, payload} envelope and runs it.
func (h *CommandHandler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCommandBodyBytes))
	if err != nil {
		utils.SendJSONError(w, "Request body too large or unreadable", http.StatusBadRequest)
		return
	}

	cmd, err := commands.Decode(body)
	if err != nil {
		logger.FromContext(r.Context()).Warn("Rejected command", "error", err)
		writeServiceError(w, r, err)
		return
	}

	res, err := h.dispatcher.Dispatch(r.Context(), cmd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, res, http.StatusOK)
}
