package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/starweave/starweave/internal/model"
)

// CommandError is the payload returned for failed commands
type CommandError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Command error codes
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeInvalidState     = "INVALID_STATE"
	CodeNotInRoom        = "NOT_IN_ROOM"
	CodeGameInProgress   = "GAME_IN_PROGRESS"
	CodeGameEnded        = "GAME_ENDED"
	CodePlayerEliminated = "PLAYER_ELIMINATED"
	CodeUnknownPlanet    = "UNKNOWN_PLANET"
	CodeUnknownFleet     = "UNKNOWN_FLEET"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInternalError    = "INTERNAL_ERROR"
)

func decode(payload json.RawMessage, dst any) error {
	if len(payload) == 0 {
		return errors.New("payload is required")
	}
	return json.Unmarshal(payload, dst)
}

func errMissingField(name string) error {
	return fmt.Errorf("%s is required", name)
}

func badRequest(err error) Result {
	return Result{
		StatusCode: http.StatusBadRequest,
		Payload:    CommandError{Code: CodeInvalidRequest, Message: err.Error()},
	}
}

// errorResult maps domain errors to command results
func errorResult(err error) Result {
	switch {
	case errors.Is(err, model.ErrInvalidState):
		return result(http.StatusConflict, CodeInvalidState, err)
	case errors.Is(err, model.ErrGameInProgress):
		return result(http.StatusConflict, CodeGameInProgress, err)
	case errors.Is(err, model.ErrGameEnded):
		return result(http.StatusConflict, CodeGameEnded, err)
	case errors.Is(err, model.ErrPlayerEliminated):
		return result(http.StatusForbidden, CodePlayerEliminated, err)
	case errors.Is(err, model.ErrNotInRoom):
		return result(http.StatusNotFound, CodeNotInRoom, err)
	case errors.Is(err, model.ErrUnknownPlanet):
		return result(http.StatusNotFound, CodeUnknownPlanet, err)
	case errors.Is(err, model.ErrUnknownFleet):
		return result(http.StatusNotFound, CodeUnknownFleet, err)
	case errors.Is(err, model.ErrNotPlanetOwner),
		errors.Is(err, model.ErrNotEnoughShips),
		errors.Is(err, model.ErrNoPlayers),
		errors.Is(err, model.ErrEmptyMessage),
		errors.Is(err, model.ErrMessageTooLong),
		errors.Is(err, model.ErrInvalidMapSize),
		errors.Is(err, model.ErrMissingUserID),
		errors.Is(err, model.ErrMissingRoomID):
		return result(http.StatusBadRequest, CodeValidationFailed, err)
	default:
		return Result{
			StatusCode: http.StatusInternalServerError,
			Payload:    CommandError{Code: CodeInternalError, Message: "internal error"},
		}
	}
}

func result(status int, code string, err error) Result {
	return Result{
		StatusCode: status,
		Payload:    CommandError{Code: code, Message: err.Error()},
	}
}
