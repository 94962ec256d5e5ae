/* models.go
 * Contains the web server configuration, request/response shapes and the mapping from
 * domain errors to HTTP status codes.
 */

package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tourney-bot/api/api"
	"tourney-bot/api/shared"
)

// Config holds the configuration for the web server
type Config struct {
	Addr string
	API  *api.API
}

// Server is the HTTP server that exposes tournament and team operations
type Server struct {
	api *api.API
}

// NewServer creates a Server around the given API
func NewServer(apiPtr *api.API) *Server {
	return &Server{api: apiPtr}
}

type createTournamentRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Bracket  string `json:"bracket"`
	MaxSlots int    `json:"max_slots"`
}

type assignLobbyRequest struct {
	LobbyName     string `json:"lobby_name"`
	LobbyPassword string `json:"lobby_password"`
	Region        string `json:"region"`
}

type createTeamRequest struct {
	Name string `json:"name"`
}

type teamMemberRequest struct {
	SteamID string `json:"steam_id"`
}

type tournamentResponse struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Bracket      string `json:"bracket"`
	MaxSlots     int    `json:"max_slots"`
	CurrentSlots int    `json:"current_slots"`
	IsLocked     bool   `json:"is_locked"`
}

type joinResponse struct {
	Tournament tournamentResponse `json:"tournament"`
	Locked     bool               `json:"locked"`
}

type deliveryFailureResponse struct {
	Username string `json:"username"`
	Reason   string `json:"reason"`
}

type lobbyResponse struct {
	Status string                    `json:"status"`
	Failed []deliveryFailureResponse `json:"failed,omitempty"`
}

type errorResponse struct {
	Error      string   `json:"error"`
	Violations []string `json:"violations,omitempty"`
}

func toTournamentResponse(t *shared.Tournament) tournamentResponse {
	return tournamentResponse{
		Name:         t.Name,
		Type:         t.Type,
		Bracket:      t.Bracket,
		MaxSlots:     t.MaxSlots,
		CurrentSlots: t.CurrentSlots,
		IsLocked:     t.IsLocked,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Println("failed to encode response:", err)
	}
}

// asPartialDelivery unwraps a PartialDeliveryError into response shapes, or nil
func asPartialDelivery(err error) []deliveryFailureResponse {
	var partial *shared.PartialDeliveryError
	if !errors.As(err, &partial) {
		return nil
	}
	failed := make([]deliveryFailureResponse, 0, len(partial.Failed))
	for _, f := range partial.Failed {
		failed = append(failed, deliveryFailureResponse{Username: f.Recipient.Username, Reason: f.Reason})
	}
	return failed
}

// writeError maps a domain error onto an HTTP status. Eligibility rejections carry
// their violations so the caller can show them all.
func writeError(w http.ResponseWriter, err error) {
	var notEligible *shared.NotEligibleError
	if errors.As(err, &notEligible) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "not eligible", Violations: notEligible.Violations})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrUnknownBracket),
		errors.Is(err, shared.ErrInvalidTournamentType),
		errors.Is(err, shared.ErrInvalidCapacity):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrNotOperator), errors.Is(err, shared.ErrNotCaptain):
		status = http.StatusForbidden
	case errors.Is(err, shared.ErrTournamentNotFound),
		errors.Is(err, shared.ErrTeamNotFound),
		errors.Is(err, shared.ErrUserNotFound),
		errors.Is(err, shared.ErrParticipantNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrAlreadyJoined),
		errors.Is(err, shared.ErrTournamentFull),
		errors.Is(err, shared.ErrTournamentLocked),
		errors.Is(err, shared.ErrTournamentNameConflict),
		errors.Is(err, shared.ErrTeamNameConflict),
		errors.Is(err, shared.ErrUserAlreadyInTeam),
		errors.Is(err, shared.ErrNoTeam):
		status = http.StatusConflict
	case errors.Is(err, shared.ErrExternalService):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		log.Println("internal error:", err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
