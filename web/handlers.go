/* handlers.go
 * Contains the HTTP handlers for tournament and team operations. The acting player is
 * identified by the X-Steam-ID header, set by the identity-aware proxy in front of
 * this service; the handlers trust it as authenticated.
 */

package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const steamIDHeader = "X-Steam-ID"

// Router builds the HTTP route table bound to this server's API
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Route("/tournaments", func(r chi.Router) {
		r.Get("/", s.listTournaments)
		r.Post("/", s.createTournament)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.getTournament)
			r.Delete("/", s.deleteTournament)
			r.Post("/join", s.joinTournament)
			r.Post("/leave", s.leaveTournament)
			r.Post("/lobby", s.assignLobby)
		})
	})

	r.Route("/teams", func(r chi.Router) {
		r.Post("/", s.createTeam)
		r.Get("/{name}", s.getTeam)
		r.Post("/{name}/members", s.addTeamMember)
		r.Delete("/{name}/members/{steamID}", s.removeTeamMember)
	})

	return r
}

// actor extracts the acting player's steam id, rejecting the request if absent
func actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	steamID := r.Header.Get(steamIDHeader)
	if steamID == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing " + steamIDHeader + " header"})
		return "", false
	}
	return steamID, true
}

func (s *Server) listTournaments(w http.ResponseWriter, r *http.Request) {
	tournaments, err := s.api.ListTournaments()
	if err != nil {
		writeError(w, err)
		return
	}
	res := make([]tournamentResponse, 0, len(tournaments))
	for i := range tournaments {
		res = append(res, toTournamentResponse(&tournaments[i]))
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) createTournament(w http.ResponseWriter, r *http.Request) {
	steamID, ok := actor(w, r)
	if !ok {
		return
	}
	var req createTournamentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	if err := s.api.CreateTournament(req.Name, req.Type, req.Bracket, req.MaxSlots, steamID); err != nil {
		writeError(w, err)
		return
	}
	t, err := s.api.GetTournament(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTournamentResponse(t))
}

func (s *Server) getTournament(w http.ResponseWriter, r *http.Request) {
	t, err := s.api.GetTournament(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTournamentResponse(t))
}

func (s *Server) deleteTournament(w http.ResponseWriter, r *http.Request) {
	steamID, ok := actor(w, r)
	if !ok {
		return
	}
	if err := s.api.DeleteTournament(chi.URLParam(r, "name"), steamID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) joinTournament(w http.ResponseWriter, r *http.Request) {
	steamID, ok := actor(w, r)
	if !ok {
		return
	}
	result, err := s.api.JoinTournament(chi.URLParam(r, "name"), steamID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{
		Tournament: toTournamentResponse(result.Tournament),
		Locked:     result.Locked,
	})
}

func (s *Server) leaveTournament(w http.ResponseWriter, r *http.Request) {
	steamID, ok := actor(w, r)
	if !ok {
		return
	}
	if err := s.api.LeaveTournament(chi.URLParam(r, "name"), steamID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// assignLobby commits lobby credentials and reports delivery. A partial delivery is
// still a 200: the credentials are saved, the response lists who was missed.
func (s *Server) assignLobby(w http.ResponseWriter, r *http.Request) {
	steamID, ok := actor(w, r)
	if !ok {
		return
	}
	var req assignLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	err := s.api.AssignLobby(chi.URLParam(r, "name"), req.LobbyName, req.LobbyPassword, req.Region, steamID)
	if err == nil {
		writeJSON(w, http.StatusOK, lobbyResponse{Status: "delivered"})
		return
	}

	if partial := asPartialDelivery(err); partial != nil {
		writeJSON(w, http.StatusOK, lobbyResponse{Status: "partial", Failed: partial})
		return
	}
	writeError(w, err)
}

func (s *Server) createTeam(w http.ResponseWriter, r *http.Request) {
	steamID, ok := actor(w, r)
	if !ok {
		return
	}
	var req createTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	if err := s.api.CreateTeam(req.Name, steamID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) getTeam(w http.ResponseWriter, r *http.Request) {
	team, members, err := s.api.GetTeamRoster(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	memberNames := make([]string, 0, len(members))
	for _, m := range members {
		memberNames = append(memberNames, m.Username)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":       team.Name,
		"captain_id": team.CaptainID,
		"member_ids": team.MemberIDs,
		"members":    memberNames,
	})
}

func (s *Server) addTeamMember(w http.ResponseWriter, r *http.Request) {
	steamID, ok := actor(w, r)
	if !ok {
		return
	}
	var req teamMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	if err := s.api.AddTeamMember(chi.URLParam(r, "name"), steamID, req.SteamID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeTeamMember(w http.ResponseWriter, r *http.Request) {
	steamID, ok := actor(w, r)
	if !ok {
		return
	}
	if err := s.api.RemoveTeamMember(chi.URLParam(r, "name"), steamID, chi.URLParam(r, "steamID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
