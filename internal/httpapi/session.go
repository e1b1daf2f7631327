package httpapi

import (
	"net/http"
	"time"

	"setlister/internal/app/setlists"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.users == nil {
		unavailable(w, "login")
		return
	}
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	userID, err := s.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, expiresAt, err := s.tokens.IssueAccess(userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: expiresAt})
}

// handleWebsocket subscribes the connection to the actor's own channel and
// to the channel of every band the actor belongs to.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if s.realtime == nil {
		unavailable(w, "notifications")
		return
	}

	userID := actor(r)
	channels := []string{setlists.UserChannel(userID)}
	if s.bands != nil {
		bands, err := s.bands.ListBandIDsForUser(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		for _, id := range bands {
			channels = append(channels, setlists.BandChannel(id))
		}
	}

	s.realtime.ServeWS(w, r, channels)
}
