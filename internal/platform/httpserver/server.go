package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	electionengine "ballotbox/contexts/election-operations/election-engine"
	domainerrors "ballotbox/contexts/election-operations/election-engine/domain/errors"
	electionhttp "ballotbox/contexts/election-operations/election-engine/transport/http"
	"ballotbox/contexts/election-operations/election-engine/ports"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "ballotbox/internal/platform/httpserver/docs"
)

type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	election electionengine.Module
	live     *liveFeed
}

type Options struct {
	// Subscriber feeds the websocket live-results endpoint; nil disables it.
	Subscriber    ports.EventSubscriber
	EnableSwagger bool
}

func New(election electionengine.Module, logger *slog.Logger, addr string, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		election: election,
	}
	if opts.Subscriber != nil {
		s.live = newLiveFeed(opts.Subscriber, logger)
	}
	s.registerRoutes(opts.EnableSwagger)
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes(enableSwagger bool) {
	if enableSwagger {
		s.mux.Handle("/swagger/", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	s.mux.HandleFunc("POST /api/elections", s.handleCreateElection)
	s.mux.HandleFunc("GET /api/elections", s.handleListElections)
	s.mux.HandleFunc("GET /api/elections/active", s.handleActiveElection)
	s.mux.HandleFunc("GET /api/elections/{election_id}", s.handleGetElection)
	s.mux.HandleFunc("PUT /api/elections/{election_id}", s.handleUpdateElection)
	s.mux.HandleFunc("DELETE /api/elections/{election_id}", s.handleDeleteElection)
	s.mux.HandleFunc("POST /api/elections/{election_id}/start", s.handleStartElection)
	s.mux.HandleFunc("POST /api/elections/{election_id}/end", s.handleEndElection)
	s.mux.HandleFunc("POST /api/elections/{election_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("GET /api/elections/{election_id}/tally", s.handleTally)
	s.mux.HandleFunc("GET /api/elections/{election_id}/results", s.handleResults)
	s.mux.HandleFunc("GET /api/elections/{election_id}/turnout", s.handleTurnout)
	s.mux.HandleFunc("GET /api/dashboard/stats", s.handleDashboardStats)

	if s.live != nil {
		s.mux.HandleFunc("GET /ws/results", s.live.handleResultsSocket)
	}
}

func (s *Server) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	var req electionhttp.SaveElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", nil)
		return
	}
	resp, err := s.election.Handler.CreateElectionHandler(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleUpdateElection(w http.ResponseWriter, r *http.Request) {
	var req electionhttp.SaveElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", nil)
		return
	}
	resp, err := s.election.Handler.UpdateElectionHandler(r.Context(), r.PathValue("election_id"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListElections(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.ListElectionsHandler(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActiveElection(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.ActiveElectionHandler(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetElection(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.GetElectionHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteElection(w http.ResponseWriter, r *http.Request) {
	if err := s.election.Handler.DeleteElectionHandler(r.Context(), r.PathValue("election_id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStartElection(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.StartElectionHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEndElection(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.EndElectionHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	voterID := strings.TrimSpace(r.Header.Get("X-Voter-Id"))
	if voterID == "" {
		writeError(w, http.StatusUnauthorized, "missing_voter", "X-Voter-Id header is required", nil)
		return
	}

	var req electionhttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", nil)
		return
	}
	resp, err := s.election.Handler.CastVoteHandler(r.Context(), r.PathValue("election_id"), voterID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.TallyHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.ResultsHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTurnout(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.TurnoutHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.election.Handler.DashboardStatsHandler(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeDomainError(w http.ResponseWriter, err error) {
	var validation *domainerrors.ValidationError
	if errors.As(err, &validation) {
		writeError(w, http.StatusUnprocessableEntity, "invalid_election", domainerrors.ErrInvalidElectionInput.Error(), validation.Violations)
		return
	}

	switch {
	case errors.Is(err, domainerrors.ErrElectionNotFound):
		writeError(w, http.StatusNotFound, "election_not_found", err.Error(), nil)
	case errors.Is(err, domainerrors.ErrPositionNotFound):
		writeError(w, http.StatusNotFound, "position_not_found", err.Error(), nil)
	case errors.Is(err, domainerrors.ErrCandidateNotFound):
		writeError(w, http.StatusNotFound, "candidate_not_found", err.Error(), nil)
	case errors.Is(err, domainerrors.ErrNoActiveElection):
		writeError(w, http.StatusNotFound, "no_active_election", err.Error(), nil)
	case errors.Is(err, domainerrors.ErrElectionNotDraft),
		errors.Is(err, domainerrors.ErrElectionNotActive),
		errors.Is(err, domainerrors.ErrElectionCompleted),
		errors.Is(err, domainerrors.ErrElectionActive):
		writeError(w, http.StatusConflict, "invalid_state", err.Error(), nil)
	case errors.Is(err, domainerrors.ErrVoterRequired):
		writeError(w, http.StatusUnauthorized, "missing_voter", err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
	}
}

func writeError(w http.ResponseWriter, status int, code string, message string, violations []string) {
	writeJSON(w, status, electionhttp.ErrorResponse{
		Code:       code,
		Message:    message,
		Violations: violations,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
