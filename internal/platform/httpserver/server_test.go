package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	electionengine "ballotbox/contexts/election-operations/election-engine"
	electionhttp "ballotbox/contexts/election-operations/election-engine/transport/http"
)

func newTestServer() *Server {
	module := electionengine.NewInMemoryModule(nil, nil)
	return New(module, nil, ":0", Options{})
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

const councilBody = `{
	"title": "Student Council 2026",
	"positions": [
		{"title": "President", "candidates": [{"name": "Alice"}, {"name": "Ben"}]}
	]
}`

func TestElectionRoutes(t *testing.T) {
	server := newTestServer()
	handler := server.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/elections", councilBody, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created electionhttp.ElectionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created election: %v", err)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/elections/active", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before start, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/elections/"+created.ElectionID+"/start", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on start, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/elections/active", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for active election, got %d", rec.Code)
	}

	position := created.Positions[0]
	voteBody := `{"position_id": "` + position.PositionID + `", "candidate_id": "` + position.Candidates[0].CandidateID + `"}`

	rec = doJSON(t, handler, http.MethodPost, "/api/elections/"+created.ElectionID+"/votes", voteBody, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without voter header, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/elections/"+created.ElectionID+"/votes", voteBody, map[string]string{"X-Voter-Id": "voter-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 casting vote, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/elections/"+created.ElectionID+"/results", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for results, got %d", rec.Code)
	}
	var results electionhttp.ResultsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if results.Positions[0].TotalVotes != 1 {
		t.Fatalf("expected 1 vote in results, got %d", results.Positions[0].TotalVotes)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/elections/"+created.ElectionID, "", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 deleting active election, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/elections/"+created.ElectionID+"/end", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on end, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/elections/"+created.ElectionID, "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on delete, got %d", rec.Code)
	}
}

func TestValidationErrorsCarryViolations(t *testing.T) {
	server := newTestServer()

	rec := doJSON(t, server.Handler(), http.MethodPost, "/api/elections", `{"title": "", "positions": []}`, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var errResp electionhttp.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != "invalid_election" || len(errResp.Violations) != 2 {
		t.Fatalf("unexpected error payload: %+v", errResp)
	}
}

func TestUnknownElectionReturnsNotFound(t *testing.T) {
	server := newTestServer()

	rec := doJSON(t, server.Handler(), http.MethodGet, "/api/elections/no-such-id", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, server.Handler(), http.MethodPost, "/api/elections/no-such-id/start", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 starting unknown election, got %d", rec.Code)
	}
}

func TestBadJSONRejected(t *testing.T) {
	server := newTestServer()

	rec := doJSON(t, server.Handler(), http.MethodPost, "/api/elections", "{not json", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
