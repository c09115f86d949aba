package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	distributionhttp "topicdesk/contexts/seminar-coordination/topic-distribution/transport/http"
)

func (s *Server) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	var req distributionhttp.CreateSubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDistributionError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeDistributionError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	resp, err := s.distribution.Handler.CreateSubjectHandler(r.Context(), req)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleLoadTopics(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	subject := r.PathValue("subject")
	var req distributionhttp.LoadTopicsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDistributionError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}

	resp, err := s.distribution.Handler.LoadTopicsHandler(r.Context(), subject, req)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetStartTime(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	subject := r.PathValue("subject")
	var req distributionhttp.SetStartTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDistributionError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}

	resp, err := s.distribution.Handler.SetStartTimeHandler(r.Context(), subject, req)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClaimTopic(w http.ResponseWriter, r *http.Request) {
	claimantID, ok := requireClaimant(w, r)
	if !ok {
		return
	}

	var req distributionhttp.ClaimTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDistributionError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}
	if req.TopicNumber <= 0 && req.DisambiguationToken == "" {
		writeDistributionError(w, http.StatusBadRequest, "invalid_request", "topic_number must be positive")
		return
	}

	resp, err := s.distribution.Handler.ClaimTopicHandler(r.Context(), claimantID, req)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	if resp.Ambiguous {
		// The claim is parked until the caller re-submits with the token.
		writeJSON(w, http.StatusConflict, resp)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCancelClaim(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	subject := r.PathValue("subject")
	number, ok := parseTopicNumber(w, r)
	if !ok {
		return
	}

	resp, err := s.distribution.Handler.CancelClaimHandler(r.Context(), subject, number)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRemoveClaim(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	subject := r.PathValue("subject")
	number, ok := parseTopicNumber(w, r)
	if !ok {
		return
	}

	resp, err := s.distribution.Handler.RemoveClaimHandler(r.Context(), subject, number)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	resp, err := s.distribution.Handler.ListSubjectsHandler(r.Context())
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubjectSnapshot(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")
	resp, err := s.distribution.Handler.SnapshotHandler(r.Context(), subject)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubjectResults(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")
	resp, err := s.distribution.Handler.ResultsHandler(r.Context(), subject)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseTopicNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("number")
	number, err := strconv.Atoi(raw)
	if err != nil || number <= 0 {
		writeDistributionError(w, http.StatusBadRequest, "invalid_request", "topic number must be a positive integer")
		return 0, false
	}
	return number, true
}
