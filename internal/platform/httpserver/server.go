package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	topicdistribution "topicdesk/contexts/seminar-coordination/topic-distribution"
	"topicdesk/contexts/seminar-coordination/topic-distribution/domain/entities"
	distributionerrors "topicdesk/contexts/seminar-coordination/topic-distribution/domain/errors"
	distributionhttp "topicdesk/contexts/seminar-coordination/topic-distribution/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "topicdesk/internal/platform/httpserver/docs"
)

type Server struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	addr         string
	adminToken   string
	distribution topicdistribution.Module
}

func New(
	distribution topicdistribution.Module,
	logger *slog.Logger,
	addr string,
	adminToken string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:          http.NewServeMux(),
		logger:       logger,
		addr:         addr,
		adminToken:   adminToken,
		distribution: distribution,
	}
	s.registerRoutes()
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

// Handler exposes the routed mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /v1/subjects", s.handleListSubjects)
	s.mux.HandleFunc("POST /v1/subjects", s.handleCreateSubject)
	s.mux.HandleFunc("GET /v1/subjects/{subject}", s.handleSubjectSnapshot)
	s.mux.HandleFunc("PUT /v1/subjects/{subject}/topics", s.handleLoadTopics)
	s.mux.HandleFunc("PUT /v1/subjects/{subject}/start-time", s.handleSetStartTime)
	s.mux.HandleFunc("GET /v1/subjects/{subject}/results", s.handleSubjectResults)
	s.mux.HandleFunc("POST /v1/claims", s.handleClaimTopic)
	s.mux.HandleFunc("DELETE /v1/subjects/{subject}/topics/{number}/claim", s.handleCancelClaim)
	s.mux.HandleFunc("DELETE /v1/subjects/{subject}/topics/{number}/registration", s.handleRemoveClaim)
}

func writeDistributionError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, distributionhttp.ErrorResponse{Code: code, Message: message})
}

func writeDistributionDomainError(w http.ResponseWriter, err error) {
	var notOpen *distributionerrors.NotOpenError
	if errors.As(err, &notOpen) {
		writeJSON(w, http.StatusConflict, distributionhttp.ErrorResponse{
			Code:    "distribution_not_open",
			Message: err.Error(),
			OpensIn: entities.FormatCountdown(notOpen.Remaining),
		})
		return
	}

	switch {
	case errors.Is(err, distributionerrors.ErrUnknownSubject),
		errors.Is(err, distributionerrors.ErrUnknownTopic),
		errors.Is(err, distributionerrors.ErrNotRegistered),
		errors.Is(err, distributionerrors.ErrUnknownPendingClaim):
		writeDistributionError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, distributionerrors.ErrDuplicateSubject):
		writeDistributionError(w, http.StatusConflict, "duplicate_subject", err.Error())
	case errors.Is(err, distributionerrors.ErrTopicAlreadyClaimed):
		writeDistributionError(w, http.StatusConflict, "topic_already_claimed", err.Error())
	case errors.Is(err, distributionerrors.ErrTopicSetFinalized):
		writeDistributionError(w, http.StatusConflict, "topic_set_finalized", err.Error())
	case errors.Is(err, distributionerrors.ErrDistributionNotOpen):
		writeDistributionError(w, http.StatusConflict, "distribution_not_open", err.Error())
	case errors.Is(err, distributionerrors.ErrNoOpenDistribution):
		writeDistributionError(w, http.StatusConflict, "no_open_distribution", err.Error())
	case errors.Is(err, distributionerrors.ErrAmbiguousSubject):
		writeDistributionError(w, http.StatusConflict, "ambiguous_subject", err.Error())
	case errors.Is(err, distributionerrors.ErrEmptyTopicSet),
		errors.Is(err, distributionerrors.ErrMalformedInput),
		errors.Is(err, distributionerrors.ErrPastTimestamp):
		writeDistributionError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeDistributionError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if s.adminToken == "" {
		writeDistributionError(w, http.StatusForbidden, "admin_disabled", "admin routes are disabled: no admin token configured")
		return false
	}
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != s.adminToken {
		writeDistributionError(w, http.StatusUnauthorized, "unauthorized", "admin bearer token is required")
		return false
	}
	return true
}

func requireClaimant(w http.ResponseWriter, r *http.Request) (string, bool) {
	claimantID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if claimantID == "" {
		writeDistributionError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return claimantID, true
}
