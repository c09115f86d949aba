package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	topicdistribution "topicdesk/contexts/seminar-coordination/topic-distribution"
	distributionhttp "topicdesk/contexts/seminar-coordination/topic-distribution/transport/http"
	"topicdesk/internal/platform/bus"
)

const testAdminToken = "test-admin-token"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	module := topicdistribution.NewInMemoryModule(bus.New(0), nil)
	return New(module, nil, ":0", testAdminToken)
}

func doJSON(t *testing.T, server *Server, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)
	return recorder
}

func adminHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testAdminToken}
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) distributionhttp.ErrorResponse {
	t.Helper()
	var resp distributionhttp.ErrorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v (%s)", err, recorder.Body.String())
	}
	return resp
}

func seedOpenSubject(t *testing.T, server *Server, name string) {
	t.Helper()
	if rec := doJSON(t, server, http.MethodPost, "/v1/subjects", distributionhttp.CreateSubjectRequest{Name: name}, adminHeaders()); rec.Code != http.StatusCreated {
		t.Fatalf("create subject: status %d body %s", rec.Code, rec.Body.String())
	}
	rec := doJSON(t, server, http.MethodPut, "/v1/subjects/"+name+"/topics", distributionhttp.LoadTopicsRequest{
		TopicList: "1. B-trees\n2. Hash joins",
	}, adminHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("load topics: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestAdminRoutesRequireBearerToken(t *testing.T) {
	server := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/v1/subjects", distributionhttp.CreateSubjectRequest{Name: "databases"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec = doJSON(t, server, http.MethodPost, "/v1/subjects", distributionhttp.CreateSubjectRequest{Name: "databases"}, map[string]string{
		"Authorization": "Bearer wrong-token",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", rec.Code)
	}
}

func TestClaimFlowOverHTTP(t *testing.T) {
	server := newTestServer(t)
	seedOpenSubject(t, server, "databases")

	userHeaders := map[string]string{"X-User-Id": "u1"}
	rec := doJSON(t, server, http.MethodPost, "/v1/claims", distributionhttp.ClaimTopicRequest{
		Subject: "databases", TopicNumber: 1, DisplayName: "User One",
	}, userHeaders)
	if rec.Code != http.StatusCreated {
		t.Fatalf("claim: status %d body %s", rec.Code, rec.Body.String())
	}
	var claim distributionhttp.ClaimTopicResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &claim); err != nil {
		t.Fatalf("decode claim: %v", err)
	}
	if claim.TopicTitle != "B-trees" || claim.ClaimantID != "u1" {
		t.Fatalf("unexpected claim response: %+v", claim)
	}

	// Second claimant loses the race for the same topic.
	rec = doJSON(t, server, http.MethodPost, "/v1/claims", distributionhttp.ClaimTopicRequest{
		Subject: "databases", TopicNumber: 1, DisplayName: "User Two",
	}, map[string]string{"X-User-Id": "u2"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for taken topic, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "topic_already_claimed" {
		t.Fatalf("expected topic_already_claimed, got %q", resp.Code)
	}

	// Snapshot shows the registration.
	rec = doJSON(t, server, http.MethodGet, "/v1/subjects/databases", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot: status %d", rec.Code)
	}
	var snapshot distributionhttp.SnapshotResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if !snapshot.Open || len(snapshot.Topics) != 2 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	if !snapshot.Topics[0].Claimed || snapshot.Topics[0].DisplayName != "User One" {
		t.Fatalf("expected topic 1 claimed by User One, got %+v", snapshot.Topics[0])
	}
	if snapshot.Topics[1].Claimed {
		t.Fatalf("topic 2 should be free, got %+v", snapshot.Topics[1])
	}
}

func TestClaimRequiresUserHeader(t *testing.T) {
	server := newTestServer(t)
	seedOpenSubject(t, server, "databases")

	rec := doJSON(t, server, http.MethodPost, "/v1/claims", distributionhttp.ClaimTopicRequest{
		Subject: "databases", TopicNumber: 1, DisplayName: "User One",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without X-User-Id, got %d", rec.Code)
	}
}

func TestClaimBeforeStartReportsCountdown(t *testing.T) {
	server := newTestServer(t)
	seedOpenSubject(t, server, "databases")

	rec := doJSON(t, server, http.MethodPut, "/v1/subjects/databases/start-time", distributionhttp.SetStartTimeRequest{
		Date: "24.12.2099", Time: "18:00",
	}, adminHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("set start time: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, server, http.MethodPost, "/v1/claims", distributionhttp.ClaimTopicRequest{
		Subject: "databases", TopicNumber: 1, DisplayName: "User One",
	}, map[string]string{"X-User-Id": "u1"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 before start, got %d", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Code != "distribution_not_open" {
		t.Fatalf("expected distribution_not_open, got %q", resp.Code)
	}
	if resp.OpensIn == "" {
		t.Fatal("expected opens_in countdown on the rejection")
	}
}

func TestCancelAndAdminRemove(t *testing.T) {
	server := newTestServer(t)
	seedOpenSubject(t, server, "databases")

	claim := func(user string, number int) *httptest.ResponseRecorder {
		return doJSON(t, server, http.MethodPost, "/v1/claims", distributionhttp.ClaimTopicRequest{
			Subject: "databases", TopicNumber: number, DisplayName: user,
		}, map[string]string{"X-User-Id": user})
	}
	if rec := claim("u1", 1); rec.Code != http.StatusCreated {
		t.Fatalf("claim: status %d", rec.Code)
	}

	// Both removal flows are admin-only: a user cannot un-claim.
	rec := doJSON(t, server, http.MethodDelete, "/v1/subjects/databases/topics/1/claim", nil, map[string]string{"X-User-Id": "u1"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-admin cancel, got %d", rec.Code)
	}

	rec = doJSON(t, server, http.MethodDelete, "/v1/subjects/databases/topics/1/claim", nil, adminHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("admin cancel: status %d body %s", rec.Code, rec.Body.String())
	}

	// Admin removal frees a topic regardless of holder.
	if rec := claim("u2", 2); rec.Code != http.StatusCreated {
		t.Fatalf("claim: status %d", rec.Code)
	}
	rec = doJSON(t, server, http.MethodDelete, "/v1/subjects/databases/topics/2/registration", nil, adminHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("admin remove: status %d body %s", rec.Code, rec.Body.String())
	}
	if rec := claim("u3", 2); rec.Code != http.StatusCreated {
		t.Fatalf("re-claim after removal: status %d", rec.Code)
	}
}

func TestListSubjectsAndResults(t *testing.T) {
	server := newTestServer(t)
	seedOpenSubject(t, server, "databases")
	seedOpenSubject(t, server, "networks")

	rec := doJSON(t, server, http.MethodPost, "/v1/claims", distributionhttp.ClaimTopicRequest{
		Subject: "databases", TopicNumber: 2, DisplayName: "User One",
	}, map[string]string{"X-User-Id": "u1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("claim: status %d", rec.Code)
	}

	rec = doJSON(t, server, http.MethodGet, "/v1/subjects", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var list distributionhttp.ListSubjectsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 2 || list.Items[0].Name != "databases" || list.Items[1].Name != "networks" {
		t.Fatalf("expected creation order, got %+v", list.Items)
	}
	if list.Items[0].RegistrationCount != 1 {
		t.Fatalf("expected one registration on databases, got %d", list.Items[0].RegistrationCount)
	}

	rec = doJSON(t, server, http.MethodGet, "/v1/subjects/databases/results", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("results: status %d", rec.Code)
	}
	var results distributionhttp.ResultsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results.Items) != 1 || results.Items[0].TopicTitle != "Hash joins" {
		t.Fatalf("unexpected results: %+v", results.Items)
	}

	rec = doJSON(t, server, http.MethodGet, "/v1/subjects/missing", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown subject, got %d", rec.Code)
	}
}
