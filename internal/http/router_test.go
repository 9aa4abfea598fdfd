package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/example/interview-scheduler/internal/application"
	"github.com/example/interview-scheduler/internal/interview"
	"github.com/example/interview-scheduler/internal/ratelimit"
	"github.com/example/interview-scheduler/internal/telemetry"
)

type serviceStub struct {
	mu          sync.Mutex
	view        application.ProposalView
	views       []application.ProposalView
	suggestions []interview.Suggestion
	err         error

	addParams     application.AddSlotParams
	voteParams    application.CastVoteParams
	cancelParams  application.CancelInterviewParams
	removeParams  application.RemoveSlotParams
	listParams    application.ListInterviewsParams
	suggestParams application.SuggestionsParams
	calls         []string
}

func (s *serviceStub) record(name string) {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.mu.Unlock()
}

func (s *serviceStub) AddSlot(ctx context.Context, params application.AddSlotParams) (application.ProposalView, error) {
	s.record("AddSlot")
	s.addParams = params
	return s.view, s.err
}

func (s *serviceStub) ProposeSlots(ctx context.Context, params application.ProposeSlotsParams) (application.ProposalView, error) {
	s.record("ProposeSlots")
	return s.view, s.err
}

func (s *serviceStub) RemoveSlot(ctx context.Context, params application.RemoveSlotParams) (application.ProposalView, error) {
	s.record("RemoveSlot")
	s.removeParams = params
	return s.view, s.err
}

func (s *serviceStub) GetSlots(ctx context.Context, params application.GetSlotsParams) (application.ProposalView, error) {
	s.record("GetSlots")
	return s.view, s.err
}

func (s *serviceStub) CastVote(ctx context.Context, params application.CastVoteParams) (application.ProposalView, error) {
	s.record("CastVote")
	s.voteParams = params
	return s.view, s.err
}

func (s *serviceStub) ConfirmSlot(ctx context.Context, params application.ConfirmSlotParams) (application.ProposalView, error) {
	s.record("ConfirmSlot")
	return s.view, s.err
}

func (s *serviceStub) CancelInterview(ctx context.Context, params application.CancelInterviewParams) (application.ProposalView, error) {
	s.record("CancelInterview")
	s.cancelParams = params
	return s.view, s.err
}

func (s *serviceStub) ListEmployerSlots(ctx context.Context, params application.ListInterviewsParams) ([]application.ProposalView, error) {
	s.record("ListEmployerSlots")
	s.listParams = params
	return s.views, s.err
}

func (s *serviceStub) ListCandidateSlots(ctx context.Context, params application.ListInterviewsParams) ([]application.ProposalView, error) {
	s.record("ListCandidateSlots")
	s.listParams = params
	return s.views, s.err
}

func (s *serviceStub) GetAISuggestions(ctx context.Context, params application.SuggestionsParams) ([]interview.Suggestion, error) {
	s.record("GetAISuggestions")
	s.suggestParams = params
	return s.suggestions, s.err
}

type routerFixture struct {
	handler  http.Handler
	service  *serviceStub
	verifier *TokenVerifier
}

func newRouterFixture(t *testing.T, limit int) routerFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	verifier := newTestVerifier(t)
	service := &serviceStub{view: sampleView()}
	handler := NewRouter(RouterConfig{
		Interviews: NewInterviewHandler(service, logger),
		Verifier:   verifier,
		Limiter:    ratelimit.NewMemory(func() time.Time { return tokenTime }),
		RateLimit:  RateLimitPolicy{Limit: limit, Window: time.Minute},
		Metrics:    telemetry.New(),
		Logger:     logger,
	})
	return routerFixture{handler: handler, service: service, verifier: verifier}
}

func (f routerFixture) do(t *testing.T, principal *application.Principal, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if principal != nil {
		token, err := f.verifier.Issue(*principal, time.Hour)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

var (
	employerPrincipal  = &application.Principal{UserID: "emp-1", Role: application.RoleEmployer}
	candidatePrincipal = &application.Principal{UserID: "cand-1", Role: application.RoleCandidate}
)

func sampleView() application.ProposalView {
	start := time.Date(2024, time.March, 6, 9, 0, 0, 0, time.UTC)
	deadline := start.Add(-24 * time.Hour)
	p := interview.NewProposal(interview.ProposalRef{ApplicationID: "app-1", EmployerID: "emp-1", CandidateID: "cand-1"}, tokenTime)
	p.Status = interview.StatusVoting
	p.VotingDeadline = &deadline
	p.Slots = []interview.Slot{{Index: 0, StartTime: start, EndTime: start.Add(time.Hour), Timezone: "UTC", MeetingType: interview.MeetingTypeVideo, AIScore: 80}}
	p.NextSlotIndex = 1
	p.Version = 2
	return application.ProposalView{
		Proposal: p,
		Status:   interview.StatusVoting,
		Tally:    []interview.SlotScore{{SlotIndex: 0, Confidence: 0.16, StartTime: start, AIScore: 80}},
	}
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestRouter_RequiresBearerToken(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, 0)
	rec := f.do(t, nil, http.MethodGet, "/api/v1/applications/app-1/slots", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/applications/app-1/slots", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", rec.Code)
	}
	if len(f.service.calls) != 0 {
		t.Fatalf("expected service not to be called, got %v", f.service.calls)
	}
}

func TestRouter_GetSlotsRendersProposal(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, 0)
	rec := f.do(t, candidatePrincipal, http.MethodGet, "/api/v1/applications/app-1/slots", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body proposalDTO
	decodeJSON(t, rec, &body)
	if body.ApplicationID != "app-1" || body.Status != "voting" || body.Version != 2 {
		t.Fatalf("unexpected proposal %+v", body)
	}
	if len(body.Slots) != 1 || body.Slots[0].MeetingType != "video" || len(body.Tally) != 1 {
		t.Fatalf("unexpected slots or tally %+v", body)
	}
}

func TestRouter_AddSlotPassesPathAndBody(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, 0)
	body := `{"candidate_id":"cand-1","slot":{"start_time":"2024-03-06T09:00:00Z","end_time":"2024-03-06T10:00:00Z","timezone":"UTC","meeting_type":"video","ai_score":70},"voting_deadline":"2024-03-05T09:00:00Z"}`
	rec := f.do(t, employerPrincipal, http.MethodPost, "/api/v1/applications/app-9/slots", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	params := f.service.addParams
	if params.ApplicationID != "app-9" || params.CandidateID != "cand-1" || params.Principal.UserID != "emp-1" {
		t.Fatalf("unexpected params %+v", params)
	}
	if params.Slot.AIScore == nil || *params.Slot.AIScore != 70 || params.Slot.MeetingType != interview.MeetingTypeVideo {
		t.Fatalf("unexpected slot input %+v", params.Slot)
	}
	if params.VotingDeadline == nil || !params.VotingDeadline.Equal(time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected deadline %v", params.VotingDeadline)
	}
}

func TestRouter_RejectsMalformedBodies(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, 0)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{name: "invalid json", method: http.MethodPost, path: "/api/v1/applications/app-1/votes", body: `{`, status: http.StatusBadRequest},
		{name: "unknown field", method: http.MethodPost, path: "/api/v1/applications/app-1/votes", body: `{"slot":1}`, status: http.StatusBadRequest},
		{name: "missing slot index", method: http.MethodPost, path: "/api/v1/applications/app-1/votes", body: `{"rank":1,"availability":"available"}`, status: http.StatusUnprocessableEntity},
		{name: "missing confirmation index", method: http.MethodPost, path: "/api/v1/applications/app-1/confirmation", body: `{}`, status: http.StatusUnprocessableEntity},
		{name: "non numeric slot index", method: http.MethodDelete, path: "/api/v1/applications/app-1/slots/first", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := f.do(t, candidatePrincipal, tt.method, tt.path, tt.body)
		if rec.Code != tt.status {
			t.Fatalf("%s: expected %d, got %d: %s", tt.name, tt.status, rec.Code, rec.Body.String())
		}
	}
	if len(f.service.calls) != 0 {
		t.Fatalf("expected service not to be called, got %v", f.service.calls)
	}
}

func TestRouter_CastVoteAndRemoveSlot(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, 0)
	rec := f.do(t, candidatePrincipal, http.MethodPost, "/api/v1/applications/app-1/votes", `{"slot_index":0,"rank":1,"availability":"maybe","notes":"tight"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	vote := f.service.voteParams.Vote
	if vote.SlotIndex != 0 || vote.Rank != 1 || vote.Availability != interview.AvailabilityMaybe || vote.Notes != "tight" {
		t.Fatalf("unexpected vote %+v", vote)
	}

	rec = f.do(t, employerPrincipal, http.MethodDelete, "/api/v1/applications/app-1/slots/3", "")
	if rec.Code != http.StatusOK || f.service.removeParams.SlotIndex != 3 {
		t.Fatalf("expected slot 3 removal, got %d %+v", rec.Code, f.service.removeParams)
	}
}

func TestRouter_CancelWithoutBody(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, 0)
	rec := f.do(t, candidatePrincipal, http.MethodPost, "/api/v1/applications/app-1/cancellation", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.service.cancelParams.Reason != "" || f.service.cancelParams.ApplicationID != "app-1" {
		t.Fatalf("unexpected cancel params %+v", f.service.cancelParams)
	}
}

func TestRouter_MapsServiceErrors(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, 0)
	f.service.err = fmt.Errorf("%w: 4h0m0s notice required", interview.ErrCancellationWindowClosed)
	rec := f.do(t, employerPrincipal, http.MethodPost, "/api/v1/applications/app-1/cancellation", `{"reason":"conflict"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var body errorResponse
	decodeJSON(t, rec, &body)
	if body.ErrorCode != "CANCELLATION_WINDOW_CLOSED" || !strings.Contains(body.Message, "4h0m0s notice required") {
		t.Fatalf("unexpected error body %+v", body)
	}

	f.service.err = application.ErrUnauthorized
	rec = f.do(t, candidatePrincipal, http.MethodGet, "/api/v1/applications/app-1/slots", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRouter_ListParsesStatuses(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, 0)
	f.service.views = []application.ProposalView{sampleView()}
	rec := f.do(t, employerPrincipal, http.MethodGet, "/api/v1/employers/emp-1/interviews?status=voting,Confirmed&status=expired", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body listInterviewsResponse
	decodeJSON(t, rec, &body)
	if len(body.Interviews) != 1 {
		t.Fatalf("expected 1 interview, got %d", len(body.Interviews))
	}
	got := f.service.listParams
	want := []interview.Status{interview.StatusVoting, interview.StatusConfirmed, interview.StatusExpired}
	if got.PartyID != "emp-1" || len(got.Statuses) != len(want) {
		t.Fatalf("unexpected list params %+v", got)
	}
	for i := range want {
		if got.Statuses[i] != want[i] {
			t.Fatalf("expected statuses %v, got %v", want, got.Statuses)
		}
	}

	rec = f.do(t, candidatePrincipal, http.MethodGet, "/api/v1/candidates/cand-1/interviews", "")
	if rec.Code != http.StatusOK || f.service.listParams.PartyID != "cand-1" || f.service.listParams.Statuses != nil {
		t.Fatalf("unexpected candidate listing %d %+v", rec.Code, f.service.listParams)
	}
}

func TestRouter_SuggestionsQuery(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, 0)
	f.service.suggestions = []interview.Suggestion{{StartTime: tokenTime, EndTime: tokenTime.Add(time.Hour), Score: 90, Reason: "mid-morning focus time"}}
	rec := f.do(t, employerPrincipal, http.MethodGet, "/api/v1/employers/emp-1/suggestions?start_date=2024-03-04&end_date=2024-03-08&duration_minutes=45&timezone=Asia/Tokyo", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body suggestionsResponse
	decodeJSON(t, rec, &body)
	if len(body.Suggestions) != 1 || body.Suggestions[0].Score != 90 {
		t.Fatalf("unexpected suggestions %+v", body)
	}

	params := f.service.suggestParams
	tokyo, _ := time.LoadLocation("Asia/Tokyo")
	if !params.StartDate.Equal(time.Date(2024, time.March, 4, 0, 0, 0, 0, tokyo)) {
		t.Fatalf("unexpected start %v", params.StartDate)
	}
	if !params.EndDate.Equal(time.Date(2024, time.March, 9, 0, 0, 0, 0, tokyo)) {
		t.Fatalf("expected inclusive end date, got %v", params.EndDate)
	}
	if params.DurationMinutes != 45 || params.EmployerID != "emp-1" || params.Timezone != "Asia/Tokyo" {
		t.Fatalf("unexpected params %+v", params)
	}
}

func TestBuildSuggestionsParams_Invalid(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, 0)
	rec := f.do(t, employerPrincipal, http.MethodGet, "/api/v1/employers/emp-1/suggestions?start_date=monday&duration_minutes=long&timezone=Nowhere/Land", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var body errorResponse
	decodeJSON(t, rec, &body)
	for _, field := range []string{"start_date", "duration_minutes", "timezone"} {
		if _, ok := body.Errors[field]; !ok {
			t.Fatalf("expected error for %s, got %v", field, body.Errors)
		}
	}
}

func TestRouter_RateLimitsMutations(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t, 2)
	path := "/api/v1/applications/app-1/confirmation"
	for i := 0; i < 2; i++ {
		if rec := f.do(t, employerPrincipal, http.MethodPost, path, `{"slot_index":0}`); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec := f.do(t, employerPrincipal, http.MethodPost, path, `{"slot_index":0}`)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected 429 with Retry-After, got %d %q", rec.Code, rec.Header().Get("Retry-After"))
	}

	if rec := f.do(t, candidatePrincipal, http.MethodPost, path, `{"slot_index":0}`); rec.Code != http.StatusOK {
		t.Fatalf("expected other principal to have its own budget, got %d", rec.Code)
	}
	if rec := f.do(t, employerPrincipal, http.MethodGet, "/api/v1/applications/app-1/slots", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected reads not to be limited, got %d", rec.Code)
	}

	metrics := f.do(t, nil, http.MethodGet, "/metrics", "")
	if !strings.Contains(metrics.Body.String(), `interview_scheduler_rate_limited_total{route="/api/v1/applications/{applicationID}/confirmation"} 1`) {
		t.Fatalf("expected rate limit metric, got:\n%s", metrics.Body.String())
	}
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()

	healthy := NewRouter(RouterConfig{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	rec := httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	failing := NewRouter(RouterConfig{
		Health: func(context.Context) error { return errors.New("database unreachable") },
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
