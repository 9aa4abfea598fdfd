package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/interview-scheduler/internal/application"
	"github.com/example/interview-scheduler/internal/interview"
)

type interviewService interface {
	AddSlot(ctx context.Context, params application.AddSlotParams) (application.ProposalView, error)
	ProposeSlots(ctx context.Context, params application.ProposeSlotsParams) (application.ProposalView, error)
	RemoveSlot(ctx context.Context, params application.RemoveSlotParams) (application.ProposalView, error)
	GetSlots(ctx context.Context, params application.GetSlotsParams) (application.ProposalView, error)
	CastVote(ctx context.Context, params application.CastVoteParams) (application.ProposalView, error)
	ConfirmSlot(ctx context.Context, params application.ConfirmSlotParams) (application.ProposalView, error)
	CancelInterview(ctx context.Context, params application.CancelInterviewParams) (application.ProposalView, error)
	ListEmployerSlots(ctx context.Context, params application.ListInterviewsParams) ([]application.ProposalView, error)
	ListCandidateSlots(ctx context.Context, params application.ListInterviewsParams) ([]application.ProposalView, error)
	GetAISuggestions(ctx context.Context, params application.SuggestionsParams) ([]interview.Suggestion, error)
}

// InterviewHandler serves the interview scheduling endpoints.
type InterviewHandler struct {
	service   interviewService
	responder responder
	logger    *slog.Logger
}

func NewInterviewHandler(service interviewService, logger *slog.Logger) *InterviewHandler {
	return &InterviewHandler{service: service, responder: newResponder(logger), logger: defaultLogger(logger)}
}

func (h *InterviewHandler) AddSlot(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req addSlotRequest
	if !h.decode(w, r, &req) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	view, err := h.service.AddSlot(r.Context(), application.AddSlotParams{
		Principal:      principal,
		ApplicationID:  chi.URLParam(r, "applicationID"),
		CandidateID:    req.CandidateID,
		JobID:          req.JobID,
		Slot:           req.Slot.toInput(),
		VotingDeadline: req.VotingDeadline,
	})
	h.renderProposal(w, r, "add_slot", view, err)
}

func (h *InterviewHandler) ProposeSlots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req proposeSlotsRequest
	if !h.decode(w, r, &req) {
		return
	}

	slots := make([]interview.SlotInput, 0, len(req.Slots))
	for _, slot := range req.Slots {
		slots = append(slots, slot.toInput())
	}

	principal, _ := PrincipalFromContext(r.Context())
	view, err := h.service.ProposeSlots(r.Context(), application.ProposeSlotsParams{
		Principal:      principal,
		ApplicationID:  chi.URLParam(r, "applicationID"),
		CandidateID:    req.CandidateID,
		JobID:          req.JobID,
		Slots:          slots,
		VotingDeadline: req.VotingDeadline,
		MeetingType:    interview.MeetingType(req.MeetingType),
	})
	h.renderProposal(w, r, "propose_slots", view, err)
}

func (h *InterviewHandler) RemoveSlot(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "slotIndex"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlotIndex)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	view, err := h.service.RemoveSlot(r.Context(), application.RemoveSlotParams{
		Principal:     principal,
		ApplicationID: chi.URLParam(r, "applicationID"),
		SlotIndex:     index,
	})
	h.renderProposal(w, r, "remove_slot", view, err)
}

func (h *InterviewHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	view, err := h.service.GetSlots(r.Context(), application.GetSlotsParams{
		Principal:     principal,
		ApplicationID: chi.URLParam(r, "applicationID"),
	})
	h.renderProposal(w, r, "get_slots", view, err)
}

func (h *InterviewHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req voteRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.SlotIndex == nil {
		h.responder.handleServiceError(r.Context(), w, requiredField("slot_index"))
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	view, err := h.service.CastVote(r.Context(), application.CastVoteParams{
		Principal:     principal,
		ApplicationID: chi.URLParam(r, "applicationID"),
		Vote: interview.VoteInput{
			SlotIndex:    *req.SlotIndex,
			Rank:         req.Rank,
			Availability: interview.Availability(req.Availability),
			Notes:        req.Notes,
		},
	})
	h.renderProposal(w, r, "cast_vote", view, err)
}

func (h *InterviewHandler) ConfirmSlot(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req confirmRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.SlotIndex == nil {
		h.responder.handleServiceError(r.Context(), w, requiredField("slot_index"))
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	view, err := h.service.ConfirmSlot(r.Context(), application.ConfirmSlotParams{
		Principal:     principal,
		ApplicationID: chi.URLParam(r, "applicationID"),
		SlotIndex:     *req.SlotIndex,
	})
	h.renderProposal(w, r, "confirm_slot", view, err)
}

func (h *InterviewHandler) CancelInterview(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	// The body is optional; an empty one cancels with the default reason.
	var req cancelRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	view, err := h.service.CancelInterview(r.Context(), application.CancelInterviewParams{
		Principal:     principal,
		ApplicationID: chi.URLParam(r, "applicationID"),
		Reason:        req.Reason,
	})
	h.renderProposal(w, r, "cancel_interview", view, err)
}

func (h *InterviewHandler) ListEmployerInterviews(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.list(w, r, "employerID", h.service.ListEmployerSlots)
}

func (h *InterviewHandler) ListCandidateInterviews(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.list(w, r, "candidateID", h.service.ListCandidateSlots)
}

func (h *InterviewHandler) list(w http.ResponseWriter, r *http.Request, param string, fetch func(context.Context, application.ListInterviewsParams) ([]application.ProposalView, error)) {
	principal, _ := PrincipalFromContext(r.Context())
	views, err := fetch(r.Context(), application.ListInterviewsParams{
		Principal: principal,
		PartyID:   chi.URLParam(r, param),
		Statuses:  parseStatuses(r.URL.Query()),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listInterviewsResponse{Interviews: toProposalDTOs(views)})
}

func (h *InterviewHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params, err := buildSuggestionsParams(r.URL.Query(), principal, chi.URLParam(r, "employerID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	suggestions, err := h.service.GetAISuggestions(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "suggestions", "employer_id", params.EmployerID, "count", len(suggestions)).
		DebugContext(r.Context(), "suggestions served")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, suggestionsResponse{Suggestions: toSuggestionDTOs(suggestions)})
}

func (h *InterviewHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return false
	}
	return true
}

func (h *InterviewHandler) decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return false
	}
	return true
}

func (h *InterviewHandler) renderProposal(w http.ResponseWriter, r *http.Request, operation string, view application.ProposalView, err error) {
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	handlerLogger(r.Context(), h.logger, operation,
		"application_id", view.Proposal.ApplicationID,
		"status", view.Status,
		"version", view.Proposal.Version,
	).DebugContext(r.Context(), "proposal served")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toProposalDTO(view))
}

func requiredField(field string) error {
	vErr := &application.ValidationError{}
	vErr.Add(field, "is required")
	return vErr
}

// parseStatuses accepts repeated and comma separated status parameters.
func parseStatuses(values url.Values) []interview.Status {
	var statuses []interview.Status
	for _, raw := range values["status"] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				statuses = append(statuses, interview.Status(strings.ToLower(part)))
			}
		}
	}
	return statuses
}

const dateLayout = "2006-01-02"

func buildSuggestionsParams(values url.Values, principal application.Principal, employerID string) (application.SuggestionsParams, error) {
	params := application.SuggestionsParams{
		Principal:  principal,
		EmployerID: employerID,
		Timezone:   strings.TrimSpace(values.Get("timezone")),
	}

	vErr := &application.ValidationError{}
	loc := time.UTC
	if params.Timezone != "" {
		l, err := time.LoadLocation(params.Timezone)
		if err != nil {
			vErr.Add("timezone", "must be a valid IANA timezone")
		} else {
			loc = l
		}
	}

	if raw := strings.TrimSpace(values.Get("start_date")); raw != "" {
		start, _, err := parseDateParam(raw, loc)
		if err != nil {
			vErr.Add("start_date", "must be RFC3339 or YYYY-MM-DD")
		}
		params.StartDate = start
	}
	if raw := strings.TrimSpace(values.Get("end_date")); raw != "" {
		end, dateOnly, err := parseDateParam(raw, loc)
		if err != nil {
			vErr.Add("end_date", "must be RFC3339 or YYYY-MM-DD")
		}
		// A bare end date includes the whole day.
		if dateOnly {
			end = end.AddDate(0, 0, 1)
		}
		params.EndDate = end
	}
	if raw := strings.TrimSpace(values.Get("duration_minutes")); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			vErr.Add("duration_minutes", "must be an integer")
		}
		params.DurationMinutes = minutes
	}

	if vErr.HasErrors() {
		return application.SuggestionsParams{}, vErr
	}
	return params, nil
}

func parseDateParam(raw string, loc *time.Location) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
