// Package http exposes the interview scheduling API over chi.
//
// Every route under /api/v1 requires an HS256 bearer token whose `uid` and
// `role` (employer or candidate) claims become the application.Principal:
//   - GET /api/v1/applications/{applicationID}/slots: proposal with derived
//     status and the current tally.
//   - POST /api/v1/applications/{applicationID}/slots: append one slot. Body:
//     {"slot":{...},"voting_deadline","candidate_id","job_id"}.
//   - PUT /api/v1/applications/{applicationID}/slots: replace the slots of a
//     draft and open voting. Body: {"slots":[...],"voting_deadline","meeting_type"}.
//   - DELETE /api/v1/applications/{applicationID}/slots/{slotIndex}: drop a
//     draft slot.
//   - POST /api/v1/applications/{applicationID}/votes: candidate vote. Body:
//     {"slot_index","rank","availability","notes"}.
//   - POST /api/v1/applications/{applicationID}/confirmation: {"slot_index"}.
//   - POST /api/v1/applications/{applicationID}/cancellation: {"reason"}.
//   - GET /api/v1/employers/{employerID}/interviews and
//     GET /api/v1/candidates/{candidateID}/interviews: `status` may repeat or
//     be comma separated.
//   - GET /api/v1/employers/{employerID}/suggestions: `start_date`, `end_date`
//     (RFC3339 or YYYY-MM-DD), `duration_minutes`, optional `timezone`.
//
// GET /healthz and GET /metrics are unauthenticated. Errors are JSON bodies
// of the form {"error_code","message","errors"}.
package http
