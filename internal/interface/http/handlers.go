package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/academy-hub/academy-platform/internal/application/command"
	"github.com/academy-hub/academy-platform/internal/application/query"
	"github.com/academy-hub/academy-platform/internal/application/saga"
	"github.com/academy-hub/academy-platform/internal/domain/assessment"
	"github.com/academy-hub/academy-platform/internal/domain/credential"
	"github.com/academy-hub/academy-platform/internal/domain/exam"
	"github.com/academy-hub/academy-platform/internal/domain/preregistration"
	"github.com/academy-hub/academy-platform/internal/domain/shared"
	"github.com/academy-hub/academy-platform/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HANDLERS
// Thin translation layer: decode request, dispatch to the application
// layer, encode result. No business rules live here.
// ══════════════════════════════════════════════════════════════════════════════

// Handlers bundles the HTTP handlers with their application dependencies.
type Handlers struct {
	createPrereg     *command.CreatePreregistrationHandler
	recordScores     *command.RecordScoresHandler
	generateForm     *command.GenerateExamFormHandler
	submitExam       *command.SubmitExamHandler
	setGroups        *command.SetGroupsHandler
	finalization     *saga.FinalizationSaga
	assessmentDetail *query.GetAssessmentDetailHandler
	history          *query.ListHistoryHandler
	groupCounts      *query.GroupCountsHandler
	preregs          preregistration.Repository
	log              *logger.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(
	createPrereg *command.CreatePreregistrationHandler,
	recordScores *command.RecordScoresHandler,
	generateForm *command.GenerateExamFormHandler,
	submitExam *command.SubmitExamHandler,
	setGroups *command.SetGroupsHandler,
	finalization *saga.FinalizationSaga,
	assessmentDetail *query.GetAssessmentDetailHandler,
	history *query.ListHistoryHandler,
	groupCounts *query.GroupCountsHandler,
	preregs preregistration.Repository,
	log *logger.Logger,
) *Handlers {
	return &Handlers{
		createPrereg:     createPrereg,
		recordScores:     recordScores,
		generateForm:     generateForm,
		submitExam:       submitExam,
		setGroups:        setGroups,
		finalization:     finalization,
		assessmentDetail: assessmentDetail,
		history:          history,
		groupCounts:      groupCounts,
		preregs:          preregs,
		log:              log,
	}
}

// Health responds to liveness probes.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ──────────────────────────────────────────────────────────────────────────────
// Pre-registration
// ──────────────────────────────────────────────────────────────────────────────

type createPreregistrationRequest struct {
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Contact       string `json:"contact"`
	SpecialtyArea string `json:"specialty_area"`
	Education     string `json:"education"`
}

type preregistrationResponse struct {
	ID            string    `json:"id"`
	GivenName     string    `json:"given_name"`
	FamilyName    string    `json:"family_name"`
	Contact       string    `json:"contact"`
	SpecialtyArea string    `json:"specialty_area,omitempty"`
	Education     string    `json:"education,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toPreregistrationResponse(p *preregistration.PreRegistration) preregistrationResponse {
	return preregistrationResponse{
		ID:            p.ID.String(),
		GivenName:     p.Identity.GivenName,
		FamilyName:    p.Identity.FamilyName,
		Contact:       p.Identity.Contact.String(),
		SpecialtyArea: p.Identity.SpecialtyArea,
		Education:     p.Identity.Education,
		Status:        p.Status.String(),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// CreatePreregistration handles POST /api/v1/preregistrations.
func (h *Handlers) CreatePreregistration(w http.ResponseWriter, r *http.Request) {
	var req createPreregistrationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.createPrereg.Handle(r.Context(), command.CreatePreregistrationCommand{
		GivenName:     req.GivenName,
		FamilyName:    req.FamilyName,
		Contact:       req.Contact,
		SpecialtyArea: req.SpecialtyArea,
		Education:     req.Education,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPreregistrationResponse(result.Preregistration))
}

// ListPreregistrations handles GET /api/v1/preregistrations.
func (h *Handlers) ListPreregistrations(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	records, err := h.preregs.List(r.Context(), shared.NewPagination(page, pageSize))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]preregistrationResponse, 0, len(records))
	for _, p := range records {
		items = append(items, toPreregistrationResponse(p))
	}
	writeJSON(w, http.StatusOK, items)
}

type transitionStatusRequest struct {
	Status string `json:"status"`
}

// TransitionStatus handles POST /api/v1/preregistrations/{id}/status.
// The admin path for explicit status moves, including rejection.
func (h *Handlers) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	var req transitionStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := shared.NewPreregistrationID(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	next, err := preregistration.ParseStatus(req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	prereg, err := h.preregs.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := prereg.TransitionTo(next, time.Now().UTC()); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.preregs.UpdateStatus(r.Context(), id, prereg.Status); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPreregistrationResponse(prereg))
}

// ──────────────────────────────────────────────────────────────────────────────
// Scores and exams
// ──────────────────────────────────────────────────────────────────────────────

type recordScoresRequest struct {
	WAIS        int  `json:"wais_total"`
	Academic    int  `json:"academic_total"`
	Values      int  `json:"values_total"`
	Math        *int `json:"math_total,omitempty"`
	Personality *int `json:"personality_total,omitempty"`
}

type totalsResponse struct {
	WAIS        int       `json:"wais_total"`
	Academic    int       `json:"academic_total"`
	Values      int       `json:"values_total"`
	Math        *int      `json:"math_total,omitempty"`
	Personality *int      `json:"personality_total,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toTotalsResponse(t *assessment.Totals) *totalsResponse {
	if t == nil {
		return nil
	}
	return &totalsResponse{
		WAIS:        t.WAIS,
		Academic:    t.Academic,
		Values:      t.Values,
		Math:        t.Math,
		Personality: t.Personality,
		UpdatedAt:   t.UpdatedAt,
	}
}

// RecordScores handles POST /api/v1/preregistrations/{id}/scores.
func (h *Handlers) RecordScores(w http.ResponseWriter, r *http.Request) {
	var req recordScoresRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.recordScores.Handle(r.Context(), command.RecordScoresCommand{
		PreregistrationID: r.PathValue("id"),
		WAIS:              req.WAIS,
		Academic:          req.Academic,
		Values:            req.Values,
		Math:              req.Math,
		Personality:       req.Personality,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"totals":  toTotalsResponse(result.Totals),
		"version": result.Version,
	})
}

// GenerateExamForm handles POST /api/v1/preregistrations/{id}/exams/{type}/form.
func (h *Handlers) GenerateExamForm(w http.ResponseWriter, r *http.Request) {
	result, err := h.generateForm.Handle(r.Context(), command.GenerateExamFormCommand{
		PreregistrationID: r.PathValue("id"),
		ExamType:          r.PathValue("type"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result.Form)
}

type submitExamRequest struct {
	Answers []exam.AnswerEntry `json:"answers"`
}

// SubmitExam handles POST /api/v1/preregistrations/{id}/exams/{type}/submission.
func (h *Handlers) SubmitExam(w http.ResponseWriter, r *http.Request) {
	var req submitExamRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.submitExam.Handle(r.Context(), command.SubmitExamCommand{
		PreregistrationID: r.PathValue("id"),
		ExamType:          r.PathValue("type"),
		Entries:           req.Answers,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"exam_type": result.ExamType.String(),
		"total":     result.Result.Total,
		"subscales": result.Result.Subscales,
		"totals":    toTotalsResponse(result.Totals),
		"version":   result.Version,
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Finalization
// ──────────────────────────────────────────────────────────────────────────────

type finalizeResponse struct {
	Approved         bool                   `json:"approved"`
	AlreadyCompleted bool                   `json:"already_completed"`
	Unscored         bool                   `json:"unscored"`
	FailedChecks     []string               `json:"failed_checks,omitempty"`
	Totals           *totalsResponse        `json:"totals,omitempty"`
	Credentials      *credential.IssuedPair `json:"credentials,omitempty"`
	FinalizedAt      time.Time              `json:"finalized_at"`
}

// Finalize handles POST /api/v1/preregistrations/{id}/finalize. A
// not-approved outcome is still HTTP 200: the response body carries the
// failed checks so the caller can explain the gap to the applicant.
func (h *Handlers) Finalize(w http.ResponseWriter, r *http.Request) {
	result, err := h.finalization.Execute(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, finalizeResponse{
		Approved:         result.Approved,
		AlreadyCompleted: result.AlreadyCompleted,
		Unscored:         result.Decision.Unscored,
		FailedChecks:     result.Decision.FailedChecks,
		Totals:           toTotalsResponse(result.Totals),
		Credentials:      result.Credentials,
		FinalizedAt:      result.FinalizedAt,
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Groups
// ──────────────────────────────────────────────────────────────────────────────

type setGroupsRequest struct {
	Groups []string `json:"groups"`
}

// SetGroups handles PUT /api/v1/preregistrations/{id}/groups.
func (h *Handlers) SetGroups(w http.ResponseWriter, r *http.Request) {
	var req setGroupsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.setGroups.Handle(r.Context(), command.SetGroupsCommand{
		PreregistrationID: r.PathValue("id"),
		Groups:            req.Groups,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	groups := make([]string, len(result.Groups))
	for i, g := range result.Groups {
		groups[i] = g.String()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"groups":              groups,
		"primary_group":       result.PrimaryGroup.String(),
		"students_reassigned": result.StudentsReassigned,
	})
}

// GroupCounts handles GET /api/v1/groups/counts.
func (h *Handlers) GroupCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.groupCounts.Handle(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// ──────────────────────────────────────────────────────────────────────────────
// Assessment reads
// ──────────────────────────────────────────────────────────────────────────────

// GetAssessmentDetail handles GET /api/v1/preregistrations/{id}/assessment.
func (h *Handlers) GetAssessmentDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.assessmentDetail.Handle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"totals":    toTotalsResponse(detail.Totals),
		"subscales": detail.Subscales,
	})
}

type historyEntryResponse struct {
	ID        string                     `json:"id"`
	Version   int                        `json:"version"`
	Scenario  string                     `json:"scenario"`
	Totals    totalsResponse             `json:"totals"`
	Answers   []exam.AnswerEntry         `json:"answers,omitempty"`
	Subscales *assessment.SubscaleDetail `json:"subscales,omitempty"`
	CreatedAt time.Time                  `json:"created_at"`
}

// ListHistory handles GET /api/v1/preregistrations/{id}/history.
func (h *Handlers) ListHistory(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	entries, err := h.history.Handle(r.Context(), r.PathValue("id"), page, pageSize)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyEntryResponse{
			ID:        e.ID,
			Version:   e.Version,
			Scenario:  string(e.Scenario),
			Totals:    *toTotalsResponse(&e.Totals),
			Answers:   e.RawAnswers,
			Subscales: e.Subscales,
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// ──────────────────────────────────────────────────────────────────────────────
// Request helpers
// ──────────────────────────────────────────────────────────────────────────────

// decodeBody decodes JSON into dst and writes a 400 on failure. Returns
// false when the caller should stop.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return false
	}
	return true
}

func pageParams(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	return page, pageSize
}
