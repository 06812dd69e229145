package command

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/academy-hub/academy-platform/internal/domain/advisor"
	"github.com/academy-hub/academy-platform/internal/domain/assessment"
	"github.com/academy-hub/academy-platform/internal/domain/exam"
	"github.com/academy-hub/academy-platform/internal/domain/preregistration"
	"github.com/academy-hub/academy-platform/internal/domain/shared"
	"github.com/academy-hub/academy-platform/internal/domain/student"
	"github.com/academy-hub/academy-platform/pkg/logger"
)

// In-memory fakes shared by the command handler tests.

const testPreregID = "11111111-2222-3333-4444-555555555555"

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelError)
}

func seedPrereg(t *testing.T, repo *fakePreregRepo, status preregistration.Status) *preregistration.PreRegistration {
	t.Helper()
	p, err := preregistration.New(
		shared.PreregistrationID(testPreregID),
		preregistration.Identity{
			GivenName:  "María",
			FamilyName: "Núñez",
			Contact:    shared.Contact("maria@example.com"),
		},
		time.Now().UTC(),
	)
	require.NoError(t, err)
	// Walk the entity to the requested status through legal transitions.
	switch status {
	case preregistration.StatusTesting:
		require.NoError(t, p.TransitionTo(preregistration.StatusTesting, time.Now().UTC()))
	case preregistration.StatusCompleted:
		require.NoError(t, p.TransitionTo(preregistration.StatusTesting, time.Now().UTC()))
		require.NoError(t, p.TransitionTo(preregistration.StatusCompleted, time.Now().UTC()))
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

// ──────────────────────────────────────────────────────────────────────────────

type fakePreregRepo struct {
	mu      sync.Mutex
	records map[shared.PreregistrationID]*preregistration.PreRegistration
}

func newFakePreregRepo() *fakePreregRepo {
	return &fakePreregRepo{records: map[shared.PreregistrationID]*preregistration.PreRegistration{}}
}

func (f *fakePreregRepo) Create(_ context.Context, p *preregistration.PreRegistration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.records {
		if existing.Identity.Contact == p.Identity.Contact {
			return shared.ErrDuplicateContact
		}
	}
	clone := *p
	f.records[p.ID] = &clone
	return nil
}

func (f *fakePreregRepo) GetByID(_ context.Context, id shared.PreregistrationID) (*preregistration.PreRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.records[id]
	if !ok {
		return nil, shared.ErrPreregistrationNotFound
	}
	clone := *p
	return &clone, nil
}

func (f *fakePreregRepo) GetByContact(_ context.Context, contact shared.Contact) (*preregistration.PreRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.records {
		if p.Identity.Contact == contact {
			clone := *p
			return &clone, nil
		}
	}
	return nil, shared.ErrPreregistrationNotFound
}

func (f *fakePreregRepo) UpdateStatus(_ context.Context, id shared.PreregistrationID, status preregistration.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.records[id]
	if !ok {
		return shared.ErrPreregistrationNotFound
	}
	p.Status = status
	return nil
}

func (f *fakePreregRepo) UpdateIdentity(_ context.Context, id shared.PreregistrationID, identity preregistration.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.records[id]
	if !ok {
		return shared.ErrPreregistrationNotFound
	}
	p.Identity = identity
	return nil
}

func (f *fakePreregRepo) List(_ context.Context, _ shared.Pagination) ([]*preregistration.PreRegistration, error) {
	return nil, nil
}

func (f *fakePreregRepo) CountByStatus(_ context.Context) (map[preregistration.Status]int, error) {
	return nil, nil
}

func (f *fakePreregRepo) status(id shared.PreregistrationID) preregistration.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id].Status
}

// ──────────────────────────────────────────────────────────────────────────────

type fakeAssessmentRepo struct {
	mu      sync.Mutex
	totals  map[shared.PreregistrationID]*assessment.Totals
	history map[shared.PreregistrationID][]*assessment.HistoryEntry
}

func newFakeAssessmentRepo() *fakeAssessmentRepo {
	return &fakeAssessmentRepo{
		totals:  map[shared.PreregistrationID]*assessment.Totals{},
		history: map[shared.PreregistrationID][]*assessment.HistoryEntry{},
	}
}

func (f *fakeAssessmentRepo) UpsertTotals(_ context.Context, totals *assessment.Totals) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *totals
	f.totals[totals.PreregistrationID] = &clone
	return nil
}

func (f *fakeAssessmentRepo) GetTotals(_ context.Context, preregID shared.PreregistrationID) (*assessment.Totals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.totals[preregID]
	if !ok {
		return nil, shared.ErrAssessmentNotFound
	}
	clone := *t
	return &clone, nil
}

func (f *fakeAssessmentRepo) AppendHistory(_ context.Context, entry *assessment.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.Version = len(f.history[entry.PreregistrationID]) + 1
	clone := *entry
	f.history[entry.PreregistrationID] = append(f.history[entry.PreregistrationID], &clone)
	return nil
}

func (f *fakeAssessmentRepo) ListHistory(_ context.Context, preregID shared.PreregistrationID, _ shared.Pagination) ([]*assessment.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*assessment.HistoryEntry(nil), f.history[preregID]...), nil
}

func (f *fakeAssessmentRepo) GetLatestSubscales(_ context.Context, preregID shared.PreregistrationID) (*assessment.SubscaleDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.history[preregID]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Subscales != nil {
			return entries[i].Subscales, nil
		}
	}
	return nil, nil
}

func (f *fakeAssessmentRepo) lastEntry(preregID shared.PreregistrationID) *assessment.HistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.history[preregID]
	if len(entries) == 0 {
		return nil
	}
	return entries[len(entries)-1]
}

// ──────────────────────────────────────────────────────────────────────────────

type fakeAdvisorRepo struct {
	mu       sync.Mutex
	profiles map[shared.PreregistrationID]*advisor.Profile
}

func newFakeAdvisorRepo() *fakeAdvisorRepo {
	return &fakeAdvisorRepo{profiles: map[shared.PreregistrationID]*advisor.Profile{}}
}

func (f *fakeAdvisorRepo) Create(_ context.Context, p *advisor.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.profiles[p.PreregistrationID]; exists {
		return shared.WrapError("advisor", "Create", shared.ErrAlreadyExists, "profile already exists", nil)
	}
	clone := *p
	f.profiles[p.PreregistrationID] = &clone
	return nil
}

func (f *fakeAdvisorRepo) GetByPreregistration(_ context.Context, preregID shared.PreregistrationID) (*advisor.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[preregID]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	clone := *p
	return &clone, nil
}

func (f *fakeAdvisorRepo) Update(_ context.Context, p *advisor.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[p.PreregistrationID]; !ok {
		return shared.ErrProfileNotFound
	}
	clone := *p
	f.profiles[p.PreregistrationID] = &clone
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────

// fakeStudentRepo counts matching unassigned students per normalized group.
type fakeStudentRepo struct {
	mu         sync.Mutex
	unassigned map[string]int64 // normalized group → unassigned count
	calls      []string         // normalized groups passed to BulkAssignAdvisor
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{unassigned: map[string]int64{}}
}

func (f *fakeStudentRepo) BulkAssignAdvisor(_ context.Context, groupNormalized, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, groupNormalized)
	n := f.unassigned[groupNormalized]
	f.unassigned[groupNormalized] = 0
	return n, nil
}

func (f *fakeStudentRepo) ListByGroup(_ context.Context, _ string) ([]*student.Student, error) {
	return nil, nil
}

func (f *fakeStudentRepo) CountByGroup(_ context.Context) ([]student.GroupCount, error) {
	return nil, nil
}

// ──────────────────────────────────────────────────────────────────────────────

type fakeQuestionSource struct {
	pools map[exam.Type][]exam.Question
}

func (f *fakeQuestionSource) ListActive(_ context.Context, examType exam.Type) ([]exam.Question, error) {
	return f.pools[examType], nil
}

func (f *fakeQuestionSource) GetByIDs(_ context.Context, ids []string) ([]exam.Question, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []exam.Question
	for _, pool := range f.pools {
		for _, q := range pool {
			if want[q.ID] {
				out = append(out, q)
			}
		}
	}
	return out, nil
}

type fakeFormRepo struct {
	mu      sync.Mutex
	created []*exam.FormInstance
}

func (f *fakeFormRepo) Create(_ context.Context, form *exam.FormInstance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, form)
	return nil
}

func (f *fakeFormRepo) GetLatest(_ context.Context, preregID shared.PreregistrationID, examType exam.Type) (*exam.FormInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.created) - 1; i >= 0; i-- {
		form := f.created[i]
		if form.PreregistrationID == preregID && form.ExamType == examType {
			return form, nil
		}
	}
	return nil, shared.ErrFormNotFound
}
