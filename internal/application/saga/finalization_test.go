package saga

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/academy-platform/internal/domain/assessment"
	"github.com/academy-hub/academy-platform/internal/domain/credential"
	"github.com/academy-hub/academy-platform/internal/domain/preregistration"
	"github.com/academy-hub/academy-platform/internal/domain/shared"
	"github.com/academy-hub/academy-platform/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// In-memory fakes
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
	f.records[p.ID] = p
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

type fakeAssessmentRepo struct {
	mu        sync.Mutex
	totals    map[shared.PreregistrationID]*assessment.Totals
	history   map[shared.PreregistrationID][]*assessment.HistoryEntry
	totalsErr error
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

// failTotals makes every subsequent GetTotals fail with err.
func (f *fakeAssessmentRepo) failTotals(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.totalsErr = err
}

func (f *fakeAssessmentRepo) GetTotals(_ context.Context, preregID shared.PreregistrationID) (*assessment.Totals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.totalsErr != nil {
		return nil, f.totalsErr
	}
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
	entries := append([]*assessment.HistoryEntry(nil), f.history[preregID]...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Version > entries[j].Version })
	return entries, nil
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

func (f *fakeAssessmentRepo) versions(preregID shared.PreregistrationID) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, 0, len(f.history[preregID]))
	for _, e := range f.history[preregID] {
		out = append(out, e.Version)
	}
	sort.Ints(out)
	return out
}

func (f *fakeAssessmentRepo) lastScenario(preregID shared.PreregistrationID) assessment.ScenarioType {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.history[preregID]
	return entries[len(entries)-1].Scenario
}

// fakeCredentialRepo enforces handle uniqueness the way the store does:
// the first Issue with a taken handle fails with ErrHandleTaken.
type fakeCredentialRepo struct {
	mu       sync.Mutex
	preregs  *fakePreregRepo
	byHandle map[string]*credential.Credential
	byPrereg map[shared.PreregistrationID]*credential.Credential
	preTaken map[string]bool
}

func newFakeCredentialRepo(preregs *fakePreregRepo) *fakeCredentialRepo {
	return &fakeCredentialRepo{
		preregs:  preregs,
		byHandle: map[string]*credential.Credential{},
		byPrereg: map[shared.PreregistrationID]*credential.Credential{},
		preTaken: map[string]bool{},
	}
}

func (f *fakeCredentialRepo) takeHandle(handle string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preTaken[handle] = true
}

func (f *fakeCredentialRepo) Issue(_ context.Context, cred *credential.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byPrereg[cred.PreregistrationID]; exists {
		return shared.ErrAlreadyIssued
	}
	if f.preTaken[cred.Handle] {
		return shared.ErrHandleTaken
	}
	if _, exists := f.byHandle[cred.Handle]; exists {
		return shared.ErrHandleTaken
	}
	clone := *cred
	f.byHandle[cred.Handle] = &clone
	f.byPrereg[cred.PreregistrationID] = &clone

	f.preregs.mu.Lock()
	defer f.preregs.mu.Unlock()
	if p, ok := f.preregs.records[cred.PreregistrationID]; ok {
		p.Status = preregistration.StatusCompleted
	}
	return nil
}

func (f *fakeCredentialRepo) GetByPreregistration(_ context.Context, preregID shared.PreregistrationID) (*credential.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byPrereg[preregID]
	if !ok {
		return nil, shared.ErrCredentialNotFound
	}
	return c, nil
}

func (f *fakeCredentialRepo) GetByHandle(_ context.Context, handle string) (*credential.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byHandle[handle]
	if !ok {
		return nil, shared.ErrCredentialNotFound
	}
	return c, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Test setup
// ──────────────────────────────────────────────────────────────────────────────

const sagaPreregID = "11111111-2222-3333-4444-555555555555"

type sagaFixture struct {
	saga        *FinalizationSaga
	preregs     *fakePreregRepo
	assessments *fakeAssessmentRepo
	credentials *fakeCredentialRepo
}

func newSagaFixture(t *testing.T) *sagaFixture {
	t.Helper()

	preregs := newFakePreregRepo()
	assessments := newFakeAssessmentRepo()
	credentials := newFakeCredentialRepo(preregs)

	cfg := DefaultFinalizationConfig()
	// Keep bcrypt fast in tests.
	cfg.HashCost = 10
	log := logger.New(io.Discard, logger.LevelError)

	return &sagaFixture{
		saga:        NewFinalizationSaga(preregs, assessments, credentials, cfg, log),
		preregs:     preregs,
		assessments: assessments,
		credentials: credentials,
	}
}

func (fx *sagaFixture) seedPrereg(t *testing.T, status preregistration.Status) {
	t.Helper()
	p, err := preregistration.New(
		shared.PreregistrationID(sagaPreregID),
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
	case preregistration.StatusRejected:
		require.NoError(t, p.TransitionTo(preregistration.StatusTesting, time.Now().UTC()))
		require.NoError(t, p.TransitionTo(preregistration.StatusRejected, time.Now().UTC()))
	case preregistration.StatusCompleted:
		require.NoError(t, p.TransitionTo(preregistration.StatusTesting, time.Now().UTC()))
		require.NoError(t, p.TransitionTo(preregistration.StatusCompleted, time.Now().UTC()))
	}
	require.NoError(t, fx.preregs.Create(context.Background(), p))
}

func (fx *sagaFixture) seedTotals(t *testing.T, totals assessment.Totals) {
	t.Helper()
	totals.PreregistrationID = shared.PreregistrationID(sagaPreregID)
	require.NoError(t, fx.assessments.UpsertTotals(context.Background(), &totals))
}

func passingTotals() assessment.Totals {
	return assessment.Totals{WAIS: 155, Academic: 165, Values: 90}
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestFinalization_ApprovedIssuesCredentials(t *testing.T) {
	fx := newSagaFixture(t)
	fx.seedPrereg(t, preregistration.StatusTesting)
	fx.seedTotals(t, passingTotals())

	result, err := fx.saga.Execute(context.Background(), sagaPreregID)
	require.NoError(t, err)

	assert.True(t, result.Approved)
	assert.False(t, result.AlreadyCompleted)
	require.NotNil(t, result.Credentials)
	assert.Equal(t, "maria.academy", result.Credentials.Handle)
	assert.NotEmpty(t, result.Credentials.Secret)

	assert.Equal(t, preregistration.StatusCompleted, fx.preregs.status(sagaPreregID))
	assert.Equal(t, assessment.ScenarioFinalizationApproved, fx.assessments.lastScenario(sagaPreregID))

	// The stored hash verifies against the returned plaintext.
	cred, err := fx.credentials.GetByHandle(context.Background(), "maria.academy")
	require.NoError(t, err)
	assert.True(t, credential.VerifySecret(cred.SecretHash, result.Credentials.Secret))
	assert.Equal(t, credential.RoleAdvisor, cred.Role)
}

func TestFinalization_TotalsStoreFailureAbortsWithoutIssuing(t *testing.T) {
	fx := newSagaFixture(t)
	fx.seedPrereg(t, preregistration.StatusTesting)
	fx.seedTotals(t, assessment.Totals{WAIS: 10, Academic: 10, Values: 10})
	fx.assessments.failTotals(errors.New("connection refused"))

	result, err := fx.saga.Execute(context.Background(), sagaPreregID)
	require.Error(t, err)
	assert.Nil(t, result)

	// An outage must not read as "never scored": no credentials issued,
	// no status change, no history entry.
	_, credErr := fx.credentials.GetByPreregistration(context.Background(), shared.PreregistrationID(sagaPreregID))
	assert.ErrorIs(t, credErr, shared.ErrCredentialNotFound)
	assert.Equal(t, preregistration.StatusTesting, fx.preregs.status(sagaPreregID))
	assert.Empty(t, fx.assessments.versions(sagaPreregID))
}

func TestFinalization_TotalsStoreFailureOnCompletedRecord(t *testing.T) {
	fx := newSagaFixture(t)
	fx.seedPrereg(t, preregistration.StatusCompleted)
	fx.assessments.failTotals(errors.New("connection refused"))

	result, err := fx.saga.Execute(context.Background(), sagaPreregID)
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestFinalization_NotApprovedIsAResultNotAnError(t *testing.T) {
	fx := newSagaFixture(t)
	fx.seedPrereg(t, preregistration.StatusTesting)
	fx.seedTotals(t, assessment.Totals{WAIS: 140, Academic: 165, Values: 90})

	result, err := fx.saga.Execute(context.Background(), sagaPreregID)
	require.NoError(t, err)

	assert.False(t, result.Approved)
	assert.Nil(t, result.Credentials)
	assert.Equal(t, []string{"wais_total_below_150"}, result.Decision.FailedChecks)

	// The record stays in testing and the attempt is recorded.
	assert.Equal(t, preregistration.StatusTesting, fx.preregs.status(sagaPreregID))
	assert.Equal(t, assessment.ScenarioFinalizationFailed, fx.assessments.lastScenario(sagaPreregID))
}

func TestFinalization_IdempotentOnCompleted(t *testing.T) {
	fx := newSagaFixture(t)
	fx.seedPrereg(t, preregistration.StatusTesting)
	fx.seedTotals(t, passingTotals())

	first, err := fx.saga.Execute(context.Background(), sagaPreregID)
	require.NoError(t, err)
	require.NotNil(t, first.Credentials)

	second, err := fx.saga.Execute(context.Background(), sagaPreregID)
	require.NoError(t, err)

	assert.True(t, second.Approved)
	assert.True(t, second.AlreadyCompleted)
	assert.Nil(t, second.Credentials, "credentials must never be reissued")

	// Only the first call wrote a history entry.
	assert.Equal(t, []int{1}, fx.assessments.versions(sagaPreregID))
}

func TestFinalization_RejectedReentersTestingForRetake(t *testing.T) {
	fx := newSagaFixture(t)
	fx.seedPrereg(t, preregistration.StatusRejected)
	fx.seedTotals(t, passingTotals())

	result, err := fx.saga.Execute(context.Background(), sagaPreregID)
	require.NoError(t, err)

	assert.True(t, result.Approved)
	require.NotNil(t, result.Credentials)
	assert.Equal(t, preregistration.StatusCompleted, fx.preregs.status(sagaPreregID))
}

func TestFinalization_UnscoredFollowsDefaultPolicy(t *testing.T) {
	fx := newSagaFixture(t)
	fx.seedPrereg(t, preregistration.StatusPending)
	// No totals seeded.

	result, err := fx.saga.Execute(context.Background(), sagaPreregID)
	require.NoError(t, err)

	assert.True(t, result.Decision.Unscored)
	assert.Equal(t, assessment.ApproveWhenUnscored, result.Approved)
	if result.Approved {
		require.NotNil(t, result.Credentials)
		assert.Equal(t, preregistration.StatusCompleted, fx.preregs.status(sagaPreregID))
	}
}

func TestFinalization_HandleCollisionFallsBackToSuffix(t *testing.T) {
	fx := newSagaFixture(t)
	fx.seedPrereg(t, preregistration.StatusTesting)
	fx.seedTotals(t, passingTotals())

	// Another advisor already owns the base handle and the first suffix.
	fx.credentials.takeHandle("maria.academy")
	fx.credentials.takeHandle("maria.academy-2")

	result, err := fx.saga.Execute(context.Background(), sagaPreregID)
	require.NoError(t, err)

	require.NotNil(t, result.Credentials)
	assert.Equal(t, "maria.academy-3", result.Credentials.Handle)
}

func TestFinalization_UnknownPreregistration(t *testing.T) {
	fx := newSagaFixture(t)

	_, err := fx.saga.Execute(context.Background(), sagaPreregID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFinalization_InvalidID(t *testing.T) {
	fx := newSagaFixture(t)

	_, err := fx.saga.Execute(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestFinalization_HistoryVersionsStrictlyIncreasing(t *testing.T) {
	fx := newSagaFixture(t)
	fx.seedPrereg(t, preregistration.StatusTesting)
	fx.seedTotals(t, assessment.Totals{WAIS: 100, Academic: 100, Values: 50})

	// Three failed attempts, then a passing one.
	for i := 0; i < 3; i++ {
		result, err := fx.saga.Execute(context.Background(), sagaPreregID)
		require.NoError(t, err)
		require.False(t, result.Approved)
	}
	fx.seedTotals(t, passingTotals())
	result, err := fx.saga.Execute(context.Background(), sagaPreregID)
	require.NoError(t, err)
	require.True(t, result.Approved)

	assert.Equal(t, []int{1, 2, 3, 4}, fx.assessments.versions(sagaPreregID))
}
