// Package memstore is an in-memory Store used by unit tests across the
// core packages, so scheduler/review/decomposition/pipeline logic can be
// exercised without a live Postgres instance. Integration behavior against
// real SQL (migrations, the CAS claim race) is covered separately in
// internal/store's own testcontainers-backed tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/forgelane/conductor/internal/domain"
	"github.com/forgelane/conductor/internal/store"
)

// Store is a mutex-guarded in-memory implementation of store.Store.
type Store struct {
	mu sync.Mutex

	projects     map[string]domain.Project
	missions     map[string]domain.Mission
	steps        map[string]domain.Step
	deps         []domain.StepDependency
	plans        map[string]domain.DecompositionPlan
	escalations  []domain.Escalation
	phaseRecords []domain.PipelinePhaseRecord
	approvals    map[string]domain.Approval
	agents       map[string]domain.Agent
	personas     []domain.Persona
	usage        []domain.UsageRecord
	memory       []domain.ApproachMemoryEntry
	events       []domain.Event
	mirrorSync   map[string]store.MirrorSyncRecord
	inboundSeen  map[string]bool

	seq int
}

// New returns an empty in-memory store. Seed agents via SeedAgent before
// exercising reviewer-eligibility logic.
func New() *Store {
	return &Store{
		projects:    make(map[string]domain.Project),
		missions:    make(map[string]domain.Mission),
		steps:       make(map[string]domain.Step),
		plans:       make(map[string]domain.DecompositionPlan),
		approvals:   make(map[string]domain.Approval),
		agents:      make(map[string]domain.Agent),
		mirrorSync:  make(map[string]store.MirrorSyncRecord),
		inboundSeen: make(map[string]bool),
	}
}

func (s *Store) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// SeedAgent registers an agent directly, bypassing CreateAgent (there is no
// such method on the Store interface — agents are assumed pre-provisioned).
func (s *Store) SeedAgent(a domain.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[a.ID] = a
}

func (s *Store) CreateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = s.nextID("project")
	}
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	s.projects[p.ID] = p
	return p, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return domain.Project{}, fmt.Errorf("memstore: project %s not found", id)
	}
	return p, nil
}

func (s *Store) UpdateProject(ctx context.Context, p domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; !ok {
		return fmt.Errorf("memstore: project %s not found", p.ID)
	}
	p.UpdatedAt = time.Now()
	s.projects[p.ID] = p
	return nil
}

func (s *Store) CreateMission(ctx context.Context, m domain.Mission) (domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = s.nextID("mission")
	}
	m.CreatedAt, m.UpdatedAt = time.Now(), time.Now()
	s.missions[m.ID] = m
	return m, nil
}

func (s *Store) GetMission(ctx context.Context, id string) (domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[id]
	if !ok {
		return domain.Mission{}, fmt.Errorf("memstore: mission %s not found", id)
	}
	return m, nil
}

func (s *Store) UpdateMissionStatus(ctx context.Context, id string, status domain.MissionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[id]
	if !ok {
		return fmt.Errorf("memstore: mission %s not found", id)
	}
	m.Status = status
	m.UpdatedAt = time.Now()
	s.missions[id] = m
	return nil
}

func (s *Store) ListMissionSteps(ctx context.Context, missionID string) ([]domain.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Step
	for _, st := range s.steps {
		if st.MissionID == missionID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StepOrder != out[j].StepOrder {
			return out[i].StepOrder < out[j].StepOrder
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CreateSteps(ctx context.Context, steps []domain.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range steps {
		if st.ID == "" {
			st.ID = s.nextID("step")
		}
		if st.Status == "" {
			st.Status = domain.StepPending
		}
		st.CreatedAt, st.UpdatedAt = time.Now(), time.Now()
		s.steps[st.ID] = st
	}
	return nil
}

func (s *Store) GetStep(ctx context.Context, id string) (domain.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.steps[id]
	if !ok {
		return domain.Step{}, fmt.Errorf("memstore: step %s not found", id)
	}
	return st, nil
}

func (s *Store) ListPendingCandidates(ctx context.Context, limit int) ([]domain.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Step
	for _, st := range s.steps {
		if st.Status == domain.StepPending {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ClaimStep(ctx context.Context, stepID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.steps[stepID]
	if !ok {
		return false, fmt.Errorf("memstore: step %s not found", stepID)
	}
	if st.Status != domain.StepPending {
		return false, nil
	}
	st.Status = domain.StepInProgress
	st.UpdatedAt = time.Now()
	s.steps[stepID] = st
	return true, nil
}

func (s *Store) UpdateStepStatus(ctx context.Context, stepID string, status domain.StepStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.steps[stepID]
	if !ok {
		return fmt.Errorf("memstore: step %s not found", stepID)
	}
	st.Status = status
	st.UpdatedAt = time.Now()
	s.steps[stepID] = st
	return nil
}

func (s *Store) UpdateStepArtifact(ctx context.Context, stepID string, artifact string, revisionCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.steps[stepID]
	if !ok {
		return fmt.Errorf("memstore: step %s not found", stepID)
	}
	st.ResultArtifact = artifact
	st.RevisionCount = revisionCount
	st.UpdatedAt = time.Now()
	s.steps[stepID] = st
	return nil
}

func (s *Store) FailBlockedSteps(ctx context.Context, missionID string, failedOrder int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, st := range s.steps {
		if st.MissionID == missionID && st.Status == domain.StepPending && st.StepOrder > failedOrder {
			st.Status = domain.StepFailed
			st.UpdatedAt = time.Now()
			s.steps[id] = st
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateStepDependencies(ctx context.Context, deps []domain.StepDependency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deps = append(s.deps, deps...)
	return nil
}

func (s *Store) ListStepDependencies(ctx context.Context, stepID string) ([]domain.StepDependency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.StepDependency
	for _, d := range s.deps {
		if d.StepID == stepID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) UnsatisfiedBlockingDeps(ctx context.Context, stepID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.deps {
		if d.StepID != stepID || d.Type != domain.DependencyBlocks {
			continue
		}
		pred, ok := s.steps[d.DependsOnStep]
		if !ok || pred.Status != domain.StepCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreatePlan(ctx context.Context, plan domain.DecompositionPlan) (domain.DecompositionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if plan.ID == "" {
		plan.ID = s.nextID("plan")
	}
	plan.CreatedAt = time.Now()
	s.plans[plan.ID] = plan
	return plan, nil
}

func (s *Store) SupersedeActivePlans(ctx context.Context, missionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.plans {
		if p.MissionID == missionID && p.Status == domain.PlanActive {
			p.Status = domain.PlanSuperseded
			s.plans[id] = p
		}
	}
	return nil
}

func (s *Store) CreateEscalation(ctx context.Context, e domain.Escalation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = s.nextID("escalation")
	}
	e.CreatedAt = time.Now()
	s.escalations = append(s.escalations, e)
	return nil
}

func (s *Store) CreatePhaseRecord(ctx context.Context, rec domain.PipelinePhaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = s.nextID("phase")
	}
	rec.CreatedAt = time.Now()
	s.phaseRecords = append(s.phaseRecords, rec)
	return nil
}

func (s *Store) ListPhaseRecords(ctx context.Context, stepID string) ([]domain.PipelinePhaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PipelinePhaseRecord
	for _, r := range s.phaseRecords {
		if r.StepID == stepID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhaseOrder < out[j].PhaseOrder })
	return out, nil
}

func (s *Store) CreateApproval(ctx context.Context, a domain.Approval) (domain.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = s.nextID("approval")
	}
	a.CreatedAt = time.Now()
	s.approvals[a.ID] = a
	return a, nil
}

func (s *Store) ListPendingApprovals(ctx context.Context, limit int) ([]domain.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Approval
	for _, a := range s.approvals {
		if a.Status == domain.ApprovalPending {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CountRejections(ctx context.Context, stepID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.approvals {
		if a.StepID == stepID && a.Status == domain.ApprovalRejected {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpdateApproval(ctx context.Context, a domain.Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.approvals[a.ID]
	if !ok {
		return fmt.Errorf("memstore: approval %s not found", a.ID)
	}
	existing.Status = a.Status
	existing.Feedback = a.Feedback
	existing.AutoRejected = a.AutoRejected
	now := time.Now()
	existing.ReviewedAt = &now
	s.approvals[a.ID] = existing
	return nil
}

func (s *Store) GetAgent(ctx context.Context, id string) (domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return domain.Agent{}, fmt.Errorf("memstore: agent %s not found", id)
	}
	return a, nil
}

func (s *Store) ListRoster(ctx context.Context) ([]domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Agent
	for _, a := range s.agents {
		if a.Status == domain.AgentActive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out, nil
}

func (s *Store) FindReviewer(ctx context.Context, reviewType domain.ReviewType, excludeAgentID string) (domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role := "qa"
	if reviewType == domain.ReviewTeamLead {
		role = "team_lead"
	}
	for _, a := range s.agents {
		if a.Status == domain.AgentActive && a.IsDomainEligible() && a.Role == role && a.ID != excludeAgentID {
			return a, nil
		}
	}
	return domain.Agent{}, fmt.Errorf("memstore: no eligible %s reviewer", reviewType)
}

func (s *Store) AppendPersona(ctx context.Context, p domain.Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = s.nextID("persona")
	}
	p.CreatedAt = time.Now()
	s.personas = append(s.personas, p)
	if a, ok := s.agents[p.AgentID]; ok {
		a.PersonaVersion = p.Version
		s.agents[p.AgentID] = a
	}
	return nil
}

func (s *Store) CurrentPersona(ctx context.Context, agentID string) (domain.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best domain.Persona
	found := false
	for _, p := range s.personas {
		if p.AgentID == agentID && (!found || p.Version > best.Version) {
			best = p
			found = true
		}
	}
	if !found {
		return domain.Persona{}, fmt.Errorf("memstore: no persona for %s", agentID)
	}
	return best, nil
}

func (s *Store) RecordUsage(ctx context.Context, u domain.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = append(s.usage, u)
	return nil
}

func (s *Store) SaveApproachMemory(ctx context.Context, e domain.ApproachMemoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = s.nextID("memory")
	}
	e.CreatedAt = time.Now()
	s.memory = append(s.memory, e)
	return nil
}

func (s *Store) TopApproachMemories(ctx context.Context, tags []string, k int) ([]domain.ApproachMemoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tagSet := make(map[string]bool, len(tags))
	for _, t := range tags {
		tagSet[t] = true
	}
	var matches []domain.ApproachMemoryEntry
	for _, e := range s.memory {
		for _, t := range e.Tags {
			if tagSet[t] {
				matches = append(matches, e)
				break
			}
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CritiqueScore > matches[j].CritiqueScore })
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *Store) RecordEvent(ctx context.Context, e domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = s.nextID("event")
	}
	e.CreatedAt = time.Now()
	s.events = append(s.events, e)
	return nil
}

// Events exposes recorded events for test assertions.
func (s *Store) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.events...)
}

// Plans exposes persisted decomposition plans for test assertions.
func (s *Store) Plans() []domain.DecompositionPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DecompositionPlan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, p)
	}
	return out
}

// Escalations exposes persisted escalations for test assertions.
func (s *Store) Escalations() []domain.Escalation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Escalation(nil), s.escalations...)
}

func (s *Store) GetMirrorSync(ctx context.Context, missionID string) (store.MirrorSyncRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.mirrorSync[missionID]
	return rec, ok, nil
}

func (s *Store) SaveMirrorSync(ctx context.Context, rec store.MirrorSyncRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mirrorSync[rec.MissionID]; ok {
		return nil
	}
	s.mirrorSync[rec.MissionID] = rec
	return nil
}

func (s *Store) SeenInboundExternalID(ctx context.Context, externalID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inboundSeen[externalID], nil
}

func (s *Store) MarkInboundExternalIDSeen(ctx context.Context, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inboundSeen[externalID] = true
	return nil
}

func (s *Store) Close() {}

var _ store.Store = (*Store)(nil)
