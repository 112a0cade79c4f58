// Package store is the persistence collaborator (§6): a relational store
// over the tables named in the data model, exposed through a narrow
// interface so the core never depends on the concrete schema or driver.
package store

import (
	"context"
	"time"

	"github.com/forgelane/conductor/internal/domain"
)

// StepFilter narrows ListSteps to a subset of a mission's steps.
type StepFilter struct {
	MissionID string
	Status    domain.StepStatus // empty = any
	Limit     int
	Before    time.Time // zero = no bound; used for "created_at ascending" polling
}

// Store is the full persistence contract the core depends on. A Postgres
// implementation backs production; tests may substitute an in-memory fake.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, p domain.Project) (domain.Project, error)
	GetProject(ctx context.Context, id string) (domain.Project, error)
	UpdateProject(ctx context.Context, p domain.Project) error

	// Missions
	CreateMission(ctx context.Context, m domain.Mission) (domain.Mission, error)
	GetMission(ctx context.Context, id string) (domain.Mission, error)
	UpdateMissionStatus(ctx context.Context, id string, status domain.MissionStatus) error
	ListMissionSteps(ctx context.Context, missionID string) ([]domain.Step, error)

	// Steps
	CreateSteps(ctx context.Context, steps []domain.Step) error
	GetStep(ctx context.Context, id string) (domain.Step, error)
	ListPendingCandidates(ctx context.Context, limit int) ([]domain.Step, error)
	// ClaimStep performs the I8 atomic compare-and-swap: it transitions the
	// step from pending to in_progress only if it is still pending, and
	// reports whether this caller won the race.
	ClaimStep(ctx context.Context, stepID string) (bool, error)
	UpdateStepStatus(ctx context.Context, stepID string, status domain.StepStatus) error
	UpdateStepArtifact(ctx context.Context, stepID string, artifact string, revisionCount int) error
	FailBlockedSteps(ctx context.Context, missionID string, failedOrder int) (int, error)

	// Dependencies
	CreateStepDependencies(ctx context.Context, deps []domain.StepDependency) error
	ListStepDependencies(ctx context.Context, stepID string) ([]domain.StepDependency, error)
	UnsatisfiedBlockingDeps(ctx context.Context, stepID string) (bool, error)

	// Decomposition plans & escalations
	CreatePlan(ctx context.Context, plan domain.DecompositionPlan) (domain.DecompositionPlan, error)
	SupersedeActivePlans(ctx context.Context, missionID string) error
	CreateEscalation(ctx context.Context, e domain.Escalation) error

	// Pipeline phase records
	CreatePhaseRecord(ctx context.Context, rec domain.PipelinePhaseRecord) error
	ListPhaseRecords(ctx context.Context, stepID string) ([]domain.PipelinePhaseRecord, error)

	// Approvals
	CreateApproval(ctx context.Context, a domain.Approval) (domain.Approval, error)
	ListPendingApprovals(ctx context.Context, limit int) ([]domain.Approval, error)
	CountRejections(ctx context.Context, stepID string) (int, error)
	UpdateApproval(ctx context.Context, a domain.Approval) error

	// Agents & personas
	GetAgent(ctx context.Context, id string) (domain.Agent, error)
	ListRoster(ctx context.Context) ([]domain.Agent, error)
	FindReviewer(ctx context.Context, reviewType domain.ReviewType, excludeAgentID string) (domain.Agent, error)
	AppendPersona(ctx context.Context, p domain.Persona) error
	CurrentPersona(ctx context.Context, agentID string) (domain.Persona, error)

	// Usage ledger
	RecordUsage(ctx context.Context, u domain.UsageRecord) error

	// Approach memory
	SaveApproachMemory(ctx context.Context, e domain.ApproachMemoryEntry) error
	TopApproachMemories(ctx context.Context, tags []string, k int) ([]domain.ApproachMemoryEntry, error)

	// Events
	RecordEvent(ctx context.Context, e domain.Event) error

	// Mirror sync bookkeeping
	GetMirrorSync(ctx context.Context, missionID string) (MirrorSyncRecord, bool, error)
	SaveMirrorSync(ctx context.Context, rec MirrorSyncRecord) error
	SeenInboundExternalID(ctx context.Context, externalID string) (bool, error)
	MarkInboundExternalIDSeen(ctx context.Context, externalID string) error

	Close()
}

// MirrorSyncRecord tracks the external tracker item backing one mission,
// used for the mirror collaborator's idempotent-creation check (§4.6).
type MirrorSyncRecord struct {
	MissionID   string
	ExternalID  string
	ExternalKey string
}
