// Package domain holds the entities, enumerations, and pure invariants of
// the orchestration core. It has no store, network, or LLM dependency: every
// type here is a plain value that other packages persist, transmit, or
// transform.
package domain

import "time"

// ProjectPhase is the monotonic lifecycle stage of a Project (I6).
type ProjectPhase string

const (
	PhaseDiscovery    ProjectPhase = "discovery"
	PhaseRequirements ProjectPhase = "requirements"
	PhaseDesign       ProjectPhase = "design"
	PhaseBuild        ProjectPhase = "build"
	PhaseTest         ProjectPhase = "test"
	PhaseDeploy       ProjectPhase = "deploy"
	PhaseCompleted    ProjectPhase = "completed"
)

// phaseOrder gives each phase its ordinal so advancement can be checked
// without a string comparison chain.
var phaseOrder = map[ProjectPhase]int{
	PhaseDiscovery:    0,
	PhaseRequirements: 1,
	PhaseDesign:       2,
	PhaseBuild:        3,
	PhaseTest:         4,
	PhaseDeploy:       5,
	PhaseCompleted:    6,
}

// Ordinal reports the phase's position in the lifecycle, or -1 if unknown.
func (p ProjectPhase) Ordinal() int {
	if o, ok := phaseOrder[p]; ok {
		return o
	}
	return -1
}

// ProjectStatus is the top-level state of a Project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCanceled  ProjectStatus = "canceled"
)

// Project is a long-lived container tracking a monotonic phase (I6).
type Project struct {
	ID              string
	OriginalRequest string
	Phase           ProjectPhase
	Status          ProjectStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MissionStatus is the terminal/non-terminal status of a Mission.
type MissionStatus string

const (
	MissionInProgress MissionStatus = "in_progress"
	MissionCompleted  MissionStatus = "completed"
	MissionFailed     MissionStatus = "failed"
	MissionCanceled   MissionStatus = "canceled"
)

// Mission is a unit of work derived from a directive; it owns a set of Steps.
type Mission struct {
	ID          string
	ProjectID   string
	PhaseAtLink ProjectPhase
	Directive   string
	Status      MissionStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ModelTier selects which LLM tier a step phase runs on.
type ModelTier string

const (
	TierCheap     ModelTier = "tier1"
	TierMedium    ModelTier = "tier2"
	TierExpensive ModelTier = "tier3"
)

// StepStatus is the scheduler-visible state of a Step (I2).
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepInReview   StepStatus = "in_review"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
	StepCanceled   StepStatus = "canceled"
)

// IsTerminal reports whether no further transition is possible (I2).
func (s StepStatus) IsTerminal() bool {
	return s == StepCompleted || s == StepFailed || s == StepCanceled
}

// allowedStepTransitions enumerates every legal source->target pair in I2.
var allowedStepTransitions = map[StepStatus]map[StepStatus]bool{
	StepPending:    {StepInProgress: true, StepFailed: true, StepCanceled: true},
	StepInProgress: {StepInReview: true, StepFailed: true, StepCanceled: true},
	StepInReview:   {StepCompleted: true, StepPending: true, StepCanceled: true},
}

// ValidStepTransition reports whether source->target is a legal transition.
func ValidStepTransition(source, target StepStatus) bool {
	if source.IsTerminal() {
		return false
	}
	return allowedStepTransitions[source][target]
}

// Step is the unit the scheduler executes.
type Step struct {
	ID             string
	MissionID      string
	AssignedAgent  string
	ModelTier      ModelTier
	StepOrder      int
	Status         StepStatus
	ResultArtifact string
	ParentStepID   string // legacy linear chain; empty if none
	RevisionCount  int
	SkipPipeline   bool
	SkipResearch   bool
	Description    string
	Role           string
	AcceptanceCrit string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DependencyType distinguishes a hard scheduling gate from context only.
type DependencyType string

const (
	DependencyBlocks  DependencyType = "blocks"
	DependencyInforms DependencyType = "informs"
)

// StepDependency is a directed edge between two steps in one mission's DAG.
type StepDependency struct {
	StepID        string
	DependsOnStep string
	Type          DependencyType
}

// EndStateTag is the declared shape of a decomposition's deliverable.
type EndStateTag string

const (
	EndStateProductionDocs   EndStateTag = "production_docs"
	EndStateWorkingPrototype EndStateTag = "working_prototype"
	EndStateHybrid           EndStateTag = "hybrid"
)

// PlanStatus tracks whether a DecompositionPlan is the active record.
type PlanStatus string

const (
	PlanActive     PlanStatus = "active"
	PlanSuperseded PlanStatus = "superseded"
)

// PlanTask is one synthetic-id task inside a DecompositionPlan, prior to
// materialization into Steps.
type PlanTask struct {
	ID                 string // synthetic id, "T1".."Tn"
	Description        string
	Role               string
	ParallelGroup      int
	DependsOn          []string
	AcceptanceCriteria string
}

// HiringRequest names a role the roster does not currently cover.
type HiringRequest struct {
	Role   string
	Reason string
}

// EscalationType classifies why a decomposition escalated instead of
// materializing steps.
type EscalationType string

const (
	EscalationBudget        EscalationType = "budget"
	EscalationStrategic     EscalationType = "strategic"
	EscalationBrand         EscalationType = "brand"
	EscalationCapabilityGap EscalationType = "capability_gap"
	EscalationAmbiguity     EscalationType = "ambiguity"
)

// DecompositionPlan is the serialized result of the Decomposition Engine.
type DecompositionPlan struct {
	ID               string
	MissionID        string
	Tasks            []PlanTask
	EndState         EndStateTag
	EscalationNeeded bool
	EscalationReason string
	HiringNeeded     []HiringRequest
	Status           PlanStatus
	CreatedAt        time.Time
}

// Escalation is persisted when a decomposition bails out instead of
// materializing steps.
type Escalation struct {
	ID        string
	MissionID string
	Type      EscalationType
	Reason    string
	CreatedAt time.Time
}

// PhaseName is one of the five pipeline phases run per step.
type PhaseName string

const (
	PhaseDecompose  PhaseName = "decompose"
	PhaseResearch   PhaseName = "research"
	PhaseSynthesize PhaseName = "synthesize"
	PhaseCritique   PhaseName = "critique"
	PhaseRevise     PhaseName = "revise"
)

// PipelinePhaseRecord is one row per executed phase of a step.
type PipelinePhaseRecord struct {
	ID         string
	StepID     string
	PhaseName  PhaseName
	PhaseOrder int
	ModelTier  ModelTier // empty for research
	Score      float64   // critique only
	Metadata   map[string]any
	DurationMS int64
	CreatedAt  time.Time
}

// ReviewType distinguishes the two stages of the approval chain.
type ReviewType string

const (
	ReviewQA       ReviewType = "qa"
	ReviewTeamLead ReviewType = "team_lead"
)

// ApprovalStatus is the outcome of one review attempt.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Approval is one row per review attempt against a step.
type Approval struct {
	ID            string
	StepID        string
	ReviewerAgent string
	ReviewType    ReviewType
	Status        ApprovalStatus
	Feedback      string
	AutoRejected  bool
	ReviewedAt    *time.Time
	CreatedAt     time.Time
}

// AgentStatus is the lifecycle state of a roster Agent.
type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentInactive AgentStatus = "inactive"
)

// Agent is an actor eligible for assignment or review.
type Agent struct {
	ID             string
	Role           string
	TeamID         string // empty = system/test agent, never a domain reviewer
	Status         AgentStatus
	PersonaVersion int
	CreatedAt      time.Time
}

// IsDomainEligible reports whether this agent may act as a reviewer under
// the review state machine's eligibility rule (§4.5 step 4).
func (a Agent) IsDomainEligible() bool {
	return a.TeamID != ""
}

// Persona is an immutable system-prompt addendum; "upgrading" an agent
// appends a new version rather than mutating the current one.
type Persona struct {
	ID                   string
	AgentID              string
	Version              int
	SystemPromptAddendum string
	CreatedAt            time.Time
}

// UsageRecord is one LLM call's cost/usage accounting row.
type UsageRecord struct {
	ID               string
	StepID           string
	AgentID          string // sanitized per §4.6 before persistence; may be empty
	Tier             ModelTier
	PromptTokens     int
	CompletionTokens int
	CreatedAt        time.Time
}

// ApproachMemoryEntry records a past decomposition's outcome for reuse as a
// planning hint (§4.2 step 2).
type ApproachMemoryEntry struct {
	ID            string
	Tags          []string
	PlanSummary   string
	CritiqueScore float64
	CreatedAt     time.Time
}

// EventKind is the closed set of user-visible state-change events (§7).
type EventKind string

const (
	EventTaskCompleted        EventKind = "task_completed"
	EventTaskFailed           EventKind = "task_failed"
	EventMissionCompleted     EventKind = "mission_completed"
	EventMissionFailed        EventKind = "mission_failed"
	EventProjectPhaseAdvanced EventKind = "project_phase_advanced"
	EventProjectCompleted     EventKind = "project_completed"
	EventRevisionCapReached   EventKind = "revision_cap_reached"
	EventAgentUpskilled       EventKind = "agent_upskilled"
	EventLinearInboundIssue   EventKind = "linear_inbound_issue"
)

// Event is an append-only record of a user-visible state change.
type Event struct {
	ID        string
	Kind      EventKind
	MissionID string
	ProjectID string
	StepID    string
	Payload   map[string]any
	CreatedAt time.Time
}
