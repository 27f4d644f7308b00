package types

import (
	"strings"
	"time"
)

// Resource is a live cloud resource as reported by the inventory collaborator.
type Resource struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Name       string            `json:"name"`
	Region     string            `json:"region"`
	State      string            `json:"state"`
	Tags       map[string]string `json:"tags,omitempty"`
	Dependents []string          `json:"dependents,omitempty"`
	LaunchTime time.Time         `json:"launch_time,omitzero"`
}

// Validate checks the fields every consumer relies on.
func (r *Resource) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errRequired("id")
	}
	if strings.TrimSpace(r.Type) == "" {
		return errRequired("type")
	}
	if strings.TrimSpace(r.Region) == "" {
		return errRequired("region")
	}
	return nil
}

type errRequired string

func (e errRequired) Error() string { return "resource " + string(e) + " is required" }

// Confidence grades how safe it is to remove an orphaned resource.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// OrphanCandidate is one entry in the orphan report.
type OrphanCandidate struct {
	ResourceID   string     `json:"resource_id"`
	ResourceType string     `json:"resource_type"`
	Name         string     `json:"name,omitempty"`
	Region       string     `json:"region"`
	MonthlyCost  *float64   `json:"monthly_cost,omitempty"`
	Confidence   Confidence `json:"confidence"`
	Reasons      []string   `json:"reasons"`
	Conflicted   bool       `json:"conflicted,omitempty"`
}

// CreationMethod classifies how a resource was created.
type CreationMethod string

const (
	MethodConsole              CreationMethod = "console"
	MethodInfrastructureAsCode CreationMethod = "infrastructure_as_code"
	MethodCommandLineTool      CreationMethod = "cli"
	MethodTemplateEngine       CreationMethod = "template_engine"
	MethodUnknown              CreationMethod = "unknown"
)

// CreationRecord is the authoritative creation event for a resource.
type CreationRecord struct {
	Identity   string         `json:"identity"`
	Timestamp  time.Time      `json:"timestamp"`
	Method     CreationMethod `json:"method"`
	UserAgent  string         `json:"user_agent,omitempty"`
	SourceIP   string         `json:"source_ip,omitempty"`
	EventName  string         `json:"event_name"`
	RawEventID string         `json:"event_id"`
}

// OwnershipMatch is one state document's claim over a physical resource.
type OwnershipMatch struct {
	Address   string `json:"address"`
	Type      string `json:"resource_type"`
	Source    string `json:"source"`
	Workspace string `json:"workspace,omitempty"`
}

// OwnershipVerdict is the correlator's answer for one physical identifier.
// Conflicts is populated when distinct addresses claim the same identifier
// across discovered state documents; it is data, never an error.
type OwnershipVerdict struct {
	Managed   bool             `json:"managed"`
	Primary   *OwnershipMatch  `json:"primary,omitempty"`
	Conflicts []OwnershipMatch `json:"conflicts,omitempty"`
}

// Conflicted reports whether more than one address claims the resource.
func (v *OwnershipVerdict) Conflicted() bool { return len(v.Conflicts) > 0 }
