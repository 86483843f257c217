package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CapabilityName identifies a capability the loop can run.
type CapabilityName string

const (
	SearchCandidates CapabilityName = "search_candidates"
	AnalyzeGitHub    CapabilityName = "analyze_github"
	GetPersonality   CapabilityName = "get_personality"
	RankCandidates   CapabilityName = "rank_candidates"

	// Finish is the terminal signal. It is never registered.
	Finish CapabilityName = "finish"
)

var (
	ErrUnknownCapability   = errors.New("unknown capability")
	ErrDuplicateCapability = errors.New("capability already registered")
	ErrReservedCapability  = errors.New("capability name is reserved")
)

var capabilityAliases = map[string]CapabilityName{
	"search_candidates": SearchCandidates,
	"search":            SearchCandidates,
	"expand_search":     SearchCandidates,
	"analyze_github":    AnalyzeGitHub,
	"github":            AnalyzeGitHub,
	"get_personality":   GetPersonality,
	"personality":       GetPersonality,
	"rank_candidates":   RankCandidates,
	"rank":              RankCandidates,
	"finish":            Finish,
	"stop":              Finish,
	"done":              Finish,
}

// ParseCapabilityName normalises a name proposed by a backend. Anything outside
// the known set is rejected with ErrUnknownCapability.
func ParseCapabilityName(s string) (CapabilityName, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if name, ok := capabilityAliases[key]; ok {
		return name, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCapability, s)
}

// Params are the loosely typed parameters proposed for a capability.
type Params map[string]any

// Payload is the capability-specific result summary.
type Payload map[string]any

// Capability is a named unit of work the loop can choose to run.
// Execute mutates state through RunState methods only. A returned error marks
// the outcome as failed; the loop keeps going.
type Capability interface {
	Name() CapabilityName
	Description() string
	Execute(ctx context.Context, state *RunState, params Params) (Payload, error)
}

// Outcome is the loop's record of one capability execution.
type Outcome struct {
	Capability CapabilityName `json:"capability"`
	Success    bool           `json:"success"`
	Payload    Payload        `json:"payload,omitempty"`
	Error      string         `json:"error,omitempty"`
	Duration   time.Duration  `json:"duration"`
}

// CapabilitySpec is what a decision backend sees of a capability.
type CapabilitySpec struct {
	Name        CapabilityName `json:"name"`
	Description string         `json:"description"`
}

// CapabilityStatus represents runtime information about a registered capability.
type CapabilityStatus struct {
	Name    CapabilityName
	Enabled bool
	Reason  string
}

type registration struct {
	capability Capability
	enabled    bool
	reason     string
}

// Registry maps capability names to implementations in registration order.
type Registry struct {
	order []CapabilityName
	items map[CapabilityName]*registration
}

func NewRegistry(capabilities ...Capability) (*Registry, error) {
	r := &Registry{items: make(map[CapabilityName]*registration)}
	for _, c := range capabilities {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(c Capability) error {
	name := c.Name()
	if name == Finish {
		return fmt.Errorf("%w: %s", ErrReservedCapability, name)
	}
	if _, ok := r.items[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCapability, name)
	}
	r.order = append(r.order, name)
	r.items[name] = &registration{capability: c, enabled: true}
	return nil
}

// Disable keeps the capability registered but hides it from backends and
// refuses to run it.
func (r *Registry) Disable(name CapabilityName, reason string) {
	if reg, ok := r.items[name]; ok {
		reg.enabled = false
		reg.reason = reason
	}
}

func (r *Registry) IsEnabled(name CapabilityName) bool {
	reg, ok := r.items[name]
	return ok && reg.enabled
}

// Lookup returns an enabled capability by name.
func (r *Registry) Lookup(name CapabilityName) (Capability, error) {
	reg, ok := r.items[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCapability, name)
	}
	if !reg.enabled {
		return nil, fmt.Errorf("%w: %s is disabled (%s)", ErrUnknownCapability, name, reg.reason)
	}
	return reg.capability, nil
}

// Specs lists the enabled capabilities, names and descriptions only.
func (r *Registry) Specs() []CapabilitySpec {
	specs := make([]CapabilitySpec, 0, len(r.order))
	for _, name := range r.order {
		reg := r.items[name]
		if !reg.enabled {
			continue
		}
		specs = append(specs, CapabilitySpec{Name: name, Description: reg.capability.Description()})
	}
	return specs
}

// Describe returns status entries for every registered capability.
func (r *Registry) Describe() []CapabilityStatus {
	statuses := make([]CapabilityStatus, 0, len(r.order))
	for _, name := range r.order {
		reg := r.items[name]
		statuses = append(statuses, CapabilityStatus{Name: name, Enabled: reg.enabled, Reason: reg.reason})
	}
	return statuses
}
