package agent

import (
	"context"
	"errors"
	"testing"
)

type namedCapability struct {
	name CapabilityName
}

func (c namedCapability) Name() CapabilityName { return c.name }
func (c namedCapability) Description() string  { return "does " + string(c.name) }
func (c namedCapability) Execute(context.Context, *RunState, Params) (Payload, error) {
	return Payload{}, nil
}

func TestParseCapabilityName(t *testing.T) {
	tests := map[string]CapabilityName{
		"search_candidates": SearchCandidates,
		" Expand-Search ":   SearchCandidates,
		"analyze github":    AnalyzeGitHub,
		"PERSONALITY":       GetPersonality,
		"rank":              RankCandidates,
		"done":              Finish,
	}
	for in, want := range tests {
		got, err := ParseCapabilityName(in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: expected %q, got %q", in, want, got)
		}
	}

	if _, err := ParseCapabilityName("teleport"); !errors.Is(err, ErrUnknownCapability) {
		t.Fatalf("expected ErrUnknownCapability, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry(namedCapability{SearchCandidates}, namedCapability{RankCandidates})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := r.Register(namedCapability{SearchCandidates}); !errors.Is(err, ErrDuplicateCapability) {
		t.Fatalf("expected ErrDuplicateCapability, got %v", err)
	}
	if err := r.Register(namedCapability{Finish}); !errors.Is(err, ErrReservedCapability) {
		t.Fatalf("expected ErrReservedCapability, got %v", err)
	}

	specs := r.Specs()
	if len(specs) != 2 || specs[0].Name != SearchCandidates || specs[1].Name != RankCandidates {
		t.Fatalf("unexpected specs: %+v", specs)
	}
	if specs[0].Description != "does search_candidates" {
		t.Fatalf("unexpected description: %q", specs[0].Description)
	}

	if _, err := r.Lookup(AnalyzeGitHub); !errors.Is(err, ErrUnknownCapability) {
		t.Fatalf("expected ErrUnknownCapability, got %v", err)
	}
}

func TestRegistryDisable(t *testing.T) {
	r, err := NewRegistry(namedCapability{SearchCandidates}, namedCapability{AnalyzeGitHub})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r.Disable(AnalyzeGitHub, "feature off")
	r.Disable(GetPersonality, "not registered")

	if r.IsEnabled(AnalyzeGitHub) {
		t.Fatal("expected capability to be disabled")
	}
	if _, err := r.Lookup(AnalyzeGitHub); !errors.Is(err, ErrUnknownCapability) {
		t.Fatalf("expected disabled capability to be refused, got %v", err)
	}
	if specs := r.Specs(); len(specs) != 1 || specs[0].Name != SearchCandidates {
		t.Fatalf("disabled capability must be hidden from specs: %+v", specs)
	}

	statuses := r.Describe()
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[1].Enabled || statuses[1].Reason != "feature off" {
		t.Fatalf("unexpected status: %+v", statuses[1])
	}
}
