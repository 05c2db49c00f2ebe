package types

import "testing"

func TestTaskPriorityRank(t *testing.T) {
	if TaskPriorityCritical.Rank() <= TaskPriorityUrgent.Rank() {
		t.Fatalf("critical must outrank urgent")
	}
	if TaskPriorityUrgent.Rank() <= TaskPriorityHigh.Rank() {
		t.Fatalf("urgent must outrank high")
	}
	if TaskPriorityHigh.Rank() <= TaskPriorityMedium.Rank() {
		t.Fatalf("high must outrank medium")
	}
	if TaskPriorityMedium.Rank() <= TaskPriorityLow.Rank() {
		t.Fatalf("medium must outrank low")
	}
}

func TestGlobalContextSentinel(t *testing.T) {
	if GlobalContextID != "global_singleton" {
		t.Fatalf("global context id must be the fixed sentinel, got %q", GlobalContextID)
	}
}
