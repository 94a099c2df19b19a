package triage

import (
	"triagebot/internal/analysis"
	"triagebot/internal/domain"
)

// ComputeLabelDelta returns the smallest change that brings current in line
// with the analysis. Added labels are never already present and removed
// labels always are.
func ComputeLabelDelta(current []string, a analysis.Analysis) domain.LabelDelta {
	have := make(map[string]bool, len(current))
	for _, l := range current {
		have[l] = true
	}

	var delta domain.LabelDelta
	queued := make(map[string]bool)
	add := func(label string) {
		if label == "" || have[label] || queued[label] {
			return
		}
		queued[label] = true
		delta.Add = append(delta.Add, label)
	}

	if a.Classification.Classified() {
		add(a.TypeLabel)
		if have[domain.NeedsTriageLabel] {
			delta.Remove = append(delta.Remove, domain.NeedsTriageLabel)
		}
	}
	if a.Priority.Level != "" && a.Priority.Level != domain.PriorityNone && !domain.HasPriorityLabel(current) {
		add(a.Priority.Level.Label())
	}
	for _, tag := range a.Components {
		add(tag)
	}
	return delta
}
