package sched

import (
	"context"
	"strings"
)

// HistoryClass tags the outcome of classifying a historical-failure
// narrative. Classification happens once at the provider boundary so the
// adjustment hook never re-parses free text.
type HistoryClass string

const (
	// HistoryNone means no narrative was available or nothing matched.
	HistoryNone HistoryClass = "NONE"
	// HistoryRecoveryLikely means past incidents on this partition
	// typically resolved on their own.
	HistoryRecoveryLikely HistoryClass = "RECOVERY_LIKELY"
	// HistoryPersistentDegradation means past incidents point at a
	// longer-lived problem.
	HistoryPersistentDegradation HistoryClass = "PERSISTENT_DEGRADATION"
)

// HistoryProvider looks up a short natural-language narrative about past
// failures on a partition. Implementations must return quickly (the caller
// bounds the context) and may be backed by retrieval over incident
// records. Any error degrades to "no context"; it never aborts feedback
// processing.
type HistoryProvider interface {
	PastFailures(ctx context.Context, partition int, successRatio float64) (string, error)
}

var recoveryMarkers = []string{"typically recovered", "transient"}

var degradationMarkers = []string{"persistent failure", "extended degradation"}

// ClassifyNarrative maps a narrative to a HistoryClass by keyword match.
// Degradation markers win over recovery markers when both appear.
func ClassifyNarrative(text string) HistoryClass {
	lower := strings.ToLower(text)
	if lower == "" {
		return HistoryNone
	}
	for _, marker := range degradationMarkers {
		if strings.Contains(lower, marker) {
			return HistoryPersistentDegradation
		}
	}
	for _, marker := range recoveryMarkers {
		if strings.Contains(lower, marker) {
			return HistoryRecoveryLikely
		}
	}
	return HistoryNone
}

// StaticHistoryProvider serves canned narratives keyed by partition id.
// Used by the demo CLI and tests; production deployments plug in a
// retrieval-backed provider.
type StaticHistoryProvider struct {
	Narratives map[int]string
}

// PastFailures implements HistoryProvider.
func (s *StaticHistoryProvider) PastFailures(ctx context.Context, partition int, _ float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.Narratives[partition], nil
}
