package transport

import (
	"encoding/json"
	"strings"
	"testing"

	"salesagent_backend/internal/conversation/repository"
)

func TestToWorkspaceStatsResponse(t *testing.T) {
	resp := ToWorkspaceStatsResponse(repository.WorkspaceStats{
		Total:               10,
		Active:              3,
		PendingConfirmation: 2,
		NegotiatingTime:     1,
		Confirmed:           4,
		Cancelled:           2,
		Completed:           1,
		Escalated:           1,
		AvgConfidenceScore:  61.5,
		RelancesSent:        7,
	})

	if resp.ConfirmationRate != 0.4 {
		t.Fatalf("confirmation rate = %v, want 0.4", resp.ConfirmationRate)
	}
	if resp.CancellationRate != 0.2 {
		t.Fatalf("cancellation rate = %v, want 0.2", resp.CancellationRate)
	}
	if resp.PendingConfirmation != 2 || resp.NegotiatingTime != 1 || resp.Completed != 1 {
		t.Fatalf("per-state counts not carried over: %+v", resp)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{"cancellationRate", "pendingConfirmation", "negotiatingTime", "completed"} {
		if !strings.Contains(string(data), `"`+key+`"`) {
			t.Fatalf("response json missing %q: %s", key, data)
		}
	}
}

func TestToWorkspaceStatsResponseEmptyWindow(t *testing.T) {
	resp := ToWorkspaceStatsResponse(repository.WorkspaceStats{})
	if resp.ConfirmationRate != 0 || resp.CancellationRate != 0 {
		t.Fatalf("rates must be zero for an empty window, got %+v", resp)
	}
}
