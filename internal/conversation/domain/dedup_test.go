package domain

import (
	"fmt"
	"testing"
)

func TestMarkProcessedAdmitsOnce(t *testing.T) {
	c := testConversation(50)

	c, admitted := MarkProcessed(c, "wamid.ABC")
	if !admitted {
		t.Fatal("first delivery must be admitted")
	}

	_, admitted = MarkProcessed(c, "wamid.ABC")
	if admitted {
		t.Fatal("redelivery must be rejected")
	}

	_, admitted = MarkProcessed(c, "wamid.DEF")
	if !admitted {
		t.Fatal("distinct id must be admitted")
	}
}

func TestMarkProcessedEvictsOldest(t *testing.T) {
	c := testConversation(50)

	for i := 0; i < 101; i++ {
		var admitted bool
		c, admitted = MarkProcessed(c, fmt.Sprintf("wamid.%03d", i))
		if !admitted {
			t.Fatalf("id %d unexpectedly rejected", i)
		}
	}

	if len(c.ProcessedMessageIDs) != 100 {
		t.Fatalf("window size = %d, want 100", len(c.ProcessedMessageIDs))
	}

	// The oldest id fell out of the window, so a late redelivery of it is
	// admitted again. Everything still inside stays rejected.
	if _, admitted := MarkProcessed(c, "wamid.000"); !admitted {
		t.Fatal("evicted id should be admitted again")
	}
	if _, admitted := MarkProcessed(c, "wamid.001"); admitted {
		t.Fatal("id still in window must be rejected")
	}
	if _, admitted := MarkProcessed(c, "wamid.100"); admitted {
		t.Fatal("newest id must be rejected")
	}
}

func TestMarkProcessedEmptyID(t *testing.T) {
	c := testConversation(50)

	updated, admitted := MarkProcessed(c, "")
	if !admitted {
		t.Fatal("messages without an external id are always processed")
	}
	if len(updated.ProcessedMessageIDs) != 0 {
		t.Fatal("empty id must not be recorded")
	}
}

func TestMarkProcessedCopiesWindow(t *testing.T) {
	c := testConversation(50)
	c, _ = MarkProcessed(c, "a")

	updated, _ := MarkProcessed(c, "b")
	if len(c.ProcessedMessageIDs) != 1 {
		t.Fatal("original window was mutated")
	}
	if len(updated.ProcessedMessageIDs) != 2 {
		t.Fatalf("updated window size = %d, want 2", len(updated.ProcessedMessageIDs))
	}
}
