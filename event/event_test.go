package event

import (
	"strings"
	"testing"
)

func TestEventRoundtrip(t *testing.T) {
	e := &Event{
		ID:        "0190a5c2-7b3e-7000-8000-000000000001",
		SessionID: "portfolio",
		PageURL:   "https://example.com/",
		Seq:       7,
		Kind:      KindSectionActivated,
		Timestamp: 1724500000000,
		SectionID: "services",
		Offset:    640,
	}

	data, err := Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Kind != e.Kind {
		t.Errorf("Kind: got %q, want %q", got.Kind, e.Kind)
	}
	if got.Seq != e.Seq {
		t.Errorf("Seq: got %d, want %d", got.Seq, e.Seq)
	}
	if got.SectionID != e.SectionID {
		t.Errorf("SectionID: got %q, want %q", got.SectionID, e.SectionID)
	}
	if got.Offset != e.Offset {
		t.Errorf("Offset: got %v, want %v", got.Offset, e.Offset)
	}
}

func TestEventOmitsUnusedFields(t *testing.T) {
	data, err := Marshal(&Event{Kind: KindSessionEnded, Reason: "stopped"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, absent := range []string{"text", "section_id", "target", "state"} {
		if strings.Contains(string(data), `"`+absent+`"`) {
			t.Errorf("serialised event contains unused field %q: %s", absent, data)
		}
	}
}
