package model

import (
	"testing"

	"github.com/farid/spf-sync/internal/docstore"
)

func TestMigrateLegacy(t *testing.T) {
	tests := []struct {
		name     string
		data     map[string]any
		wantOK   bool
		wantName string
		wantType string
	}{
		{
			name:     "full triple",
			data:     map[string]any{"room": "Bilik A", "rack": "Rak 3", "slot": "S12"},
			wantOK:   true,
			wantName: "Bilik A / Rak 3 / S12",
			wantType: LocationSlot,
		},
		{
			name:     "room only",
			data:     map[string]any{"room": "Bilik B"},
			wantOK:   true,
			wantName: "Bilik B",
			wantType: LocationRoom,
		},
		{
			name:     "room and rack",
			data:     map[string]any{"room": "Bilik A", "rack": "Rak 1"},
			wantOK:   true,
			wantName: "Bilik A / Rak 1",
			wantType: LocationRack,
		},
		{
			name:     "slot without room",
			data:     map[string]any{"slot": "S1"},
			wantOK:   true,
			wantName: "S1",
			wantType: LocationSlot,
		},
		{
			name:   "no legacy fields",
			data:   map[string]any{"name": "already canonical"},
			wantOK: false,
		},
		{
			name:   "whitespace only",
			data:   map[string]any{"room": "  ", "rack": "", "slot": " "},
			wantOK: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := MigrateLegacy(tc.data)
			if ok != tc.wantOK {
				t.Fatalf("expected ok=%t, got %t", tc.wantOK, ok)
			}
			if !ok {
				return
			}
			if got.Name != tc.wantName {
				t.Errorf("expected name %q, got %q", tc.wantName, got.Name)
			}
			if got.Type != tc.wantType {
				t.Errorf("expected type %q, got %q", tc.wantType, got.Type)
			}
		})
	}
}

func TestDecodeLocation(t *testing.T) {
	t.Run("canonical document", func(t *testing.T) {
		loc, err := DecodeLocation(docstore.Document{
			ID: "L1",
			Data: map[string]any{
				"name":         "Rak 3",
				"type":         LocationRack,
				"parent_id":    "L0",
				"is_available": false,
				"usage_stats": map[string]any{
					"total":     int64(4),
					"available": int64(2),
					"borrowed":  int64(1),
					"archived":  int64(1),
				},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if loc.Name != "Rak 3" || loc.Type != LocationRack || loc.ParentID != "L0" {
			t.Errorf("unexpected record: %+v", loc)
		}
		if loc.Available {
			t.Error("expected is_available false")
		}
		want := UsageStats{Total: 4, Available: 2, Borrowed: 1, Archived: 1}
		if loc.Stats != want {
			t.Errorf("expected stats %+v, got %+v", want, loc.Stats)
		}
		if loc.Legacy {
			t.Error("canonical document must not be flagged legacy")
		}
	})

	t.Run("absent is_available defaults to true", func(t *testing.T) {
		loc, err := DecodeLocation(docstore.Document{
			ID:   "L2",
			Data: map[string]any{"name": "Bilik A", "type": LocationRoom},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !loc.Available {
			t.Error("absent is_available must decode as available")
		}
	})

	t.Run("legacy document is migrated", func(t *testing.T) {
		loc, err := DecodeLocation(docstore.Document{
			ID:   "L3",
			Data: map[string]any{"room": "Bilik A", "rack": "Rak 1", "slot": "S5"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !loc.Legacy {
			t.Error("expected legacy flag")
		}
		if loc.Name != "Bilik A / Rak 1 / S5" {
			t.Errorf("unexpected migrated name %q", loc.Name)
		}
		if loc.Type != LocationSlot {
			t.Errorf("unexpected migrated type %q", loc.Type)
		}
	})

	t.Run("missing type defaults to slot", func(t *testing.T) {
		loc, err := DecodeLocation(docstore.Document{
			ID:   "L4",
			Data: map[string]any{"name": "no type"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if loc.Type != LocationSlot {
			t.Errorf("expected slot default, got %q", loc.Type)
		}
	})

	t.Run("empty id is malformed", func(t *testing.T) {
		if _, err := DecodeLocation(docstore.Document{Data: map[string]any{"name": "x"}}); err == nil {
			t.Error("expected error for document without id")
		}
	})
}
