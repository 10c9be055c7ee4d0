package models

import (
	"testing"
)

func TestToolCallList_ValueScan(t *testing.T) {
	tests := []struct {
		name  string
		calls ToolCallList
	}{
		{
			name:  "Empty list stores NULL",
			calls: nil,
		},
		{
			name: "Single call round trips",
			calls: ToolCallList{
				{Name: "analyze_case_data", Arguments: map[string]interface{}{"sheet_name": "DS", "query": "SELECT * FROM self"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.calls.Value()
			if err != nil {
				t.Fatalf("Value() error = %v", err)
			}
			if len(tt.calls) == 0 {
				if v != nil {
					t.Errorf("Expected NULL for empty list, got %v", v)
				}
				return
			}

			var scanned ToolCallList
			if err := scanned.Scan(v); err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if len(scanned) != len(tt.calls) || scanned[0].Name != tt.calls[0].Name {
				t.Errorf("Expected %v, got %v", tt.calls, scanned)
			}
			if scanned[0].Arguments["query"] != "SELECT * FROM self" {
				t.Errorf("Arguments not preserved: %v", scanned[0].Arguments)
			}
		})
	}
}

func TestToolCallList_ScanRejectsUnknownType(t *testing.T) {
	var l ToolCallList
	if err := l.Scan(42); err == nil {
		t.Error("Expected error scanning an int")
	}
	if err := l.Scan([]byte{}); err != nil || l != nil {
		t.Errorf("Expected empty bytes to yield nil list, got %v (%v)", l, err)
	}
}

func TestNewChatMessage(t *testing.T) {
	a := NewChatMessage(RoleUser, "xin chào")
	b := NewChatMessage(RoleUser, "xin chào")

	if a.ID == b.ID {
		t.Error("Expected distinct message IDs")
	}
	if a.Role != RoleUser || a.Content != "xin chào" {
		t.Errorf("Unexpected message %+v", a)
	}
	if a.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
}
