package protocol

import "testing"

func TestParseMessage_Toggle(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"toggle","dataset":"heat","visible":true}`))
	if err != nil {
		t.Fatalf("ParseMessage failed: %v", err)
	}

	toggle, ok := msg.(*ToggleMessage)
	if !ok {
		t.Fatalf("Expected *ToggleMessage, got %T", msg)
	}
	if toggle.Dataset != "heat" {
		t.Errorf("Expected dataset heat, got %s", toggle.Dataset)
	}
	if !toggle.Visible {
		t.Error("Expected visible true")
	}
}

func TestParseMessage_ToggleMissingDataset(t *testing.T) {
	if _, err := ParseMessage([]byte(`{"type":"toggle","visible":true}`)); err == nil {
		t.Error("Expected error for toggle without dataset")
	}
}

func TestParseMessage_UnknownType(t *testing.T) {
	if _, err := ParseMessage([]byte(`{"type":"identify"}`)); err == nil {
		t.Error("Expected error for unknown message type")
	}
}

func TestParseMessage_InvalidJSON(t *testing.T) {
	if _, err := ParseMessage([]byte(`{bad`)); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}
