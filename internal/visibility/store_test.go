package visibility

import (
	"testing"

	"github.com/smukkama/envdash-server/internal/store"
)

func TestStateStore_InitiallyHidden(t *testing.T) {
	s := NewStateStore()

	for _, dataset := range store.AllDatasets {
		if s.Visible(dataset) {
			t.Errorf("Expected %s to start hidden", dataset)
		}
	}
}

func TestStateStore_ToggleNotifiesSubscriber(t *testing.T) {
	s := NewStateStore()

	var got []Transition
	s.Subscribe(func(tr Transition) {
		got = append(got, tr)
	})

	changed, err := s.Toggle(store.DatasetHeat, true)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if !changed {
		t.Error("Expected a transition")
	}

	if len(got) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(got))
	}
	if got[0].Dataset != store.DatasetHeat || !got[0].Visible {
		t.Errorf("Expected heat visible transition, got %+v", got[0])
	}
	if !s.Visible(store.DatasetHeat) {
		t.Error("Expected heat to be visible after toggle")
	}
}

func TestStateStore_SameStateToggleIsNoOp(t *testing.T) {
	s := NewStateStore()

	notifications := 0
	s.Subscribe(func(Transition) { notifications++ })

	changed, err := s.Toggle(store.DatasetFood, false)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if changed {
		t.Error("Expected no transition when toggling to the current state")
	}
	if notifications != 0 {
		t.Errorf("Expected 0 notifications, got %d", notifications)
	}
}

func TestStateStore_UnknownDataset(t *testing.T) {
	s := NewStateStore()

	if _, err := s.Toggle(store.Dataset("traffic"), true); err != ErrUnknownDataset {
		t.Errorf("Expected ErrUnknownDataset, got %v", err)
	}
}

func TestStateStore_HideAfterShow(t *testing.T) {
	s := NewStateStore()

	var got []Transition
	s.Subscribe(func(tr Transition) { got = append(got, tr) })

	s.Toggle(store.DatasetWaste, true)
	s.Toggle(store.DatasetWaste, false)

	if len(got) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(got))
	}
	if got[1].Visible {
		t.Error("Expected second transition to hide")
	}
	if s.Visible(store.DatasetWaste) {
		t.Error("Expected waste hidden again")
	}
}

func TestStateStore_StatesCopy(t *testing.T) {
	s := NewStateStore()
	s.Toggle(store.DatasetRaster, true)

	states := s.States()
	if !states[store.DatasetRaster] {
		t.Error("Expected raster visible in states map")
	}

	// Mutating the copy must not affect the store.
	states[store.DatasetHeat] = true
	if s.Visible(store.DatasetHeat) {
		t.Error("Expected store state to be unaffected by copy mutation")
	}
}
