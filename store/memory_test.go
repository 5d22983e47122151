package store

import (
	"errors"
	"testing"

	"github.com/paddockhq/paddock/types"
)

func raceKey(day string, raceNo int) types.RaceKey {
	return types.RaceKey{Day: day, Venue: "KWS", RaceNo: raceNo}
}

func record(key types.RaceKey, lane int, riderID string, finish int) types.ResultRecord {
	return types.ResultRecord{
		Key: key, Lane: lane, RiderID: riderID,
		RiderName: "Rider " + riderID, FinishOrder: finish,
		FinishSeconds: 11.5, Odds: 2.0,
	}
}

func TestMemoryStore_SaveLoadDelete(t *testing.T) {
	s := NewMemoryStore()
	key := raceKey("20250601", 1)

	if _, err := s.LoadResults(t.Context(), key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty store: want ErrNotFound, got %v", err)
	}

	records := []types.ResultRecord{record(key, 1, "r-1", 2), record(key, 2, "r-2", 1)}
	if err := s.SaveResults(t.Context(), key, records); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := s.LoadResults(t.Context(), key)
	if err != nil || len(loaded) != 2 {
		t.Fatalf("load: %v, %d records", err, len(loaded))
	}

	if err := s.DeleteResults(t.Context(), key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.LoadResults(t.Context(), key); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: want ErrNotFound, got %v", err)
	}

	// Deleting an absent key is not an error.
	if err := s.DeleteResults(t.Context(), key); err != nil {
		t.Errorf("double delete: %v", err)
	}
}

func TestMemoryStore_SaveReplacesPrevious(t *testing.T) {
	s := NewMemoryStore()
	key := raceKey("20250601", 1)

	_ = s.SaveResults(t.Context(), key, []types.ResultRecord{record(key, 1, "r-1", 1)})
	_ = s.SaveResults(t.Context(), key, []types.ResultRecord{record(key, 1, "r-9", 1)})

	loaded, err := s.LoadResults(t.Context(), key)
	if err != nil || len(loaded) != 1 {
		t.Fatalf("load: %v, %d records", err, len(loaded))
	}
	if loaded[0].RiderID != "r-9" {
		t.Errorf("save must replace previous records, got %s", loaded[0].RiderID)
	}
}

func TestMemoryStore_LoadHistory(t *testing.T) {
	s := NewMemoryStore()

	k1 := raceKey("20250601", 1)
	k2 := raceKey("20250602", 5)
	k3 := raceKey("20250603", 2)
	_ = s.SaveResults(t.Context(), k1, []types.ResultRecord{record(k1, 1, "r-1", 3)})
	_ = s.SaveResults(t.Context(), k2, []types.ResultRecord{record(k2, 4, "r-1", 1), record(k2, 5, "r-2", 2)})
	_ = s.SaveResults(t.Context(), k3, []types.ResultRecord{record(k3, 2, "r-1", 2)})

	history, err := s.LoadHistory(t.Context(), "r-1", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("want 3 history records, got %d", len(history))
	}
	if history[0].Key.Day != "20250603" || history[2].Key.Day != "20250601" {
		t.Errorf("history must be most recent first, got %s..%s", history[0].Key.Day, history[2].Key.Day)
	}

	limited, _ := s.LoadHistory(t.Context(), "r-1", 2)
	if len(limited) != 2 {
		t.Errorf("limit must cap history, got %d", len(limited))
	}

	none, err := s.LoadHistory(t.Context(), "unknown", 10)
	if err != nil || len(none) != 0 {
		t.Errorf("unknown rider: want empty history, got %v / %d", err, len(none))
	}
}

func TestMemoryStore_LoadCopiesRecords(t *testing.T) {
	s := NewMemoryStore()
	key := raceKey("20250601", 1)
	_ = s.SaveResults(t.Context(), key, []types.ResultRecord{record(key, 1, "r-1", 1)})

	loaded, _ := s.LoadResults(t.Context(), key)
	loaded[0].RiderID = "mutated"

	again, _ := s.LoadResults(t.Context(), key)
	if again[0].RiderID != "r-1" {
		t.Error("callers must not be able to mutate stored records")
	}
}
