package perms

import "testing"

func TestLevelName(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{AccessInvalid, "Invalid"},
		{AccessNone, "No access"},
		{AccessOverview, "Overview access"},
		{AccessRead, "Read access"},
		{AccessComment, "Comment access"},
		{AccessModerate, "Moderate access"},
		{AccessEdit, "Edit access"},
		{AccessAdd, "Add access"},
		{AccessDelete, "Delete access"},
		{AccessAdmin, "Admin access"},
		// anything undefined maps to the Invalid label
		{Level(50), "Invalid"},
		{Level(900), "Invalid"},
		{Level(-42), "Invalid"},
	}

	for _, tt := range tests {
		if got := tt.level.Name(); got != tt.want {
			t.Errorf("Level(%d).Name() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestAccessLevels(t *testing.T) {
	levels := AccessLevels()
	if len(levels) != 9 {
		t.Fatalf("expected 9 defined levels, got %d", len(levels))
	}
	for i := 1; i < len(levels); i++ {
		if levels[i].Level <= levels[i-1].Level {
			t.Errorf("levels not ascending at index %d", i)
		}
	}
	for _, ln := range levels {
		if ln.Level == AccessInvalid {
			t.Error("AccessInvalid must not appear in the picker list")
		}
	}
}
