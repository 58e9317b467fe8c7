package jobs

import "testing"

func TestCanTransition(t *testing.T) {
	legal := map[[2]Status]bool{
		{StatusQueued, StatusProcessing}:     true,
		{StatusProcessing, StatusProcessing}: true,
		{StatusProcessing, StatusAssembling}: true,
		{StatusProcessing, StatusError}:      true,
		{StatusAssembling, StatusAssembling}: true,
		{StatusAssembling, StatusReady}:      true,
		{StatusAssembling, StatusError}:      true,
	}
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := legal[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStatesHaveNoSuccessors(t *testing.T) {
	for _, from := range []Status{StatusReady, StatusError} {
		if !from.IsTerminal() || from.IsActive() {
			t.Fatalf("expected %s to be terminal", from)
		}
		for _, to := range allStatuses {
			if CanTransition(from, to) {
				t.Fatalf("terminal %s must not transition to %s", from, to)
			}
		}
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ParseStatus(" Ready "); !ok || status != StatusReady {
		t.Fatalf("unexpected parse: %v %v", status, ok)
	}
	if _, ok := ParseStatus("failed"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestRebindNumbersPlaceholders(t *testing.T) {
	got := postgresDialect.rebind("UPDATE jobs SET a = ?, b = ? WHERE id IN (?,?)")
	want := "UPDATE jobs SET a = $1, b = $2 WHERE id IN ($3,$4)"
	if got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}
	if sqliteDialect.rebind("a = ?") != "a = ?" {
		t.Fatal("sqlite queries must be left untouched")
	}
}
