package pricing

import "testing"

func TestPrice_KnownServices(t *testing.T) {
	if got := Price("Saç Kesimi"); got != 150 {
		t.Fatalf("expected 150, got %d", got)
	}
	if got := Price("  Sakal Tıraşı  "); got != 80 {
		t.Fatalf("expected 80 for padded name, got %d", got)
	}
}

func TestPrice_FallbackIsStable(t *testing.T) {
	first := Price("Ense Tıraşı")
	if first != FallbackPrice {
		t.Fatalf("expected fallback %d, got %d", FallbackPrice, first)
	}
	if again := Price("Ense Tıraşı"); again != first {
		t.Fatalf("price lookup must be idempotent: %d then %d", first, again)
	}
}

func TestTotal(t *testing.T) {
	got := Total([]string{"Saç Kesimi", "Sakal Tıraşı"})
	if got != 230 {
		t.Fatalf("expected 230, got %d", got)
	}
	if Total(nil) != 0 {
		t.Fatal("empty selection should total 0")
	}
}

func TestValidSlot(t *testing.T) {
	if !ValidSlot("09:00") || !ValidSlot("17:30") {
		t.Fatal("boundary slots should be valid")
	}
	if ValidSlot("18:00") || ValidSlot("") {
		t.Fatal("out-of-day slots should be invalid")
	}
}

func TestServicesCopyIsIsolated(t *testing.T) {
	list := Services()
	if len(list) != 8 {
		t.Fatalf("expected 8 catalog entries, got %d", len(list))
	}
	list[0].Price = 1
	if Price(list[0].Name) == 1 {
		t.Fatal("mutating the returned slice must not change the catalog")
	}
}
