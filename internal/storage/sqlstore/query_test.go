package sqlstore

import (
	"testing"

	"github.com/mmynk/tripmate/internal/models"
)

func TestTripOrderBy(t *testing.T) {
	tests := []struct {
		sort string
		desc bool
		want string
	}{
		{"title", false, "ORDER BY title ASC, id ASC"},
		{"view_count", true, "ORDER BY view_count DESC, id DESC"},
		{"", true, "ORDER BY created_at DESC, id DESC"},
		{"1; DROP TABLE trips", false, "ORDER BY created_at ASC, id ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.sort, func(t *testing.T) {
			if got := tripOrderBy(tt.sort, tt.desc); got != tt.want {
				t.Errorf("tripOrderBy(%q, %v) = %q, want %q", tt.sort, tt.desc, got, tt.want)
			}
		})
	}
}

func TestBuildTripWhere(t *testing.T) {
	where, args := buildTripWhere(models.TripFilter{})
	if where != "" || args != nil {
		t.Errorf("empty filter: got %q %v", where, args)
	}

	where, args = buildTripWhere(models.TripFilter{Area: "Taipei", EndDate: "2026-12-31"})
	if where != "WHERE area = ? AND end_date <= ?" {
		t.Errorf("where = %q", where)
	}
	if len(args) != 2 || args[0] != "Taipei" || args[1] != "2026-12-31" {
		t.Errorf("args = %v", args)
	}

	_, args = buildTripWhere(models.TripFilter{Search: "x"})
	if len(args) != 4 {
		t.Errorf("search should bind one pattern per column, got %d args", len(args))
	}
}

func TestContainsPattern(t *testing.T) {
	tests := map[string]string{
		"beach":  "%beach%",
		"50%":    `%50\%%`,
		"a_b":    `%a\_b%`,
		`c:\tmp`: `%c:\\tmp%`,
	}
	for in, want := range tests {
		if got := containsPattern(in); got != want {
			t.Errorf("containsPattern(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRebind(t *testing.T) {
	sqlite := &Store{}
	pg := &Store{postgres: true}

	q := "SELECT a FROM t WHERE b = ? AND c = ?"
	if got := sqlite.rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
	if got := pg.rebind(q); got != "SELECT a FROM t WHERE b = $1 AND c = $2" {
		t.Errorf("postgres rebind = %q", got)
	}
}
