package sqlstore

import (
	"strings"

	"github.com/mmynk/tripmate/internal/models"
)

// DefaultTripSort is used for unknown or empty sort fields.
const DefaultTripSort = "created_at"

// tripSortColumns whitelists the fields a listing may be ordered by.
// Sort values are interpolated into SQL, so nothing else may get through.
var tripSortColumns = map[string]string{
	"created_at": "created_at",
	"title":      "title",
	"start_date": "start_date",
	"end_date":   "end_date",
	"area":       "area",
	"view_count": "view_count",
}

// tripOrderBy returns the ORDER BY clause for a listing. ID breaks ties so
// that pages do not overlap.
func tripOrderBy(sort string, desc bool) string {
	col, ok := tripSortColumns[sort]
	if !ok {
		col = tripSortColumns[DefaultTripSort]
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return "ORDER BY " + col + " " + dir + ", id " + dir
}

// buildTripWhere turns the optional filters into a WHERE clause (empty when
// no filter is set) and its positional arguments.
func buildTripWhere(f models.TripFilter) (string, []any) {
	var conds []string
	var args []any

	if f.Area != "" {
		conds = append(conds, "area = ?")
		args = append(args, f.Area)
	}
	if f.Tag != "" {
		conds = append(conds, `tags LIKE ? ESCAPE '\'`)
		args = append(args, containsPattern(f.Tag))
	}
	if f.StartDate != "" {
		conds = append(conds, "start_date >= ?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		conds = append(conds, "end_date <= ?")
		args = append(args, f.EndDate)
	}
	if f.Search != "" {
		conds = append(conds, `(title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\' OR area LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`)
		p := containsPattern(f.Search)
		args = append(args, p, p, p, p)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s literally anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
