package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tripmate/internal/models"
)

const tripColumns = "id, owner_id, title, description, area, days, tags, start_date, end_date, view_count, created_via, created_at, updated_at"

// CreateTrip persists a new trip.
func (s *Store) CreateTrip(ctx context.Context, trip *models.Trip) error {
	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if trip.CreatedAt == 0 {
		trip.CreatedAt = now
	}
	trip.UpdatedAt = trip.CreatedAt

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO trips (`+tripColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), trip.ID, trip.OwnerID, trip.Title, trip.Description, trip.Area, trip.Days, trip.Tags,
		trip.StartDate, trip.EndDate, trip.ViewCount, trip.CreatedVia, trip.CreatedAt, trip.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}

	return nil
}

// GetTrip retrieves a trip by ID.
func (s *Store) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	trip, err := scanTrip(s.db.QueryRowContext(ctx, s.rebind(
		"SELECT "+tripColumns+" FROM trips WHERE id = ?",
	), tripID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("trip", tripID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

// ListTripsByOwner returns a user's trips, newest first.
func (s *Store) ListTripsByOwner(ctx context.Context, ownerID string, limit int) ([]*models.Trip, error) {
	return s.queryTrips(ctx, s.rebind(
		"SELECT "+tripColumns+" FROM trips WHERE owner_id = ? ORDER BY created_at DESC, id LIMIT ?",
	), ownerID, limit)
}

// UpdateTrip applies the non-nil fields of update to a trip owned by ownerID.
func (s *Store) UpdateTrip(ctx context.Context, tripID, ownerID string, update models.TripUpdate) (*models.Trip, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if update.Title != nil {
		set("title", *update.Title)
	}
	if update.Description != nil {
		set("description", *update.Description)
	}
	if update.Area != nil {
		set("area", *update.Area)
	}
	if update.Days != nil {
		set("days", *update.Days)
	}
	if update.Tags != nil {
		set("tags", *update.Tags)
	}
	if update.StartDate != nil {
		set("start_date", *update.StartDate)
	}
	if update.EndDate != nil {
		set("end_date", *update.EndDate)
	}
	set("updated_at", time.Now().Unix())
	args = append(args, tripID, ownerID)

	res, err := s.db.ExecContext(ctx, s.rebind(
		"UPDATE trips SET "+strings.Join(sets, ", ")+" WHERE id = ? AND owner_id = ?",
	), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update trip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check updated trip: %w", err)
	}
	if n == 0 {
		return nil, notFound("trip", tripID)
	}

	return s.GetTrip(ctx, tripID)
}

// DeleteTrip removes a trip owned by ownerID.
func (s *Store) DeleteTrip(ctx context.Context, tripID, ownerID string) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM trips WHERE id = ? AND owner_id = ?"), tripID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted trip: %w", err)
	}
	if n == 0 {
		return notFound("trip", tripID)
	}
	return nil
}

// ListTrips returns one page of filtered, sorted trips and the number of
// trips matching the filter.
func (s *Store) ListTrips(ctx context.Context, q models.TripQuery) ([]*models.Trip, int64, error) {
	where, args := buildTripWhere(q.Filter)

	var total int64
	if err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM trips "+where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
	}

	pageArgs := append(append([]any{}, args...), q.Limit, q.Offset)
	trips, err := s.queryTrips(ctx, s.rebind(
		"SELECT "+tripColumns+" FROM trips "+where+" "+tripOrderBy(q.Sort, q.Desc)+" LIMIT ? OFFSET ?",
	), pageArgs...)
	if err != nil {
		return nil, 0, err
	}

	return trips, total, nil
}

// TripFilters returns the distinct non-empty areas and the distinct tags
// found across all trips, both sorted.
func (s *Store) TripFilters(ctx context.Context) ([]string, []string, error) {
	areas, err := s.queryStrings(ctx, "SELECT DISTINCT area FROM trips WHERE area <> '' ORDER BY area")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list areas: %w", err)
	}

	tagStrings, err := s.queryStrings(ctx, "SELECT tags FROM trips WHERE tags <> ''")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list tags: %w", err)
	}
	seen := make(map[string]bool)
	var tags []string
	for _, ts := range tagStrings {
		for _, tag := range models.SplitTags(ts) {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	sort.Strings(tags)

	return areas, tags, nil
}

// IncrementViewCount adds one view to a trip.
func (s *Store) IncrementViewCount(ctx context.Context, tripID string) error {
	res, err := s.db.ExecContext(ctx, s.rebind("UPDATE trips SET view_count = view_count + 1 WHERE id = ?"), tripID)
	if err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated trip: %w", err)
	}
	if n == 0 {
		return notFound("trip", tripID)
	}
	return nil
}

// RankTrips returns up to limit trips ranked by kind:
//   - RankByViews: most viewed, newer first on ties
//   - RankByDate: upcoming trips (start date today or later), soonest first
//   - RankByArea: the most viewed trip of each of the most popular areas
func (s *Store) RankTrips(ctx context.Context, kind models.RankingKind, limit int) ([]*models.RankedTrip, error) {
	switch kind {
	case models.RankByArea:
		return s.rankByArea(ctx, limit)
	case models.RankByDate:
		trips, err := s.queryTrips(ctx, s.rebind(
			"SELECT "+tripColumns+" FROM trips WHERE start_date >= ? ORDER BY start_date ASC, id LIMIT ?",
		), time.Now().Format(time.DateOnly), limit)
		return ranked(trips), err
	default:
		trips, err := s.queryTrips(ctx, s.rebind(
			"SELECT "+tripColumns+" FROM trips ORDER BY view_count DESC, created_at DESC, id LIMIT ?",
		), limit)
		return ranked(trips), err
	}
}

func (s *Store) rankByArea(ctx context.Context, limit int) ([]*models.RankedTrip, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT area, COUNT(*) AS area_count
		FROM trips
		WHERE area <> ''
		GROUP BY area
		ORDER BY area_count DESC, area
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank areas: %w", err)
	}
	defer rows.Close()

	type areaCount struct {
		area  string
		count int64
	}
	var areas []areaCount
	for rows.Next() {
		var ac areaCount
		if err := rows.Scan(&ac.area, &ac.count); err != nil {
			return nil, fmt.Errorf("failed to scan area: %w", err)
		}
		areas = append(areas, ac)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate areas: %w", err)
	}
	rows.Close()

	out := make([]*models.RankedTrip, 0, len(areas))
	for _, ac := range areas {
		trip, err := scanTrip(s.db.QueryRowContext(ctx, s.rebind(
			"SELECT "+tripColumns+" FROM trips WHERE area = ? ORDER BY view_count DESC, created_at DESC, id LIMIT 1",
		), ac.area))
		if err != nil {
			return nil, fmt.Errorf("failed to get top trip for area %q: %w", ac.area, err)
		}
		out = append(out, &models.RankedTrip{Trip: *trip, AreaCount: ac.count})
	}

	return out, nil
}

func (s *Store) queryTrips(ctx context.Context, query string, args ...any) ([]*models.Trip, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	var trips []*models.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trips: %w", err)
	}

	return trips, nil
}

func (s *Store) queryStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanTrip(row rowScanner) (*models.Trip, error) {
	t := &models.Trip{}
	err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Area, &t.Days, &t.Tags,
		&t.StartDate, &t.EndDate, &t.ViewCount, &t.CreatedVia, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func ranked(trips []*models.Trip) []*models.RankedTrip {
	out := make([]*models.RankedTrip, len(trips))
	for i, t := range trips {
		out[i] = &models.RankedTrip{Trip: *t}
	}
	return out
}
