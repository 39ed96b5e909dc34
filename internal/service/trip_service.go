package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/tripmate/internal/middleware"
	"github.com/mmynk/tripmate/internal/models"
	"github.com/mmynk/tripmate/internal/paging"
	"github.com/mmynk/tripmate/internal/rpc"
	"github.com/mmynk/tripmate/internal/storage"
)

const TripServiceName = "tripmate.v1.TripService"

// Authenticated procedures.
const (
	CreateTripProcedure  = "/" + TripServiceName + "/CreateTrip"
	ListMyTripsProcedure = "/" + TripServiceName + "/ListMyTrips"
	UpdateTripProcedure  = "/" + TripServiceName + "/UpdateTrip"
	DeleteTripProcedure  = "/" + TripServiceName + "/DeleteTrip"
)

// Public procedures.
const (
	ListTripsProcedure     = "/" + TripServiceName + "/ListTrips"
	GetFiltersProcedure    = "/" + TripServiceName + "/GetFilters"
	GetTripProcedure       = "/" + TripServiceName + "/GetTrip"
	IncrementViewProcedure = "/" + TripServiceName + "/IncrementView"
	GetRankingsProcedure   = "/" + TripServiceName + "/GetRankings"
)

const (
	myTripsLimit  = 10
	rankingsLimit = 10
)

// TripInfo is the wire form of a trip.
type TripInfo struct {
	ID          string   `json:"id"`
	OwnerID     string   `json:"owner_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Area        string   `json:"area,omitempty"`
	Days        int      `json:"days"`
	Tags        []string `json:"tags"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	ViewCount   int64    `json:"view_count"`
	CreatedAt   int64    `json:"created_at"`
	UpdatedAt   int64    `json:"updated_at"`
}

// RankedTripInfo is a ranking entry; AreaCount is set for area rankings.
type RankedTripInfo struct {
	*TripInfo
	Rank      int   `json:"rank"`
	AreaCount int64 `json:"area_count,omitempty"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

type CreateTripRequest struct {
	middleware.BodyCredentials
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Area        string `json:"area,omitempty"`
	Days        int    `json:"days,omitempty"`
	Tags        string `json:"tags,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

type TripResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Trip    *TripInfo `json:"trip"`
}

type ListMyTripsRequest struct {
	middleware.BodyCredentials
}

type ListMyTripsResponse struct {
	Success bool        `json:"success"`
	Trips   []*TripInfo `json:"trips"`
}

// UpdateTripRequest is a partial update: omitted fields are left unchanged.
type UpdateTripRequest struct {
	middleware.BodyCredentials
	TripID      string  `json:"trip_id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Area        *string `json:"area,omitempty"`
	Days        *int    `json:"days,omitempty"`
	Tags        *string `json:"tags,omitempty"`
	StartDate   *string `json:"start_date,omitempty"`
	EndDate     *string `json:"end_date,omitempty"`
}

type DeleteTripRequest struct {
	middleware.BodyCredentials
	TripID string `json:"trip_id"`
}

type DeleteTripResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ListTripsRequest struct {
	Page      int    `json:"page,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Sort      string `json:"sort,omitempty"`
	Order     string `json:"order,omitempty"`
	Area      string `json:"area,omitempty"`
	Tag       string `json:"tag,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Search    string `json:"search,omitempty"`
}

type ListTripsResponse struct {
	Success    bool        `json:"success"`
	Trips      []*TripInfo `json:"trips"`
	Pagination Pagination  `json:"pagination"`
}

type GetFiltersRequest struct{}

type GetFiltersResponse struct {
	Success bool     `json:"success"`
	Areas   []string `json:"areas"`
	Tags    []string `json:"tags"`
}

type GetTripRequest struct {
	TripID string `json:"trip_id"`
}

type IncrementViewRequest struct {
	TripID string `json:"trip_id"`
}

type IncrementViewResponse struct {
	Success bool `json:"success"`
}

type GetRankingsRequest struct {
	Type string `json:"type,omitempty"`
}

type GetRankingsResponse struct {
	Success bool              `json:"success"`
	Type    string            `json:"type"`
	Trips   []*RankedTripInfo `json:"trips"`
}

// TripService implements trip management for the bot and the public trip
// listing of the site.
type TripService struct {
	store storage.TripStore
}

// NewTripService creates a new TripService with the given storage backend.
func NewTripService(store storage.TripStore) *TripService {
	return &TripService{store: store}
}

// AuthenticatedRoutes returns the procedures that act on the caller's own
// trips. opts should include the authentication interceptor.
func (s *TripService) AuthenticatedRoutes(opts ...connect.HandlerOption) []rpc.Route {
	return []rpc.Route{
		rpc.Unary(CreateTripProcedure, s.CreateTrip, opts...),
		rpc.Unary(ListMyTripsProcedure, s.ListMyTrips, opts...),
		rpc.Unary(UpdateTripProcedure, s.UpdateTrip, opts...),
		rpc.Unary(DeleteTripProcedure, s.DeleteTrip, opts...),
	}
}

// PublicRoutes returns the read-only listing procedures.
func (s *TripService) PublicRoutes(opts ...connect.HandlerOption) []rpc.Route {
	return []rpc.Route{
		rpc.Unary(ListTripsProcedure, s.ListTrips, opts...),
		rpc.Unary(GetFiltersProcedure, s.GetFilters, opts...),
		rpc.Unary(GetTripProcedure, s.GetTrip, opts...),
		rpc.Unary(IncrementViewProcedure, s.IncrementView, opts...),
		rpc.Unary(GetRankingsProcedure, s.GetRankings, opts...),
	}
}

// CreateTrip creates a trip owned by the caller.
func (s *TripService) CreateTrip(ctx context.Context, req *connect.Request[CreateTripRequest]) (*connect.Response[TripResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	msg := req.Msg
	trip := &models.Trip{
		OwnerID:     userID,
		Title:       strings.TrimSpace(msg.Title),
		Description: strings.TrimSpace(msg.Description),
		Area:        strings.TrimSpace(msg.Area),
		Days:        msg.Days,
		Tags:        normalizeTags(msg.Tags),
		StartDate:   msg.StartDate,
		EndDate:     msg.EndDate,
		CreatedVia:  models.CreatedViaLineBot,
	}
	if err := validateTrip(trip); err != nil {
		return nil, err
	}

	if err := s.store.CreateTrip(ctx, trip); err != nil {
		return nil, toConnectError("CreateTrip", err)
	}

	slog.Info("Trip created", "trip_id", trip.ID, "owner_id", userID, "area", trip.Area)

	return connect.NewResponse(&TripResponse{
		Success: true,
		Message: "Trip created",
		Trip:    tripInfo(trip),
	}), nil
}

// ListMyTrips returns the caller's newest trips.
func (s *TripService) ListMyTrips(ctx context.Context, req *connect.Request[ListMyTripsRequest]) (*connect.Response[ListMyTripsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	trips, err := s.store.ListTripsByOwner(ctx, userID, myTripsLimit)
	if err != nil {
		return nil, toConnectError("ListMyTrips", err)
	}

	return connect.NewResponse(&ListMyTripsResponse{Success: true, Trips: tripInfos(trips)}), nil
}

// UpdateTrip applies a partial update to one of the caller's trips.
func (s *TripService) UpdateTrip(ctx context.Context, req *connect.Request[UpdateTripRequest]) (*connect.Response[TripResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	msg := req.Msg
	if msg.TripID == "" {
		return nil, invalidArgument("trip_id is required")
	}

	update := models.TripUpdate{
		Title:       trimmed(msg.Title),
		Description: trimmed(msg.Description),
		Area:        trimmed(msg.Area),
		Days:        msg.Days,
		StartDate:   msg.StartDate,
		EndDate:     msg.EndDate,
	}
	if msg.Tags != nil {
		tags := normalizeTags(*msg.Tags)
		update.Tags = &tags
	}
	if update.Title != nil && *update.Title == "" {
		return nil, invalidArgument("title cannot be empty")
	}
	if update.Days != nil && *update.Days < 0 {
		return nil, invalidArgument("days cannot be negative")
	}
	for _, d := range []*string{update.StartDate, update.EndDate} {
		if d != nil && *d != "" {
			if _, err := time.Parse(time.DateOnly, *d); err != nil {
				return nil, invalidArgument("dates must be YYYY-MM-DD")
			}
		}
	}

	trip, err := s.store.UpdateTrip(ctx, msg.TripID, userID, update)
	if err != nil {
		return nil, toConnectError("UpdateTrip", err)
	}
	if trip.StartDate != "" && trip.EndDate != "" && trip.EndDate < trip.StartDate {
		slog.Warn("Trip ends before it starts", "trip_id", trip.ID, "start_date", trip.StartDate, "end_date", trip.EndDate)
	}

	slog.Info("Trip updated", "trip_id", trip.ID, "owner_id", userID)

	return connect.NewResponse(&TripResponse{
		Success: true,
		Message: "Trip updated",
		Trip:    tripInfo(trip),
	}), nil
}

// DeleteTrip deletes one of the caller's trips.
func (s *TripService) DeleteTrip(ctx context.Context, req *connect.Request[DeleteTripRequest]) (*connect.Response[DeleteTripResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.TripID == "" {
		return nil, invalidArgument("trip_id is required")
	}

	if err := s.store.DeleteTrip(ctx, req.Msg.TripID, userID); err != nil {
		return nil, toConnectError("DeleteTrip", err)
	}

	slog.Info("Trip deleted", "trip_id", req.Msg.TripID, "owner_id", userID)

	return connect.NewResponse(&DeleteTripResponse{Success: true, Message: "Trip deleted"}), nil
}

// ListTrips returns one page of public trips.
func (s *TripService) ListTrips(ctx context.Context, req *connect.Request[ListTripsRequest]) (*connect.Response[ListTripsResponse], error) {
	msg := req.Msg
	page := paging.Normalize(msg.Page, msg.Limit)

	query := models.TripQuery{
		Filter: models.TripFilter{
			Area:      strings.TrimSpace(msg.Area),
			Tag:       strings.TrimSpace(msg.Tag),
			StartDate: msg.StartDate,
			EndDate:   msg.EndDate,
			Search:    strings.TrimSpace(msg.Search),
		},
		Sort:   msg.Sort,
		Desc:   !strings.EqualFold(msg.Order, "ASC"),
		Limit:  page.Limit,
		Offset: page.Offset(),
	}

	trips, total, err := s.store.ListTrips(ctx, query)
	if err != nil {
		return nil, toConnectError("ListTrips", err)
	}

	slog.Debug("Trips listed", "page", page.Number, "limit", page.Limit, "total", total)

	return connect.NewResponse(&ListTripsResponse{
		Success: true,
		Trips:   tripInfos(trips),
		Pagination: Pagination{
			Page:       page.Number,
			Limit:      page.Limit,
			Total:      total,
			TotalPages: page.TotalPages(total),
		},
	}), nil
}

// GetFilters returns the areas and tags a listing can be filtered by.
func (s *TripService) GetFilters(ctx context.Context, req *connect.Request[GetFiltersRequest]) (*connect.Response[GetFiltersResponse], error) {
	areas, tags, err := s.store.TripFilters(ctx)
	if err != nil {
		return nil, toConnectError("GetFilters", err)
	}
	if areas == nil {
		areas = []string{}
	}
	if tags == nil {
		tags = []string{}
	}

	return connect.NewResponse(&GetFiltersResponse{Success: true, Areas: areas, Tags: tags}), nil
}

// GetTrip returns a single trip.
func (s *TripService) GetTrip(ctx context.Context, req *connect.Request[GetTripRequest]) (*connect.Response[TripResponse], error) {
	if req.Msg.TripID == "" {
		return nil, invalidArgument("trip_id is required")
	}

	trip, err := s.store.GetTrip(ctx, req.Msg.TripID)
	if err != nil {
		return nil, toConnectError("GetTrip", err)
	}

	return connect.NewResponse(&TripResponse{Success: true, Trip: tripInfo(trip)}), nil
}

// IncrementView counts one view of a trip page.
func (s *TripService) IncrementView(ctx context.Context, req *connect.Request[IncrementViewRequest]) (*connect.Response[IncrementViewResponse], error) {
	if req.Msg.TripID == "" {
		return nil, invalidArgument("trip_id is required")
	}

	if err := s.store.IncrementViewCount(ctx, req.Msg.TripID); err != nil {
		return nil, toConnectError("IncrementView", err)
	}

	return connect.NewResponse(&IncrementViewResponse{Success: true}), nil
}

// GetRankings returns the top trips by views, area popularity or start date.
func (s *TripService) GetRankings(ctx context.Context, req *connect.Request[GetRankingsRequest]) (*connect.Response[GetRankingsResponse], error) {
	kind := models.ParseRankingKind(req.Msg.Type)

	ranked, err := s.store.RankTrips(ctx, kind, rankingsLimit)
	if err != nil {
		return nil, toConnectError("GetRankings", err)
	}

	infos := make([]*RankedTripInfo, len(ranked))
	for i, r := range ranked {
		infos[i] = &RankedTripInfo{
			TripInfo:  tripInfo(&r.Trip),
			Rank:      i + 1,
			AreaCount: r.AreaCount,
		}
	}

	return connect.NewResponse(&GetRankingsResponse{Success: true, Type: string(kind), Trips: infos}), nil
}

func validateTrip(t *models.Trip) error {
	if t.Title == "" {
		return invalidArgument("title is required")
	}
	if t.Days < 0 {
		return invalidArgument("days cannot be negative")
	}
	for _, d := range []string{t.StartDate, t.EndDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return invalidArgument("dates must be YYYY-MM-DD")
		}
	}
	if t.StartDate != "" && t.EndDate != "" && t.EndDate < t.StartDate {
		return invalidArgument("end_date %s is before start_date %s", t.EndDate, t.StartDate)
	}
	return nil
}

// normalizeTags trims each tag and drops empty ones.
func normalizeTags(tags string) string {
	return strings.Join(models.SplitTags(tags), ",")
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func tripInfo(t *models.Trip) *TripInfo {
	tags := t.TagList()
	if tags == nil {
		tags = []string{}
	}
	return &TripInfo{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Area:        t.Area,
		Days:        t.Days,
		Tags:        tags,
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
		ViewCount:   t.ViewCount,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func tripInfos(trips []*models.Trip) []*TripInfo {
	infos := make([]*TripInfo, len(trips))
	for i, t := range trips {
		infos[i] = tripInfo(t)
	}
	return infos
}
