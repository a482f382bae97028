package repository

import (
	"context"
	"strings"
	"time"

	"github.com/sealevelil48/sealevel-dashboard/internal/database"
	"github.com/sealevelil48/sealevel-dashboard/internal/server"
)

// Cache TTLs per query family. Station metadata changes rarely; historical
// measurements are stable once written; live readings go stale fast.
const (
	stationsTTL     = 10 * time.Minute
	measurementsTTL = 5 * time.Minute
	liveTTL         = 30 * time.Second
)

const stationsQuery = `
	SELECT DISTINCT l."Station"
	FROM locations l
	ORDER BY l."Station"`

const liveQuery = `
	SELECT l."Station", m."Tab_DateTime", m."Tab_Value_mDepthC1", m."Tab_Value_monT2m"
	FROM monitors m
	JOIN locations l ON m."Tab_TabularTag" = l."Tab_TabularTag"
	WHERE l."Station" = @station
	ORDER BY m."Tab_DateTime" DESC
	LIMIT 1`

// SeaLevelRepository serves the sea-level measurement queries.
type SeaLevelRepository struct {
	server *server.Server
}

func NewSeaLevelRepository(s *server.Server) *SeaLevelRepository {
	return &SeaLevelRepository{server: s}
}

// MeasurementsFilter narrows the measurement query. Zero values mean "no
// filter"; dates are inclusive.
type MeasurementsFilter struct {
	Station   string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// Stations returns the list of monitoring stations.
func (r *SeaLevelRepository) Stations(ctx context.Context) (*database.ResultSet, error) {
	return r.server.DB.Execute(ctx, stationsQuery, nil, stationsTTL, 0)
}

// Measurements returns sea-level readings matching the filter, ordered by
// time. The WHERE clause is assembled from named parameters only; filter
// values never reach the SQL text.
func (r *SeaLevelRepository) Measurements(ctx context.Context, filter MeasurementsFilter) (*database.ResultSet, error) {
	query, params := buildMeasurementsQuery(filter)
	return r.server.DB.Execute(ctx, query, params, measurementsTTL, 0)
}

func buildMeasurementsQuery(filter MeasurementsFilter) (string, map[string]any) {
	var sb strings.Builder
	sb.WriteString(`
	SELECT l."Station", m."Tab_DateTime", m."Tab_Value_mDepthC1", m."Tab_Value_monT2m"
	FROM monitors m
	JOIN locations l ON m."Tab_TabularTag" = l."Tab_TabularTag"
	WHERE 1=1`)

	params := map[string]any{}
	if filter.Station != "" && filter.Station != "All Stations" {
		sb.WriteString(` AND l."Station" = @station`)
		params["station"] = filter.Station
	}
	if !filter.StartDate.IsZero() {
		sb.WriteString(` AND m."Tab_DateTime" >= @start_date`)
		params["start_date"] = filter.StartDate
	}
	if !filter.EndDate.IsZero() {
		sb.WriteString(` AND m."Tab_DateTime" <= @end_date`)
		params["end_date"] = filter.EndDate
	}
	sb.WriteString(` ORDER BY m."Tab_DateTime"`)
	if filter.Limit > 0 {
		sb.WriteString(` LIMIT @row_limit`)
		params["row_limit"] = filter.Limit
	}

	return sb.String(), params
}

// Live returns the most recent reading for a station.
func (r *SeaLevelRepository) Live(ctx context.Context, station string) (*database.ResultSet, error) {
	params := map[string]any{"station": station}
	return r.server.DB.Execute(ctx, liveQuery, params, liveTTL, 0)
}

// InsertMeasurements persists a batch of raw readings into the monitors
// table. Writes go through the bulk writer, so very large batches commit in
// windows; see database.Manager.BulkInsert for the partial-success contract.
func (r *SeaLevelRepository) InsertMeasurements(ctx context.Context, rows []map[string]any) error {
	return r.server.DB.BulkInsert(ctx, "monitors", rows, 0)
}
