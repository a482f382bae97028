package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sealevelil48/sealevel-dashboard/internal/errs"
	"github.com/sealevelil48/sealevel-dashboard/internal/repository"
	"github.com/sealevelil48/sealevel-dashboard/internal/server"
)

const dateLayout = "2006-01-02"

// maxDataPoints caps a single /data response; larger windows must paginate.
const maxDataPoints = 10000

// SeaLevelHandler serves the dashboard's measurement endpoints.
type SeaLevelHandler struct {
	Handler
	repos *repository.Repositories
}

func NewSeaLevelHandler(s *server.Server, repos *repository.Repositories) *SeaLevelHandler {
	return &SeaLevelHandler{Handler: NewHandler(s), repos: repos}
}

// GetStations returns the list of monitoring stations.
func (h *SeaLevelHandler) GetStations(c echo.Context) error {
	rs, err := h.repos.SeaLevels.Stations(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"stations": rs.Maps(),
		"count":    rs.RowCount(),
	})
}

// GetData returns measurements filtered by station and date range.
//
// Query params: station, start_date, end_date (YYYY-MM-DD, inclusive), limit.
func (h *SeaLevelHandler) GetData(c echo.Context) error {
	filter := repository.MeasurementsFilter{
		Station: c.QueryParam("station"),
		Limit:   maxDataPoints,
	}

	if raw := c.QueryParam("start_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return errs.NewBadRequestError("start_date must be YYYY-MM-DD")
		}
		filter.StartDate = t
	}
	if raw := c.QueryParam("end_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return errs.NewBadRequestError("end_date must be YYYY-MM-DD")
		}
		// Inclusive end date: extend to the end of the day.
		filter.EndDate = t.Add(24*time.Hour - time.Nanosecond)
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return errs.NewBadRequestError("limit must be a positive integer")
		}
		if limit < filter.Limit {
			filter.Limit = limit
		}
	}

	rs, err := h.repos.SeaLevels.Measurements(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data":  rs.Maps(),
		"count": rs.RowCount(),
	})
}

// GetLive returns the most recent reading for a station.
func (h *SeaLevelHandler) GetLive(c echo.Context) error {
	station := c.Param("station")
	if station == "" {
		return errs.NewBadRequestError("station is required")
	}

	rs, err := h.repos.SeaLevels.Live(c.Request().Context(), station)
	if err != nil {
		return err
	}
	if rs.RowCount() == 0 {
		return c.JSON(http.StatusOK, map[string]any{"station": station, "data": nil})
	}
	return c.JSON(http.StatusOK, map[string]any{"station": station, "data": rs.Maps()[0]})
}

// PostMeasurements ingests a batch of raw readings. Responds 207 semantics
// via the WriteError mapping: on partial failure the error body reports how
// many rows were committed.
func (h *SeaLevelHandler) PostMeasurements(c echo.Context) error {
	var body struct {
		Rows []map[string]any `json:"rows"`
	}
	if err := c.Bind(&body); err != nil {
		return errs.NewBadRequestError("request body must be {\"rows\": [...]}")
	}
	if len(body.Rows) == 0 {
		return errs.NewBadRequestError("rows must not be empty")
	}

	if err := h.repos.SeaLevels.InsertMeasurements(c.Request().Context(), body.Rows); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"inserted": len(body.Rows)})
}
