package controller

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"versalex-ingest/internal/dto"
	"versalex-ingest/internal/model"
	"versalex-ingest/internal/service"
	"versalex-ingest/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type MetricController struct {
	metricQueryService service.MetricQueryService
}

func NewMetricController(metricQueryService service.MetricQueryService) *MetricController {
	return &MetricController{
		metricQueryService: metricQueryService,
	}
}

func RegisterMetricRoutes(router *gin.Engine, controller *MetricController) {
	v1Metrics := router.Group("/api/v1/metrics")
	{
		v1Metrics.GET("/summary", controller.GetSummaryMetrics)
		v1Metrics.GET("/timeseries", controller.GetTimeseriesMetrics)
		v1Metrics.GET("/distribution", controller.GetDistribution)
		v1Metrics.GET("/hosts", controller.GetHosts)
	}
}

// respondQueryError maps validation failures to 400 and everything else to 500.
func respondQueryError(ctx *gin.Context, err error, what string) {
	log.Error().Err(err).Msgf("Error getting %s", what)
	if strings.Contains(err.Error(), "invalid") {
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return
	}
	ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to get "+what, nil))
}

// GetSummaryMetrics godoc
// @Summary      Get summary metrics
// @Description  Retrieves event, error and transfer totals within a time range, optionally filtered by hosts.
// @Tags         metrics
// @Accept       json
// @Produce      json
// @Param        startTime  query     string  true   "Start time (ISO 8601, epoch ms or VersaLex date)"
// @Param        endTime    query     string  true   "End time (ISO 8601, epoch ms or VersaLex date)"
// @Param        hosts      query     string  false  "Comma-separated list of shipping hosts"
// @Success      200        {object}  dto.MetricSummaryResponse "Successfully retrieved summary metrics"
// @Failure      400        {object}  model.Response "Invalid query parameters"
// @Failure      500        {object}  model.Response "Internal server error"
// @Router       /api/v1/metrics/summary [get]
func (c *MetricController) GetSummaryMetrics(ctx *gin.Context) {
	startTime, endTime, hosts, err := parseBaseQueryParams(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return
	}

	req := dto.MetricSummaryRequest{
		StartTime: startTime,
		EndTime:   endTime,
		Hosts:     hosts,
	}

	result, err := c.metricQueryService.GetSummary(ctx.Request.Context(), req)
	if err != nil {
		respondQueryError(ctx, err, "summary metrics")
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetTimeseriesMetrics godoc
// @Summary      Get timeseries metrics
// @Description  Retrieves timeseries data for a metric, bucketed by interval and optionally grouped by event type, thread or host.
// @Tags         metrics
// @Accept       json
// @Produce      json
// @Param        startTime   query     string  true   "Start time (ISO 8601, epoch ms or VersaLex date)"
// @Param        endTime     query     string  true   "End time (ISO 8601, epoch ms or VersaLex date)"
// @Param        hosts       query     string  false  "Comma-separated list of shipping hosts"
// @Param        metricName  query     string  true   "Metric name" Enums(versalex_event, error_event, transfer_event)
// @Param        interval    query     string  true   "Bucket width" Enums(1 minute, 5 minute, 10 minute, 30 minute, 1 hour, 1 day)
// @Param        groupBy     query     string  false  "Grouping (default: total)" Enums(type, thread, host, total)
// @Success      200         {object}  dto.MetricTimeseriesResponse "Successfully retrieved timeseries metrics"
// @Failure      400         {object}  model.Response "Invalid query parameters"
// @Failure      500         {object}  model.Response "Internal server error"
// @Router       /api/v1/metrics/timeseries [get]
func (c *MetricController) GetTimeseriesMetrics(ctx *gin.Context) {
	startTime, endTime, hosts, err := parseBaseQueryParams(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return
	}

	metricName := ctx.Query("metricName")
	interval := ctx.Query("interval")
	if metricName == "" {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("metricName is required", nil))
		return
	}
	if interval == "" {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("interval is required", nil))
		return
	}

	req := dto.MetricTimeseriesRequest{
		StartTime:  startTime,
		EndTime:    endTime,
		Hosts:      hosts,
		MetricName: metricName,
		Interval:   interval,
		GroupBy:    ctx.DefaultQuery("groupBy", "total"),
	}

	result, err := c.metricQueryService.GetTimeseries(ctx.Request.Context(), req)
	if err != nil {
		respondQueryError(ctx, err, "timeseries metrics")
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetDistribution godoc
// @Summary      Get metric distribution
// @Description  Counts a metric per event type, thread or host within a time range.
// @Tags         metrics
// @Accept       json
// @Produce      json
// @Param        startTime   query     string  true   "Start time (ISO 8601, epoch ms or VersaLex date)"
// @Param        endTime     query     string  true   "End time (ISO 8601, epoch ms or VersaLex date)"
// @Param        hosts       query     string  false  "Comma-separated list of shipping hosts"
// @Param        metricName  query     string  true   "Metric name" Enums(versalex_event, error_event, transfer_event)
// @Param        dimension   query     string  true   "Dimension to count by" Enums(type, thread, host)
// @Success      200         {object}  dto.MetricDistributionResponse "Successfully retrieved distribution"
// @Failure      400         {object}  model.Response "Invalid query parameters"
// @Failure      500         {object}  model.Response "Internal server error"
// @Router       /api/v1/metrics/distribution [get]
func (c *MetricController) GetDistribution(ctx *gin.Context) {
	startTime, endTime, hosts, err := parseBaseQueryParams(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return
	}

	req := dto.MetricDistributionRequest{
		StartTime:  startTime,
		EndTime:    endTime,
		Hosts:      hosts,
		MetricName: ctx.DefaultQuery("metricName", "versalex_event"),
		Dimension:  ctx.DefaultQuery("dimension", "type"),
	}

	result, err := c.metricQueryService.GetDistribution(ctx.Request.Context(), req)
	if err != nil {
		respondQueryError(ctx, err, "metric distribution")
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetHosts godoc
// @Summary      Get distinct shipping hosts
// @Description  Retrieves the hosts that shipped events within a time range.
// @Tags         metrics
// @Accept       json
// @Produce      json
// @Param        startTime  query     string  true   "Start time (ISO 8601, epoch ms or VersaLex date)"
// @Param        endTime    query     string  true   "End time (ISO 8601, epoch ms or VersaLex date)"
// @Success      200        {object}  dto.HostListResponse "Successfully retrieved host list"
// @Failure      400        {object}  model.Response "Invalid query parameters"
// @Failure      500        {object}  model.Response "Internal server error"
// @Router       /api/v1/metrics/hosts [get]
func (c *MetricController) GetHosts(ctx *gin.Context) {
	startTime, endTime, _, err := parseBaseQueryParams(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return
	}

	result, err := c.metricQueryService.GetHosts(ctx.Request.Context(), dto.HostListRequest{
		StartTime: startTime,
		EndTime:   endTime,
	})
	if err != nil {
		respondQueryError(ctx, err, "hosts")
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func parseBaseQueryParams(ctx *gin.Context) (time.Time, time.Time, []string, error) {
	startTimeStr := ctx.Query("startTime")
	endTimeStr := ctx.Query("endTime")

	if startTimeStr == "" || endTimeStr == "" {
		return time.Time{}, time.Time{}, nil, errors.New("startTime and endTime are required query parameters")
	}

	startTime, errStart := util.ParseTimeFlexible(startTimeStr, time.Local)
	endTime, errEnd := util.ParseTimeFlexible(endTimeStr, time.Local)
	if errStart != nil || errEnd != nil {
		return time.Time{}, time.Time{}, nil, errors.New("invalid startTime or endTime format. Use ISO 8601, epoch milliseconds or a VersaLex date")
	}
	if endTime.Before(startTime) {
		return time.Time{}, time.Time{}, nil, errors.New("endTime cannot be before startTime")
	}

	return startTime, endTime, util.SplitList(ctx.Query("hosts")), nil
}
