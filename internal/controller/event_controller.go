package controller

import (
	"net/http"
	"strconv"
	"time"
	"versalex-ingest/internal/dto"
	"versalex-ingest/internal/model"
	"versalex-ingest/internal/service"
	"versalex-ingest/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type EventController struct {
	eventQueryService service.EventQueryService
}

func NewEventController(eventQueryService service.EventQueryService) *EventController {
	return &EventController{
		eventQueryService: eventQueryService,
	}
}

func RegisterEventRoutes(router *gin.Engine, controller *EventController) {
	v1 := router.Group("/api/v1/events")
	{
		v1.GET("", controller.GetEvents)
	}
}

// GetEvents godoc
// @Summary      Search and filter VersaLex events
// @Description  Retrieves events within a time range, filtered by free text, event types, threads and hosts. Supports pagination and sorting.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        startTime  query     string  true   "Start time: ISO 8601, epoch milliseconds or a VersaLex date (2024/03/05 07:08:09)"
// @Param        endTime    query     string  true   "End time: ISO 8601, epoch milliseconds or a VersaLex date"
// @Param        query      query     string  false  "Free text search over message and text"
// @Param        types      query     string  false  "Comma-separated event types (e.g., Transfer,Result)"
// @Param        threads    query     string  false  "Comma-separated thread names"
// @Param        hosts      query     string  false  "Comma-separated shipping hosts"
// @Param        sortBy     query     string  false  "Field to sort by (default: @timestamp)" Enums(@timestamp, type, thread, host, eventid)
// @Param        sortOrder  query     string  false  "Sort order (asc or desc, default: desc)" Enums(asc, desc)
// @Param        page       query     int     false  "Page number (default: 1)" minimum(1)
// @Param        size       query     int     false  "Number of events per page (default: 50, max: 1000)" minimum(1) maximum(1000)
// @Success      200        {object}  dto.EventSearchResponse "Successfully retrieved events"
// @Failure      400        {object}  model.Response "Invalid query parameters"
// @Failure      500        {object}  model.Response "Internal server error"
// @Router       /api/v1/events [get]
func (c *EventController) GetEvents(ctx *gin.Context) {
	startTime, errStart := util.ParseTimeFlexible(ctx.Query("startTime"), time.Local)
	endTime, errEnd := util.ParseTimeFlexible(ctx.Query("endTime"), time.Local)
	if errStart != nil || errEnd != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid startTime or endTime format. Use ISO 8601, epoch milliseconds or a VersaLex date.", nil))
		return
	}
	if endTime.Before(startTime) {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("endTime cannot be before startTime", nil))
		return
	}

	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(ctx.DefaultQuery("size", "50"))
	if err != nil || size <= 0 || size > 1000 {
		size = 50
	}

	searchReq := dto.EventSearchRequest{
		StartTime: startTime,
		EndTime:   endTime,
		Query:     ctx.Query("query"),
		Types:     util.SplitList(ctx.Query("types")),
		Threads:   util.SplitList(ctx.Query("threads")),
		Hosts:     util.SplitList(ctx.Query("hosts")),
		SortBy:    ctx.DefaultQuery("sortBy", "@timestamp"),
		SortOrder: ctx.DefaultQuery("sortOrder", "desc"),
		Page:      page,
		Size:      size,
	}

	result, err := c.eventQueryService.SearchEvents(ctx.Request.Context(), searchReq)
	if err != nil {
		log.Error().Err(err).Msg("Error searching events")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to search events", nil))
		return
	}

	ctx.JSON(http.StatusOK, result)
}
