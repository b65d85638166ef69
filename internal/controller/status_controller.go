package controller

import (
	"net/http"
	"strconv"
	"time"
	"versalex-ingest/internal/service"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	liveBuffer   = 256
	writeTimeout = 10 * time.Second
	pingPeriod   = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type StatusController struct {
	shipper service.ShipperService
}

func NewStatusController(shipper service.ShipperService) *StatusController {
	return &StatusController{
		shipper: shipper,
	}
}

func RegisterStatusRoutes(router *gin.Engine, controller *StatusController) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", controller.GetStatus)
		v1.GET("/threads", controller.GetThreads)
		v1.GET("/events/live", controller.StreamEvents)
	}
}

// GetStatus godoc
// @Summary      Shipper status
// @Description  Reports the followed log path, follower counters, shipping counters and live thread names.
// @Tags         status
// @Produce      json
// @Success      200  {object}  service.ShipperStatus
// @Router       /api/v1/status [get]
func (c *StatusController) GetStatus(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.shipper.Status())
}

// GetThreads godoc
// @Summary      Live VersaLex threads
// @Description  Lists the thread ids and names currently known from the followed log.
// @Tags         status
// @Produce      json
// @Success      200  {array}  threads.Thread
// @Router       /api/v1/threads [get]
func (c *StatusController) GetThreads(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.shipper.Status().Threads)
}

// StreamEvents godoc
// @Summary      Live event stream
// @Description  Upgrades to a websocket and streams every shipped record as a JSON text message. Records are dropped when the client falls behind.
// @Tags         events
// @Param        buffer  query  int  false  "Records buffered for this client (default 256)"
// @Success      101
// @Router       /api/v1/events/live [get]
func (c *StatusController) StreamEvents(ctx *gin.Context) {
	buffer, err := strconv.Atoi(ctx.DefaultQuery("buffer", strconv.Itoa(liveBuffer)))
	if err != nil || buffer <= 0 {
		buffer = liveBuffer
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	records, cancel := c.shipper.Watch(buffer)
	defer cancel()
	log.Info().Str("remote", ctx.Request.RemoteAddr).Msg("Live event watcher connected")

	// The read pump only notices the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			log.Info().Str("remote", ctx.Request.RemoteAddr).Msg("Live event watcher disconnected")
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case record, ok := <-records:
			if !ok {
				return
			}
			data, err := json.Marshal(record)
			if err != nil {
				log.Error().Err(err).Str("eventid", record.EventID).Msg("Failed to marshal live record")
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Msg("Websocket write failed")
				return
			}
		}
	}
}
