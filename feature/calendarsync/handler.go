package calendarsync

import (
	"errors"

	"staysync/core/logger"
	"staysync/core/reconcile"
	"staysync/core/store"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for calendar sync.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	// Force import for Swagger
	var _ = store.SyncRun{}
	return &Handler{service: service}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Post("/sync", h.HandleRunAll)
	app.Get("/runs", h.HandleListRuns)
	app.Get("/runs/:id", h.HandleGetRun)

	props := app.Group("/properties/:id")
	props.Post("/sync", h.HandleRunProperty)
	props.Get("/unassigned", h.HandleListUnassigned)
	props.Post("/suppressions", h.HandleSuppress)
	props.Delete("/suppressions/:uid", h.HandleUnsuppress)

	feeds := app.Group("/feeds/:id")
	feeds.Post("/sync", h.HandleRunFeed)
	feeds.Get("/logs", h.HandleFeedLogs)

	app.Post("/unassigned/:id/assign", h.HandleAssign)
}

// BookingResponse is the public view of a booking.
type BookingResponse struct {
	ID          string  `json:"id"`
	PropertyID  string  `json:"property_id"`
	RoomID      *string `json:"room_id"`
	RoomTypeID  *string `json:"room_type_id"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Status      string  `json:"status"`
	Source      string  `json:"source"`
	ExternalUID *string `json:"external_uid,omitempty"`
	Provider    string  `json:"provider,omitempty"`
	Version     int     `json:"version"`
}

func toResponse(b *reconcile.Booking) BookingResponse {
	return BookingResponse{
		ID:          b.ID,
		PropertyID:  b.PropertyID,
		RoomID:      b.RoomID,
		RoomTypeID:  b.RoomTypeID,
		StartDate:   b.StartDate,
		EndDate:     b.EndDate,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		Status:      string(b.Status),
		Source:      string(b.Source),
		ExternalUID: b.ExternalUID,
		Provider:    b.Provider,
		Version:     b.Version,
	}
}

// SuppressRequest is the body of a suppression.
type SuppressRequest struct {
	UID string `json:"uid"`
}

// AssignRequest is the body of a manual room assignment.
type AssignRequest struct {
	RoomID string `json:"room_id"`
}

func runRequest(c *fiber.Ctx) RunRequest {
	return RunRequest{Mode: c.Query("mode"), DryRun: c.QueryBool("dry_run", false)}
}

// fail maps service errors to HTTP statuses.
func (h *Handler) fail(c *fiber.Ctx, err error, msg string) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, reconcile.ErrNotFound), errors.Is(err, reconcile.ErrFeedNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, reconcile.ErrInvalidMode), errors.Is(err, ErrInvalidInput):
		status = fiber.StatusBadRequest
	case errors.Is(err, reconcile.ErrRoomConflict), errors.Is(err, ErrAlreadyResolved), errors.Is(err, ErrNothingToAssign):
		status = fiber.StatusConflict
	}

	l := logger.WithRayID(h.service.logger, c)
	if status == fiber.StatusInternalServerError {
		l.Error(msg, zap.Error(err))
	} else {
		l.Info(msg, zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// HandleRunAll runs a sweep over every active feed.
// @Summary Sync All Feeds
// @Description Runs the sweep over every active feed now. Accounts still in cooldown are reported as skipped.
// @Tags sync
// @Produce json
// @Param mode query string false "Status for new bookings (hold or confirmed)"
// @Param dry_run query bool false "Resolve without writing"
// @Success 200 {object} reconcile.RunSummary "Run Summary"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sync [post]
func (h *Handler) HandleRunAll(c *fiber.Ctx) error {
	summary, err := h.service.RunAll(c.Context(), runRequest(c))
	if err != nil {
		return h.fail(c, err, "Sync run failed")
	}
	return c.JSON(summary)
}

// HandleRunProperty syncs the feeds of a property.
// @Summary Sync Property
// @Description Syncs every active feed of a property.
// @Tags sync
// @Produce json
// @Param id path string true "Property ID"
// @Param mode query string false "Status for new bookings (hold or confirmed)"
// @Param dry_run query bool false "Resolve without writing"
// @Success 200 {object} reconcile.RunSummary "Run Summary"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /properties/{id}/sync [post]
func (h *Handler) HandleRunProperty(c *fiber.Ctx) error {
	summary, err := h.service.RunProperty(c.Context(), c.Params("id"), runRequest(c))
	if err != nil {
		return h.fail(c, err, "Property sync failed")
	}
	return c.JSON(summary)
}

// HandleRunFeed syncs a single feed.
// @Summary Sync Feed
// @Description Syncs one active feed.
// @Tags sync
// @Produce json
// @Param id path string true "Feed ID"
// @Param mode query string false "Status for new bookings (hold or confirmed)"
// @Param dry_run query bool false "Resolve without writing"
// @Success 200 {object} reconcile.RunSummary "Run Summary"
// @Failure 404 {object} map[string]string "Feed Not Found"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /feeds/{id}/sync [post]
func (h *Handler) HandleRunFeed(c *fiber.Ctx) error {
	summary, err := h.service.RunFeed(c.Context(), c.Params("id"), runRequest(c))
	if err != nil {
		return h.fail(c, err, "Feed sync failed")
	}
	return c.JSON(summary)
}

// HandleListRuns lists recent runs.
// @Summary List Runs
// @Tags runs
// @Produce json
// @Param limit query int false "Maximum rows (default 20)"
// @Success 200 {array} store.SyncRun "Runs"
// @Router /runs [get]
func (h *Handler) HandleListRuns(c *fiber.Ctx) error {
	runs, err := h.service.ListRuns(c.Context(), c.QueryInt("limit", 20))
	if err != nil {
		return h.fail(c, err, "List runs failed")
	}
	return c.JSON(runs)
}

// HandleGetRun returns a run summary.
// @Summary Get Run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} reconcile.RunSummary "Run Summary"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /runs/{id} [get]
func (h *Handler) HandleGetRun(c *fiber.Ctx) error {
	summary, err := h.service.GetRun(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err, "Get run failed")
	}
	return c.JSON(summary)
}

// HandleFeedLogs lists the sync history of a feed.
// @Summary Feed Sync Logs
// @Tags runs
// @Produce json
// @Param id path string true "Feed ID"
// @Param limit query int false "Maximum rows (default 20)"
// @Success 200 {array} store.FeedSyncLog "Logs"
// @Router /feeds/{id}/logs [get]
func (h *Handler) HandleFeedLogs(c *fiber.Ctx) error {
	logs, err := h.service.FeedLogs(c.Context(), c.Params("id"), c.QueryInt("limit", 20))
	if err != nil {
		return h.fail(c, err, "List feed logs failed")
	}
	return c.JSON(logs)
}

// HandleSuppress removes an external UID from the internal calendar.
// @Summary Suppress UID
// @Description Cancels the booking mapped to the UID and stops future imports of it.
// @Tags host
// @Accept json
// @Produce json
// @Param id path string true "Property ID"
// @Param body body SuppressRequest true "UID"
// @Success 200 {object} SuppressResult "Result"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /properties/{id}/suppressions [post]
func (h *Handler) HandleSuppress(c *fiber.Ctx) error {
	var req SuppressRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, ErrInvalidInput, "Invalid suppression body")
	}
	res, err := h.service.Suppress(c.Context(), c.Params("id"), req.UID)
	if err != nil {
		return h.fail(c, err, "Suppress failed")
	}
	return c.JSON(res)
}

// HandleUnsuppress lifts a suppression.
// @Summary Unsuppress UID
// @Tags host
// @Param id path string true "Property ID"
// @Param uid path string true "External UID"
// @Success 204 "Removed"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /properties/{id}/suppressions/{uid} [delete]
func (h *Handler) HandleUnsuppress(c *fiber.Ctx) error {
	removed, err := h.service.Unsuppress(c.Context(), c.Params("id"), c.Params("uid"))
	if err != nil {
		return h.fail(c, err, "Unsuppress failed")
	}
	if !removed {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "suppression not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleListUnassigned lists events waiting for a room.
// @Summary List Unassigned Events
// @Tags host
// @Produce json
// @Param id path string true "Property ID"
// @Param all query bool false "Include resolved entries"
// @Success 200 {array} reconcile.UnassignedEvent "Queue"
// @Router /properties/{id}/unassigned [get]
func (h *Handler) HandleListUnassigned(c *fiber.Ctx) error {
	events, err := h.service.ListUnassigned(c.Context(), c.Params("id"), c.QueryBool("all", false))
	if err != nil {
		return h.fail(c, err, "List unassigned failed")
	}
	return c.JSON(events)
}

// HandleAssign places an unassigned booking in a room.
// @Summary Assign Room
// @Description Claims the room for the queued booking and resolves the entry.
// @Tags host
// @Accept json
// @Produce json
// @Param id path string true "Unassigned Event ID"
// @Param body body AssignRequest true "Room"
// @Success 200 {object} BookingResponse "Booking"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 409 {object} map[string]string "Room Conflict"
// @Router /unassigned/{id}/assign [post]
func (h *Handler) HandleAssign(c *fiber.Ctx) error {
	var req AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, ErrInvalidInput, "Invalid assign body")
	}
	b, err := h.service.Assign(c.Context(), c.Params("id"), req.RoomID)
	if err != nil {
		return h.fail(c, err, "Assign failed")
	}
	return c.JSON(toResponse(b))
}
