package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking-engine/internal/middleware"
	"github.com/iliyamo/event-booking-engine/internal/model"
	"github.com/iliyamo/event-booking-engine/internal/service"
)

// NotificationHandler serves the caller's in-app inbox.
type NotificationHandler struct {
	Inbox service.Inbox
}

// NewNotificationHandler panics if inbox is nil.
func NewNotificationHandler(inbox service.Inbox) *NotificationHandler {
	if inbox == nil {
		panic("nil inbox passed to NewNotificationHandler")
	}
	return &NotificationHandler{Inbox: inbox}
}

// List handles GET /v1/notifications?kind=user|admin.
func (h *NotificationHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.Username(c)
	kind := strings.ToLower(strings.TrimSpace(c.QueryParam("kind")))
	switch kind {
	case "", model.NotificationUser, model.NotificationAdmin:
	default:
		return badRequest(c, "kind must be user or admin")
	}
	list, err := h.Inbox.ListNotifications(ctx, user, kind)
	if err != nil {
		return respondError(c, model.Storage("list notifications", err))
	}
	unread, err := h.Inbox.UnreadCount(ctx, user)
	if err != nil {
		return respondError(c, model.Storage("count unread", err))
	}
	if list == nil {
		list = []model.Notification{}
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": list, "unread": unread})
}

// MarkRead handles POST /v1/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Inbox.MarkRead(c.Request().Context(), middleware.Username(c), id); err != nil {
		return respondError(c, model.Storage("mark read", err))
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllRead handles POST /v1/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	if err := h.Inbox.MarkAllRead(c.Request().Context(), middleware.Username(c)); err != nil {
		return respondError(c, model.Storage("mark all read", err))
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /v1/notifications/:id.
func (h *NotificationHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Inbox.DeleteNotification(c.Request().Context(), middleware.Username(c), id); err != nil {
		return respondError(c, model.Storage("delete notification", err))
	}
	return c.NoContent(http.StatusNoContent)
}
