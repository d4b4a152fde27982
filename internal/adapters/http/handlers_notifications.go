package httpadapter

import (
	"net/http"

	"github.com/kirillkom/document-approval/internal/core/domain"
)

func (rt *Router) listNotifications(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	params, err := bindListNotificationsParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	unread := params.Unread != nil && *params.Unread
	limit := 0
	if params.Limit != nil {
		limit = *params.Limit
	}

	items, err := rt.deps.Inbox.List(r.Context(), actor, unread, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNotifications(items))
}

func (rt *Router) markNotificationRead(w http.ResponseWriter, r *http.Request, actor domain.Actor) {
	id, err := pathUUID(r, "notificationId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := rt.deps.Inbox.MarkRead(r.Context(), actor, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
