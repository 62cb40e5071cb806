package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"roomrelay/internal/app/chat"
	"roomrelay/internal/pkg/errs"
	"roomrelay/internal/pkg/resp"
)

// RoomSummary is one entry of GET /api/rooms.
type RoomSummary struct {
	Name         string   `json:"name"`
	Members      []string `json:"members"`
	MessageCount int      `json:"messageCount"`
}

// HandleListRooms returns every room in creation order.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rooms []chat.RoomSnapshot

		err := deps.Hub.Query(r.Context(), func() {
			rooms = deps.Rooms.Snapshot()
		})
		if err != nil {
			resp.RespondError(w, errs.NewError(errs.ErrUnknown, err))
			return
		}

		resp.RespondSuccess(w, lo.Map(rooms, func(room chat.RoomSnapshot, _ int) RoomSummary {
			return RoomSummary{
				Name:         room.Name,
				Members:      room.Members,
				MessageCount: len(room.Messages),
			}
		}))
	}
}

// HandleListRoomMessages returns the log of one room, oldest first.
func HandleListRoomMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if name == "" {
			resp.RespondError(w, errs.NewError(errs.ErrInvalidParams))
			return
		}

		var (
			messages []chat.Message
			found    bool
		)

		err := deps.Hub.Query(r.Context(), func() {
			if room := deps.Rooms.Get(name); room != nil {
				messages, found = room.ListMessages(), true
			}
		})
		if err != nil {
			resp.RespondError(w, errs.NewError(errs.ErrUnknown, err))
			return
		}

		if !found {
			resp.RespondError(w, errs.NewError(errs.ErrRoomNotFound))
			return
		}

		resp.RespondSuccess(w, messages)
	}
}
