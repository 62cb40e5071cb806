package handler

import (
	"net/http"

	"roomrelay/internal/app/user"
	"roomrelay/internal/pkg/errs"
	"roomrelay/internal/pkg/resp"
)

// HandleListUsers returns every connected user in connection order.
func HandleListUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var users []user.User

		err := deps.Hub.Query(r.Context(), func() {
			users = deps.Users.Snapshot()
		})
		if err != nil {
			resp.RespondError(w, errs.NewError(errs.ErrUnknown, err))
			return
		}

		resp.RespondSuccess(w, users)
	}
}
