package handler

import (
	"roomrelay/internal/app/chat"
	"roomrelay/internal/app/user"
	"roomrelay/internal/configs"
)

// AppDeps bundles what the HTTP handlers need.
// Users and Rooms are read through Hub.Query so reads see a consistent state.
type AppDeps struct {
	Hub    *chat.Hub
	Users  user.Sessions
	Rooms  *chat.Manager
	Config *configs.AppConfig
}
