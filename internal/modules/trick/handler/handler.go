package handler

import trickservice "snowtricks-server/internal/modules/trick/service"

type Handler struct {
	trickService *trickservice.Service
}

func New(trickService *trickservice.Service) *Handler {
	return &Handler{trickService: trickService}
}
