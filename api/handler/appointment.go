package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/agendly/agenda/api/transport"
	"github.com/agendly/agenda/domain"
	"github.com/agendly/agenda/pkg/httpcontext"
	appointmentUC "github.com/agendly/agenda/usecase/appointment"
)

type AppointmentHandler struct {
	baseHandler
	uc *appointmentUC.UseCase
}

func NewAppointmentHandler(uc *appointmentUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// Create handles POST /appointment.
func (h *AppointmentHandler) Create(ctx *fasthttp.RequestCtx) {
	var req transport.AppointmentCreateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		h.respondInvalid(ctx, "description is required")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.Create(stdCtx, &domain.Appointment{
		Description: req.Description,
		Date:        req.Date,
		Time:        req.Time,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// Delete handles POST /appointment/delete.
func (h *AppointmentHandler) Delete(ctx *fasthttp.RequestCtx) {
	var req transport.AppointmentDeleteRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.ID <= 0 {
		h.respondInvalid(ctx, "missing appointment id")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Delete(stdCtx, req.ID); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}
