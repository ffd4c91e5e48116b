package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/agendly/agenda/api/transport"
	"github.com/agendly/agenda/pkg/httpcontext"
	detailUC "github.com/agendly/agenda/usecase/detail"
)

type DetailHandler struct {
	baseHandler
	uc *detailUC.UseCase
}

func NewDetailHandler(uc *detailUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *DetailHandler {
	return &DetailHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// Create handles POST /detail. Details entered here are always manual;
// generated ones only ever come from the event consumer.
func (h *DetailHandler) Create(ctx *fasthttp.RequestCtx) {
	var req transport.DetailCreateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}
	if req.AppointmentID <= 0 {
		h.respondInvalid(ctx, "missing appointment id")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		h.respondInvalid(ctx, "text is required")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.CreateManual(stdCtx, req.AppointmentID, req.Text)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// Delete handles POST /detail/delete.
func (h *DetailHandler) Delete(ctx *fasthttp.RequestCtx) {
	var req transport.DetailDeleteRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.ID <= 0 {
		h.respondInvalid(ctx, "missing detail id")
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
