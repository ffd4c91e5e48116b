package handler

import (
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/agendly/agenda/pkg/httpcontext"
	searchUC "github.com/agendly/agenda/usecase/search"
)

type SearchHandler struct {
	baseHandler
	uc *searchUC.UseCase
}

func NewSearchHandler(uc *searchUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// Get handles GET /appointment/{id}: the combined read of an appointment
// and its details from the local replicas.
func (h *SearchHandler) Get(ctx *fasthttp.RequestCtx) {
	raw, _ := ctx.UserValue("id").(string)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.respondInvalid(ctx, "invalid appointment id")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	view, err := h.uc.Get(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, view)
}
