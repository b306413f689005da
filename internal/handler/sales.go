package handler

import (
	"bytes"
	"net/http"

	"officine/internal/dto"
	"officine/internal/service"

	"github.com/gin-gonic/gin"
)

type SalesHandler struct{ svc service.SaleService }

func NewSalesHandler(svc service.SaleService) *SalesHandler { return &SalesHandler{svc: svc} }

// Record godoc
// @Summary Record a counter sale
// @Tags sales
// @Accept json
// @Produce json
// @Param body body dto.RecordSaleRequest true "Sale"
// @Success 201 {object} apierror.Response
// @Failure 409 {object} apierror.Response "insufficient stock"
// @Router /api/sales [post]
func (h *SalesHandler) Record(c *gin.Context) {
	var req dto.RecordSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordSale(c.Request.Context(), actor(c).ID, req)
	if err != nil {
		fail(c, err)
		return
	}
	respondCreated(c, resp)
}

func (h *SalesHandler) List(c *gin.Context) {
	var filter dto.SaleFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, resp)
}

func (h *SalesHandler) Get(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, resp)
}

func (h *SalesHandler) Receipt(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var buf bytes.Buffer
	if err := h.svc.Receipt(c.Request.Context(), id, &buf); err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="receipt-`+id.String()[:8]+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// ── Stock movements ──────────────────────────────────────────────────────────

type StockHandler struct{ svc service.StockService }

func NewStockHandler(svc service.StockService) *StockHandler { return &StockHandler{svc: svc} }

func (h *StockHandler) Record(c *gin.Context) {
	var req dto.StockMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordMovement(c.Request.Context(), actor(c).ID, req)
	if err != nil {
		fail(c, err)
		return
	}
	respondCreated(c, resp)
}

func (h *StockHandler) List(c *gin.Context) {
	var filter dto.StockMovementFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListMovements(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, resp)
}
