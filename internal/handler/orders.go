package handler

import (
	"net/http"
	"strconv"

	"officine/internal/dto"
	"officine/internal/service"

	"github.com/gin-gonic/gin"
)

type OrdersHandler struct{ svc service.OrderService }

func NewOrdersHandler(svc service.OrderService) *OrdersHandler { return &OrdersHandler{svc: svc} }

func (h *OrdersHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Checkout(c.Request.Context(), actor(c).ID, req)
	if err != nil {
		fail(c, err)
		return
	}
	respondCreated(c, resp)
}

func (h *OrdersHandler) Mine(c *gin.Context) {
	var filter dto.OrderFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListMine(c.Request.Context(), actor(c).ID, filter)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, resp)
}

func (h *OrdersHandler) List(c *gin.Context) {
	var filter dto.OrderFilter
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

func (h *OrdersHandler) Get(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, resp)
}

func (h *OrdersHandler) UpdateStatus(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req dto.UpdateOrderStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateStatus(c.Request.Context(), actor(c).ID, id, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, resp)
}

// ── Chat ─────────────────────────────────────────────────────────────────────

type ChatsHandler struct{ svc service.ChatService }

func NewChatsHandler(svc service.ChatService) *ChatsHandler { return &ChatsHandler{svc: svc} }

func (h *ChatsHandler) Send(c *gin.Context) {
	var req dto.SendMessageRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Send(c.Request.Context(), actor(c).ID, req)
	if err != nil {
		fail(c, err)
		return
	}
	respondCreated(c, resp)
}

// Conversation GET /api/chats/:userId?limit=N
func (h *ChatsHandler) Conversation(c *gin.Context) {
	other, valid := pathID(c, "userId")
	if !valid {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	resp, err := h.svc.Conversation(c.Request.Context(), actor(c).ID, other, limit)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, resp)
}

func (h *ChatsHandler) Edit(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req dto.EditMessageRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Edit(c.Request.Context(), actor(c).ID, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, resp)
}

func (h *ChatsHandler) Delete(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), actor(c).ID, id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
