package handler

import (
	"net/http"

	"officine/internal/apierror"
	"officine/internal/dto"
	"officine/internal/service"

	"github.com/gin-gonic/gin"
)

type PrescriptionsHandler struct{ svc service.PrescriptionService }

func NewPrescriptionsHandler(svc service.PrescriptionService) *PrescriptionsHandler {
	return &PrescriptionsHandler{svc: svc}
}

// Submit godoc
// @Summary Upload a prescription scan
// @Tags prescriptions
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Scan (image or PDF)"
// @Success 201 {object} apierror.Response
// @Failure 400 {object} apierror.Response
// @Router /api/prescriptions [post]
func (h *PrescriptionsHandler) Submit(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewValidation(map[string]string{"image": "required"}))
		return
	}
	file, err := header.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer file.Close()

	resp, err := h.svc.Submit(c.Request.Context(), actor(c).ID, file)
	if err != nil {
		fail(c, err)
		return
	}
	respondCreated(c, resp)
}

func (h *PrescriptionsHandler) ListAll(c *gin.Context) {
	var filter dto.PrescriptionFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListAll(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, resp)
}

func (h *PrescriptionsHandler) ListMine(c *gin.Context) {
	var filter dto.PrescriptionFilter
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

func (h *PrescriptionsHandler) Get(c *gin.Context) {
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

// Image streams the stored scan with its sniffed content type.
func (h *PrescriptionsHandler) Image(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	rc, contentType, err := h.svc.Image(c.Request.Context(), actor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, -1, contentType, rc, map[string]string{
		"Cache-Control": "private, max-age=300",
	})
}

// Update godoc
// @Summary Move a prescription to another status
// @Tags prescriptions
// @Accept json
// @Produce json
// @Param id path string true "Prescription id"
// @Param body body dto.UpdatePrescriptionRequest true "Target status and its data"
// @Success 200 {object} apierror.Response
// @Failure 409 {object} apierror.Response
// @Router /api/prescriptions/{id} [put]
func (h *PrescriptionsHandler) Update(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req dto.UpdatePrescriptionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateStatus(c.Request.Context(), actor(c).ID, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, resp)
}

func (h *PrescriptionsHandler) Validate(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req dto.ValidatePrescriptionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Validate(c.Request.Context(), actor(c).ID, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, resp)
}

func (h *PrescriptionsHandler) Reject(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req dto.RejectPrescriptionRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Reject(c.Request.Context(), actor(c).ID, id, req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, resp)
}

func (h *PrescriptionsHandler) Prepare(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	resp, err := h.svc.Prepare(c.Request.Context(), actor(c).ID, id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, resp)
}

func (h *PrescriptionsHandler) Payment(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req dto.PaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordPayment(c.Request.Context(), actor(c).ID, id, req.PaymentMethod)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, resp)
}
