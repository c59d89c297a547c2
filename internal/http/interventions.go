package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"repairhub/internal/domain"
	"repairhub/internal/service"
)

// Intervention handlers, только для сотрудников
type scheduleReq struct {
	Date     time.Time `json:"date" binding:"required"`
	TimeSlot string    `json:"time_slot" binding:"required"`
}

type startReq struct {
	At *time.Time `json:"at"`
}

type finalizeReq struct {
	Diagnosis     string     `json:"diagnosis" binding:"required"`
	WorkPerformed string     `json:"work_performed" binding:"required"`
	At            *time.Time `json:"at"`
}

type partReq struct {
	PartName       string          `json:"part_name" binding:"required"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int64           `json:"quantity" binding:"required,min=1"`
	WarrantyMonths int             `json:"warranty_months" binding:"min=0"`
}

type interventionResp struct {
	Repair       *domain.Repair       `json:"repair"`
	Intervention *domain.Intervention `json:"intervention"`
}

type partResp struct {
	Repair *domain.Repair `json:"repair"`
	Part   *domain.Part   `json:"part"`
}

// bindOptionalJSON пустое тело допустимо
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		return bindError(err)
	}
	return nil
}

// @Summary Schedule an intervention
// @Tags interventions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Repair ID"
// @Param input body scheduleReq true "Date and time slot"
// @Success 201 {object} interventionResp
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /repairs/{id}/interventions [post]
func (s *Server) scheduleIntervention(c *gin.Context) {
	var req scheduleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, bindError(err))
		return
	}
	r, iv, err := s.scheduler.ScheduleIntervention(c.Request.Context(), c.Param("id"), req.Date, req.TimeSlot)
	if err != nil {
		s.writeError(c, err)
		return
	}
	setETag(c, r)
	c.JSON(http.StatusCreated, interventionResp{Repair: r, Intervention: iv})
}

// @Summary Start an intervention
// @Tags interventions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Repair ID"
// @Param iid path string true "Intervention ID"
// @Param input body startReq false "Start time, defaults to now"
// @Success 200 {object} domain.Repair
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /repairs/{id}/interventions/{iid}/start [post]
func (s *Server) startIntervention(c *gin.Context) {
	var req startReq
	if err := bindOptionalJSON(c, &req); err != nil {
		s.writeError(c, err)
		return
	}
	r, err := s.scheduler.StartIntervention(c.Request.Context(), c.Param("id"), c.Param("iid"), req.At)
	if err != nil {
		s.writeError(c, err)
		return
	}
	setETag(c, r)
	c.JSON(http.StatusOK, r)
}

// @Summary Finalize an intervention
// @Tags interventions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Repair ID"
// @Param iid path string true "Intervention ID"
// @Param input body finalizeReq true "Diagnosis and work performed"
// @Success 200 {object} domain.Repair
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /repairs/{id}/interventions/{iid}/finalize [post]
func (s *Server) finalizeIntervention(c *gin.Context) {
	var req finalizeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, bindError(err))
		return
	}
	r, err := s.scheduler.FinalizeIntervention(c.Request.Context(), c.Param("id"), c.Param("iid"), req.Diagnosis, req.WorkPerformed, req.At)
	if err != nil {
		s.writeError(c, err)
		return
	}
	setETag(c, r)
	c.JSON(http.StatusOK, r)
}

// @Summary Cancel an intervention
// @Tags interventions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Repair ID"
// @Param iid path string true "Intervention ID"
// @Success 200 {object} domain.Repair
// @Failure 409 {object} errorResponse
// @Router /repairs/{id}/interventions/{iid}/cancel [post]
func (s *Server) cancelIntervention(c *gin.Context) {
	r, err := s.scheduler.CancelIntervention(c.Request.Context(), c.Param("id"), c.Param("iid"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	setETag(c, r)
	c.JSON(http.StatusOK, r)
}

// @Summary Attach a part to an intervention
// @Tags interventions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Repair ID"
// @Param iid path string true "Intervention ID"
// @Param input body partReq true "Part"
// @Success 201 {object} partResp
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /repairs/{id}/interventions/{iid}/parts [post]
func (s *Server) addPart(c *gin.Context) {
	var req partReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, bindError(err))
		return
	}
	r, p, err := s.scheduler.AddPart(c.Request.Context(), c.Param("id"), c.Param("iid"), service.PartInput{
		PartName:       req.PartName,
		UnitPrice:      req.UnitPrice,
		Quantity:       req.Quantity,
		WarrantyMonths: req.WarrantyMonths,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	setETag(c, r)
	c.JSON(http.StatusCreated, partResp{Repair: r, Part: p})
}

// @Summary Remove a part
// @Tags interventions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Repair ID"
// @Param iid path string true "Intervention ID"
// @Param pid path string true "Part ID"
// @Success 200 {object} domain.Repair
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /repairs/{id}/interventions/{iid}/parts/{pid} [delete]
func (s *Server) removePart(c *gin.Context) {
	r, err := s.scheduler.RemovePart(c.Request.Context(), c.Param("id"), c.Param("iid"), c.Param("pid"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	setETag(c, r)
	c.JSON(http.StatusOK, r)
}
