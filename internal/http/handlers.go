package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"repairhub/internal/domain"
	"repairhub/internal/repository"
	"repairhub/internal/service"
)

// Case handlers
type createRepairReq struct {
	OwnerID          string `json:"owner_id"`
	ApplianceType    string `json:"appliance_type" binding:"required"`
	Brand            string `json:"brand" binding:"required"`
	Model            string `json:"model" binding:"required"`
	IssueDescription string `json:"issue_description" binding:"required"`
}

type addressReq struct {
	Street     string `json:"street" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postal_code" binding:"required"`
}

type createDonationReq struct {
	OwnerID       string     `json:"owner_id"`
	ApplianceType string     `json:"appliance_type" binding:"required"`
	Brand         string     `json:"brand"`
	Address       addressReq `json:"address"`
	PickupDate    *time.Time `json:"pickup_date"`
}

type orderItemReq struct {
	ProductID string          `json:"product_id" binding:"required"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity" binding:"required,min=1"`
}

type createOrderReq struct {
	OwnerID string         `json:"owner_id"`
	Items   []orderItemReq `json:"items" binding:"required,min=1,dive"`
}

type transitionReq struct {
	Status          domain.Status `json:"status" binding:"required"`
	ExpectedVersion *int64        `json:"expected_version"`
	DeliveryDate    *time.Time    `json:"delivery_date"`
}

type replaceItemsReq struct {
	Items           []orderItemReq `json:"items" binding:"required,min=1,dive"`
	ExpectedVersion *int64         `json:"expected_version"`
}

type pickupReq struct {
	PickupDate      time.Time `json:"pickup_date" binding:"required"`
	ExpectedVersion *int64    `json:"expected_version"`
}

func toItems(in []orderItemReq) []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(in))
	for _, it := range in {
		out = append(out, domain.OrderItem{ProductID: it.ProductID, Name: it.Name, UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return out
}

// ownerFor клиент создаёт обращения только на себя, сотрудник может указать владельца
func ownerFor(c *gin.Context, requested string) (string, error) {
	uid := currentUser(c)
	if requested == "" || requested == uid {
		return uid, nil
	}
	if !isStaff(c) {
		return "", domain.Forbidden("customers can only create cases for themselves")
	}
	return requested, nil
}

// ownedCase загружает обращение; клиенту доступны только собственные
func (s *Server) ownedCase(c *gin.Context, id string) (domain.ServiceCase, error) {
	sc, err := s.cases.GetCase(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if !isStaff(c) && sc.Base().OwnerID != currentUser(c) {
		return nil, domain.Forbidden("case belongs to another user")
	}
	return sc, nil
}

// expectedVersion из тела запроса или заголовка If-Match
func expectedVersion(c *gin.Context, fromBody *int64) (*int64, error) {
	if fromBody != nil {
		return fromBody, nil
	}
	h := strings.TrimSpace(c.GetHeader("If-Match"))
	if h == "" {
		return nil, nil
	}
	h = strings.Trim(strings.TrimPrefix(h, "W/"), `"`)
	v, err := strconv.ParseInt(h, 10, 64)
	if err != nil {
		return nil, domain.Validation("If-Match must carry a case version", domain.ErrorDetail{Path: "If-Match", Info: "expected an integer version"})
	}
	return &v, nil
}

// pinVersion если версия не указана, фиксируем ту, по которой проверялся владелец
func pinVersion(v *int64, sc domain.ServiceCase) *int64 {
	if v != nil {
		return v
	}
	cur := sc.Base().Version
	return &cur
}

func setETag(c *gin.Context, sc domain.ServiceCase) {
	c.Header("ETag", strconv.Quote(strconv.FormatInt(sc.Base().Version, 10)))
}

// @Summary Create repair request
// @Tags cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body createRepairReq true "Repair"
// @Success 201 {object} domain.Repair
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Router /repairs [post]
func (s *Server) createRepair(c *gin.Context) {
	var req createRepairReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, bindError(err))
		return
	}
	owner, err := ownerFor(c, req.OwnerID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	r, err := s.cases.CreateRepair(c.Request.Context(), service.CreateRepairInput{
		OwnerID:          owner,
		ApplianceType:    req.ApplianceType,
		Brand:            req.Brand,
		Model:            req.Model,
		IssueDescription: req.IssueDescription,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	setETag(c, r)
	c.JSON(http.StatusCreated, r)
}

// @Summary Create donation
// @Tags cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body createDonationReq true "Donation"
// @Success 201 {object} domain.Donation
// @Failure 400 {object} errorResponse
// @Router /donations [post]
func (s *Server) createDonation(c *gin.Context) {
	var req createDonationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, bindError(err))
		return
	}
	owner, err := ownerFor(c, req.OwnerID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	d, err := s.cases.CreateDonation(c.Request.Context(), service.CreateDonationInput{
		OwnerID:       owner,
		ApplianceType: req.ApplianceType,
		Brand:         req.Brand,
		Address:       domain.Address{Street: req.Address.Street, City: req.Address.City, PostalCode: req.Address.PostalCode},
		PickupDate:    req.PickupDate,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	setETag(c, d)
	c.JSON(http.StatusCreated, d)
}

// @Summary Create order
// @Tags cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body createOrderReq true "Order"
// @Success 201 {object} domain.Order
// @Failure 400 {object} errorResponse
// @Router /orders [post]
func (s *Server) createOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, bindError(err))
		return
	}
	owner, err := ownerFor(c, req.OwnerID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	o, err := s.cases.CreateOrder(c.Request.Context(), service.CreateOrderInput{OwnerID: owner, Items: toItems(req.Items)})
	if err != nil {
		s.writeError(c, err)
		return
	}
	setETag(c, o)
	c.JSON(http.StatusCreated, o)
}

// @Summary Get case by id
// @Tags cases
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case ID"
// @Success 200 {object} domain.CaseBase
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /cases/{id} [get]
func (s *Server) getCase(c *gin.Context) {
	sc, err := s.ownedCase(c, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	setETag(c, sc)
	c.JSON(http.StatusOK, sc)
}

// listOwner клиент видит только себя; сотрудник обязан указать owner
func listOwner(c *gin.Context) (string, error) {
	owner := strings.TrimSpace(c.Query("owner"))
	if isStaff(c) {
		return owner, nil
	}
	if owner != "" && owner != currentUser(c) {
		return "", domain.Forbidden("customers can only list their own cases")
	}
	return currentUser(c), nil
}

// @Summary List cases of an owner
// @Tags cases
// @Produce json
// @Security BearerAuth
// @Param owner query string false "Owner id (staff only for other users)"
// @Param kind query string false "repair | donation | order"
// @Param status query string false "Status filter"
// @Success 200 {array} domain.CaseBase
// @Failure 400 {object} errorResponse
// @Router /cases [get]
func (s *Server) listCases(c *gin.Context) {
	owner, err := listOwner(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	f := repository.CaseFilter{
		Kind:   domain.CaseKind(c.Query("kind")),
		Status: domain.Status(c.Query("status")),
	}
	list, err := s.cases.ListByOwner(c.Request.Context(), owner, f)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Case counters for dashboard badges
// @Tags cases
// @Produce json
// @Security BearerAuth
// @Param owner query string false "Owner id (staff only for other users)"
// @Success 200 {object} service.CaseStats
// @Router /cases/stats [get]
func (s *Server) caseStats(c *gin.Context) {
	owner, err := listOwner(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	st, err := s.cases.OwnerStats(c.Request.Context(), owner)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary Move a case to another status
// @Description Customers may only cancel their own cases. Accepts If-Match with the case version.
// @Tags cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case ID"
// @Param input body transitionReq true "Target status"
// @Success 200 {object} domain.CaseBase
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /cases/{id}/transitions [post]
func (s *Server) transitionCase(c *gin.Context) {
	var req transitionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, bindError(err))
		return
	}
	version, err := expectedVersion(c, req.ExpectedVersion)
	if err != nil {
		s.writeError(c, err)
		return
	}
	in := service.TransitionInput{
		CaseID:          c.Param("id"),
		To:              req.Status,
		ExpectedVersion: version,
		DeliveryDate:    req.DeliveryDate,
	}
	if !isStaff(c) {
		if req.Status != domain.StatusCancelled {
			s.writeError(c, domain.Forbidden("customers can only cancel their cases"))
			return
		}
		sc, err := s.ownedCase(c, in.CaseID)
		if err != nil {
			s.writeError(c, err)
			return
		}
		in.ExpectedVersion = pinVersion(in.ExpectedVersion, sc)
	}
	out, err := s.cases.Transition(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	setETag(c, out)
	c.JSON(http.StatusOK, out)
}

// @Summary Replace order items
// @Tags cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param input body replaceItemsReq true "Items"
// @Success 200 {object} domain.Order
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /orders/{id}/items [put]
func (s *Server) replaceOrderItems(c *gin.Context) {
	var req replaceItemsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, bindError(err))
		return
	}
	version, err := expectedVersion(c, req.ExpectedVersion)
	if err != nil {
		s.writeError(c, err)
		return
	}
	sc, err := s.ownedCase(c, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	o, err := s.cases.ReplaceOrderItems(c.Request.Context(), sc.Base().ID, toItems(req.Items), pinVersion(version, sc))
	if err != nil {
		s.writeError(c, err)
		return
	}
	setETag(c, o)
	c.JSON(http.StatusOK, o)
}

// @Summary Set donation pickup date
// @Tags cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Donation ID"
// @Param input body pickupReq true "Pickup date"
// @Success 200 {object} domain.Donation
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /donations/{id}/pickup [put]
func (s *Server) setPickupDate(c *gin.Context) {
	var req pickupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, bindError(err))
		return
	}
	version, err := expectedVersion(c, req.ExpectedVersion)
	if err != nil {
		s.writeError(c, err)
		return
	}
	sc, err := s.ownedCase(c, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	d, err := s.cases.SetPickupDate(c.Request.Context(), sc.Base().ID, req.PickupDate, pinVersion(version, sc))
	if err != nil {
		s.writeError(c, err)
		return
	}
	setETag(c, d)
	c.JSON(http.StatusOK, d)
}
