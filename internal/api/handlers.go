// internal/api/handlers.go
package api

import (
	"net/http"
	"strconv"

	apperrors "loan-management-service/internal/common/errors"
	"loan-management-service/internal/common/logger"
	"loan-management-service/internal/models"
	"loan-management-service/internal/services/application"
	"loan-management-service/internal/services/masters"
	"loan-management-service/internal/services/search"
	"loan-management-service/internal/services/statistics"
	"loan-management-service/internal/services/validation"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handlers bundles the services the HTTP routes dispatch into.
type Handlers struct {
	applications *application.Service
	statistics   *statistics.Service
	masters      *masters.Service
	validator    *validation.Validator
	searcher     *search.Service
	log          logger.Logger
}

func NewHandlers(
	applications *application.Service,
	stats *statistics.Service,
	mastersSvc *masters.Service,
	validator *validation.Validator,
	searcher *search.Service,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		applications: applications,
		statistics:   stats,
		masters:      mastersSvc,
		validator:    validator,
		searcher:     searcher,
		log:          log,
	}
}

type applicationPayload struct {
	Status           models.Status              `json:"status"`
	ApplicantDetails models.ApplicantDetails    `json:"applicantDetails"`
	LoanDetails      models.LoanDetails         `json:"loanDetails"`
	SuretyDetails    models.SuretyDetails       `json:"suretyDetails"`
	Documents        map[string]models.Document `json:"documents"`
}

// CreateApplication handles POST /applications. Drafts are stored as-is,
// submitted applications must pass full validation first.
func (h *Handlers) CreateApplication(c *gin.Context) {
	var payload applicationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		abortWithError(c, apperrors.NewValidationFailedError(map[string]interface{}{"body": err.Error()}))
		return
	}

	initial := payload.Status
	if initial == "" {
		initial = models.StatusDraft
	}

	app := &models.LoanApplication{
		ApplicantDetails: payload.ApplicantDetails,
		LoanDetails:      payload.LoanDetails,
		SuretyDetails:    payload.SuretyDetails,
		Documents:        payload.Documents,
	}

	if err := validation.SanitizeApplication(app); err != nil {
		abortWithError(c, err)
		return
	}
	if initial == models.StatusSubmitted {
		if !h.validate(c, app) {
			return
		}
	}

	user := currentUser(c)
	created, err := h.applications.Create(c.Request.Context(), app, initial, user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetApplication handles GET /applications/:id.
func (h *Handlers) GetApplication(c *gin.Context) {
	app, err := h.applications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if app == nil {
		abortWithError(c, apperrors.NewRecordNotFoundError(c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, app)
}

// UpdateApplication handles PUT /applications/:id with a full replacement of
// the editable sections.
func (h *Handlers) UpdateApplication(c *gin.Context) {
	var payload applicationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		abortWithError(c, apperrors.NewValidationFailedError(map[string]interface{}{"body": err.Error()}))
		return
	}

	scratch := &models.LoanApplication{
		ApplicantDetails: payload.ApplicantDetails,
		LoanDetails:      payload.LoanDetails,
		SuretyDetails:    payload.SuretyDetails,
		Documents:        payload.Documents,
	}
	if err := validation.SanitizeApplication(scratch); err != nil {
		abortWithError(c, err)
		return
	}

	updated, err := h.applications.Update(
		c.Request.Context(), c.Param("id"),
		scratch.ApplicantDetails, scratch.LoanDetails, scratch.SuretyDetails, scratch.Documents,
	)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteApplication handles DELETE /applications/:id.
func (h *Handlers) DeleteApplication(c *gin.Context) {
	if err := h.applications.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

// applyEvent backs the four lifecycle routes.
func (h *Handlers) applyEvent(event application.Event) gin.HandlerFunc {
	return func(c *gin.Context) {
		app, err := h.applications.Apply(c.Request.Context(), c.Param("id"), event)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, app)
	}
}

// ListApplications handles GET /applications with cursor pagination.
func (h *Handlers) ListApplications(c *gin.Context) {
	limit := intQuery(c, "limit", defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	apps, next, err := h.applications.List(c.Request.Context(), limit, c.Query("cursor"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps, "nextCursor": next})
}

// RecentApplications handles GET /applications/recent.
func (h *Handlers) RecentApplications(c *gin.Context) {
	apps, err := h.applications.Recent(c.Request.Context(), intQuery(c, "limit", 5))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

// MyApplications handles GET /applications/mine, scoped to the caller.
func (h *Handlers) MyApplications(c *gin.Context) {
	user := currentUser(c)
	apps, err := h.applications.ListByCreator(c.Request.Context(), user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

// SearchApplications handles GET /applications/search?q=.
func (h *Handlers) SearchApplications(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		abortWithError(c, apperrors.NewValidationFailedError(map[string]interface{}{"q": "query is required"}))
		return
	}

	formNumbers, err := h.searcher.Search(c.Request.Context(), query, intQuery(c, "limit", defaultPageSize))
	if err != nil {
		abortWithError(c, err)
		return
	}

	apps := make([]models.LoanApplication, 0, len(formNumbers))
	for _, formNumber := range formNumbers {
		app, err := h.applications.Get(c.Request.Context(), formNumber)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if app != nil {
			apps = append(apps, *app)
		}
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

// ValidateApplication handles POST /validate: sanitize, then report every
// schema and business-rule violation without persisting anything.
func (h *Handlers) ValidateApplication(c *gin.Context) {
	var payload applicationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		abortWithError(c, apperrors.NewValidationFailedError(map[string]interface{}{"body": err.Error()}))
		return
	}

	app := &models.LoanApplication{
		ApplicantDetails: payload.ApplicantDetails,
		LoanDetails:      payload.LoanDetails,
		SuretyDetails:    payload.SuretyDetails,
		Documents:        payload.Documents,
	}
	if err := validation.SanitizeApplication(app); err != nil {
		abortWithError(c, err)
		return
	}
	validation.ApplyTotals(&app.LoanDetails)

	result, err := h.validator.Validate(app)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStatistics handles GET /statistics.
func (h *Handlers) GetStatistics(c *gin.Context) {
	stats, err := h.statistics.Dashboard(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetMasters handles GET /masters.
func (h *Handlers) GetMasters(c *gin.Context) {
	data, err := h.masters.GetMasters(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// DistrictTalukas handles GET /masters/districts/:code/talukas.
func (h *Handlers) DistrictTalukas(c *gin.Context) {
	talukas, err := h.masters.DistrictTalukas(c.Request.Context(), c.Param("code"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"talukas": talukas})
}

// TalukaVillages handles GET /masters/talukas/:code/villages.
func (h *Handlers) TalukaVillages(c *gin.Context) {
	villages, err := h.masters.TalukaVillages(c.Request.Context(), c.Param("code"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"villages": villages})
}

// AddDistrict handles POST /masters/districts.
func (h *Handlers) AddDistrict(c *gin.Context) {
	var district models.District
	if err := c.ShouldBindJSON(&district); err != nil {
		abortWithError(c, apperrors.NewValidationFailedError(map[string]interface{}{"body": err.Error()}))
		return
	}
	if err := h.masters.AddDistrict(c.Request.Context(), district); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, district)
}

// AddTaluka handles POST /masters/districts/:code/talukas.
func (h *Handlers) AddTaluka(c *gin.Context) {
	var taluka models.Taluka
	if err := c.ShouldBindJSON(&taluka); err != nil {
		abortWithError(c, apperrors.NewValidationFailedError(map[string]interface{}{"body": err.Error()}))
		return
	}
	if err := h.masters.AddTaluka(c.Request.Context(), c.Param("code"), taluka); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, taluka)
}

// AddVillage handles POST /masters/talukas/:code/villages.
func (h *Handlers) AddVillage(c *gin.Context) {
	var village models.Village
	if err := c.ShouldBindJSON(&village); err != nil {
		abortWithError(c, apperrors.NewValidationFailedError(map[string]interface{}{"body": err.Error()}))
		return
	}
	if err := h.masters.AddVillage(c.Request.Context(), c.Param("code"), village); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, village)
}

// UpdateMasterEntry handles PUT for all three hierarchy levels.
func (h *Handlers) UpdateMasterEntry(update func(*gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := update(c); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": c.Param("code")})
	}
}

func (h *Handlers) updateDistrict(c *gin.Context) error {
	fields, err := bindFields(c)
	if err != nil {
		return err
	}
	return h.masters.UpdateDistrict(c.Request.Context(), c.Param("code"), fields)
}

func (h *Handlers) updateTaluka(c *gin.Context) error {
	fields, err := bindFields(c)
	if err != nil {
		return err
	}
	return h.masters.UpdateTaluka(c.Request.Context(), c.Param("code"), fields)
}

func (h *Handlers) updateVillage(c *gin.Context) error {
	fields, err := bindFields(c)
	if err != nil {
		return err
	}
	return h.masters.UpdateVillage(c.Request.Context(), c.Param("code"), fields)
}

// DeleteMasterEntry handles DELETE for all three hierarchy levels.
func (h *Handlers) DeleteMasterEntry(remove func(*gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := remove(c); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": c.Param("code")})
	}
}

func (h *Handlers) deleteDistrict(c *gin.Context) error {
	return h.masters.DeleteDistrict(c.Request.Context(), c.Param("code"))
}

func (h *Handlers) deleteTaluka(c *gin.Context) error {
	return h.masters.DeleteTaluka(c.Request.Context(), c.Param("code"))
}

func (h *Handlers) deleteVillage(c *gin.Context) error {
	return h.masters.DeleteVillage(c.Request.Context(), c.Param("code"))
}

// Health handles GET /health.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) validate(c *gin.Context, app *models.LoanApplication) bool {
	validation.ApplyTotals(&app.LoanDetails)
	result, err := h.validator.Validate(app)
	if err != nil {
		abortWithError(c, err)
		return false
	}
	if !result.Valid {
		fields := make(map[string]interface{}, len(result.Errors))
		for _, ve := range result.Errors {
			fields[ve.Field] = ve.Message
		}
		abortWithError(c, apperrors.NewValidationFailedError(fields))
		return false
	}
	return true
}

func bindFields(c *gin.Context) (map[string]interface{}, error) {
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		return nil, apperrors.NewValidationFailedError(map[string]interface{}{"body": err.Error()})
	}
	return fields, nil
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
