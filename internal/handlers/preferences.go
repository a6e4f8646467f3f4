package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/laundrypro/server/internal/services"
	appErrors "github.com/laundrypro/server/pkg/errors"
	"github.com/laundrypro/server/pkg/response"
)

// PreferenceHandler exposes HTTP endpoints for notification preferences.
type PreferenceHandler struct {
	service *services.PreferenceService
}

// NewPreferenceHandler constructs a preference handler.
func NewPreferenceHandler(db *gorm.DB) (*PreferenceHandler, error) {
	service, err := services.NewPreferenceService(db)
	if err != nil {
		return nil, err
	}
	return &PreferenceHandler{service: service}, nil
}

// Get returns a customer's preferences, creating defaults on first access.
func (h *PreferenceHandler) Get(c *gin.Context) {
	customerID := strings.TrimSpace(c.Param("customerID"))
	if customerID == "" {
		response.Error(c, appErrors.NewBadRequest("customer id is required"))
		return
	}

	prefs, err := h.service.GetOrCreate(c.Request.Context(), customerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, prefs)
}

// Update applies a partial update to a customer's preferences.
func (h *PreferenceHandler) Update(c *gin.Context) {
	customerID := strings.TrimSpace(c.Param("customerID"))
	if customerID == "" {
		response.Error(c, appErrors.NewBadRequest("customer id is required"))
		return
	}

	var payload services.UpdatePreferencesInput
	if !bindAndValidate(c, &payload) {
		return
	}

	prefs, err := h.service.Update(c.Request.Context(), customerID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, prefs)
}
