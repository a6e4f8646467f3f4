package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/laundrypro/server/internal/models"
	"github.com/laundrypro/server/internal/services"
	appErrors "github.com/laundrypro/server/pkg/errors"
	"github.com/laundrypro/server/pkg/response"
)

// TemplateHandler exposes HTTP endpoints for message templates.
type TemplateHandler struct {
	service *services.TemplateService
}

// NewTemplateHandler constructs a template handler.
func NewTemplateHandler(db *gorm.DB) (*TemplateHandler, error) {
	service, err := services.NewTemplateService(db)
	if err != nil {
		return nil, err
	}
	return &TemplateHandler{service: service}, nil
}

// List returns templates, optionally filtered to active ones or one type.
func (h *TemplateHandler) List(c *gin.Context) {
	input := services.ListTemplatesInput{
		ActiveOnly: strings.EqualFold(c.Query("active_only"), "true"),
		Type:       models.NotificationType(strings.TrimSpace(c.Query("notification_type"))),
	}

	rows, err := h.service.List(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, rows)
}

// Get returns one template by id.
func (h *TemplateHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.Error(c, appErrors.NewBadRequest("template id is required"))
		return
	}

	template, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, template)
}

type createTemplateRequest struct {
	Name             string         `json:"name" validate:"required,min=2,max=120"`
	NotificationType string         `json:"notification_type" validate:"required"`
	WhatsAppName     string         `json:"whatsapp_name"`
	LanguageCode     string         `json:"language_code"`
	HeaderText       string         `json:"header_text"`
	BodyText         string         `json:"body_text" validate:"required"`
	FooterText       string         `json:"footer_text"`
	HasButtons       bool           `json:"has_buttons"`
	ButtonConfig     map[string]any `json:"button_config"`
	IsActive         *bool          `json:"is_active"`
	IsApproved       *bool          `json:"is_approved"`
}

// Create registers a new template.
func (h *TemplateHandler) Create(c *gin.Context) {
	var payload createTemplateRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	template, err := h.service.Create(c.Request.Context(), services.CreateTemplateInput{
		Name:         payload.Name,
		Type:         models.NotificationType(payload.NotificationType),
		WhatsAppName: payload.WhatsAppName,
		LanguageCode: payload.LanguageCode,
		HeaderText:   payload.HeaderText,
		BodyText:     payload.BodyText,
		FooterText:   payload.FooterText,
		HasButtons:   payload.HasButtons,
		ButtonConfig: payload.ButtonConfig,
		IsActive:     payload.IsActive,
		IsApproved:   payload.IsApproved,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, template)
}

// Update applies a partial update to a template.
func (h *TemplateHandler) Update(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.Error(c, appErrors.NewBadRequest("template id is required"))
		return
	}

	var payload services.UpdateTemplateInput
	if !bindAndValidate(c, &payload) {
		return
	}

	template, err := h.service.Update(c.Request.Context(), id, payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, template)
}

// Delete removes a template.
func (h *TemplateHandler) Delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.Error(c, appErrors.NewBadRequest("template id is required"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
