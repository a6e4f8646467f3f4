package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/laundrypro/server/internal/models"
	apperrors "github.com/laundrypro/server/pkg/errors"
)

// CreateTemplateInput defines attributes required to register a template.
type CreateTemplateInput struct {
	Name         string
	Type         models.NotificationType
	WhatsAppName string
	LanguageCode string
	HeaderText   string
	BodyText     string
	FooterText   string
	HasButtons   bool
	ButtonConfig map[string]any
	IsActive     *bool
	IsApproved   *bool
}

// UpdateTemplateInput enumerates the fields a caller may change. Nil pointers
// leave the stored value untouched.
type UpdateTemplateInput struct {
	Name         *string                  `json:"name"`
	Type         *models.NotificationType `json:"notification_type"`
	WhatsAppName *string                  `json:"whatsapp_name"`
	LanguageCode *string                  `json:"language_code"`
	HeaderText   *string                  `json:"header_text"`
	BodyText     *string                  `json:"body_text"`
	FooterText   *string                  `json:"footer_text"`
	HasButtons   *bool                    `json:"has_buttons"`
	ButtonConfig map[string]any           `json:"button_config"`
	IsActive     *bool                    `json:"is_active"`
	IsApproved   *bool                    `json:"is_approved"`
}

// ListTemplatesInput filters template queries.
type ListTemplatesInput struct {
	ActiveOnly bool
	Type       models.NotificationType
}

// TemplateService manages the catalogue of message templates.
type TemplateService struct {
	db *gorm.DB
}

// NewTemplateService constructs a TemplateService.
func NewTemplateService(db *gorm.DB) (*TemplateService, error) {
	if db == nil {
		return nil, errors.New("template service: db is required")
	}
	return &TemplateService{db: db}, nil
}

// List returns templates ordered by name.
func (s *TemplateService) List(ctx context.Context, input ListTemplatesInput) ([]models.MessageTemplate, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.MessageTemplate{})
	if input.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if input.Type != "" {
		query = query.Where("type = ?", input.Type)
	}

	var rows []models.MessageTemplate
	if err := query.Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("template service: list templates: %w", err)
	}
	return rows, nil
}

// Get loads a template by id.
func (s *TemplateService) Get(ctx context.Context, id string) (*models.MessageTemplate, error) {
	ctx = ensureContext(ctx)

	var template models.MessageTemplate
	if err := s.db.WithContext(ctx).First(&template, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("template service: load template: %w", err)
	}
	return &template, nil
}

// GetUsable returns the active, provider-approved template with the supplied
// name, or ErrTemplateNotFound.
func (s *TemplateService) GetUsable(ctx context.Context, name string) (*models.MessageTemplate, error) {
	ctx = ensureContext(ctx)

	var template models.MessageTemplate
	err := s.db.WithContext(ctx).
		Where("name = ? AND is_active = ? AND is_approved = ?", name, true, true).
		First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("template service: load template %q: %w", name, err)
	}
	return &template, nil
}

// Create registers a new template.
func (s *TemplateService) Create(ctx context.Context, input CreateTemplateInput) (*models.MessageTemplate, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if !input.Type.Valid() {
		return nil, apperrors.NewBadRequest("notification_type is invalid")
	}
	if strings.TrimSpace(input.BodyText) == "" {
		return nil, apperrors.NewBadRequest("body_text is required")
	}

	template := models.MessageTemplate{
		Name:         name,
		Type:         input.Type,
		WhatsAppName: defaultIfEmpty(strings.TrimSpace(input.WhatsAppName), name),
		LanguageCode: defaultIfEmpty(strings.TrimSpace(input.LanguageCode), "en"),
		HeaderText:   input.HeaderText,
		BodyText:     input.BodyText,
		FooterText:   input.FooterText,
		HasButtons:   input.HasButtons,
		IsActive:     true,
	}
	if input.IsActive != nil {
		template.IsActive = *input.IsActive
	}
	if input.IsApproved != nil {
		template.IsApproved = *input.IsApproved
	}
	if input.ButtonConfig != nil {
		data, err := json.Marshal(input.ButtonConfig)
		if err != nil {
			return nil, fmt.Errorf("template service: marshal button config: %w", err)
		}
		template.ButtonConfig = datatypes.JSON(data)
	}

	if err := s.db.WithContext(ctx).Create(&template).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.New("VALIDATION_ERROR", "template name already exists", http.StatusConflict)
		}
		return nil, fmt.Errorf("template service: create template: %w", err)
	}

	return &template, nil
}

// Update applies the supplied partial update and returns the stored row.
func (s *TemplateService) Update(ctx context.Context, id string, input UpdateTemplateInput) (*models.MessageTemplate, error) {
	ctx = ensureContext(ctx)

	template, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Type != nil {
		if !input.Type.Valid() {
			return nil, apperrors.NewBadRequest("notification_type is invalid")
		}
		updates["type"] = *input.Type
	}
	if input.WhatsAppName != nil {
		updates["whatsapp_name"] = strings.TrimSpace(*input.WhatsAppName)
	}
	if input.LanguageCode != nil {
		updates["language_code"] = defaultIfEmpty(strings.TrimSpace(*input.LanguageCode), "en")
	}
	if input.HeaderText != nil {
		updates["header_text"] = *input.HeaderText
	}
	if input.BodyText != nil {
		if strings.TrimSpace(*input.BodyText) == "" {
			return nil, apperrors.NewBadRequest("body_text cannot be empty")
		}
		updates["body_text"] = *input.BodyText
	}
	if input.FooterText != nil {
		updates["footer_text"] = *input.FooterText
	}
	if input.HasButtons != nil {
		updates["has_buttons"] = *input.HasButtons
	}
	if input.ButtonConfig != nil {
		data, err := json.Marshal(input.ButtonConfig)
		if err != nil {
			return nil, fmt.Errorf("template service: marshal button config: %w", err)
		}
		updates["button_config"] = datatypes.JSON(data)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.IsApproved != nil {
		updates["is_approved"] = *input.IsApproved
	}

	if len(updates) == 0 {
		return template, nil
	}

	if err := s.db.WithContext(ctx).
		Model(&models.MessageTemplate{}).
		Where("id = ?", template.ID).
		Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.New("VALIDATION_ERROR", "template name already exists", http.StatusConflict)
		}
		return nil, fmt.Errorf("template service: update template: %w", err)
	}

	return s.Get(ctx, template.ID)
}

// Delete removes a template from the catalogue.
func (s *TemplateService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Delete(&models.MessageTemplate{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("template service: delete template: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
