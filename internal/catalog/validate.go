package catalog

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/dulceria-api/internal/common"
	"github.com/noah-isme/dulceria-api/internal/discount"
)

var validate = newValidator()

var slugSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

var accentFolder = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n")

// ProductInput is the create-product payload.
type ProductInput struct {
	Name        string `json:"name" validate:"required,min=2,max=120"`
	Slug        string `json:"slug" validate:"omitempty,min=2,max=140"`
	Description string `json:"description" validate:"max=2000"`
	Category    string `json:"category" validate:"max=60"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
	Active      *bool  `json:"active"`
}

// FixedDiscountInput is the wire form of a fixed discount.
type FixedDiscountInput struct {
	Enabled   bool       `json:"enabled"`
	Type      string     `json:"type" validate:"required,oneof=percentage amount"`
	Value     float64    `json:"value" validate:"gte=0"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
	Badge     *string    `json:"badge" validate:"omitempty,max=40"`
}

// TierInput is the wire form of a quantity tier.
type TierInput struct {
	MinQuantity int     `json:"minQuantity" validate:"gte=1"`
	MaxQuantity *int    `json:"maxQuantity" validate:"omitempty,gte=1"`
	Type        string  `json:"type" validate:"required,oneof=percentage amount"`
	Value       float64 `json:"value" validate:"gte=0"`
}

// TieredDiscountInput is the wire form of a tier ladder.
type TieredDiscountInput struct {
	Enabled bool        `json:"enabled"`
	Tiers   []TierInput `json:"tiers" validate:"max=20,dive"`
}

// VariantInput is the create-variant payload.
type VariantInput struct {
	ProductID         string               `json:"productId" validate:"required,uuid"`
	SKU               string               `json:"sku" validate:"required,min=2,max=64"`
	Name              string               `json:"name" validate:"required,max=120"`
	Price             int64                `json:"price" validate:"gte=0"`
	Stock             int                  `json:"stock" validate:"gte=0"`
	LowStockThreshold *int                 `json:"lowStockThreshold" validate:"omitempty,gte=0"`
	Active            *bool                `json:"active"`
	FixedDiscount     *FixedDiscountInput  `json:"fixedDiscount"`
	TieredDiscount    *TieredDiscountInput `json:"tieredDiscount"`
}

// DiscountsInput replaces both discount sub-documents of a variant. Null clears one.
type DiscountsInput struct {
	FixedDiscount  *FixedDiscountInput  `json:"fixedDiscount"`
	TieredDiscount *TieredDiscountInput `json:"tieredDiscount"`
}

// BatchInput wraps rows for the batch create endpoint.
type BatchInput struct {
	Variants []VariantInput `json:"variants" validate:"required,min=1,max=100"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	v.RegisterStructValidation(validateFixedDiscount, FixedDiscountInput{})
	v.RegisterStructValidation(validateTier, TierInput{})
	return v
}

func validateFixedDiscount(sl validator.StructLevel) {
	in := sl.Current().Interface().(FixedDiscountInput)
	if in.Type == string(discount.KindPercentage) && in.Value > 100 {
		sl.ReportError(in.Value, "value", "Value", "max", "100")
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		sl.ReportError(in.EndDate, "endDate", "EndDate", "gtefield", "startDate")
	}
}

func validateTier(sl validator.StructLevel) {
	in := sl.Current().Interface().(TierInput)
	if in.Type == string(discount.KindPercentage) && in.Value > 100 {
		sl.ReportError(in.Value, "value", "Value", "max", "100")
	}
	if in.MaxQuantity != nil && *in.MaxQuantity < in.MinQuantity {
		sl.ReportError(in.MaxQuantity, "maxQuantity", "MaxQuantity", "gtefield", "minQuantity")
	}
}

// Validate checks v against its struct tags and returns a VALIDATION_FAILED AppError.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := common.DecodeJSON(w, r, dst); err != nil {
		return err
	}
	return Validate(dst)
}

func formatValidationErrors(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return common.NewAppError("VALIDATION_FAILED", "validation failed", http.StatusBadRequest, err)
	}
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fieldPath(fe.Namespace())] = validationMessage(fe)
	}
	return common.ValidationFailed(details)
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "gtefield":
		return fmt.Sprintf("must not be less than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "hexcolor":
		return "must be a hex color"
	case "uuid":
		return "must be a valid UUID"
	}
	return "is invalid"
}

func (in FixedDiscountInput) toDomain() *discount.FixedDiscount {
	fd := &discount.FixedDiscount{
		Enabled:   in.Enabled,
		Type:      discount.Kind(in.Type),
		Value:     decimal.NewFromFloat(in.Value),
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
	}
	if in.Badge != nil {
		if badge := strings.TrimSpace(*in.Badge); badge != "" {
			fd.Badge = &badge
		}
	}
	return fd
}

func (in TieredDiscountInput) toDomain() *discount.TieredDiscount {
	td := &discount.TieredDiscount{Enabled: in.Enabled, Tiers: make([]discount.Tier, 0, len(in.Tiers))}
	for _, t := range in.Tiers {
		td.Tiers = append(td.Tiers, discount.Tier{
			MinQuantity: t.MinQuantity,
			MaxQuantity: t.MaxQuantity,
			Type:        discount.Kind(t.Type),
			Value:       decimal.NewFromFloat(t.Value),
		})
	}
	return td
}

func slugify(value string) string {
	slug := slugSanitizer.ReplaceAllString(accentFolder.Replace(strings.ToLower(strings.TrimSpace(value))), "-")
	return strings.Trim(slug, "-")
}
