package middleware

import (
	stderrors "errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/wms-platform/cutoff-service/pkg/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var (
	warehouseIDRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{1,31}$`)
	productIDRegex   = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)
	orderIDRegex     = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)
	scenarioRegex    = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)
)

var validPriorities = map[string]bool{
	"STANDARD": true,
	"EXPRESS":  true,
	"VIP":      true,
}

func registerCustom(v *validator.Validate) {
	_ = v.RegisterValidation("warehouse_id", validateWarehouseID)
	_ = v.RegisterValidation("product_id", validateProductID)
	_ = v.RegisterValidation("order_id", validateOrderID)
	_ = v.RegisterValidation("priority", validatePriority)
	_ = v.RegisterValidation("scenario", validateScenario)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
}

// InitValidator initializes the validator with custom validators and
// registers the same rules on Gin's binding engine.
func InitValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		registerCustom(validate)

		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			registerCustom(v)
		}
	})

	return validate
}

// GetValidator returns the singleton validator instance
func GetValidator() *validator.Validate {
	return InitValidator()
}

func validateWarehouseID(fl validator.FieldLevel) bool {
	return warehouseIDRegex.MatchString(fl.Field().String())
}

func validateProductID(fl validator.FieldLevel) bool {
	return productIDRegex.MatchString(fl.Field().String())
}

func validateOrderID(fl validator.FieldLevel) bool {
	return orderIDRegex.MatchString(fl.Field().String())
}

func validatePriority(fl validator.FieldLevel) bool {
	return validPriorities[fl.Field().String()]
}

func validateScenario(fl validator.FieldLevel) bool {
	return scenarioRegex.MatchString(fl.Field().String())
}

// ValidationErrorFormatter formats validation errors into a map
func ValidationErrorFormatter(err error) map[string]string {
	fields := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if stderrors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			fields[fieldPath(e)] = formatValidationError(e)
		}
	}

	return fields
}

// fieldPath drops the root struct name so nested fields read as items[0].quantity
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "dive":
		return "contains an invalid element"
	case "warehouse_id":
		return "must be a valid warehouse ID (uppercase alphanumeric with dashes)"
	case "product_id":
		return "must be a valid product ID"
	case "order_id":
		return "must be a valid order ID"
	case "priority":
		return "must be one of: STANDARD, EXPRESS, VIP"
	case "scenario":
		return "must be a valid scenario name"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

// BindAndValidate binds the JSON request body and validates it
func BindAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	return bindingError(c.ShouldBindJSON(obj), "invalid request body: ")
}

// BindQuery binds and validates query parameters
func BindQuery(c *gin.Context, obj interface{}) *errors.AppError {
	return bindingError(c.ShouldBindQuery(obj), "invalid query parameters: ")
}

// BindURI binds and validates path parameters
func BindURI(c *gin.Context, obj interface{}) *errors.AppError {
	return bindingError(c.ShouldBindUri(obj), "invalid path parameters: ")
}

func bindingError(err error, prefix string) *errors.AppError {
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if stderrors.As(err, &validationErrors) {
		return errors.ErrValidationWithFields("validation failed", ValidationErrorFormatter(validationErrors))
	}
	return errors.ErrBadRequest(prefix + err.Error())
}

// ValidateStruct validates a struct using the validator
func ValidateStruct(obj interface{}) *errors.AppError {
	if err := GetValidator().Struct(obj); err != nil {
		var validationErrors validator.ValidationErrors
		if stderrors.As(err, &validationErrors) {
			return errors.ErrValidationWithFields("validation failed", ValidationErrorFormatter(validationErrors))
		}
		return errors.ErrBadRequest("validation failed: " + err.Error())
	}
	return nil
}

// SanitizeString removes null bytes and surrounding whitespace
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}

// InputSanitizer middleware sanitizes query parameters
func InputSanitizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Request.URL.Query()
		for key, values := range query {
			for i, v := range values {
				values[i] = SanitizeString(v)
			}
			query[key] = values
		}
		c.Request.URL.RawQuery = query.Encode()

		c.Next()
	}
}

// ContentType middleware requires JSON bodies on POST requests
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "POST" || c.Request.Method == "PUT" || c.Request.Method == "PATCH" {
			contentType := c.GetHeader("Content-Type")
			if !strings.HasPrefix(contentType, "application/json") && c.Request.ContentLength > 0 {
				AbortWithAppError(c, errors.ErrUnsupportedMediaType(contentType))
				return
			}
		}
		c.Next()
	}
}
