package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/recipebox-dev/recipebox/internal/recipes"
)

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("Must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("Failed %s validation", fe.Tag())
	}
}

// bindingErrors flattens a gin binding failure into per-field messages so
// validation responses keep one shape whether the check ran in binding or in
// the recipes service.
func bindingErrors(err error) []recipes.FieldError {
	var verrs validator.ValidationErrors

	if !errors.As(err, &verrs) {
		return []recipes.FieldError{{Field: "body", Message: "Invalid request body"}}
	}

	fields := make([]recipes.FieldError, 0, len(verrs))

	for _, fe := range verrs {
		// Namespace is the struct path; drop the root struct name and
		// lower-case the leaf segments to match the JSON shape.
		namespace := fe.Namespace()
		if i := strings.Index(namespace, "."); i >= 0 {
			namespace = namespace[i+1:]
		}
		fields = append(fields, recipes.FieldError{
			Field:   strings.ToLower(namespace),
			Message: validationMessage(fe),
		})
	}

	return fields
}

func respondBindingError(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, gin.H{
		"error":  "Validation failed",
		"errors": bindingErrors(err),
	})
}
