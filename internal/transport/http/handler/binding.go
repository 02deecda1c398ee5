package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"postboard/internal/app"
	"postboard/internal/transport/http/response"
)

var registerTagNames sync.Once

// useJSONFieldNames makes validator report fields by their json name.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return strings.ToLower(field.Name)
			}
			return name
		})
	})
}

// trimmer is implemented by requests whose string fields are trimmed
// before validation. Passwords are left as sent.
type trimmer interface {
	trimSpace()
}

// bindJSON decodes, trims and validates the request body. A missing body is
// validated as an empty object so required fields are reported.
func bindJSON(c *gin.Context, req any) *app.ValidationError {
	useJSONFieldNames()

	var err error
	if c.Request.Body != nil {
		err = json.NewDecoder(c.Request.Body).Decode(req)
	}
	if err == nil || errors.Is(err, io.EOF) {
		if t, ok := req.(trimmer); ok {
			t.trimSpace()
		}
		err = binding.Validator.ValidateStruct(req)
	}
	if err == nil {
		return nil
	}

	verr := app.NewValidationError()
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), fieldMessage(fe))
		}
		return verr
	}
	verr.Add("request", "The request body must be a valid JSON object.")
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", fe.Field())
	case "min":
		return fmt.Sprintf("The %s field must be at least %s characters.", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", fe.Field())
	default:
		return fmt.Sprintf("The %s field is invalid.", fe.Field())
	}
}

// writeError maps service errors to HTTP responses. order lists fields in
// the sequence used to pick the summary message.
func writeError(c *gin.Context, err error, order ...string) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Validation(c, verr.Fields, order...)
	case errors.Is(err, app.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, app.ErrInvalidToken):
		response.Unauthenticated(c)
	case errors.Is(err, app.ErrPostNotFound):
		response.Error(c, http.StatusNotFound, "Post not found")
	default:
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		response.ServerError(c)
	}
}
