package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/xplorer1/eskalate-news-api/utils"
)

const msgValidationFailed = "Validation failed"

var (
	alphaSpacePattern = regexp.MustCompile(`^[A-Za-z\s]+$`)
	registerOnce      sync.Once
	registerErr       error
)

// RegisterValidators installs the custom binding rules on gin's validator.
// It is safe to call more than once.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("unexpected binding validator engine")
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		if err := v.RegisterValidation("alphaspace", func(fl validator.FieldLevel) bool {
			return alphaSpacePattern.MatchString(fl.Field().String())
		}); err != nil {
			registerErr = err
			return
		}
		registerErr = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
			return len(passwordProblems(fl.Field().String())) == 0
		})
	})
	return registerErr
}

var passwordRules = []struct {
	pattern *regexp.Regexp
	message string
}{
	{regexp.MustCompile(`[A-Z]`), "Password must contain at least one uppercase letter"},
	{regexp.MustCompile(`[a-z]`), "Password must contain at least one lowercase letter"},
	{regexp.MustCompile(`[0-9]`), "Password must contain at least one number"},
	{regexp.MustCompile(`[^A-Za-z0-9]`), "Password must contain at least one special character"},
}

// passwordProblems lists every strength rule the password misses.
func passwordProblems(password string) []string {
	var problems []string
	if len(password) < 8 {
		problems = append(problems, "Password must be at least 8 characters")
	}
	for _, rule := range passwordRules {
		if !rule.pattern.MatchString(password) {
			problems = append(problems, rule.message)
		}
	}
	return problems
}

var fieldMessages = map[string]string{
	"Name.required":     "Name is required",
	"Name.alphaspace":   "Name must contain only alphabets and spaces",
	"Email.required":    "Email is required",
	"Email.email":       "Email must be a valid email address",
	"Password.required": "Password is required",
	"Role.required":     "Role must be either 'author' or 'reader'",
	"Role.oneof":        "Role must be either 'author' or 'reader'",
	"Title.required":    "Title is required",
	"Title.min":         "Title must be at least 1 character",
	"Title.max":         "Title must not exceed 150 characters",
	"Content.required":  "Content is required",
	"Content.min":       "Content must be at least 50 characters",
	"Category.required": "Category is required",
	"Category.min":      "Category is required",
	"Status.oneof":      "Status must be either 'Draft' or 'Published'",
}

// bindJSON decodes the body into req and converts any failure into a 400
// carrying one message per violated rule.
func bindJSON(ctx *gin.Context, req interface{}) error {
	err := ctx.ShouldBindJSON(req)
	if err == nil {
		return nil
	}
	return validationError(err)
}

func validationError(err error) *utils.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return utils.BadRequest(msgValidationFailed, fmt.Sprintf("%s has an invalid type", typeErr.Field))
		}
		return utils.BadRequest(msgValidationFailed, "Request body must be valid JSON")
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "strongpassword" {
			value, _ := fe.Value().(string)
			messages = append(messages, passwordProblems(value)...)
			continue
		}
		if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
			messages = append(messages, msg)
			continue
		}
		messages = append(messages, fmt.Sprintf("%s is invalid", fe.Field()))
	}
	return utils.BadRequest(msgValidationFailed, messages...)
}
