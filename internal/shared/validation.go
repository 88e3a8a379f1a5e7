package shared

import (
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var translator ut.Translator

func init() {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)

	var found bool
	translator, found = uni.GetTranslator("en")

	if !found {
		panic("translator en not found")
	}

	// gin binds request bodies through its own validator engine; register
	// the translations there so ShouldBindJSON errors translate cleanly.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := en_translations.RegisterDefaultTranslations(v, translator); err != nil {
			panic(err)
		}
	}
}

// FormatValidationErrors converts binding errors into field-level messages.
// Returns nil when err is not a validation error.
func FormatValidationErrors(err error) []ValidationError {
	var errors []ValidationError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			errors = append(errors, ValidationError{
				Field:   strings.ToLower(fieldError.Field()),
				Message: fieldError.Translate(translator),
			})
		}
	}

	return errors
}

// ValidationMessage flattens validation errors into the single message used
// by the uniform error body.
func ValidationMessage(err error) string {
	errors := FormatValidationErrors(err)

	if len(errors) == 0 {
		return "Invalid request body"
	}

	messages := make([]string, len(errors))
	for i, e := range errors {
		messages[i] = e.Message
	}

	return "Validation failed: " + strings.Join(messages, ", ")
}
