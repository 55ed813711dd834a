/*
bind.go - JSON decoding and request validation

PURPOSE:
  One place that turns request bodies into validated request structs.
  Rejects unknown fields, oversized bodies, and trailing garbage, then
  runs validator tags with json field names in the messages.

SEE ALSO:
  - dto.go: Request structs and their validate tags
  - handlers.go: Callers; every bind failure maps to 400
*/
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const maxBodyBytes = 1 << 20 // 1MB

var (
	validateOnce sync.Once
	validate     *validator.Validate
	translator   ut.Translator
)

// initValidator builds the singleton validator with english messages
// keyed by json tag names.
func initValidator() {
	validateOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		translator, _ = uni.GetTranslator("en")

		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(validate, translator)
	})
}

// parseJSON decodes the request body into T and validates it. Errors
// are phrased for clients; handlers map them to 400.
func parseJSON[T any](r *http.Request) (T, error) {
	var dst T
	initValidator()
	defer r.Body.Close()

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&dst); err != nil {
		if err == io.EOF {
			return dst, fmt.Errorf("empty body")
		}
		return dst, fmt.Errorf("invalid JSON: %v", err)
	}
	if dec.More() {
		return dst, fmt.Errorf("unexpected trailing data")
	}

	if err := validate.Struct(dst); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return dst, fmt.Errorf("%s", verrs[0].Translate(translator))
		}
		return dst, err
	}
	return dst, nil
}
