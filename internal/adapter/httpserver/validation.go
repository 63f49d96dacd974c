package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/vericv/internal/domain"
	"github.com/fairyhunter13/vericv/pkg/textx"
)

const (
	maxJSONBody = 1 << 20
	// maxFormText caps free-form fields such as the upload title.
	maxFormText = 1000
)

var validate = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so details match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return strings.ToLower(f.Name)
		}
		return name
	})
	return v
})

// decodeJSON reads a capped JSON body into dst and checks its validate tags.
// An empty body decodes as {}. Unknown fields are ignored. The details map
// names each failing field with the rule it broke.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, fmt.Errorf("%w: body exceeds %d bytes", domain.ErrInvalidArgument, tooBig.Limit)
		}
		return nil, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument)
	}
	return validateStruct(dst)
}

func validateStruct(v any) (map[string]string, error) {
	err := validate().Struct(v)
	if err == nil {
		return nil, nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	details := make(map[string]string, len(ve))
	for _, fe := range ve {
		details[fe.Field()] = fe.Tag()
	}
	return details, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument)
}

// SanitizeString cleans a free-form form field: control characters and
// invalid UTF-8 go, whitespace is trimmed and the result is capped in runes.
func SanitizeString(input string) string {
	return strings.TrimSpace(textx.TruncateRunes(textx.SanitizeText(input), maxFormText))
}
