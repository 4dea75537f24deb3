package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// DecodeAndValidate decodes a JSON request body into dst and runs struct
// validation. Returned errors are AppErrors ready to be rendered.
func DecodeAndValidate(r *http.Request, v *validator.Validate, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, err)
	}
	if v == nil {
		return nil
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[lowerFirst(fe.Field())] = fe.Tag()
			}
			appErr := NewAppError("BAD_REQUEST", "validation failed", http.StatusBadRequest, err)
			appErr.Details = map[string]any{"fields": fields}
			return appErr
		}
		return NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, err)
	}
	return nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
