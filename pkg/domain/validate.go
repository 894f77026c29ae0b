package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation, in schema order.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "book validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "book validation failed: " + strings.Join(parts, ", ")
}

// Add records a failed field.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Validate checks a candidate record for creation. Every field is required.
func (in BookInput) Validate() (BookPatch, error) {
	return in.validate(false)
}

// ValidatePatch checks a partial update. Absent fields are skipped, present
// ones follow the same rules as Validate.
func (in BookInput) ValidatePatch() (BookPatch, error) {
	return in.validate(true)
}

func (in BookInput) validate(partial bool) (BookPatch, error) {
	verr := &ValidationError{}
	var patch BookPatch
	patch.Title = in.checkText(verr, "title", in.Title, partial)
	patch.Author = in.checkText(verr, "author", in.Author, partial)
	if msg, bad := in.invalid["year"]; bad {
		verr.Add("year", msg)
	} else if in.Year == nil {
		if !partial {
			verr.Add("year", "is required")
		}
	} else if year, ok := parseYear(*in.Year); ok {
		patch.Year = &year
	} else {
		verr.Add("year", "must be an integer")
	}
	patch.Genre = in.checkText(verr, "genre", in.Genre, partial)
	if err := verr.orNil(); err != nil {
		return BookPatch{}, err
	}
	return patch, nil
}

func (in BookInput) checkText(verr *ValidationError, field string, value *string, partial bool) *string {
	if msg, bad := in.invalid[field]; bad {
		verr.Add(field, msg)
		return nil
	}
	if value == nil {
		if !partial {
			verr.Add(field, "is required")
		}
		return nil
	}
	if strings.TrimSpace(*value) == "" {
		if partial {
			verr.Add(field, "cannot be empty")
		} else {
			verr.Add(field, "is required")
		}
		return nil
	}
	v := *value
	return &v
}

// parseYear accepts integral JSON numbers, including forms like 2020.0, within
// the 32-bit range.
func parseYear(n json.Number) (int, bool) {
	raw := strings.TrimSpace(n.String())
	if raw == "" {
		return 0, false
	}
	if v, err := strconv.ParseInt(raw, 10, 32); err == nil {
		return int(v), true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}
