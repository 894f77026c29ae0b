package domain

import (
	"bytes"
	"encoding/json"
)

// Book is a single book record. ID uses the "_id" key on the wire.
type Book struct {
	ID     string `json:"_id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
	Genre  string `json:"genre"`
}

// BookInput carries caller-supplied field values. A nil field was not supplied.
// Year is kept as a json.Number so that non-integral values can be reported as
// validation errors instead of decode errors.
type BookInput struct {
	Title  *string      `json:"title"`
	Author *string      `json:"author"`
	Year   *json.Number `json:"year"`
	Genre  *string      `json:"genre"`

	// invalid holds fields whose JSON value had the wrong type.
	invalid map[string]string
}

// UnmarshalJSON decodes a JSON object field by field. A field of the wrong
// type is remembered and reported by Validate alongside the other field
// errors; unknown keys, including _id, are ignored.
func (in *BookInput) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*in = BookInput{}
	in.Title = in.decodeText(raw, "title")
	in.Author = in.decodeText(raw, "author")
	in.Year = in.decodeYear(raw)
	in.Genre = in.decodeText(raw, "genre")
	return nil
}

func (in *BookInput) markInvalid(field, message string) {
	if in.invalid == nil {
		in.invalid = make(map[string]string, 1)
	}
	in.invalid[field] = message
}

func (in *BookInput) decodeText(raw map[string]json.RawMessage, field string) *string {
	v, ok := raw[field]
	if !ok || isNull(v) {
		return nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		in.markInvalid(field, "must be a string")
		return nil
	}
	return &s
}

// decodeYear accepts a JSON number or a string; the value itself is checked
// by Validate.
func (in *BookInput) decodeYear(raw map[string]json.RawMessage) *json.Number {
	v, ok := raw["year"]
	if !ok || isNull(v) {
		return nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		n := json.Number(s)
		return &n
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		in.markInvalid("year", "must be an integer")
		return nil
	}
	return &n
}

func isNull(v json.RawMessage) bool {
	return string(bytes.TrimSpace(v)) == "null"
}

// BookPatch is a validated set of field values. Nil fields are left untouched
// when the patch is applied.
type BookPatch struct {
	Title  *string
	Author *string
	Year   *int
	Genre  *string
}

// Empty reports whether the patch changes nothing.
func (p BookPatch) Empty() bool {
	return p.Title == nil && p.Author == nil && p.Year == nil && p.Genre == nil
}

// Apply returns b with every present patch field replaced.
func (p BookPatch) Apply(b Book) Book {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Year != nil {
		b.Year = *p.Year
	}
	if p.Genre != nil {
		b.Genre = *p.Genre
	}
	return b
}

// Fields returns the present patch values keyed by their document field name.
func (p BookPatch) Fields() map[string]any {
	fields := make(map[string]any, 4)
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Author != nil {
		fields["author"] = *p.Author
	}
	if p.Year != nil {
		fields["year"] = *p.Year
	}
	if p.Genre != nil {
		fields["genre"] = *p.Genre
	}
	return fields
}
