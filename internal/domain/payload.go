package domain

import "strconv"

// Payload is the untyped nested mapping holding the origin system's native
// fields. All lookups into it go through these accessors; nothing outside
// this file should type-assert payload values.
type Payload map[string]any

// String returns the value at key as a string. Numeric values are formatted
// without a decimal point so that numeric ids compare equal to their string
// form.
func (p Payload) String(key string) string {
	if p == nil {
		return ""
	}
	return asString(p[key])
}

// Int64 returns the value at key as an int64, or 0 when absent or
// non-numeric.
func (p Payload) Int64(key string) int64 {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Nested returns the value at key as a Payload, or nil when absent or not a
// mapping.
func (p Payload) Nested(key string) Payload {
	if p == nil {
		return nil
	}
	if m, ok := p[key].(map[string]any); ok {
		return Payload(m)
	}
	return nil
}

// firstString returns the first non-empty string value among keys.
func (p Payload) firstString(keys ...string) string {
	for _, k := range keys {
		if v := p.String(k); v != "" {
			return v
		}
	}
	return ""
}

// EntityID is the origin system's own id for the entity, used to detect
// duplicate records reached via different endpoints.
func (p Payload) EntityID() string { return p.String("id") }

// CourseID is the origin course id, when the payload carries one.
func (p Payload) CourseID() string { return p.String("course_id") }

// TypeHint is the origin's machine-readable item type (e.g. "Assignment").
func (p Payload) TypeHint() string { return p.String("type") }

// ModuleID is the module id annotation injected by the crawler; 0 when the
// record does not belong to a module.
func (p Payload) ModuleID() int64 { return p.Int64("_context_module_id") }

// ModuleName is the module name annotation injected by the crawler.
func (p Payload) ModuleName() string { return p.String("_context_module_name") }

// Position is the item's position within its module; 0 when unknown.
func (p Payload) Position() int64 { return p.Int64("position") }

// DueAt returns the first structured deadline field:
// due_at, then content_details.due_at, then lock_at.
func (p Payload) DueAt() string {
	if v := p.String("due_at"); v != "" {
		return v
	}
	if v := p.Nested("content_details").String("due_at"); v != "" {
		return v
	}
	return p.String("lock_at")
}

// PostedAt returns the original posting time: posted_at, then created_at.
// This is the anchor for relative date expressions.
func (p Payload) PostedAt() string {
	return p.firstString("posted_at", "created_at")
}

// Body returns the record's body text or HTML, whichever field the origin
// populated.
func (p Payload) Body() string {
	return p.firstString("message", "body", "description", "html")
}

// HTMLURL returns the origin display URL for the entity.
func (p Payload) HTMLURL() string {
	return p.firstString("html_url", "url")
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
