package model

import (
	"encoding/json"
	"fmt"
)

// ResourceKind discriminates the content resource a permission points at.
type ResourceKind string

const (
	ResourceCourse ResourceKind = "course"
	ResourceLesson ResourceKind = "lesson"
)

// ResourceRef identifies exactly one content resource: a course or a lesson.
// The zero value is invalid; construct refs via CourseRef or LessonRef so a
// ref can never point at both kinds or neither.
type ResourceRef struct {
	kind ResourceKind
	id   string
}

// CourseRef returns a reference to the course with the given id.
func CourseRef(id string) ResourceRef {
	return ResourceRef{kind: ResourceCourse, id: id}
}

// LessonRef returns a reference to the lesson with the given id.
func LessonRef(id string) ResourceRef {
	return ResourceRef{kind: ResourceLesson, id: id}
}

// Kind returns the resource variant.
func (r ResourceRef) Kind() ResourceKind { return r.kind }

// ID returns the raw resource identifier. IDs are only meaningful together
// with the kind: a course and a lesson may share the same raw id.
func (r ResourceRef) ID() string { return r.id }

// IsZero reports whether the ref was never constructed.
func (r ResourceRef) IsZero() bool { return r.kind == "" && r.id == "" }

// Key returns a string key that is unique per (kind, id) pair. Course and
// lesson refs with identical raw ids map to distinct keys.
func (r ResourceRef) Key() string {
	return string(r.kind) + ":" + r.id
}

type resourceRefJSON struct {
	Type ResourceKind `json:"type"`
	ID   string       `json:"id"`
}

// MarshalJSON encodes the ref as {"type": "course"|"lesson", "id": "..."}.
func (r ResourceRef) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return nil, fmt.Errorf("marshal resource ref: zero value")
	}
	return json.Marshal(resourceRefJSON{Type: r.kind, ID: r.id})
}

// UnmarshalJSON decodes and validates a ref, rejecting unknown kinds and
// empty ids at the boundary.
func (r *ResourceRef) UnmarshalJSON(data []byte) error {
	var raw resourceRefJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ref, err := NewResourceRef(raw.Type, raw.ID)
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

// NewResourceRef builds a validated ref from its parts, e.g. when scanning
// database rows.
func NewResourceRef(kind ResourceKind, id string) (ResourceRef, error) {
	if id == "" {
		return ResourceRef{}, fmt.Errorf("resource ref: empty id")
	}
	switch kind {
	case ResourceCourse:
		return CourseRef(id), nil
	case ResourceLesson:
		return LessonRef(id), nil
	default:
		return ResourceRef{}, fmt.Errorf("resource ref: unknown kind %q", kind)
	}
}
