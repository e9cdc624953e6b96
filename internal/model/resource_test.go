package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceRefKeyDistinguishesKinds(t *testing.T) {
	// A course and a lesson sharing a raw id must never collide.
	course := CourseRef("42")
	lesson := LessonRef("42")

	assert.NotEqual(t, course, lesson)
	assert.NotEqual(t, course.Key(), lesson.Key())
	assert.Equal(t, course.ID(), lesson.ID())
}

func TestResourceRefZero(t *testing.T) {
	var zero ResourceRef
	assert.True(t, zero.IsZero())
	assert.False(t, CourseRef("a").IsZero())

	_, err := zero.MarshalJSON()
	assert.Error(t, err)
}

func TestNewResourceRef(t *testing.T) {
	ref, err := NewResourceRef(ResourceCourse, "abc")
	require.NoError(t, err)
	assert.Equal(t, CourseRef("abc"), ref)

	_, err = NewResourceRef(ResourceCourse, "")
	assert.Error(t, err, "empty id")

	_, err = NewResourceRef("module", "abc")
	assert.Error(t, err, "unknown kind")
}

func TestResourceRefJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(LessonRef("l-9"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"lesson","id":"l-9"}`, string(data))

	var ref ResourceRef
	require.NoError(t, json.Unmarshal(data, &ref))
	assert.Equal(t, LessonRef("l-9"), ref)
}

func TestResourceRefUnmarshalRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"unknown kind": `{"type":"exam","id":"1"}`,
		"empty id":     `{"type":"course","id":""}`,
		"missing kind": `{"id":"1"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var ref ResourceRef
			assert.Error(t, json.Unmarshal([]byte(raw), &ref))
		})
	}
}
