//go:build unit || !integration

package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestRecordErrorOnSpan(t *testing.T) {
	span := &testSpan{}
	f := RecordErrorOnSpan(span)

	expectedErr := errors.New("dummy error")
	actualErr := f(expectedErr)

	assert.Equal(t, expectedErr, actualErr)
	assert.False(t, span.ended, "span should be closed by a defer statement in the calling function")
	assert.Equal(t, expectedErr, span.err)
	assert.Equal(t, codes.Error, span.statusCode)
	assert.Equal(t, actualErr.Error(), span.statusDescription)
}

func TestRecordErrorOnSpanNil(t *testing.T) {
	span := &testSpan{}
	assert.NoError(t, RecordErrorOnSpan(span)(nil))
	assert.Nil(t, span.err)
	assert.Equal(t, codes.Unset, span.statusCode)
}

func TestRecordErrorOnSpanTwo(t *testing.T) {
	span := &testSpan{}
	f := RecordErrorOnSpanTwo[string](span)

	expectedParam := "blah"
	expectedErr := errors.New("dummy error")

	actualParam, actualErr := f(expectedParam, expectedErr)

	assert.Equal(t, expectedParam, actualParam)
	assert.Equal(t, expectedErr, actualErr)
	assert.Equal(t, expectedErr, span.err)
	assert.Equal(t, codes.Error, span.statusCode)
}

var _ trace.Span = &testSpan{}

type testSpan struct {
	noop.Span
	err               error
	ended             bool
	statusCode        codes.Code
	statusDescription string
}

func (t *testSpan) End(...trace.SpanEndOption) {
	t.ended = true
}

func (t *testSpan) RecordError(err error, _ ...trace.EventOption) {
	t.err = err
}

func (t *testSpan) SetStatus(code codes.Code, description string) {
	t.statusCode = code
	t.statusDescription = description
}
