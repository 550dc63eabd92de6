package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckProtected(t *testing.T) {
	tests := []struct {
		name   string
		before string
		after  string
		field  string
	}{
		{
			name:   "unchanged",
			before: `{"schemaVersion":3,"providers":[{"id":"a","apiKey":"k"}]}`,
			after:  `{"schemaVersion":4,"providers":[{"id":"a","apiKey":"k"},{"id":"b"}]}`,
		},
		{
			name:   "reordered providers",
			before: `{"providers":[{"id":"a","apiKey":"k"},{"id":"b"}]}`,
			after:  `{"providers":[{"id":"b"},{"id":"a","apiKey":"k"}]}`,
		},
		{
			name:   "duplicate ids kept",
			before: `{"providers":[{"id":"custom","apiKey":""},{"id":"custom","apiKey":"sk-2"}]}`,
			after:  `{"providers":[{"id":"custom","apiKey":""},{"id":"custom","apiKey":"sk-2"},{"id":"b"}]}`,
		},
		{
			name:   "duplicate id key changed",
			before: `{"providers":[{"id":"custom","apiKey":""},{"id":"custom","apiKey":"sk-2"}]}`,
			after:  `{"providers":[{"id":"custom","apiKey":""},{"id":"custom","apiKey":"sk-3"}]}`,
			field:  "apiKey",
		},
		{
			name:   "duplicate id dropped",
			before: `{"providers":[{"id":"custom"},{"id":"custom","apiKey":"sk-2"}]}`,
			after:  `{"providers":[{"id":"custom","apiKey":"sk-2"}]}`,
			field:  "id",
		},
		{
			name:   "version decreased",
			before: `{"schemaVersion":5}`,
			after:  `{"schemaVersion":3}`,
			field:  "schemaVersion",
		},
		{
			name:   "key changed",
			before: `{"providers":[{"id":"a","apiKey":"k"}]}`,
			after:  `{"providers":[{"id":"a","apiKey":"other"}]}`,
			field:  "apiKey",
		},
		{
			name:   "provider removed",
			before: `{"providers":[{"id":"a"},{"id":"b"}]}`,
			after:  `{"providers":[{"id":"a"}]}`,
			field:  "id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkProtected(parse(t, tt.before), parse(t, tt.after))
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var pf *ProtectedFieldError
			if assert.ErrorAs(t, err, &pf) {
				assert.Equal(t, tt.field, pf.Field)
			}
		})
	}
}

func TestCheckProtected_MalformedAfter(t *testing.T) {
	err := checkProtected(parse(t, `{"providers":[]}`), parse(t, `{"providers":"gone"}`))
	assert.ErrorIs(t, err, ErrMalformedDocument)
}
