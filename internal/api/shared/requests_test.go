package shared

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decodeTarget struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		want    decodeTarget
		wantErr error
		errText string
	}{
		{name: "valid json", body: `{"name": "test", "age": 30}`, want: decodeTarget{Name: "test", Age: 30}},
		{name: "invalid json", body: `{"name": "test",}`, errText: "invalid character"},
		{name: "empty body", body: "", wantErr: ErrEmptyBody},
		{name: "unknown field", body: `{"nickname": "x"}`, errText: "unknown field"},
		{name: "trailing data", body: `{"name": "a"} {"name": "b"}`, errText: "unexpected data"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(tc.body))

			var got decodeTarget
			err := DecodeJSON(req, &got)

			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
			case tc.errText != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errText)
			default:
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

type selfValidating struct{ ok bool }

func (s selfValidating) Validate() error {
	if !s.ok {
		return errors.New("not ok")
	}
	return nil
}

type tagged struct {
	ItemID string `validate:"required,max=5"`
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateRequest(selfValidating{ok: true}))
	assert.EqualError(t, ValidateRequest(selfValidating{}), "not ok")

	assert.NoError(t, ValidateRequest(tagged{ItemID: "abc"}))

	err := ValidateRequest(tagged{ItemID: "abcdefg"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "max", verrs[0].Tag())
}
