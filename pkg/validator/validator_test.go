package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reviewBody struct {
	SubjectID string         `json:"subject_id" validate:"required,uuid"`
	Kind      string         `json:"subject_kind" validate:"required,oneof=tutor course lesson"`
	Rating    int            `json:"rating" validate:"gte=1,lte=5"`
	Text      string         `json:"text" validate:"required,notblank,max=20"`
	Scores    map[string]int `json:"category_ratings" validate:"omitempty,dive,gte=1,lte=5"`
}

func validBody() reviewBody {
	return reviewBody{
		SubjectID: "0b7d5f7e-3c43-4c2f-9d0b-5d1b1f1d2a11",
		Kind:      "tutor",
		Rating:    5,
		Text:      "great tutor",
	}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(validBody()))
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	b := validBody()
	b.SubjectID = ""
	b.Kind = "school"

	fields := fieldsOf(t, Validate(b))
	assert.Equal(t, "is required", fields["subject_id"])
	assert.Equal(t, "must be one of: tutor course lesson", fields["subject_kind"])
}

func TestValidate_RatingBounds(t *testing.T) {
	b := validBody()
	b.Rating = 6
	assert.Contains(t, fieldsOf(t, Validate(b))["rating"], "5")

	b.Rating = 0
	assert.Contains(t, fieldsOf(t, Validate(b))["rating"], "1")
}

func TestValidate_NotBlank(t *testing.T) {
	b := validBody()
	b.Text = "   \n\t"
	assert.Equal(t, "must not be blank", fieldsOf(t, Validate(b))["text"])
}

func TestValidate_CategoryScores(t *testing.T) {
	b := validBody()
	b.Scores = map[string]int{"clarity": 4, "punctuality": 9}
	err := Validate(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "less than or equal to 5")
}

func TestValidationError_ErrorString(t *testing.T) {
	b := validBody()
	b.Text = strings.Repeat("x", 30)
	err := Validate(b)
	require.Error(t, err)
	assert.Equal(t, "field 'text' must be at most 20", err.Error())
}

func TestDecodeAndValidate(t *testing.T) {
	body := `{"subject_id":"0b7d5f7e-3c43-4c2f-9d0b-5d1b1f1d2a11","subject_kind":"course","rating":4,"text":"solid"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var got reviewBody
	require.NoError(t, DecodeAndValidate(req, &got))
	assert.Equal(t, "course", got.Kind)
}

func TestDecodeAndValidate_RejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":4,"author":"x"}`))

	var got reviewBody
	err := DecodeAndValidate(req, &got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	var got reviewBody
	require.Error(t, DecodeAndValidate(req, &got))
}
