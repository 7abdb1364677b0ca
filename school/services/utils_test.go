package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodedErrorRoundTrip(t *testing.T) {
	base := errors.New("child not found")

	err := CodedError(base, http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, GetResponseCode(err))
	assert.True(t, errors.Is(err, base))
	assert.Equal(t, "child not found", err.Error())
}

func TestCodedErrorSurvivesWrapping(t *testing.T) {
	err := CodedError(errors.New("class mismatch"), http.StatusUnprocessableEntity)
	wrapped := fmt.Errorf("error submitting homework: %w", err)

	assert.Equal(t, http.StatusUnprocessableEntity, GetResponseCode(wrapped))
}

func TestUncodedErrorDefaultsToInternal(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetResponseCode(errors.New("plain error")))
}

func TestSerializeActivityResult(t *testing.T) {
	answer, err := serializeActivityResult(map[string]interface{}{"score": 10})
	assert.NoError(t, err)
	assert.Equal(t, activityResultPrefix+`{"score":10}`, answer)
}
