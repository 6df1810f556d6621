package apierror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsSetKindAndStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    *APIError
		status int
		kind   Kind
	}{
		{"validation", Validation("bad", "email"), http.StatusBadRequest, KindValidation},
		{"mismatch", CredentialMismatch("nope"), http.StatusUnauthorized, KindCredentialMismatch},
		{"conflict", Conflict("dup", ""), http.StatusConflict, KindConflict},
		{"not found", NotFound("gone", "x"), http.StatusNotFound, KindNotFound},
		{"unavailable", Unavailable("later"), http.StatusServiceUnavailable, KindUnavailable},
		{"internal", Internal("boom"), http.StatusInternalServerError, KindInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, tc.err.HTTPStatus)
			assert.Equal(t, tc.kind, tc.err.Kind)
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("sentinel")
	err := Unavailable("delivery failed").Wrap(sentinel)

	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, "UNAVAILABLE: delivery failed", err.Error())

	var apiErr *APIError
	require.ErrorAs(t, error(err), &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.HTTPStatus)
}
