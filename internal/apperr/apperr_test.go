package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestKinds_MapToHTTPStatus(t *testing.T) {
	cases := map[error]int{
		BadRequest("x"):                 http.StatusBadRequest,
		Unauthorized("x"):               http.StatusUnauthorized,
		Forbidden("x"):                  http.StatusForbidden,
		NotFound("x"):                   http.StatusNotFound,
		Conflict("x"):                   http.StatusConflict,
		Internal(errors.New("db"), "x"): http.StatusInternalServerError,
		errors.New("plain"):             http.StatusInternalServerError,
	}
	for err, want := range cases {
		require.Equal(t, want, KindOf(err).HTTPStatus(), err.Error())
	}
}

func TestKindOf_SeesThroughWrapping(t *testing.T) {
	err := errors.Wrap(NotFound("Package not found"), "update status")
	require.True(t, Is(err, KindNotFound))
	require.Equal(t, "Package not found", PublicMessage(err))
}

func TestInternal_HidesCause(t *testing.T) {
	root := errors.New("connection refused")
	err := Internal(root, "Image upload failed")
	require.Equal(t, "Image upload failed", PublicMessage(err))
	require.ErrorIs(t, err, root)
	require.Contains(t, fmt.Sprintf("%+v", err), "connection refused")
}

func TestPublicMessage_Unclassified(t *testing.T) {
	require.Equal(t, "Internal server error", PublicMessage(errors.New("secret detail")))
}
