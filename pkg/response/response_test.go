package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/x", nil)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, w.Code, body.Status)
	return body
}

func TestHelpers_StatusAndBody(t *testing.T) {
	cases := []struct {
		render func(*gin.Context)
		code   int
	}{
		{func(c *gin.Context) { BadRequest(c, "bad") }, http.StatusBadRequest},
		{func(c *gin.Context) { Unauthorized(c, "who") }, http.StatusUnauthorized},
		{func(c *gin.Context) { NotFound(c, "gone") }, http.StatusNotFound},
	}
	for _, tc := range cases {
		c, w := newContext()
		tc.render(c)
		assert.Equal(t, tc.code, w.Code)
		assert.True(t, c.IsAborted())
		decode(t, w)
	}
}

func TestInternalError_HidesDetail(t *testing.T) {
	c, w := newContext()
	InternalError(c, errors.New("dial tcp 10.0.0.1:5432: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decode(t, w).Message)

	c, w = newContext()
	InternalErrorWithMessage(c, errors.New("detail"), "an error occurred with the database")
	assert.Equal(t, "an error occurred with the database", decode(t, w).Message)
}

func TestBindError_ValidationErrors(t *testing.T) {
	type req struct {
		Username string `validate:"required"`
		Email    string `validate:"required,email"`
	}
	err := validator.New().Struct(req{Email: "nope"})
	require.Error(t, err)

	c, w := newContext()
	BindError(c, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Contains(t, body.Message, "Username is required")
	assert.Contains(t, body.Message, "Email must be a valid email")

	c, w = newContext()
	BindError(c, errors.New("unexpected EOF"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Message, "malformed request")
}
