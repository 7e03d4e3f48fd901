package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Gilad-Weinberger/Sikumon/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	notFound := &Error{Status: http.StatusNotAcceptable, Code: CodeNotFound, Message: "0 rows"}
	assert.True(t, errors.Is(notFound, ErrNotFound))
	assert.True(t, errors.Is(fmt.Errorf("wrap: %w", notFound), ErrNotFound))
	assert.False(t, errors.Is(notFound, ErrUnauthorized))

	assert.True(t, errors.Is(&Error{Status: http.StatusUnauthorized}, ErrUnauthorized))
	assert.True(t, errors.Is(&Error{Status: http.StatusForbidden}, ErrForbidden))
	assert.True(t, errors.Is(&Error{Status: http.StatusNotFound}, ErrNotFound))
	assert.False(t, errors.Is(&Error{Status: http.StatusInternalServerError}, ErrNotFound))
}

func TestValidate(t *testing.T) {
	err := Validate(&Session{AccessToken: "x"})
	assert.ErrorIs(t, err, ErrMalformed)

	assert.NoError(t, Validate(&Session{AccessToken: "x", User: &Identity{ID: "u1"}}))

	bad := model.Grade("Z")
	err = Validate(&model.User{ID: "u1", Grade: &bad})
	assert.ErrorIs(t, err, ErrMalformed)

	good := model.GradeC
	assert.NoError(t, Validate(&model.User{ID: "u1", Grade: &good}))
}

func TestValidateEach(t *testing.T) {
	rows := []model.Summary{{ID: "s1", Name: "a", UserID: "u"}, {ID: "s2", UserID: "u"}}
	err := ValidateEach(rows)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, err.Error(), "item 1")

	assert.NoError(t, ValidateEach(rows[:1]))
}

func TestIdentity_DisplayName(t *testing.T) {
	assert.Nil(t, Identity{ID: "u"}.DisplayName())
	n := Identity{UserMetadata: map[string]any{"name": "Dana"}}.DisplayName()
	assert.Equal(t, "Dana", *n)
	n = Identity{UserMetadata: map[string]any{"name": "Dana", "full_name": "Dana Levi"}}.DisplayName()
	assert.Equal(t, "Dana Levi", *n)
}

func TestAccessToken(t *testing.T) {
	_, ok := AccessToken(context.Background())
	assert.False(t, ok)
	tok, ok := AccessToken(WithAccessToken(context.Background(), "t1"))
	assert.True(t, ok)
	assert.Equal(t, "t1", tok)
	_, ok = AccessToken(WithAccessToken(context.Background(), ""))
	assert.False(t, ok)
}
