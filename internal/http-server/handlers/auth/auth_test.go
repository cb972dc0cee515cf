package authhandler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
)

type fakeAuth struct{}

func (fakeAuth) Login(email, password string) (string, error) {
	if password != "correct-horse" {
		return "", errs.ErrInvalidCredentials
	}
	return "token", nil
}

func (fakeAuth) RegisterOperator(email, password, role string) (string, error) {
	if email == "taken@example.com" {
		return "", errs.ErrOperatorExists
	}
	return "id", nil
}

func TestAuthHandler(t *testing.T) {
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), fakeAuth{})

	tests := []struct {
		name    string
		handler http.HandlerFunc
		body    string
		want    int
	}{
		{name: "login", handler: h.Login, body: `{"email":"a@example.com","password":"correct-horse"}`, want: http.StatusOK},
		{name: "login wrong password", handler: h.Login, body: `{"email":"a@example.com","password":"nope"}`, want: http.StatusUnauthorized},
		{name: "login bad email", handler: h.Login, body: `{"email":"nope","password":"x"}`, want: http.StatusBadRequest},
		{name: "register", handler: h.Register, body: `{"email":"b@example.com","password":"longenough"}`, want: http.StatusCreated},
		{name: "register short password", handler: h.Register, body: `{"email":"b@example.com","password":"short"}`, want: http.StatusBadRequest},
		{name: "register bad role", handler: h.Register, body: `{"email":"b@example.com","password":"longenough","role":"root"}`, want: http.StatusBadRequest},
		{name: "register taken", handler: h.Register, body: `{"email":"taken@example.com","password":"longenough"}`, want: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)))

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}
