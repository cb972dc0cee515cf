package authservice

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanzhit/timelapse_recorder/internal/domain/constants"
	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	jwtlib "github.com/zanzhit/timelapse_recorder/internal/lib/jwt"
)

type memOperators struct {
	byEmail map[string]models.Operator
}

func (m *memOperators) SaveOperator(email, role string, passHash []byte) (string, error) {
	if _, ok := m.byEmail[email]; ok {
		return "", errs.ErrOperatorExists
	}
	id := "op-" + email
	m.byEmail[email] = models.Operator{OperatorID: id, Email: email, Role: role, PassHash: passHash}
	return id, nil
}

func (m *memOperators) Operator(email string) (models.Operator, error) {
	op, ok := m.byEmail[email]
	if !ok {
		return models.Operator{}, errs.ErrInvalidCredentials
	}
	return op, nil
}

func newService() (*AuthService, *memOperators) {
	store := &memOperators{byEmail: map[string]models.Operator{}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, store, store, time.Hour, "secret"), store
}

func TestRegisterAndLogin(t *testing.T) {
	s, _ := newService()

	id, err := s.RegisterOperator("ops@example.com", "hunter22", "")
	require.NoError(t, err)

	token, err := s.Login("ops@example.com", "hunter22")
	require.NoError(t, err)

	operator, err := jwtlib.ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, id, operator.OperatorID)
	assert.Equal(t, constants.Operator, operator.Role)

	_, err = s.Login("ops@example.com", "wrong")
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)

	_, err = s.Login("ghost@example.com", "hunter22")
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)
}

func TestRegisterOperator_Errors(t *testing.T) {
	s, _ := newService()

	_, err := s.RegisterOperator("ops@example.com", "pw", "root")
	assert.ErrorIs(t, err, errs.ErrRole)

	_, err = s.RegisterOperator("ops@example.com", "pw", constants.Admin)
	require.NoError(t, err)
	_, err = s.RegisterOperator("ops@example.com", "pw", constants.Admin)
	assert.ErrorIs(t, err, errs.ErrOperatorExists)
}

func TestCreateInitialAdmin(t *testing.T) {
	s, store := newService()

	t.Setenv("ADMIN_EMAIL", "")
	t.Setenv("ADMIN_PASSWORD", "")
	assert.Error(t, s.CreateInitialAdmin())

	t.Setenv("ADMIN_EMAIL", "admin@example.com")
	t.Setenv("ADMIN_PASSWORD", "changeme")
	require.NoError(t, s.CreateInitialAdmin())
	require.NoError(t, s.CreateInitialAdmin())

	assert.Len(t, store.byEmail, 1)
	assert.Equal(t, constants.Admin, store.byEmail["admin@example.com"].Role)
}
