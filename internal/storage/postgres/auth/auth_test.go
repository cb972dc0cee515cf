package authstorage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanzhit/timelapse_recorder/internal/domain/constants"
	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/lib/testdb"
)

func TestAuthStorage(t *testing.T) {
	s := New(testdb.New(t))

	id, err := s.SaveOperator("ops@example.com", constants.Admin, []byte("hash"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = s.SaveOperator("ops@example.com", constants.Operator, []byte("other"))
	assert.ErrorIs(t, err, errs.ErrOperatorExists)

	operator, err := s.Operator("ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, operator.OperatorID)
	assert.Equal(t, constants.Admin, operator.Role)
	assert.Equal(t, []byte("hash"), operator.PassHash)

	_, err = s.Operator("nobody@example.com")
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)
}
