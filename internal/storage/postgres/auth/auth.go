package authstorage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lithammer/shortuuid/v3"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	"github.com/zanzhit/timelapse_recorder/internal/storage/postgres"
)

type AuthStorage struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *AuthStorage {
	return &AuthStorage{db: db}
}

func (s *AuthStorage) SaveOperator(email, role string, passHash []byte) (string, error) {
	const op = "storage.postgres.auth.SaveOperator"

	id := shortuuid.New()
	query := s.db.Rebind(fmt.Sprintf("INSERT INTO %s (operator_id, email, role, password_hash) VALUES (?, ?, ?, ?)", postgres.OperatorsTable))

	if _, err := s.db.Exec(query, id, email, role, passHash); err != nil {
		if postgres.IsUniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, errs.ErrOperatorExists)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *AuthStorage) Operator(email string) (models.Operator, error) {
	const op = "storage.postgres.auth.Operator"

	var operator models.Operator
	query := s.db.Rebind(fmt.Sprintf("SELECT operator_id, email, role, password_hash FROM %s WHERE email = ?", postgres.OperatorsTable))

	if err := s.db.Get(&operator, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Operator{}, fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
		}

		return models.Operator{}, fmt.Errorf("%s: %w", op, err)
	}

	return operator, nil
}
