package authservice

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/zanzhit/timelapse_recorder/internal/domain/constants"
	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	jwtlib "github.com/zanzhit/timelapse_recorder/internal/lib/jwt"
	"github.com/zanzhit/timelapse_recorder/internal/lib/sl"
)

type AuthService struct {
	secret           string
	tokenTTL         time.Duration
	log              *slog.Logger
	operatorSaver    OperatorSaver
	operatorProvider OperatorProvider
}

type OperatorSaver interface {
	SaveOperator(email, role string, passHash []byte) (string, error)
}

type OperatorProvider interface {
	Operator(email string) (models.Operator, error)
}

func New(
	log *slog.Logger,
	operatorSaver OperatorSaver,
	operatorProvider OperatorProvider,
	tokenTTL time.Duration,
	secret string,
) *AuthService {
	return &AuthService{
		secret:           secret,
		tokenTTL:         tokenTTL,
		log:              log,
		operatorSaver:    operatorSaver,
		operatorProvider: operatorProvider,
	}
}

func (s *AuthService) RegisterOperator(email, password, role string) (string, error) {
	const op = "service.auth.RegisterOperator"

	log := s.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	if role == "" {
		role = constants.Operator
	}
	if role != constants.Operator && role != constants.Admin {
		log.Warn("invalid role", slog.String("role", role))
		return "", fmt.Errorf("%s: %w", op, errs.ErrRole)
	}

	log.Info("registering operator")

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to hash password", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.operatorSaver.SaveOperator(email, role, passHash)
	if err != nil {
		log.Error("failed to save operator", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *AuthService) Login(email, password string) (string, error) {
	const op = "service.auth.Login"

	log := s.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	log.Info("attempting to login operator")

	operator, err := s.operatorProvider.Operator(email)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidCredentials) {
			log.Warn("operator not found", sl.Err(err))

			return "", fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
		}

		log.Error("failed to get operator", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(operator.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
	}

	token, err := jwtlib.NewToken(operator, s.tokenTTL, s.secret)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("operator logged in successfully")

	return token, nil
}

// CreateInitialAdmin registers the admin from ADMIN_EMAIL/ADMIN_PASSWORD
// unless that account already exists.
func (s *AuthService) CreateInitialAdmin() error {
	const op = "service.auth.CreateInitialAdmin"

	log := s.log.With(slog.String("op", op))

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		return fmt.Errorf("%s: ADMIN_EMAIL and ADMIN_PASSWORD are required", op)
	}

	_, err := s.operatorProvider.Operator(adminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errs.ErrInvalidCredentials) {
		return fmt.Errorf("%s: failed to check admin existence: %w", op, err)
	}

	if _, err := s.RegisterOperator(adminEmail, adminPassword, constants.Admin); err != nil {
		log.Error("failed to create admin", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("admin created successfully")

	return nil
}
