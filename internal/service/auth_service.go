package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/clinic-api/internal/models"
	"github.com/noah-isme/clinic-api/internal/repository"
	appErrors "github.com/noah-isme/clinic-api/pkg/errors"
)

type authPatientStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Patient, error)
	Create(ctx context.Context, p *models.Patient) error
}

type authDoctorStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Doctor, error)
}

// AuthConfig defines token and admin identity settings.
type AuthConfig struct {
	Secret        string
	Expiry        time.Duration
	Issuer        string
	AdminEmail    string
	AdminPassword string
	AdminExpiry   time.Duration
	// RejectDualCredentials makes a request carrying both a doctor and a
	// patient credential fail instead of resolving to the doctor.
	RejectDualCredentials bool
}

// AuthService issues role tokens and resolves request principals.
type AuthService struct {
	patients  authPatientStore
	doctors   authDoctorStore
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(patients authPatientStore, doctors authDoctorStore, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.Expiry <= 0 {
		config.Expiry = 7 * 24 * time.Hour
	}
	if config.AdminExpiry <= 0 {
		config.AdminExpiry = 12 * time.Hour
	}
	return &AuthService{patients: patients, doctors: doctors, validator: validate, logger: logger, config: config, now: time.Now}
}

// RegisterPatient creates a patient account and signs them in.
func (s *AuthService) RegisterPatient(ctx context.Context, req models.RegisterRequest) (*models.TokenResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	now := s.now().UTC()
	patient := &models.Patient{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.patients.Create(ctx, patient); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, appErrors.Storage(err, "failed to create account")
	}
	return s.issue(models.RolePatient, patient.ID, s.config.Expiry)
}

// LoginPatient authenticates a patient by email and password.
func (s *AuthService) LoginPatient(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	if err := s.validateLogin(&req); err != nil {
		return nil, err
	}
	patient, err := s.patients.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, s.lookupFailure(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(patient.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	return s.issue(models.RolePatient, patient.ID, s.config.Expiry)
}

// LoginDoctor authenticates a doctor by email and password.
func (s *AuthService) LoginDoctor(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	if err := s.validateLogin(&req); err != nil {
		return nil, err
	}
	doctor, err := s.doctors.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, s.lookupFailure(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(doctor.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	return s.issue(models.RoleDoctor, doctor.ID, s.config.Expiry)
}

// LoginAdmin checks the configured admin identity and issues an admin token.
func (s *AuthService) LoginAdmin(_ context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	if err := s.validateLogin(&req); err != nil {
		return nil, err
	}
	if s.config.AdminPassword == "" {
		s.logger.Warn("admin login attempted without configured admin password")
		return nil, appErrors.ErrInvalidCredentials
	}
	emailOK := subtle.ConstantTimeCompare([]byte(req.Email), []byte(strings.ToLower(s.config.AdminEmail))) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.config.AdminPassword)) == 1
	if !emailOK || !passwordOK {
		return nil, appErrors.ErrInvalidCredentials
	}
	return s.issue(models.RoleAdmin, "", s.config.AdminExpiry)
}

// ValidateToken verifies signature, expiry and that the token was issued for
// role. Every failure is reported as the same Unauthorized error.
func (s *AuthService) ValidateToken(tokenString string, role models.Role) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(s.config.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, appErrors.UnauthorizedMessage)
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.Role != role {
		return nil, appErrors.ErrUnauthorized
	}
	if role != models.RoleAdmin && claims.ID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	return claims, nil
}

// ResolveProfilePrincipal resolves the doctor/patient channel. The order is
// fixed: a verifying doctor credential wins, then a verifying patient
// credential, otherwise Unauthorized. With RejectDualCredentials set, the
// presence of both credentials is itself Unauthorized.
func (s *AuthService) ResolveProfilePrincipal(doctorToken, patientToken string) (*models.Principal, error) {
	doctorToken = strings.TrimSpace(doctorToken)
	patientToken = strings.TrimSpace(patientToken)

	if s.config.RejectDualCredentials && doctorToken != "" && patientToken != "" {
		s.logger.Debug("rejecting request carrying both doctor and patient credentials")
		return nil, appErrors.ErrUnauthorized
	}
	if doctorToken != "" {
		if claims, err := s.ValidateToken(doctorToken, models.RoleDoctor); err == nil {
			return claims.Principal(), nil
		}
	}
	if patientToken != "" {
		if claims, err := s.ValidateToken(patientToken, models.RolePatient); err == nil {
			return claims.Principal(), nil
		}
	}
	return nil, appErrors.ErrUnauthorized
}

// ResolveAdminPrincipal resolves the separate admin channel.
func (s *AuthService) ResolveAdminPrincipal(adminToken string) (*models.Principal, error) {
	adminToken = strings.TrimSpace(adminToken)
	if adminToken == "" {
		return nil, appErrors.ErrUnauthorized
	}
	claims, err := s.ValidateToken(adminToken, models.RoleAdmin)
	if err != nil {
		return nil, appErrors.ErrUnauthorized
	}
	return claims.Principal(), nil
}

func (s *AuthService) validateLogin(req *models.LoginRequest) error {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	return nil
}

func (s *AuthService) lookupFailure(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.ErrInvalidCredentials
	}
	return appErrors.Storage(err, "failed to load account")
}

func (s *AuthService) issue(role models.Role, id string, ttl time.Duration) (*models.TokenResponse, error) {
	issuedAt := s.now().UTC()
	claims := &models.JWTClaims{
		ID:   id,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   id,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create token")
	}
	return &models.TokenResponse{Token: signed, Role: role, ExpiresIn: int64(ttl.Seconds()), IssuedAt: issuedAt}, nil
}
