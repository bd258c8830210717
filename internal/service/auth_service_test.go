package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/clinic-api/internal/models"
	"github.com/noah-isme/clinic-api/internal/repository"
	appErrors "github.com/noah-isme/clinic-api/pkg/errors"
)

type authPatientStoreStub struct {
	byEmail map[string]*models.Patient
	created []*models.Patient
	err     error
}

func (s *authPatientStoreStub) FindByEmail(ctx context.Context, email string) (*models.Patient, error) {
	if p, ok := s.byEmail[email]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authPatientStoreStub) Create(ctx context.Context, p *models.Patient) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, p)
	return nil
}

type authDoctorStoreStub struct {
	byEmail map[string]*models.Doctor
}

func (s *authDoctorStoreStub) FindByEmail(ctx context.Context, email string) (*models.Doctor, error) {
	if d, ok := s.byEmail[email]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newAuthServiceForTest(t *testing.T, cfg AuthConfig) *AuthService {
	t.Helper()
	if cfg.Secret == "" {
		cfg.Secret = "test-secret"
	}
	cfg.Issuer = "clinic-test"
	patients := &authPatientStoreStub{byEmail: map[string]*models.Patient{
		"jane@example.com": {ID: "pat-1", Email: "jane@example.com", PasswordHash: hashPassword(t, "patient-pass")},
	}}
	doctors := &authDoctorStoreStub{byEmail: map[string]*models.Doctor{
		"house@example.com": {ID: "doc-1", Email: "house@example.com", PasswordHash: hashPassword(t, "doctor-pass")},
	}}
	return NewAuthService(patients, doctors, nil, nil, cfg)
}

func TestAuthServiceLoginIssuesRoleBoundTokens(t *testing.T) {
	svc := newAuthServiceForTest(t, AuthConfig{})
	ctx := context.Background()

	patientToken, err := svc.LoginPatient(ctx, models.LoginRequest{Email: "Jane@Example.com", Password: "patient-pass"})
	require.NoError(t, err)
	doctorToken, err := svc.LoginDoctor(ctx, models.LoginRequest{Email: "house@example.com", Password: "doctor-pass"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(patientToken.Token, models.RolePatient)
	require.NoError(t, err)
	assert.Equal(t, "pat-1", claims.ID)

	_, err = svc.ValidateToken(patientToken.Token, models.RoleDoctor)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized), "patient token must not verify on the doctor channel")

	principal, err := svc.ResolveProfilePrincipal(doctorToken.Token, "")
	require.NoError(t, err)
	assert.Equal(t, &models.Principal{Role: models.RoleDoctor, ID: "doc-1"}, principal)
}

func TestAuthServiceLoginRejectsBadPassword(t *testing.T) {
	svc := newAuthServiceForTest(t, AuthConfig{})
	_, err := svc.LoginDoctor(context.Background(), models.LoginRequest{Email: "house@example.com", Password: "wrong"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.LoginPatient(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestResolveProfilePrincipalPrefersDoctor(t *testing.T) {
	svc := newAuthServiceForTest(t, AuthConfig{})
	ctx := context.Background()
	patientToken, err := svc.LoginPatient(ctx, models.LoginRequest{Email: "jane@example.com", Password: "patient-pass"})
	require.NoError(t, err)
	doctorToken, err := svc.LoginDoctor(ctx, models.LoginRequest{Email: "house@example.com", Password: "doctor-pass"})
	require.NoError(t, err)

	principal, err := svc.ResolveProfilePrincipal(doctorToken.Token, patientToken.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleDoctor, principal.Role)

	principal, err = svc.ResolveProfilePrincipal("garbage", patientToken.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RolePatient, principal.Role)
}

func TestResolveProfilePrincipalStrictModeRejectsBoth(t *testing.T) {
	svc := newAuthServiceForTest(t, AuthConfig{RejectDualCredentials: true})
	ctx := context.Background()
	patientToken, err := svc.LoginPatient(ctx, models.LoginRequest{Email: "jane@example.com", Password: "patient-pass"})
	require.NoError(t, err)
	doctorToken, err := svc.LoginDoctor(ctx, models.LoginRequest{Email: "house@example.com", Password: "doctor-pass"})
	require.NoError(t, err)

	_, err = svc.ResolveProfilePrincipal(doctorToken.Token, patientToken.Token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	principal, err := svc.ResolveProfilePrincipal("", patientToken.Token)
	require.NoError(t, err)
	assert.Equal(t, "pat-1", principal.ID)
}

func TestResolveProfilePrincipalUniformFailure(t *testing.T) {
	svc := newAuthServiceForTest(t, AuthConfig{})

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		ID:   "pat-1",
		Role: models.RolePatient,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "clinic-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	expiredToken, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		ID:   "pat-1",
		Role: models.RolePatient,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "clinic-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	forgedToken, err := forged.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{"none": "", "expired": expiredToken, "forged": forgedToken, "malformed": "a.b.c"} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ResolveProfilePrincipal("", token)
			appErr := appErrors.FromError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
			assert.Equal(t, appErrors.UnauthorizedMessage, appErr.Message)
		})
	}
}

func TestAdminLoginAndChannelSeparation(t *testing.T) {
	svc := newAuthServiceForTest(t, AuthConfig{AdminEmail: "admin@clinic.local", AdminPassword: "s3cret-admin"})
	ctx := context.Background()

	_, err := svc.LoginAdmin(ctx, models.LoginRequest{Email: "admin@clinic.local", Password: "nope"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	adminToken, err := svc.LoginAdmin(ctx, models.LoginRequest{Email: "admin@clinic.local", Password: "s3cret-admin"})
	require.NoError(t, err)

	principal, err := svc.ResolveAdminPrincipal(adminToken.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, principal.Role)

	_, err = svc.ResolveProfilePrincipal(adminToken.Token, adminToken.Token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized), "admin token is never a profile credential")

	doctorToken, err := svc.LoginDoctor(ctx, models.LoginRequest{Email: "house@example.com", Password: "doctor-pass"})
	require.NoError(t, err)
	_, err = svc.ResolveAdminPrincipal(doctorToken.Token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestRegisterPatient(t *testing.T) {
	svc := newAuthServiceForTest(t, AuthConfig{})
	resp, err := svc.RegisterPatient(context.Background(), models.RegisterRequest{Name: " New Patient ", Email: "NEW@example.com", Password: "long-enough"})
	require.NoError(t, err)
	assert.Equal(t, models.RolePatient, resp.Role)

	_, err = svc.RegisterPatient(context.Background(), models.RegisterRequest{Name: "x", Email: "x@example.com", Password: "short"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestRegisterPatientDuplicateEmail(t *testing.T) {
	svc := newAuthServiceForTest(t, AuthConfig{})
	svc.patients.(*authPatientStoreStub).err = repository.ErrEmailTaken
	_, err := svc.RegisterPatient(context.Background(), models.RegisterRequest{Name: "Jane", Email: "jane@example.com", Password: "long-enough"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}
