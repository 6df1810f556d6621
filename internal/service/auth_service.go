package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"storefront-auth/internal/metrics"
	"storefront-auth/internal/model"
	"storefront-auth/internal/otp"
	"storefront-auth/internal/repository"
	"storefront-auth/internal/token"
	"storefront-auth/pkg/apierror"
)

// Google sign-in outcomes.
const (
	GoogleRegister = "register"
	GoogleLogin    = "login"
	GoogleFailed   = "failed"
)

// AuthResult is what every lifecycle flow hands back to the transport layer.
// Tokens is only set on flows that end in a signed-in session.
type AuthResult struct {
	Status     string
	Code       int
	Message    string
	Account    *model.AccountSummary
	Tokens     *model.TokenPair
	ResetToken string
}

type GoogleResult struct {
	Status   string
	Identity model.GoogleIdentity
	// Grant is set for GoogleRegister and must be presented to set-password.
	Grant string
	Auth  AuthResult
}

type RegisterInput struct {
	Email    string
	FullName string
	Password string
}

type RequestOTPInput struct {
	ID    string
	Email string
}

type SetPasswordInput struct {
	Status   string
	Grant    string
	Email    string
	FullName string
	Password string
}

type AuthService struct {
	store    repository.Store
	otps     *otp.Engine
	issuer   *token.Issuer
	logger   *slog.Logger
	hashCost int
	now      func() time.Time
}

func NewAuthService(store repository.Store, otps *otp.Engine, issuer *token.Issuer, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		store:    store,
		otps:     otps,
		issuer:   issuer,
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (res AuthResult, err error) {
	defer func() { recordFlow("register", res, err) }()

	email := normalizeEmail(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	if err := ValidateRegistration(email, fullName, in.Password); err != nil {
		return AuthResult{}, apierror.Validation(err.Error(), "")
	}

	existing, err := s.store.FindAccountByEmail(ctx, email)
	switch {
	case err == nil && existing.IsVerified:
		return AuthResult{}, apierror.Conflict("email already exists", "").Wrap(model.ErrAccountExists)
	case err == nil:
		summary := s.summary(ctx, existing, fullName)
		return AuthResult{
			Status:  model.StatusPending,
			Code:    http.StatusOK,
			Message: "Account exists but not verified. Please verify your email.",
			Account: &summary,
		}, nil
	case !errors.Is(err, model.ErrAccountNotFound):
		return AuthResult{}, s.internal(ctx, "register lookup", err)
	}

	account, profile, err := s.createAccount(ctx, email, fullName, in.Password)
	if errors.Is(err, model.ErrAccountExists) {
		return AuthResult{}, apierror.Conflict("email already exists", "").Wrap(err)
	}
	if err != nil {
		return AuthResult{}, s.internal(ctx, "register create", err)
	}

	summary := model.NewAccountSummary(account, profile)
	s.logger.InfoContext(ctx, "account registered", "account_id", account.ID)
	return AuthResult{
		Status:  model.StatusPending,
		Code:    http.StatusCreated,
		Message: "Your account has been created. Please verify the email to continue.",
		Account: &summary,
	}, nil
}

// RequestOTP locates the account for purpose (by id for register and login, by
// email for password reset) and sends it a fresh code.
func (s *AuthService) RequestOTP(ctx context.Context, purpose model.Purpose, in RequestOTPInput) (res AuthResult, err error) {
	defer func() {
		recordFlow("request_otp_"+string(purpose), res, err)
		if err != nil {
			metrics.RecordOTP(string(purpose), "error")
		}
	}()

	account, err := s.locate(ctx, purpose, in)
	if err != nil {
		return AuthResult{}, err
	}

	result, err := s.otps.RequestChallenge(ctx, account, purpose)
	if errors.Is(err, model.ErrDeliveryFailed) {
		s.logger.WarnContext(ctx, "otp delivery failed", "account_id", account.ID, "error", err)
		return AuthResult{}, apierror.Unavailable("could not deliver the verification code, try again").Wrap(err)
	}
	if err != nil {
		return AuthResult{}, s.internal(ctx, "request otp", err)
	}

	metrics.RecordOTP(string(purpose), string(result.Outcome))
	if !result.OK() {
		return AuthResult{}, apierror.Validation(result.Message, "")
	}

	return AuthResult{
		Status:  model.StatusSuccess,
		Code:    http.StatusAccepted,
		Message: result.Message,
		Account: &model.AccountSummary{OTP: true},
	}, nil
}

// VerifyRegistration consumes the code and signs the account in.
func (s *AuthService) VerifyRegistration(ctx context.Context, accountID string, code string) (res AuthResult, err error) {
	defer func() { recordFlow("verify_register", res, err) }()
	return s.verifyAndSignIn(ctx, model.PurposeRegister, accountID, code, "OTP register success")
}

func (s *AuthService) VerifyLogin(ctx context.Context, accountID string, code string) (res AuthResult, err error) {
	defer func() { recordFlow("verify_login", res, err) }()
	return s.verifyAndSignIn(ctx, model.PurposeLogin, accountID, code, "OTP login success")
}

func (s *AuthService) Login(ctx context.Context, email string, password string) (res AuthResult, err error) {
	defer func() { recordFlow("login", res, err) }()

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return AuthResult{}, apierror.Validation("email and password are required", "")
	}

	account, err := s.store.FindAccountByEmail(ctx, email)
	if errors.Is(err, model.ErrAccountNotFound) {
		return AuthResult{}, apierror.CredentialMismatch("invalid credentials").Wrap(model.ErrInvalidCredentials)
	}
	if err != nil {
		return AuthResult{}, s.internal(ctx, "login lookup", err)
	}

	if !CheckPassword(account.PasswordHash, password) {
		return AuthResult{}, apierror.CredentialMismatch("invalid credentials").Wrap(model.ErrInvalidCredentials)
	}

	profile, err := s.store.FindProfile(ctx, account.ID)
	if err != nil {
		return AuthResult{}, s.internal(ctx, "login profile", err)
	}

	if !account.IsVerified {
		summary := model.NewAccountSummary(account, profile)
		return AuthResult{
			Status:  model.StatusPending,
			Code:    http.StatusOK,
			Message: "Account exists but not verified. Please verify your email.",
			Account: &summary,
		}, nil
	}

	return s.signIn(ctx, account, profile, http.StatusAccepted, "Login success", false)
}

// AuthenticateGoogle resolves a verified Google identity to a local account.
// Unknown emails come back as GoogleRegister with a signup grant; an account
// without a profile is GoogleFailed and is left as is.
func (s *AuthService) AuthenticateGoogle(ctx context.Context, identity model.GoogleIdentity) (res GoogleResult, err error) {
	defer func() { recordFlow("google", AuthResult{Status: res.Status}, err) }()

	identity.Email = normalizeEmail(identity.Email)
	identity.Name = strings.TrimSpace(identity.Name)
	if identity.Email == "" || identity.Name == "" {
		return GoogleResult{Status: GoogleFailed, Identity: identity}, nil
	}

	account, err := s.store.FindAccountByEmail(ctx, identity.Email)
	if errors.Is(err, model.ErrAccountNotFound) {
		grant, err := s.issuer.IssueSignupGrant(identity)
		if err != nil {
			return GoogleResult{}, s.internal(ctx, "google signup grant", err)
		}
		return GoogleResult{Status: GoogleRegister, Identity: identity, Grant: grant}, nil
	}
	if err != nil {
		return GoogleResult{}, s.internal(ctx, "google lookup", err)
	}

	profile, err := s.store.FindProfile(ctx, account.ID)
	if errors.Is(err, model.ErrProfileNotFound) {
		s.logger.WarnContext(ctx, "google sign-in for account without profile", "account_id", account.ID)
		return GoogleResult{Status: GoogleFailed, Identity: identity}, nil
	}
	if err != nil {
		return GoogleResult{}, s.internal(ctx, "google profile", err)
	}

	auth, err := s.signIn(ctx, account, profile, http.StatusOK, "Login google success", false)
	if err != nil {
		return GoogleResult{}, err
	}
	return GoogleResult{Status: GoogleLogin, Identity: identity, Auth: auth}, nil
}

// CompleteGoogleRegistration is the set-password step after a GoogleRegister
// callback. The email always comes from the signup grant.
func (s *AuthService) CompleteGoogleRegistration(ctx context.Context, in SetPasswordInput) (res AuthResult, err error) {
	defer func() { recordFlow("google_set_password", res, err) }()

	if strings.TrimSpace(in.Status) != GoogleRegister {
		return AuthResult{}, apierror.Validation("invalid status register", "")
	}

	identity, err := s.issuer.VerifySignupGrant(in.Grant)
	if err != nil {
		return AuthResult{}, apierror.CredentialMismatch("google sign-up expired, sign in with Google again").Wrap(err)
	}

	email := normalizeEmail(identity.Email)
	if in.Email != "" && normalizeEmail(in.Email) != email {
		return AuthResult{}, apierror.Validation("email does not match the Google account", "")
	}

	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		fullName = identity.Name
	}
	if err := ValidateRegistration(email, fullName, in.Password); err != nil {
		return AuthResult{}, apierror.Validation(err.Error(), "")
	}

	_, err = s.store.FindAccountByEmail(ctx, email)
	if err == nil {
		return AuthResult{}, apierror.Conflict("user already exists", "").Wrap(model.ErrAccountExists)
	}
	if !errors.Is(err, model.ErrAccountNotFound) {
		return AuthResult{}, s.internal(ctx, "set password lookup", err)
	}

	account, profile, err := s.createAccount(ctx, email, fullName, in.Password)
	if errors.Is(err, model.ErrAccountExists) {
		return AuthResult{}, apierror.Conflict("user already exists", "").Wrap(err)
	}
	if err != nil {
		return AuthResult{}, s.internal(ctx, "set password create", err)
	}

	s.logger.InfoContext(ctx, "account registered with google", "account_id", account.ID)
	return s.signIn(ctx, account, profile, http.StatusCreated, "Register google success", false)
}

// ForgotPassword confirms the email belongs to an account so the client can
// move on to requesting a reset code.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (res AuthResult, err error) {
	defer func() { recordFlow("forgot_password", res, err) }()

	email = normalizeEmail(email)
	if email == "" {
		return AuthResult{}, apierror.Validation("email is required", "")
	}

	account, err := s.store.FindAccountByEmail(ctx, email)
	if errors.Is(err, model.ErrAccountNotFound) {
		return AuthResult{}, apierror.NotFound("user not found", "").Wrap(err)
	}
	if err != nil {
		return AuthResult{}, s.internal(ctx, "forgot password lookup", err)
	}

	summary := s.summary(ctx, account, "")
	return AuthResult{
		Status:  model.StatusPending,
		Code:    http.StatusOK,
		Message: "Email found, request a verification code to continue.",
		Account: &summary,
	}, nil
}

// VerifyPasswordReset consumes the reset code and returns a short-lived grant
// that ResetPassword requires.
func (s *AuthService) VerifyPasswordReset(ctx context.Context, accountID string, code string) (res AuthResult, err error) {
	defer func() { recordFlow("verify_password_reset", res, err) }()

	account, profile, err := s.verify(ctx, model.PurposePasswordReset, accountID, code)
	if err != nil {
		return AuthResult{}, err
	}

	grant, err := s.issuer.IssueResetGrant(account.ID)
	if err != nil {
		return AuthResult{}, s.internal(ctx, "issue reset grant", err)
	}

	summary := model.NewAccountSummary(account, profile)
	summary.OTP = true
	return AuthResult{
		Status:     model.StatusPending,
		Code:       http.StatusOK,
		Message:    "OTP forgot password success",
		Account:    &summary,
		ResetToken: grant,
	}, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, grant string, newPassword string) (res AuthResult, err error) {
	defer func() { recordFlow("reset_password", res, err) }()

	accountID, err := s.issuer.VerifyResetGrant(grant)
	if err != nil {
		return AuthResult{}, apierror.CredentialMismatch("password reset expired, request a new code").Wrap(err)
	}

	if err := ValidatePassword(newPassword); err != nil {
		return AuthResult{}, apierror.Validation(err.Error(), "")
	}

	hash, err := HashPassword(newPassword, s.hashCost)
	if err != nil {
		return AuthResult{}, s.internal(ctx, "hash password", err)
	}

	var account model.Account
	var profile model.Profile
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.UpdateAccountSecret(ctx, accountID, hash); err != nil {
			return err
		}
		var err error
		if account, err = tx.FindAccountByID(ctx, accountID); err != nil {
			return err
		}
		profile, err = tx.FindProfile(ctx, accountID)
		return err
	})
	if errors.Is(err, model.ErrAccountNotFound) {
		return AuthResult{}, apierror.NotFound("user not found", "").Wrap(err)
	}
	if err != nil {
		return AuthResult{}, s.internal(ctx, "reset password", err)
	}

	s.logger.InfoContext(ctx, "password reset", "account_id", account.ID)
	return s.signIn(ctx, account, profile, http.StatusOK, "Update password success", false)
}

// Profile returns the current summary for a signed-in account.
func (s *AuthService) Profile(ctx context.Context, accountID string) (model.AccountSummary, error) {
	account, err := s.store.FindAccountByID(ctx, accountID)
	if errors.Is(err, model.ErrAccountNotFound) {
		return model.AccountSummary{}, apierror.NotFound("user not found", "").Wrap(err)
	}
	if err != nil {
		return model.AccountSummary{}, s.internal(ctx, "profile lookup", err)
	}

	profile, err := s.store.FindProfile(ctx, account.ID)
	if errors.Is(err, model.ErrProfileNotFound) {
		return model.AccountSummary{}, apierror.NotFound("profile not found", "").Wrap(err)
	}
	if err != nil {
		return model.AccountSummary{}, s.internal(ctx, "profile lookup", err)
	}

	return model.NewAccountSummary(account, profile), nil
}

func (s *AuthService) verifyAndSignIn(ctx context.Context, purpose model.Purpose, accountID string, code string, message string) (AuthResult, error) {
	account, profile, err := s.verify(ctx, purpose, accountID, code)
	if err != nil {
		return AuthResult{}, err
	}
	return s.signIn(ctx, account, profile, http.StatusAccepted, message, true)
}

// verify runs the OTP check and returns the account as it is after a
// successful consumption.
func (s *AuthService) verify(ctx context.Context, purpose model.Purpose, accountID string, code string) (model.Account, model.Profile, error) {
	accountID = strings.TrimSpace(accountID)
	code = strings.TrimSpace(code)
	if accountID == "" || code == "" {
		return model.Account{}, model.Profile{}, apierror.Validation("id and code are required", "")
	}

	if !validAccountID(accountID) {
		return model.Account{}, model.Profile{}, apierror.NotFound("user not found", "").Wrap(model.ErrAccountNotFound)
	}

	if _, err := s.store.FindAccountByID(ctx, accountID); err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return model.Account{}, model.Profile{}, apierror.NotFound("user not found", "").Wrap(err)
		}
		return model.Account{}, model.Profile{}, s.internal(ctx, "verify lookup", err)
	}

	result, err := s.otps.VerifyChallenge(ctx, accountID, code)
	if err != nil {
		metrics.RecordOTP(string(purpose), "error")
		return model.Account{}, model.Profile{}, s.internal(ctx, "verify otp", err)
	}
	metrics.RecordOTP(string(purpose), string(result.Outcome))

	switch result.Outcome {
	case otp.OutcomeVerified:
	case otp.OutcomeInvalid:
		return model.Account{}, model.Profile{}, apierror.CredentialMismatch(result.Message).Wrap(model.ErrChallengeInvalid)
	default:
		return model.Account{}, model.Profile{}, apierror.CredentialMismatch(result.Message).Wrap(model.ErrChallengeNotFound)
	}

	account, err := s.store.FindAccountByID(ctx, accountID)
	if err != nil {
		return model.Account{}, model.Profile{}, s.internal(ctx, "verify reload", err)
	}
	profile, err := s.store.FindProfile(ctx, accountID)
	if errors.Is(err, model.ErrProfileNotFound) {
		return model.Account{}, model.Profile{}, apierror.Validation("failed account verification", "").Wrap(err)
	}
	if err != nil {
		return model.Account{}, model.Profile{}, s.internal(ctx, "verify profile", err)
	}

	return account, profile, nil
}

func (s *AuthService) signIn(ctx context.Context, account model.Account, profile model.Profile, code int, message string, otpConfirmed bool) (AuthResult, error) {
	pair, err := s.issuer.IssuePair(model.NewClaims(account, profile))
	if err != nil {
		return AuthResult{}, s.internal(ctx, "issue tokens", err)
	}

	summary := model.NewAccountSummary(account, profile)
	summary.OTP = otpConfirmed
	return AuthResult{
		Status:  model.StatusSuccess,
		Code:    code,
		Message: message,
		Account: &summary,
		Tokens:  &pair,
	}, nil
}

func (s *AuthService) locate(ctx context.Context, purpose model.Purpose, in RequestOTPInput) (model.Account, error) {
	var (
		account model.Account
		err     error
	)

	switch purpose {
	case model.PurposeRegister, model.PurposeLogin:
		id := strings.TrimSpace(in.ID)
		if id == "" {
			return model.Account{}, apierror.Validation("id is required", "")
		}
		if !validAccountID(id) {
			return model.Account{}, apierror.NotFound("user not found", "").Wrap(model.ErrAccountNotFound)
		}
		account, err = s.store.FindAccountByID(ctx, id)
	case model.PurposePasswordReset:
		email := normalizeEmail(in.Email)
		if email == "" {
			return model.Account{}, apierror.Validation("email is required", "")
		}
		account, err = s.store.FindAccountByEmail(ctx, email)
	default:
		return model.Account{}, apierror.Validation("unknown otp purpose", string(purpose))
	}

	if errors.Is(err, model.ErrAccountNotFound) {
		return model.Account{}, apierror.NotFound("user not found", "").Wrap(err)
	}
	if err != nil {
		return model.Account{}, s.internal(ctx, "otp lookup", err)
	}
	return account, nil
}

// validAccountID reports whether id can name an account. Ids are uuids; anything
// else can not match a row.
func validAccountID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// createAccount writes the account and its profile in one transaction.
func (s *AuthService) createAccount(ctx context.Context, email string, fullName string, password string) (model.Account, model.Profile, error) {
	hash, err := HashPassword(password, s.hashCost)
	if err != nil {
		return model.Account{}, model.Profile{}, fmt.Errorf("hash password: %w", err)
	}

	secret, err := s.otps.GenerateSecret(email)
	if err != nil {
		return model.Account{}, model.Profile{}, err
	}

	now := s.now().UTC()
	var account model.Account
	var profile model.Profile
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		account, err = tx.CreateAccount(ctx, model.Account{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: hash,
			IsVerified:   false,
			Role:         model.RoleUser,
			OTPSecret:    secret,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}
		profile, err = tx.CreateProfile(ctx, account.ID, fullName)
		return err
	})
	if err != nil {
		return model.Account{}, model.Profile{}, err
	}

	return account, profile, nil
}

// summary falls back to fallbackName when the profile row is missing.
func (s *AuthService) summary(ctx context.Context, account model.Account, fallbackName string) model.AccountSummary {
	profile, err := s.store.FindProfile(ctx, account.ID)
	if err != nil {
		profile = model.Profile{AccountID: account.ID, FullName: fallbackName}
	}
	return model.NewAccountSummary(account, profile)
}

func (s *AuthService) internal(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "auth operation failed", "op", op, "error", err)
	return apierror.Internal("operation failed").Wrap(err)
}

func recordFlow(flow string, res AuthResult, err error) {
	outcome := res.Status
	if err != nil {
		outcome = model.StatusError
		var apiErr *apierror.APIError
		if errors.As(err, &apiErr) {
			outcome = string(apiErr.Kind)
		}
	}
	metrics.RecordFlow(flow, outcome)
}
