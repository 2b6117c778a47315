// Package services – AccountService
//
// This file implements the AccountService, which manages account identity:
// registration with an email OTP challenge, login, password reset, profile
// reads/edits, and the ranked user listing. The connection state machine
// treats all of this as a collaborator; it only consumes the user rows and
// the ledger fields this service maintains.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/nkoutro/go-connect-backend/internal/auth"
	"github.com/nkoutro/go-connect-backend/internal/domain"
	"github.com/nkoutro/go-connect-backend/internal/repo"
)

// resetTokenTTL bounds the token minted by VerifyResetOTP. It only needs to
// outlive the user typing a new password, so it is much shorter than the
// login token lifetime.
const resetTokenTTL = 15 * time.Minute

// Mailer delivers one-time codes. Real SMTP is out of scope; the default
// implementation logs the code.
type Mailer interface {
	SendOTP(ctx context.Context, email, subject, code string) error
}

// AccountService provides identity and profile operations.
type AccountService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Mailer delivers OTP codes to users.
	Mailer Mailer

	// JWTSecret signs access tokens; JWTTTL bounds their lifetime.
	JWTSecret []byte
	JWTTTL    time.Duration

	// OTPTTL bounds one-time code validity.
	OTPTTL time.Duration

	// SignupConnects is the connects balance granted at registration.
	SignupConnects int
	// DefaultConnectPrice seeds connects_needed_for_connection for new users.
	DefaultConnectPrice int
}

// NewAccountService constructs an AccountService with the given dependencies.
func NewAccountService(db *gorm.DB, mailer Mailer, jwtSecret []byte, jwtTTL, otpTTL time.Duration, signupConnects, defaultPrice int) *AccountService {
	return &AccountService{
		DB:                  db,
		Mailer:              mailer,
		JWTSecret:           jwtSecret,
		JWTTTL:              jwtTTL,
		OTPTTL:              otpTTL,
		SignupConnects:      signupConnects,
		DefaultConnectPrice: defaultPrice,
	}
}

// Register creates an account, grants the signup connects, and sends a
// verification OTP. Username/email collisions map to ErrEmailTaken.
func (s *AccountService) Register(ctx context.Context, username, name, email, password string) (*domain.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))
	name = s.normalizeName(name)
	if username == "" || email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		ID:                          uuid.NewString(),
		Username:                    username,
		Name:                        name,
		Email:                       email,
		PasswordHash:                string(hash),
		Connects:                    s.SignupConnects,
		ConnectsNeededForConnection: s.DefaultConnectPrice,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateUser(ctx, tx, u); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrEmailTaken
			}
			return err
		}
		return s.issueOTP(ctx, tx, u, domain.OTPPurposeVerifyEmail, "Email Verification Code")
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks the credentials and issues an access token.
func (s *AccountService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	u, err := repo.GetUserByUsername(ctx, s.DB, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := auth.GenerateJWT(s.JWTSecret, u.ID, s.JWTTTL)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// VerifyEmail consumes a verification OTP and marks the address verified.
func (s *AccountService) VerifyEmail(ctx context.Context, email, code string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.userByEmail(ctx, tx, email)
		if err != nil {
			return err
		}
		if err := s.consumeOTP(ctx, tx, u.ID, domain.OTPPurposeVerifyEmail, code); err != nil {
			return err
		}
		u.EmailVerified = true
		return repo.UpdateUser(ctx, tx, u)
	})
}

// ResendOTP re-issues a verification code for an unverified address.
func (s *AccountService) ResendOTP(ctx context.Context, email string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.userByEmail(ctx, tx, email)
		if err != nil {
			return err
		}
		if u.EmailVerified {
			return ErrEmailAlreadyVerified
		}
		return s.issueOTP(ctx, tx, u, domain.OTPPurposeVerifyEmail, "Email Verification Code")
	})
}

// SendResetOTP issues a password-reset code.
func (s *AccountService) SendResetOTP(ctx context.Context, email string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.userByEmail(ctx, tx, email)
		if err != nil {
			return err
		}
		return s.issueOTP(ctx, tx, u, domain.OTPPurposeResetPassword, "Reset Password Code")
	})
}

// VerifyResetOTP consumes a reset code and returns a short-lived access
// token the client uses to call ResetPassword.
func (s *AccountService) VerifyResetOTP(ctx context.Context, email, code string) (string, error) {
	var token string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.userByEmail(ctx, tx, email)
		if err != nil {
			return err
		}
		if err := s.consumeOTP(ctx, tx, u.ID, domain.OTPPurposeResetPassword, code); err != nil {
			return err
		}
		token, err = auth.GenerateJWT(s.JWTSecret, u.ID, resetTokenTTL)
		return err
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword replaces the authenticated user's password when both
// submissions match.
func (s *AccountService) ResetPassword(ctx context.Context, userID, password1, password2 string) error {
	if password1 == "" || password1 != password2 {
		return ErrPasswordMismatch
	}
	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password1), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return repo.UpdateUser(ctx, s.DB, u)
}

// Me returns the authenticated user's row.
func (s *AccountService) Me(ctx context.Context, userID string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// ProfilePatch carries optional profile edits; nil fields are left untouched.
type ProfilePatch struct {
	Name                        *string
	Bio                         *string
	Location                    *string
	ConnectsNeededForConnection *int
}

// EditProfile applies a partial profile update to the authenticated user.
func (s *AccountService) EditProfile(ctx context.Context, userID string, patch ProfilePatch) (*domain.User, error) {
	var out *domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := repo.GetUser(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if patch.Name != nil {
			u.Name = s.normalizeName(*patch.Name)
		}
		if patch.Bio != nil {
			u.Bio = strings.TrimSpace(*patch.Bio)
		}
		if patch.Location != nil {
			u.Location = strings.TrimSpace(*patch.Location)
		}
		if patch.ConnectsNeededForConnection != nil {
			if *patch.ConnectsNeededForConnection < 0 {
				return ErrInvalidPrice
			}
			u.ConnectsNeededForConnection = *patch.ConnectsNeededForConnection
		}
		if err := repo.UpdateUser(ctx, tx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetProfileByUsername returns another user's row by username.
func (s *AccountService) GetProfileByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, err := repo.GetUserByUsername(ctx, s.DB, strings.ToLower(strings.TrimSpace(username)))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// GetProfile returns another user's row by id.
func (s *AccountService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// ListPage returns a ranked page of users matching search, excluding the
// viewer, plus the total count. Rank is connections descending (the original
// rank inputs that survive in this system), then recency.
func (s *AccountService) ListPage(ctx context.Context, viewerID, search string, page, pageSize int) ([]domain.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountUsers(ctx, s.DB, search, viewerID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.User{}, 0, nil
	}
	items, err := repo.ListUsersPage(ctx, s.DB, search, viewerID, offset, pageSize)
	return items, total, err
}

// issueOTP stores a hashed code and hands the clear code to the mailer.
func (s *AccountService) issueOTP(ctx context.Context, tx *gorm.DB, u *domain.User, purpose, subject string) error {
	code, hash, err := auth.GenerateOTP()
	if err != nil {
		return err
	}
	if _, err := repo.CreateOTP(ctx, tx, u.ID, hash, purpose, s.OTPTTL); err != nil {
		return err
	}
	return s.Mailer.SendOTP(ctx, u.Email, subject, code)
}

// consumeOTP validates and burns the user's live code for the purpose.
func (s *AccountService) consumeOTP(ctx context.Context, tx *gorm.DB, userID, purpose, code string) error {
	rec, err := repo.GetPendingOTP(ctx, tx, userID, purpose, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidOTP
		}
		return err
	}
	if !auth.CheckOTP(rec.CodeHash, code) {
		return ErrInvalidOTP
	}
	return repo.ConsumeOTP(ctx, tx, rec.ID)
}

// userByEmail maps a missing address to ErrUserNotFound.
func (s *AccountService) userByEmail(ctx context.Context, tx *gorm.DB, email string) (*domain.User, error) {
	u, err := repo.GetUserByEmail(ctx, tx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// normalizeName trims and title-cases a display name, leaving interior
// capitalization intact.
func (s *AccountService) normalizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return name
	}
	return nameCaser.String(name)
}

// nameCaser title-cases display names without lowering interior runes.
var nameCaser = cases.Title(language.Und, cases.NoLower)
