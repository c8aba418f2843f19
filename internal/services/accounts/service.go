package accounts

import (
	"context"
	"strings"
	"time"

	"github.com/BearBump/SkyRush/internal/apperr"
	"github.com/BearBump/SkyRush/internal/models"
	"github.com/BearBump/SkyRush/internal/storage/pgskyrush"
	"github.com/BearBump/SkyRush/internal/validation"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const passwordCost = 10

type Repository interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type SessionIssuer interface {
	Issue(userID, role string) (string, time.Time, error)
}

// Session is a freshly issued token plus the profile it belongs to.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Profile   models.Profile
}

type Service struct {
	repo      Repository
	sessions  SessionIssuer
	validator *validation.Validator
	admins    map[string]struct{}

	// compared against when the email is unknown, so both login failures cost one bcrypt run
	dummyHash []byte
}

func New(repo Repository, sessions SessionIssuer, adminEmails []string) *Service {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		admins[normalizeEmail(e)] = struct{}{}
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("skyrush-dummy-password"), passwordCost)
	return &Service{
		repo:      repo,
		sessions:  sessions,
		validator: validation.New(),
		admins:    admins,
		dummyHash: dummy,
	}
}

func (s *Service) Register(ctx context.Context, in models.RegisterInput) (*Session, error) {
	in = trimRegistration(in)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if in.Country == "" {
		in.Country = models.DefaultCountry
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), passwordCost)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to hash password")
	}

	role := models.RoleUser
	if _, ok := s.admins[in.Email]; ok {
		role = models.RoleAdmin
	}

	u, err := s.repo.CreateUser(ctx, &models.User{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Phone:          in.Phone,
		PasswordHash:   string(hash),
		Country:        in.Country,
		ShippingOption: in.ShippingOption,
		CompanyName:    in.CompanyName,
		Address: models.Address{
			Street:      in.Street,
			StreetLine2: in.StreetLine2,
			City:        in.City,
			State:       in.State,
			ZipCode:     in.ZipCode,
			Country:     in.AddressCountry,
		},
		Role: role,
	})
	if errors.Is(err, pgskyrush.ErrDuplicate) {
		return nil, apperr.Conflict("User already exists")
	}
	if err != nil {
		return nil, apperr.Internal(err, "Failed to create user")
	}

	return s.issue(u)
}

// Login never tells the caller which of email or password was wrong.
func (s *Service) Login(ctx context.Context, in models.LoginInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	u, err := s.repo.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, pgskyrush.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password))
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	return s.issue(u)
}

func (s *Service) Profile(ctx context.Context, userID string) (models.Profile, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, pgskyrush.ErrNotFound) {
		return models.Profile{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return models.Profile{}, apperr.Internal(err, "Failed to load user")
	}
	return u.Profile(), nil
}

func (s *Service) issue(u *models.User) (*Session, error) {
	token, exp, err := s.sessions.Issue(u.ID, u.Role)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to issue session")
	}
	return &Session{Token: token, ExpiresAt: exp, Profile: u.Profile()}, nil
}

// trimRegistration trims every text field except the password, which is
// taken as typed.
func trimRegistration(in models.RegisterInput) models.RegisterInput {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Country = strings.TrimSpace(in.Country)
	in.ShippingOption = strings.TrimSpace(in.ShippingOption)
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.Street = strings.TrimSpace(in.Street)
	in.StreetLine2 = strings.TrimSpace(in.StreetLine2)
	in.City = strings.TrimSpace(in.City)
	in.State = strings.TrimSpace(in.State)
	in.ZipCode = strings.TrimSpace(in.ZipCode)
	in.AddressCountry = strings.TrimSpace(in.AddressCountry)
	return in
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
