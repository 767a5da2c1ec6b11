package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/inkpress/apiserver/internal/errs"
	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the most bcrypt will hash.
const maxPasswordBytes = 72

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// RegisterInput is the signup form.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	FullName string `json:"full_name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=6"`
}

// UserService owns credentials: registration and password checks.
type UserService struct {
	repo      UserRepository
	cost      int
	dummyHash []byte
}

// NewUserService builds a UserService hashing at cost. Out of range costs
// fall back to bcrypt.DefaultCost.
func NewUserService(repo UserRepository, cost int) *UserService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// Compared against for unknown emails so both failure paths cost one
	// bcrypt comparison.
	dummy, err := bcrypt.GenerateFromPassword([]byte("inkpress-no-such-user"), cost)
	if err != nil {
		panic(err)
	}
	return &UserService{repo: repo, cost: cost, dummyHash: dummy}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account. A taken email fails with DuplicateIdentity,
// including when two signups race.
func (s *UserService) Register(ctx context.Context, email, fullName, password string) (types.User, error) {
	in := RegisterInput{
		Email:    NormalizeEmail(email),
		FullName: strings.TrimSpace(fullName),
		Password: password,
	}
	if err := validateInput(in); err != nil {
		return types.User{}, err
	}
	if len(in.Password) > maxPasswordBytes {
		return types.User{}, errs.Invalid("password", "password must be at most 72 bytes")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return types.User{}, errs.Wrap(errs.Internal, "hash password", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, errs.Wrap(errs.DuplicateIdentity, "an account with this email already exists", err)
		}
		return types.User{}, errs.Wrap(errs.Internal, "create user", err)
	}
	return user, nil
}

// Authenticate checks a password. Unknown email and wrong password return the
// same InvalidCredentials error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return types.User{}, storeError("user", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return types.User{}, invalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, invalidCredentials()
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	if !validID(id) {
		return types.User{}, notFound("user")
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, storeError("user", err)
	}
	return user, nil
}

func invalidCredentials() error {
	return errs.New(errs.InvalidCredentials, "invalid email or password")
}
