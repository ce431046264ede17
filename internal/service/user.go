package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/usersvc/backend/internal/db"
	"github.com/usersvc/backend/internal/model"
	"github.com/usersvc/backend/internal/security"
)

// UserRepository is the persistence collaborator. Implemented by db.Postgres and db.Memory.
type UserRepository interface {
	FindUserByID(ctx context.Context, id int64) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	UserExistsByID(ctx context.Context, id int64) (bool, error)
	UserExistsByEmail(ctx context.Context, email string) (bool, error)
	SaveUser(ctx context.Context, user *model.User) (*model.User, error)
	DeleteUserByID(ctx context.Context, id int64) error
	FindUserPage(ctx context.Context, page model.PageRequest) ([]model.User, int64, error)
	FindUsersByBirthDateRange(ctx context.Context, from, to model.Date, page model.PageRequest) ([]model.User, int64, error)
}

// UserService is the user directory: registration, lookup, paging, search,
// full and partial update, and deletion.
type UserService struct {
	repo   UserRepository
	hasher security.PasswordHasher
	minAge int
	now    func() time.Time
	logger *slog.Logger
}

type UserOption func(*UserService)

// WithUserClock replaces time.Now for "today" in birth date checks.
func WithUserClock(now func() time.Time) UserOption {
	return func(s *UserService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewUserService(repo UserRepository, hasher security.PasswordHasher, minAge int, logger *slog.Logger, opts ...UserOption) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &UserService{
		repo:   repo,
		hasher: hasher,
		minAge: minAge,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *UserService) Create(ctx context.Context, req model.UserRequest) (model.UserResponse, error) {
	if err := s.validateUser(req); err != nil {
		return model.UserResponse{}, err
	}

	exists, err := s.repo.UserExistsByEmail(ctx, req.Email)
	if err != nil {
		return model.UserResponse{}, err
	}
	if exists {
		return model.UserResponse{}, duplicateOnCreate(req.Email)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.UserResponse{}, fmt.Errorf("hash password: %w", err)
	}

	saved, err := s.repo.SaveUser(ctx, &model.User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		BirthDate:    *req.BirthDate,
		Address:      req.Address,
		PhoneNumber:  req.PhoneNumber,
	})
	if errors.Is(err, db.ErrDuplicateEmail) {
		return model.UserResponse{}, duplicateOnCreate(req.Email)
	}
	if err != nil {
		return model.UserResponse{}, err
	}

	s.logger.Info("user created", "userId", saved.ID)
	return saved.Public(), nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (model.UserResponse, error) {
	user, err := s.repo.FindUserByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return model.UserResponse{}, userNotFound(id)
	}
	if err != nil {
		return model.UserResponse{}, err
	}
	return user.Public(), nil
}

// GetCredentialsByEmail is the lookup used by AuthService.
func (s *UserService) GetCredentialsByEmail(ctx context.Context, email string) (model.Credentials, error) {
	user, err := s.repo.FindUserByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return model.Credentials{}, notFound("user with email %s not found", email)
	}
	if err != nil {
		return model.Credentials{}, err
	}
	return model.Credentials{Email: user.Email, PasswordHash: user.PasswordHash}, nil
}

// ListPage pages over all users ordered by id.
func (s *UserService) ListPage(ctx context.Context, page, size int) (model.Page[model.UserResponse], error) {
	req, err := pageRequest(page, size)
	if err != nil {
		return model.Page[model.UserResponse]{}, err
	}
	users, total, err := s.repo.FindUserPage(ctx, req)
	if err != nil {
		return model.Page[model.UserResponse]{}, err
	}
	return model.MapPage(model.NewPage(users, req, total), model.User.Public), nil
}

// SearchByBirthDateRange pages over users born within [from, to], both inclusive.
func (s *UserService) SearchByBirthDateRange(ctx context.Context, from, to model.Date, page, size int) (model.Page[model.UserResponse], error) {
	if from.IsZero() || to.IsZero() {
		return model.Page[model.UserResponse]{}, newError(ErrInvalidInput, "fromDate and toDate are required")
	}
	if from.After(to) {
		return model.Page[model.UserResponse]{}, newError(ErrValidation, "fromDate must not be after toDate")
	}
	req, err := pageRequest(page, size)
	if err != nil {
		return model.Page[model.UserResponse]{}, err
	}
	users, total, err := s.repo.FindUsersByBirthDateRange(ctx, from, to, req)
	if err != nil {
		return model.Page[model.UserResponse]{}, err
	}
	return model.MapPage(model.NewPage(users, req, total), model.User.Public), nil
}

// FullUpdate overwrites every field of the user, re-hashing the password.
// An unknown id is reported before any field validation.
func (s *UserService) FullUpdate(ctx context.Context, id int64, req model.UserRequest) (model.UserResponse, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return model.UserResponse{}, err
	}
	if err := s.validateUser(req); err != nil {
		return model.UserResponse{}, err
	}
	if err := s.checkEmailFree(ctx, user, req.Email); err != nil {
		return model.UserResponse{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.UserResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user.Email = req.Email
	user.PasswordHash = hash
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.BirthDate = *req.BirthDate
	user.Address = req.Address
	user.PhoneNumber = req.PhoneNumber

	return s.saveUpdate(ctx, user)
}

// PartialUpdate overwrites only the fields present in req. Blank strings
// count as absent, so a string field cannot be cleared this way.
func (s *UserService) PartialUpdate(ctx context.Context, id int64, req model.UserUpdateRequest) (model.UserResponse, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return model.UserResponse{}, err
	}

	req = dropBlank(req)
	if err := req.Validate(s.now()); err != nil {
		return model.UserResponse{}, fromValidation(err)
	}
	if req.BirthDate != nil && !s.IsValidBirthDate(*req.BirthDate, s.minAge) {
		return model.UserResponse{}, s.underage()
	}
	if req.Email != nil {
		if err := s.checkEmailFree(ctx, user, *req.Email); err != nil {
			return model.UserResponse{}, err
		}
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return model.UserResponse{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.BirthDate != nil {
		user.BirthDate = *req.BirthDate
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = *req.PhoneNumber
	}

	return s.saveUpdate(ctx, user)
}

func (s *UserService) DeleteByID(ctx context.Context, id int64) error {
	exists, err := s.repo.UserExistsByID(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return userNotFound(id)
	}
	if err := s.repo.DeleteUserByID(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return userNotFound(id)
		}
		return err
	}
	s.logger.Info("user deleted", "userId", id)
	return nil
}

// IsValidBirthDate reports whether birthDate is strictly before today minus
// minAgeYears, i.e. the user has already reached that age.
func (s *UserService) IsValidBirthDate(birthDate model.Date, minAgeYears int) bool {
	threshold := model.DateOf(s.now()).AddDate(-minAgeYears, 0, 0)
	return birthDate.Before(threshold)
}

func (s *UserService) validateUser(req model.UserRequest) error {
	if err := req.Validate(s.now()); err != nil {
		return fromValidation(err)
	}
	if !s.IsValidBirthDate(*req.BirthDate, s.minAge) {
		return s.underage()
	}
	return nil
}

func (s *UserService) findUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.repo.FindUserByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, userNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// checkEmailFree rejects newEmail when it belongs to a user other than user.
func (s *UserService) checkEmailFree(ctx context.Context, user *model.User, newEmail string) error {
	if newEmail == "" || newEmail == user.Email {
		return nil
	}

	other, err := s.repo.FindUserByEmail(ctx, newEmail)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != user.ID:
		return duplicateOnUpdate(newEmail)
	default:
		return nil
	}
}

func (s *UserService) saveUpdate(ctx context.Context, user *model.User) (model.UserResponse, error) {
	saved, err := s.repo.SaveUser(ctx, user)
	switch {
	case errors.Is(err, db.ErrDuplicateEmail):
		return model.UserResponse{}, duplicateOnUpdate(user.Email)
	case errors.Is(err, db.ErrNotFound):
		return model.UserResponse{}, userNotFound(user.ID)
	case err != nil:
		return model.UserResponse{}, err
	}
	s.logger.Info("user updated", "userId", saved.ID)
	return saved.Public(), nil
}

func (s *UserService) underage() *Error {
	return newError(ErrValidation, fmt.Sprintf("birthDate: user must be at least %d years old", s.minAge))
}

func pageRequest(page, size int) (model.PageRequest, error) {
	if page < 0 {
		return model.PageRequest{}, newError(ErrInvalidInput, "page must not be negative")
	}
	if size < 1 || size > model.MaxPageSize {
		return model.PageRequest{}, newError(ErrInvalidInput, fmt.Sprintf("size must be between 1 and %d", model.MaxPageSize))
	}
	if page > math.MaxInt/size {
		return model.PageRequest{}, newError(ErrInvalidInput, "page is out of range")
	}
	return model.PageRequest{Page: page, Size: size}, nil
}

func dropBlank(req model.UserUpdateRequest) model.UserUpdateRequest {
	for _, field := range []**string{&req.Email, &req.Password, &req.FirstName, &req.LastName, &req.Address, &req.PhoneNumber} {
		if *field != nil && strings.TrimSpace(**field) == "" {
			*field = nil
		}
	}
	return req
}

func userNotFound(id int64) *Error {
	return notFound("user with id %d not found", id)
}

func duplicateOnCreate(email string) *Error {
	return newError(ErrRegistration, fmt.Sprintf("user with email %s already exists", email))
}

func duplicateOnUpdate(email string) *Error {
	return newError(ErrValidation, fmt.Sprintf("user with email %s already exists", email))
}
