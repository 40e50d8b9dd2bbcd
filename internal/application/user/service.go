// Package user contains the user use cases behind the Users API.
package user

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/lllypuk/userdesk/internal/domain/errs"
	"github.com/lllypuk/userdesk/internal/domain/user"
)

// Service implements the Users API contract on top of a Repository.
// It is also usable directly as the web frontend's remote in mock mode.
type Service struct {
	repo         Repository
	validator    *Validator
	pageSize     int
	passwordCost int
}

// ServiceOption configures Service.
type ServiceOption func(*Service)

// WithPageSize sets how many users a page holds.
func WithPageSize(size int) ServiceOption {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithPasswordCost sets the bcrypt cost.
func WithPasswordCost(cost int) ServiceOption {
	return func(s *Service) {
		s.passwordCost = cost
	}
}

// NewService creates a Service.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:         repo,
		validator:    NewValidator(),
		pageSize:     user.DefaultPageSize,
		passwordCost: bcrypt.DefaultCost,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// PageSize returns the configured page size.
func (s *Service) PageSize() int {
	return s.pageSize
}

// FindAll returns every user.
func (s *Service) FindAll(ctx context.Context) ([]user.User, error) {
	users, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return publicAll(users), nil
}

// FindAllPageable returns the zero-based page of users.
func (s *Service) FindAllPageable(ctx context.Context, page int) (user.Page, error) {
	if page < 0 {
		return user.Page{}, ErrInvalidPage
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return user.Page{}, fmt.Errorf("failed to count users: %w", err)
	}

	users, err := s.repo.List(ctx, page*s.pageSize, s.pageSize)
	if err != nil {
		return user.Page{}, fmt.Errorf("failed to list users: %w", err)
	}

	return user.Page{
		Users:     publicAll(users),
		Paginator: user.NewPaginator(page, s.pageSize, total, len(users)),
	}, nil
}

// FindByID returns a single user.
func (s *Service) FindByID(ctx context.Context, id int64) (user.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return user.User{}, ErrUserNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("failed to find user: %w", err)
	}
	return u.Public(), nil
}

// Create validates and stores a new user.
func (s *Service) Create(ctx context.Context, in user.User) (user.User, error) {
	cmd := NewCreateUserCommand(in)
	if err := s.validator.Validate(cmd); err != nil {
		return user.User{}, err
	}
	if err := s.checkUnique(ctx, 0, cmd.Username, cmd.Email); err != nil {
		return user.User{}, err
	}

	hash, err := s.hash(cmd.Password)
	if err != nil {
		return user.User{}, err
	}

	u := user.User{
		Name:     cmd.Name,
		Lastname: cmd.Lastname,
		Email:    cmd.Email,
		Username: cmd.Username,
		Password: hash,
	}
	if saveErr := s.save(ctx, &u); saveErr != nil {
		return user.User{}, saveErr
	}

	return u.Public(), nil
}

// Update validates and replaces an existing user.
func (s *Service) Update(ctx context.Context, in user.User) (user.User, error) {
	cmd := NewUpdateUserCommand(in)
	if err := s.validator.Validate(cmd); err != nil {
		return user.User{}, err
	}

	existing, err := s.repo.FindByID(ctx, cmd.ID)
	if errors.Is(err, errs.ErrNotFound) {
		return user.User{}, ErrUserNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("failed to find user: %w", err)
	}

	if uniqueErr := s.checkUnique(ctx, cmd.ID, cmd.Username, cmd.Email); uniqueErr != nil {
		return user.User{}, uniqueErr
	}

	existing.Name = cmd.Name
	existing.Lastname = cmd.Lastname
	existing.Email = cmd.Email
	existing.Username = cmd.Username
	if cmd.Password != "" {
		hash, hashErr := s.hash(cmd.Password)
		if hashErr != nil {
			return user.User{}, hashErr
		}
		existing.Password = hash
	}

	if saveErr := s.save(ctx, &existing); saveErr != nil {
		return user.User{}, saveErr
	}

	return existing.Public(), nil
}

// Delete removes a user.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// save stores u. A unique violation that raced past checkUnique is
// reported as field errors, like one caught up front.
func (s *Service) save(ctx context.Context, u *user.User) error {
	err := s.repo.Save(ctx, u)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errs.ErrAlreadyExists) {
		return fmt.Errorf("failed to save user: %w", err)
	}
	if uniqueErr := s.checkUnique(ctx, u.ID, u.Username, u.Email); uniqueErr != nil {
		return uniqueErr
	}
	return user.NewValidationError(user.FormErrors{"username": msgUsernameTaken})
}

// checkUnique reports username and email collisions with users other than self.
func (s *Service) checkUnique(ctx context.Context, self int64, username, email string) error {
	fields := user.FormErrors{}

	taken, err := takenBy(self, func() (user.User, error) { return s.repo.FindByUsername(ctx, username) })
	if err != nil {
		return err
	}
	if taken {
		fields["username"] = msgUsernameTaken
	}

	taken, err = takenBy(self, func() (user.User, error) { return s.repo.FindByEmail(ctx, email) })
	if err != nil {
		return err
	}
	if taken {
		fields["email"] = msgEmailTaken
	}

	if fields.Empty() {
		return nil
	}
	return user.NewValidationError(fields)
}

func takenBy(self int64, find func() (user.User, error)) (bool, error) {
	found, err := find()
	if errors.Is(err, errs.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check uniqueness: %w", err)
	}
	return found.ID != self, nil
}

func (s *Service) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordCost)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPasswordHash, err)
	}
	return string(hash), nil
}

func publicAll(users []user.User) []user.User {
	out := make([]user.User, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	return out
}
