package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/listingdesk/listingdesk/internal/forms"
	"github.com/listingdesk/listingdesk/internal/store"
	"github.com/listingdesk/listingdesk/types"
	"github.com/rs/zerolog"
)

// UserService encapsulates user use-cases.
type UserService struct {
	store Store
	log   zerolog.Logger
}

func NewUserService(store Store, log zerolog.Logger) *UserService {
	return &UserService{
		store: store,
		log:   log.With().Str("component", "users").Logger(),
	}
}

// GetByID loads the user behind a session. It performs no admin check.
func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.store.Users().GetByID(ctx, id)
}

// Authenticate returns the user whose username and password match. Unknown
// usernames and wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.store.Users().GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if !user.VerifyPassword(password) {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, actor types.User) ([]types.User, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	return s.store.Users().List(ctx)
}

func (s *UserService) Get(ctx context.Context, actor types.User, id int) (types.User, error) {
	if err := authorize(actor); err != nil {
		return types.User{}, err
	}
	return s.store.Users().GetByID(ctx, id)
}

func (s *UserService) Create(ctx context.Context, actor types.User, in forms.NewUser) (types.User, error) {
	if err := authorize(actor); err != nil {
		return types.User{}, err
	}
	created, err := s.create(ctx, in)
	if err != nil {
		return types.User{}, err
	}
	s.log.Info().Int("user_id", created.ID).Str("actor", actor.Username).Msg("user created")
	return created, nil
}

// CreateAdmin creates an administrator without an acting user. It exists to
// bootstrap the first account from the command line.
func (s *UserService) CreateAdmin(ctx context.Context, in forms.NewUser) (types.User, error) {
	in.IsAdmin = true
	created, err := s.create(ctx, in)
	if err != nil {
		return types.User{}, err
	}
	s.log.Info().Int("user_id", created.ID).Str("username", created.Username).Msg("admin created")
	return created, nil
}

func (s *UserService) create(ctx context.Context, in forms.NewUser) (types.User, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return types.User{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := checkIdentity(ctx, tx.Users(), 0, in.Email, in.Username); err != nil {
		return types.User{}, err
	}

	user := types.User{
		Email:     in.Email,
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		IsAdmin:   in.IsAdmin,
	}
	if err := user.SetPassword(in.Password); err != nil {
		if errors.Is(err, types.ErrPasswordTooLong) {
			return types.User{}, forms.Errors{"password": forms.PasswordTooLong}
		}
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := tx.Users().Create(ctx, user)
	if err != nil {
		return types.User{}, identityError(err)
	}
	if err := tx.Commit(); err != nil {
		return types.User{}, err
	}
	return created, nil
}

// Update rewrites the identity fields and admin flag of user id. The password
// is left unchanged.
func (s *UserService) Update(ctx context.Context, actor types.User, id int, in forms.EditUser) (types.User, error) {
	if err := authorize(actor); err != nil {
		return types.User{}, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return types.User{}, err
	}
	defer func() { _ = tx.Rollback() }()

	user, err := tx.Users().GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	if err := checkIdentity(ctx, tx.Users(), id, in.Email, in.Username); err != nil {
		return types.User{}, err
	}

	user.Email = in.Email
	user.Username = in.Username
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.IsAdmin = in.IsAdmin

	updated, err := tx.Users().Update(ctx, user)
	if err != nil {
		return types.User{}, identityError(err)
	}
	if err := tx.Commit(); err != nil {
		return types.User{}, err
	}
	s.log.Info().Int("user_id", id).Str("actor", actor.Username).Msg("user updated")
	return updated, nil
}

// Delete removes user id. Users who still own listings are kept.
func (s *UserService) Delete(ctx context.Context, actor types.User, id int) error {
	if err := authorize(actor); err != nil {
		return err
	}
	if id == actor.ID {
		return ErrSelfDelete
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.Users().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrReferenced) {
			return ErrUserHasListings
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Info().Int("user_id", id).Str("actor", actor.Username).Msg("user deleted")
	return nil
}

// checkIdentity reports email and username collisions with users other than selfID.
func checkIdentity(ctx context.Context, users UserRepository, selfID int, email, username string) error {
	errs := forms.Errors{}

	other, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil && other.ID != selfID:
		errs.Add("email", forms.EmailInUse)
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return err
	}

	other, err = users.GetByUsername(ctx, username)
	switch {
	case err == nil && other.ID != selfID:
		errs.Add("username", forms.UsernameInUse)
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return err
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// identityError turns a unique violation that slipped past checkIdentity into
// the matching field error.
func identityError(err error) error {
	switch {
	case store.IsDuplicate(err, store.ConstraintUserEmail):
		return forms.Errors{"email": forms.EmailInUse}
	case store.IsDuplicate(err, store.ConstraintUserUsername):
		return forms.Errors{"username": forms.UsernameInUse}
	}
	return err
}
