package club

import (
	"context"
	"strings"

	"github.com/MusClub-NSU/MusClub-manager/app/store"
)

// UserInput is the data to create a user
type UserInput struct {
	Username string
	Email    string
	Role     string
}

// UserPatch is a partial user update, nil fields are kept
type UserPatch struct {
	Username *string
	Email    *string
	Role     *string
}

func (in *UserInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = strings.TrimSpace(in.Role)
	if in.Role == "" {
		in.Role = DefaultUserRole
	}
}

func (in UserInput) validate() error {
	if err := required("username", in.Username, maxUsernameLen); err != nil {
		return err
	}
	if err := validEmail(in.Email); err != nil {
		return err
	}
	return required("role", in.Role, maxUserRoleLen)
}

// CreateUser validates input and stores a new user
func (s *Service) CreateUser(ctx context.Context, in UserInput) (store.User, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return store.User{}, err
	}
	if err := s.checkUnique(ctx, in.Username, in.Email); err != nil {
		return store.User{}, err
	}
	u, err := s.store.CreateUser(ctx, store.User{Username: in.Username, Email: in.Email, Role: in.Role, CreatedAt: s.now()})
	if err != nil {
		return store.User{}, translate("user", err)
	}
	return u, nil
}

// GetUser returns a user by id
func (s *Service) GetUser(ctx context.Context, id int64) (store.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return store.User{}, translate("user", err)
	}
	return u, nil
}

// ListUsers returns a page of users
func (s *Service) ListUsers(ctx context.Context, page store.Page) (store.PageResult[store.User], error) {
	res, err := s.store.ListUsers(ctx, page)
	if err != nil {
		return store.PageResult[store.User]{}, translate("users", err)
	}
	return res, nil
}

// UpdateUser applies a partial update, uniqueness is checked only for changed values
func (s *Service) UpdateUser(ctx context.Context, id int64, patch UserPatch) (store.User, error) {
	cur, err := s.store.GetUser(ctx, id)
	if err != nil {
		return store.User{}, translate("user", err)
	}
	in := UserInput{Username: cur.Username, Email: cur.Email, Role: cur.Role}
	if patch.Username != nil {
		in.Username = *patch.Username
	}
	if patch.Email != nil {
		in.Email = *patch.Email
	}
	if patch.Role != nil {
		in.Role = *patch.Role
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return store.User{}, err
	}

	username, email := in.Username, in.Email
	if username == cur.Username {
		username = ""
	}
	if email == cur.Email {
		email = ""
	}
	if err := s.checkUnique(ctx, username, email); err != nil {
		return store.User{}, err
	}

	u, err := s.store.UpdateUser(ctx, store.User{ID: id, Username: in.Username, Email: in.Email, Role: in.Role})
	if err != nil {
		return store.User{}, translate("user", err)
	}
	return u, nil
}

// DeleteUser removes a user with memberships and reminders
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return translate("user", s.store.DeleteUser(ctx, id))
}

// checkUnique reports a conflict if username or email is taken, empty values are not checked
func (s *Service) checkUnique(ctx context.Context, username, email string) error {
	if username != "" {
		taken, err := s.store.ExistsByUsername(ctx, username)
		if err != nil {
			return translate("user", err)
		}
		if taken {
			return conflictf("username already in use")
		}
	}
	if email != "" {
		taken, err := s.store.ExistsByEmail(ctx, email)
		if err != nil {
			return translate("user", err)
		}
		if taken {
			return conflictf("email already in use")
		}
	}
	return nil
}
