package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/NomadCrew/formflow-backend/internal/store"
	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/google/uuid"
	gotypes "github.com/supabase-community/gotrue-go/types"
)

// AuthAdmin is the subset of the GoTrue admin API used for user management.
// gotrue.Client satisfies it once it carries the service role token.
type AuthAdmin interface {
	AdminListUsers() (*gotypes.AdminListUsersResponse, error)
	AdminCreateUser(req gotypes.AdminCreateUserRequest) (*gotypes.AdminCreateUserResponse, error)
	AdminUpdateUser(req gotypes.AdminUpdateUserRequest) (*gotypes.AdminUpdateUserResponse, error)
	AdminDeleteUser(req gotypes.AdminDeleteUserRequest) error
	Invite(req gotypes.InviteRequest) (*gotypes.InviteResponse, error)
}

// UserService manages staff accounts. Roles live in the profiles table; the
// admin email allowlist grants admin regardless of the profile.
type UserService struct {
	auth        AuthAdmin
	profiles    store.ProfileStore
	adminEmails map[string]struct{}
}

func NewUserService(auth AuthAdmin, profiles store.ProfileStore, adminEmails []string) *UserService {
	allow := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			allow[e] = struct{}{}
		}
	}
	return &UserService{auth: auth, profiles: profiles, adminEmails: allow}
}

func (s *UserService) isAllowlisted(email string) bool {
	_, ok := s.adminEmails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// ResolveRole returns the caller's role. A missing or unreadable profile
// resolves to staff unless the email is allowlisted.
func (s *UserService) ResolveRole(ctx context.Context, userID, email string) types.UserRole {
	if s.isAllowlisted(email) {
		return types.UserRoleAdmin
	}
	if s.profiles == nil {
		return types.UserRoleStaff
	}
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.GetLogger().Warnw("Failed to load profile, defaulting to staff",
				"userID", userID, "error", err)
		}
		return types.UserRoleStaff
	}
	return profile.Role
}

// ListUsers returns every auth account joined with its profile role, oldest
// first.
func (s *UserService) ListUsers(ctx context.Context) ([]types.ManagedUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := s.auth.AdminListUsers()
	if err != nil {
		return nil, apperrors.ExternalService("supabase-auth", err)
	}

	roles := make(map[string]types.UserRole)
	if s.profiles != nil {
		profiles, err := s.profiles.ListProfiles(ctx)
		if err != nil {
			logger.GetLogger().Warnw("Failed to list profiles, roles default to staff", "error", err)
		}
		for _, p := range profiles {
			roles[p.ID] = p.Role
		}
	}

	users := make([]types.ManagedUser, 0, len(resp.Users))
	for _, u := range resp.Users {
		mu := toManagedUser(u)
		if role, ok := roles[mu.ID]; ok {
			mu.Role = role
		}
		if s.isAllowlisted(mu.Email) {
			mu.Role = types.UserRoleAdmin
		}
		users = append(users, mu)
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

// InviteUser creates an unconfirmed account carrying role in its metadata,
// sends the invite email and records the profile.
func (s *UserService) InviteUser(ctx context.Context, email string, role types.UserRole) (*types.ManagedUser, error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return nil, apperrors.ValidationFailed("A valid email address is required", email)
	}
	if !role.IsValid() {
		return nil, apperrors.ValidationFailed("Role must be admin or staff", string(role))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := logger.GetLogger()
	metadata := map[string]interface{}{"role": string(role)}

	created, err := s.auth.AdminCreateUser(gotypes.AdminCreateUserRequest{
		Email:        email,
		EmailConfirm: false,
		UserMetadata: metadata,
	})
	if err != nil {
		if isAlreadyRegistered(err) {
			return nil, apperrors.NewConflictError(fmt.Sprintf("A user with email %s already exists", email), "user")
		}
		return nil, apperrors.ExternalService("supabase-auth", err)
	}
	user := created.User

	invited, err := s.auth.Invite(gotypes.InviteRequest{Email: email, Data: metadata})
	if err != nil {
		log.Warnw("Invite email failed after account creation",
			"email", logger.MaskEmail(email), "error", err)
	} else {
		user.InvitedAt = invited.User.InvitedAt
	}

	mu := toManagedUser(user)
	mu.Role = role
	if s.profiles != nil {
		if err := s.profiles.UpsertProfile(ctx, &types.Profile{ID: mu.ID, Email: email, Role: role}); err != nil {
			log.Errorw("Failed to record profile for invited user", "userID", mu.ID, "error", err)
		}
	}
	log.Infow("Invited user", "userID", mu.ID, "email", logger.MaskEmail(email), "role", role)
	return &mu, nil
}

// UpdateRole writes the role to the profile and mirrors it into the auth
// user metadata.
func (s *UserService) UpdateRole(ctx context.Context, userID string, role types.UserRole) (*types.ManagedUser, error) {
	if !role.IsValid() {
		return nil, apperrors.ValidationFailed("Role must be admin or staff", string(role))
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.ValidationFailed("Invalid user id", userID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	updated, err := s.auth.AdminUpdateUser(gotypes.AdminUpdateUserRequest{
		UserID:       id,
		UserMetadata: map[string]interface{}{"role": string(role)},
	})
	if err != nil {
		if isUserNotFound(err) {
			return nil, apperrors.NotFound("User", userID)
		}
		return nil, apperrors.ExternalService("supabase-auth", err)
	}
	mu := toManagedUser(updated.User)
	mu.Role = role
	if s.profiles != nil {
		if err := s.profiles.UpsertProfile(ctx, &types.Profile{ID: mu.ID, Email: mu.Email, Role: role}); err != nil {
			return nil, apperrors.NewDatabaseError(err)
		}
	}
	return &mu, nil
}

// DeleteUser removes the auth account. An admin cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, actor types.Actor, userID string) error {
	if actor.ID == userID {
		return apperrors.ValidationFailed("You cannot delete your own account", userID)
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return apperrors.ValidationFailed("Invalid user id", userID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.auth.AdminDeleteUser(gotypes.AdminDeleteUserRequest{UserID: id}); err != nil {
		if isUserNotFound(err) {
			return apperrors.NotFound("User", userID)
		}
		return apperrors.ExternalService("supabase-auth", err)
	}
	logger.GetLogger().Infow("Deleted user", "userID", userID, "by", actor.ID)
	return nil
}

func toManagedUser(u gotypes.User) types.ManagedUser {
	role := types.UserRoleStaff
	if r, ok := u.UserMetadata["role"].(string); ok {
		role = types.ParseUserRole(r)
	}
	return types.ManagedUser{
		ID:           u.ID.String(),
		Email:        u.Email,
		Role:         role,
		CreatedAt:    u.CreatedAt,
		InvitedAt:    u.InvitedAt,
		LastSignInAt: u.LastSignInAt,
	}
}

// gotrue-go reports failures as "response status code N: body".
func isAlreadyRegistered(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "status code 422") || strings.Contains(msg, "already been registered")
}

func isUserNotFound(err error) bool {
	return strings.Contains(err.Error(), "status code 404")
}
