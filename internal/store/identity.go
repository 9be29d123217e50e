package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dekdek-app/dekdek/internal/models"
)

// Keys persisted at login and cleared at logout
const (
	KeyToken       = "userToken"
	KeyUserID      = "userId"
	KeyUserName    = "userName"
	KeyEmail       = "email"
	KeyPhoneNumber = "phoneNumber"
	KeyRole        = "userRole"
	KeyProfilePic  = "profilePic"

	// KeyInstallationID survives logout; it identifies this device for push registration
	KeyInstallationID = "installationId"
)

// IdentityKeys lists every key removed at logout
var IdentityKeys = []string{
	KeyToken, KeyUserID, KeyUserName, KeyEmail, KeyPhoneNumber, KeyRole, KeyProfilePic,
}

var (
	ErrNotLoggedIn = errors.New("not logged in")
	ErrNoUserID    = errors.New("no user id stored")
)

// Identity is the signed-in user as persisted on this device
type Identity struct {
	Token       string
	UserID      int
	UserName    string
	Email       string
	PhoneNumber string
	Role        models.Role
	ProfilePic  string
}

// IdentityFromAuth builds an identity from a login or register response
func IdentityFromAuth(res *models.AuthResult) Identity {
	return Identity{
		Token:       res.Token,
		UserID:      res.User.ID,
		UserName:    res.User.Name,
		Email:       res.User.Email,
		PhoneNumber: res.User.PhoneNumber,
		Role:        res.User.Role,
		ProfilePic:  res.User.ProfilePic,
	}
}

// SaveIdentity writes every identity key in one MultiSet
func SaveIdentity(ctx context.Context, s Store, id Identity) error {
	return s.MultiSet(ctx, map[string]string{
		KeyToken:       id.Token,
		KeyUserID:      strconv.Itoa(id.UserID),
		KeyUserName:    id.UserName,
		KeyEmail:       id.Email,
		KeyPhoneNumber: id.PhoneNumber,
		KeyRole:        string(id.Role),
		KeyProfilePic:  id.ProfilePic,
	})
}

// LoadIdentity reads the identity keys. It returns ErrNotLoggedIn when no token is stored.
func LoadIdentity(ctx context.Context, s Store) (*Identity, error) {
	token, ok, err := s.Get(ctx, KeyToken)
	if err != nil {
		return nil, err
	}
	if !ok || token == "" {
		return nil, ErrNotLoggedIn
	}

	id := &Identity{Token: token}

	userID, err := UserID(ctx, s)
	if err != nil {
		return nil, err
	}
	id.UserID = userID

	for key, dst := range map[string]*string{
		KeyUserName:    &id.UserName,
		KeyEmail:       &id.Email,
		KeyPhoneNumber: &id.PhoneNumber,
		KeyProfilePic:  &id.ProfilePic,
	} {
		if *dst, _, err = s.Get(ctx, key); err != nil {
			return nil, err
		}
	}

	role, _, err := s.Get(ctx, KeyRole)
	if err != nil {
		return nil, err
	}
	id.Role = models.Role(role)

	return id, nil
}

// UserID reads and parses the stored user id
func UserID(ctx context.Context, s Store) (int, error) {
	raw, ok, err := s.Get(ctx, KeyUserID)
	if err != nil {
		return 0, err
	}
	if !ok || raw == "" {
		return 0, ErrNoUserID
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: stored value %q is not a number", ErrNoUserID, raw)
	}
	return n, nil
}

// ClearIdentity removes every identity key
func ClearIdentity(ctx context.Context, s Store) error {
	return s.Remove(ctx, IdentityKeys...)
}
