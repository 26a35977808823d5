package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/project-atlas/readiness/internal/readiness/domain"
	"github.com/project-atlas/readiness/internal/readiness/metrics"
	"github.com/project-atlas/readiness/internal/readiness/store"
	"github.com/project-atlas/readiness/pkg/cryptox"
	"github.com/project-atlas/readiness/pkg/idx"
	"github.com/project-atlas/readiness/pkg/slogx"
)

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike,
	// so callers cannot probe which emails exist.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrEmailTaken reports a duplicate registration.
	ErrEmailTaken = errors.New("email_already_registered")

	// ErrDeviceNotApproved blocks token issuance for quarantined hardware.
	ErrDeviceNotApproved = errors.New("device_not_approved")
)

// anonymousEmailDomain hosts synthesized addresses for device-provisioned
// users that never supplied an email.
const anonymousEmailDomain = "atlas.local"

// IdentityService resolves or provisions principals on the login flows.
// Each flow is a small state machine whose auto-provisioning transitions are
// explicit, named methods rather than incidental branches.
type IdentityService struct {
	Store  store.Store
	Tokens *TokenService
}

// Login authenticates a dashboard user by email and password.
//
// Bootstrap-admin rule: when the user store is completely empty, the first
// login creates that user as admin instead of failing. Every later unknown
// email fails exactly like a bad password.
func (s *IdentityService) Login(ctx context.Context, email, password string) (domain.TokenGrant, error) {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		count, countErr := s.Store.Users().CountUsers(ctx)
		if countErr != nil {
			return domain.TokenGrant{}, countErr
		}
		if count > 0 {
			metrics.AuthFailures.WithLabelValues("invalid_credentials").Inc()
			return domain.TokenGrant{}, ErrInvalidCredentials
		}
		user, err = s.bootstrapAdmin(ctx, email, password)
		if err != nil {
			return domain.TokenGrant{}, err
		}
	case err != nil:
		return domain.TokenGrant{}, err
	default:
		if !cryptox.VerifyPassword(password, user.PasswordHash) {
			l.Info("login rejected", "email", email)
			metrics.AuthFailures.WithLabelValues("invalid_credentials").Inc()
			return domain.TokenGrant{}, ErrInvalidCredentials
		}
	}

	return s.Tokens.IssueUserToken(user)
}

// bootstrapAdmin is the named transition for the empty-store case: the first
// principal to authenticate is granted administrative role.
func (s *IdentityService) bootstrapAdmin(ctx context.Context, email, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		FullName:     "System Admin",
		Role:         domain.RoleAdmin,
		Active:       true,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		// Lost a race against a concurrent bootstrap for the same email;
		// the caller must authenticate against the winner's password.
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	l.Warn("bootstrapped first admin", "email", email, "user_id", user.ID)
	return user, nil
}

// Register creates a dashboard operator account. Self-registration always
// grants admin: the dashboard sign-up flow is reserved for supervisory
// operators, never field soldiers.
func (s *IdentityService) Register(ctx context.Context, email, password, fullName string) (domain.TokenGrant, error) {
	l := slogx.FromContext(ctx)

	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		return domain.TokenGrant{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.TokenGrant{}, err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.TokenGrant{}, err
	}

	if fullName == "" {
		fullName = "New Admin"
	}
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         domain.RoleAdmin,
		Active:       true,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		// The unique constraint closes the check-then-create window.
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.TokenGrant{}, ErrEmailTaken
		}
		return domain.TokenGrant{}, err
	}

	l.Info("registered dashboard operator", "email", email, "user_id", user.ID)
	return s.Tokens.IssueUserToken(user)
}

// DeviceLogin resolves or provisions both halves of a device identity: the
// owning user and the device row. It is designed to degrade gracefully — the
// only identity-related failure is an explicitly unapproved device.
func (s *IdentityService) DeviceLogin(ctx context.Context, deviceID, email, fullName string) (domain.TokenGrant, error) {
	user, err := s.resolveDeviceUser(ctx, deviceID, email, fullName)
	if err != nil {
		return domain.TokenGrant{}, err
	}

	device, err := s.registerDevice(ctx, deviceID, user.ID)
	if err != nil {
		return domain.TokenGrant{}, err
	}

	if !device.Approved {
		metrics.AuthFailures.WithLabelValues("device_not_approved").Inc()
		return domain.TokenGrant{}, ErrDeviceNotApproved
	}

	return s.Tokens.IssueDeviceToken(device, user)
}

// resolveDeviceUser finds the owning user by email, or provisions an
// anonymous soldier when the email is absent or unknown. An existing user's
// placeholder name is enriched in place when the device reports a real one.
func (s *IdentityService) resolveDeviceUser(ctx context.Context, deviceID, email, fullName string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	if email != "" {
		user, err := s.Store.Users().GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			if fullName != "" && (user.FullName == "" || user.FullName == domain.AnonymousFullName) {
				if err := s.Store.Users().UpdateFullName(ctx, user.ID, fullName); err != nil {
					// Enrichment is best-effort; the stale name is not an error.
					l.Warn("failed to enrich user name", "user_id", user.ID, "err", err)
				} else {
					user.FullName = fullName
				}
			}
			return user, nil
		case !errors.Is(err, store.ErrNotFound):
			return domain.User{}, err
		}
	}

	return s.provisionAnonymousUser(ctx, deviceID, email, fullName)
}

// provisionAnonymousUser is the named transition that guarantees device login
// never fails for identity reasons: an unmatched device gets a passwordless
// soldier account, with an email synthesized from the device id when none was
// supplied.
func (s *IdentityService) provisionAnonymousUser(ctx context.Context, deviceID, email, fullName string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	if email == "" {
		email = synthesizeDeviceEmail(deviceID)
	}
	if fullName == "" {
		fullName = domain.AnonymousFullName
	}

	user := domain.User{
		ID:       idx.New().String(),
		Email:    email,
		FullName: fullName,
		Role:     domain.RoleSoldier,
		Active:   true,
	}
	err := s.Store.Users().CreateUser(ctx, user)
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		// A concurrent login for the same device provisioned the user
		// first; re-fetch rather than fail.
		return s.Store.Users().GetUserByEmail(ctx, email)
	case err != nil:
		return domain.User{}, err
	}

	l.Info("provisioned anonymous device user",
		"email", email, "user_id", user.ID, "device_id", deviceID)
	return user, nil
}

// registerDevice finds or creates the device row. Creation is idempotent by
// device_id: the unique constraint arbitrates concurrent registrations of an
// unseen device, and the loser re-fetches the winner's row.
func (s *IdentityService) registerDevice(ctx context.Context, deviceID, userID string) (domain.Device, error) {
	l := slogx.FromContext(ctx)

	device, err := s.Store.Devices().GetDeviceByDeviceID(ctx, deviceID)
	if err == nil {
		if err := s.Store.Devices().TouchLastSeen(ctx, deviceID); err != nil {
			l.Warn("failed to bump device last_seen", "device_id", deviceID, "err", err)
		}
		return device, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Device{}, err
	}

	device = domain.Device{
		ID:       idx.New().String(),
		DeviceID: deviceID,
		UserID:   userID,
		Label:    "Mobile Device",
		Approved: true,
	}
	err = s.Store.Devices().CreateDevice(ctx, device)
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		return s.Store.Devices().GetDeviceByDeviceID(ctx, deviceID)
	case err != nil:
		return domain.Device{}, err
	}

	l.Info("auto-registered device", "device_id", deviceID, "user_id", userID)
	return device, nil
}

// synthesizeDeviceEmail derives a stable address from the device id, e.g.
// "ABC123" -> "device_abc123@atlas.local". Only the first 8 characters are
// used so the address stays readable for long hardware ids.
func synthesizeDeviceEmail(deviceID string) string {
	local := strings.ToLower(deviceID)
	if len(local) > 8 {
		local = local[:8]
	}
	return fmt.Sprintf("device_%s@%s", local, anonymousEmailDomain)
}
