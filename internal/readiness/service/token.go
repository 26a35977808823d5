package service

import (
	"time"

	"github.com/project-atlas/readiness/internal/readiness/domain"
	"github.com/project-atlas/readiness/internal/readiness/metrics"
	"github.com/project-atlas/readiness/pkg/jwtx"
)

const (
	// DefaultUserTokenTTL keeps dashboard sessions short-lived.
	DefaultUserTokenTTL = 30 * time.Minute

	// DeviceTokenTTL is deliberately long: field devices run unattended and
	// cannot interactively refresh credentials. The trade-off is mitigated
	// by the device approval flag and the ingestion denylist.
	DeviceTokenTTL = 90 * 24 * time.Hour
)

// TokenService builds claim sets for the two token classes and signs them
// through the shared-secret codec.
type TokenService struct {
	Codec   *jwtx.Codec
	UserTTL time.Duration // defaults to DefaultUserTokenTTL when zero
}

func (s *TokenService) userTTL() time.Duration {
	if s.UserTTL > 0 {
		return s.UserTTL
	}
	return DefaultUserTokenTTL
}

// IssueUserToken issues a short-lived token for a dashboard user.
// Claims: sub = email, role = the user's stored role, user_id.
func (s *TokenService) IssueUserToken(user domain.User) (domain.TokenGrant, error) {
	raw, err := s.Codec.Sign(jwtx.Claims{
		Subject: user.Email,
		Role:    user.Role.String(),
		UserID:  user.ID,
	}, s.userTTL())
	if err != nil {
		return domain.TokenGrant{}, err
	}

	metrics.TokensIssued.WithLabelValues("user").Inc()
	return domain.TokenGrant{AccessToken: raw, TokenType: "bearer"}, nil
}

// IssueDeviceToken issues a 90-day token for field hardware.
// Claims: sub = "device:"+deviceID, role forced to device, user_id = owner.
func (s *TokenService) IssueDeviceToken(device domain.Device, user domain.User) (domain.TokenGrant, error) {
	raw, err := s.Codec.Sign(jwtx.Claims{
		Subject: domain.DeviceSubjectPrefix + device.DeviceID,
		Role:    domain.RoleDevice.String(),
		UserID:  user.ID,
	}, DeviceTokenTTL)
	if err != nil {
		return domain.TokenGrant{}, err
	}

	metrics.TokensIssued.WithLabelValues("device").Inc()
	return domain.TokenGrant{AccessToken: raw, TokenType: "bearer"}, nil
}
