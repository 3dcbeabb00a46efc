// Package auth resolves wallet identities against the holder registry,
// mints tier-scoped credentials, and enforces permission checks on them.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/blade-dance/gateway/internal/app/domain/identity"
	"github.com/blade-dance/gateway/internal/errors"
	"github.com/blade-dance/gateway/pkg/logger"
)

// DefaultTokenTTL is the credential lifetime when none is configured.
const DefaultTokenTTL = 24 * time.Hour

// Claims are the JWT claims embedded in an issued credential. Permissions
// and limits are a snapshot taken at issuance: catalog changes do not affect
// credentials already in flight.
type Claims struct {
	WalletAddress string          `json:"wallet_address"`
	IsHolder      bool            `json:"is_holder"`
	Tier          string          `json:"tier"`
	TierName      string          `json:"tier_name"`
	Points        int             `json:"points"`
	Permissions   []string        `json:"permissions"`
	Limits        identity.Limits `json:"limits"`
	jwt.RegisteredClaims
}

// Service resolves identities and manages credentials.
type Service struct {
	registry HolderRegistry
	catalog  *identity.Catalog
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	log      *logger.Logger
}

// New constructs the identity service. The catalog must already be
// validated; a nil registry falls back to the development fixtures.
func New(registry HolderRegistry, catalog *identity.Catalog, secret []byte, ttl time.Duration, log *logger.Logger) *Service {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if catalog == nil {
		catalog = identity.DefaultCatalog()
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Service{
		registry: registry,
		catalog:  catalog,
		secret:   secret,
		ttl:      ttl,
		now:      time.Now,
		log:      log,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Resolve maps a wallet address to its identity record. A wallet the
// registry does not know is a standard-tier non-holder; a registry tier the
// catalog does not know is a configuration fault and fails closed.
func (s *Service) Resolve(ctx context.Context, walletAddress string) (identity.Record, error) {
	info, isHolder, err := s.registry.HolderInfo(ctx, walletAddress)
	if err != nil {
		return identity.Record{}, errors.UpstreamUnavailable("holder registry unavailable", err)
	}

	tier := identity.TierStandard
	points := 0
	if isHolder {
		parsed, ok := identity.ParseTier(info.Tier)
		if !ok {
			return identity.Record{}, errors.Configuration(
				fmt.Sprintf("holder registry returned unknown tier %q for %s", info.Tier, walletAddress))
		}
		tier = parsed
		points = info.Points
	}

	def, ok := s.catalog.DefinitionFor(tier)
	if !ok {
		return identity.Record{}, errors.Configuration(fmt.Sprintf("tier %q missing from catalog", tier))
	}

	return identity.Record{
		WalletAddress: walletAddress,
		IsHolder:      isHolder,
		Tier:          tier,
		Points:        points,
		TierDetails:   def,
		ResolvedAt:    s.now().UTC(),
	}, nil
}

// Issue mints a signed credential embedding the record's tier snapshot.
func (s *Service) Issue(record identity.Record) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.Configuration("signing secret is not configured")
	}

	now := s.now()
	claims := &Claims{
		WalletAddress: record.WalletAddress,
		IsHolder:      record.IsHolder,
		Tier:          record.Tier.String(),
		TierName:      record.TierDetails.DisplayName,
		Points:        record.Points,
		Permissions:   append([]string(nil), record.TierDetails.Permissions...),
		Limits:        record.TierDetails.Limits,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   record.WalletAddress,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    "blade-dance-gateway",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Internal("sign credential", err)
	}
	return signed, nil
}

// Verify validates a raw credential and reconstructs the identity it was
// issued for. Expired, malformed, and badly signed tokens all return the
// same InvalidCredential so the caller cannot tell which check failed.
func (s *Service) Verify(rawToken string) (identity.Record, error) {
	if len(s.secret) == 0 {
		return identity.Record{}, errors.Configuration("signing secret is not configured")
	}

	parser := jwt.NewParser(jwt.WithTimeFunc(s.now))
	token, err := parser.ParseWithClaims(rawToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return identity.Record{}, errors.InvalidCredential(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return identity.Record{}, errors.InvalidCredential(nil)
	}

	tier, ok := identity.ParseTier(claims.Tier)
	if !ok {
		return identity.Record{}, errors.InvalidCredential(nil)
	}

	record := identity.Record{
		WalletAddress: claims.WalletAddress,
		IsHolder:      claims.IsHolder,
		Tier:          tier,
		Points:        claims.Points,
		TierDetails: identity.TierDefinition{
			Tier:        tier,
			DisplayName: claims.TierName,
			Permissions: append([]string(nil), claims.Permissions...),
			Limits:      claims.Limits,
		},
	}
	if claims.IssuedAt != nil {
		record.ResolvedAt = claims.IssuedAt.Time
	}
	return record, nil
}

// RequirePermission checks the permission against the record's embedded
// snapshot. Authorization deliberately reflects identity at issuance time;
// callers needing freshness must reissue.
func (s *Service) RequirePermission(record identity.Record, permission string) error {
	if !identity.KnownPermission(permission) {
		return errors.Configuration(fmt.Sprintf("permission %q is not in the capability set", permission))
	}
	if !record.HasPermission(permission) {
		return errors.Forbidden(fmt.Sprintf("permission %q required", permission)).
			WithDetails("tier", record.Tier.String())
	}
	return nil
}

// Login resolves the wallet and issues a credential in one step.
func (s *Service) Login(ctx context.Context, walletAddress string) (identity.Record, string, error) {
	record, err := s.Resolve(ctx, walletAddress)
	if err != nil {
		return identity.Record{}, "", err
	}
	token, err := s.Issue(record)
	if err != nil {
		return identity.Record{}, "", err
	}
	s.log.WithField("wallet", record.WalletAddress).
		WithField("tier", record.Tier.String()).
		Info("credential issued")
	return record, token, nil
}
