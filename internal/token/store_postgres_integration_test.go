//go:build integration

package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idauth/internal/token"
	"idauth/pkg/domain"
	"idauth/pkg/platform/sentinel"
	"idauth/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	store     *token.PostgresStore
	overrides *token.PostgresOverrides
	now       time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = token.NewPostgresStore(s.postgres.DB)
	s.overrides = token.NewPostgresOverrides(s.postgres.DB)
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "refresh_tokens", "refresh_token_expiration_overrides")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newToken(value string) *token.RefreshToken {
	return &token.RefreshToken{
		Value:          value,
		MobileUID:      "device-1",
		SessionType:    domain.SessionTypeUser,
		UserIdentifier: "user-1",
		AuthEntryPoint: token.EntryPoint{Schema: domain.SchemaAuthorization, Method: domain.MethodNfc, At: s.now},
		AuthEntryPointHistory: []token.EntryPoint{
			{Schema: domain.SchemaAuthorization, Method: domain.MethodNfc, At: s.now},
		},
		ExpiresAt:        s.now.Add(time.Hour),
		PlatformType:     domain.PlatformIOS,
		AppVersion:       "4.2.0",
		LastActivityDate: s.now,
		CreatedAt:        s.now,
	}
}

func (s *PostgresStoreSuite) TestRoundTripWritesBothExpirationColumns() {
	ctx := context.Background()
	t := s.newToken("value-1")
	s.Require().NoError(s.store.Insert(ctx, t))

	got, err := s.store.Find(ctx, "value-1")
	s.Require().NoError(err)
	s.True(t.ExpiresAt.Equal(got.ExpiresAt))
	s.Equal(t.AuthEntryPoint.Method, got.AuthEntryPoint.Method)
	s.Len(got.AuthEntryPointHistory, 1)

	var millis int64
	err = s.postgres.DB.QueryRowContext(ctx,
		`SELECT expiration_time FROM refresh_tokens WHERE value = $1`, "value-1").Scan(&millis)
	s.Require().NoError(err)
	s.Equal(t.ExpiresAt.UnixMilli(), millis)

	s.ErrorIs(s.store.Insert(ctx, t), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestReplaceForDevice() {
	ctx := context.Background()
	s.Require().NoError(s.store.ReplaceForDevice(ctx, s.newToken("value-1")))
	second := s.newToken("value-2")
	second.CreatedAt = s.now.Add(time.Minute)
	s.Require().NoError(s.store.ReplaceForDevice(ctx, second))

	first, err := s.store.Find(ctx, "value-1")
	s.Require().NoError(err)
	s.True(first.IsDeleted)

	latest, err := s.store.FindLatestForDevice(ctx, "device-1", domain.SessionTypeUser)
	s.Require().NoError(err)
	s.Equal("value-2", latest.Value)
	s.False(latest.IsDeleted)
}

func (s *PostgresStoreSuite) TestCompromiseExpireAndPurge() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, s.newToken("value-1")))

	n, err := s.store.MarkCompromised(ctx, "device-1")
	s.Require().NoError(err)
	s.Equal(1, n)

	n, err = s.store.ExpireBefore(ctx, s.now.Add(2*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)

	n, err = s.store.Purge(ctx, s.now.Add(2*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)
	_, err = s.store.Find(ctx, "value-1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestOverrides() {
	ctx := context.Background()
	_, err := s.postgres.DB.ExecContext(ctx, `
		INSERT INTO refresh_token_expiration_overrides (platform_type, min_app_version, session_type, lifetime_seconds)
		VALUES ('ios', '4.0.0', 'user', 3600), ('ios', '5.0', 'user', 7200), ('android', '4.0.0', 'user', 60)
	`)
	s.Require().NoError(err)

	list, err := s.overrides.ListOverrides(ctx, domain.PlatformIOS, domain.SessionTypeUser)
	s.Require().NoError(err)
	s.Len(list, 2)

	r := token.NewExpirationResolver(s.overrides, map[domain.SessionType]time.Duration{domain.SessionTypeUser: 24 * time.Hour}, 8, time.Minute)
	s.Equal(2*time.Hour, r.Resolve(ctx, domain.SessionTypeUser, domain.Headers{MobileUID: "d", PlatformType: domain.PlatformIOS, AppVersion: "5.1"}))
}

func (s *PostgresStoreSuite) TestConditionalWritesRespectDeletionAndCompromise() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, s.newToken("value-1")))

	touched, err := s.store.TouchActivity(ctx, "value-1", "device-1", token.Activity{
		At:         s.now.Add(time.Minute),
		AppVersion: "4.3.0",
	})
	s.Require().NoError(err)
	s.True(touched)
	got, err := s.store.Find(ctx, "value-1")
	s.Require().NoError(err)
	s.Equal("4.3.0", got.AppVersion)
	s.Equal(domain.PlatformIOS, got.PlatformType)

	_, err = s.store.MarkCompromised(ctx, "device-1")
	s.Require().NoError(err)

	touched, err = s.store.TouchActivity(ctx, "value-1", "device-1", token.Activity{At: s.now.Add(2 * time.Minute)})
	s.Require().NoError(err)
	s.False(touched)

	next := s.newToken("value-2")
	rotated, err := s.store.Rotate(ctx, "value-1", next)
	s.Require().NoError(err)
	s.False(rotated)
	_, err = s.store.Find(ctx, "value-2")
	s.ErrorIs(err, sentinel.ErrNotFound)

	got, err = s.store.Find(ctx, "value-1")
	s.Require().NoError(err)
	s.True(got.IsCompromised)
	s.False(got.IsDeleted)
}

func (s *PostgresStoreSuite) TestRotateRetiresAndSaves() {
	ctx := context.Background()
	s.Require().NoError(s.store.ReplaceForDevice(ctx, s.newToken("value-1")))

	next := s.newToken("value-2")
	next.CreatedAt = s.now.Add(time.Minute)
	rotated, err := s.store.Rotate(ctx, "value-1", next)
	s.Require().NoError(err)
	s.True(rotated)

	old, err := s.store.Find(ctx, "value-1")
	s.Require().NoError(err)
	s.True(old.IsDeleted)
	s.True(old.Expired)

	rotated, err = s.store.Rotate(ctx, "value-1", s.newToken("value-3"))
	s.Require().NoError(err)
	s.False(rotated)

	deleted, err := s.store.SoftDelete(ctx, "value-2", "device-1")
	s.Require().NoError(err)
	s.True(deleted)
	deleted, err = s.store.SoftDelete(ctx, "value-2", "device-1")
	s.Require().NoError(err)
	s.False(deleted)
}
