package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/arenalab/arena-server/internal/dependencies/mocks"
	"github.com/arenalab/arena-server/internal/model"
	"github.com/arenalab/arena-server/internal/services/account"
	"github.com/arenalab/arena-server/internal/storage/memory"
	"github.com/arenalab/arena-server/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	logger := testutil.NopLogger()
	accounts := account.New(s.storage, s.clock, nil, logger)
	s.service = New(s.storage, accounts, s.clock, s.random, DefaultConfig(), logger)
	s.ctx = context.Background()
}

func (s *ServiceSuite) TestFirstAuthenticationCreatesAccount() {
	session, err := s.service.Authenticate(s.ctx, account.ProviderEmail, "ash@example.com", "pikachu")
	s.Require().NoError(err)

	s.Equal(model.Identity("ash@example.com"), session.Identity)
	s.Equal("rattata", session.Account.Profile.Avatar)
	s.NotEmpty(session.Token)

	cred, err := s.storage.GetCredential(s.ctx, "ash@example.com")
	s.Require().NoError(err)
	s.NotEqual("pikachu", cred.PasswordHash)
}

func (s *ServiceSuite) TestAuthenticateWithCorrectSecret() {
	_, err := s.service.Authenticate(s.ctx, account.ProviderEmail, "ash@example.com", "pikachu")
	s.Require().NoError(err)

	session, err := s.service.Authenticate(s.ctx, account.ProviderEmail, "ash@example.com", "pikachu")
	s.Require().NoError(err)
	s.Equal(model.Identity("ash@example.com"), session.Identity)
}

func (s *ServiceSuite) TestAuthenticateWithWrongSecret() {
	_, err := s.service.Authenticate(s.ctx, account.ProviderEmail, "ash@example.com", "pikachu")
	s.Require().NoError(err)

	_, err = s.service.Authenticate(s.ctx, account.ProviderEmail, "ash@example.com", "raichu")
	s.Require().ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestAuthenticateInvalidIdentityLeavesNothingBehind() {
	_, err := s.service.Authenticate(s.ctx, account.ProviderEmail, "not-an-email", "secret")
	s.Require().ErrorIs(err, model.ErrValidation)

	exists, err := s.storage.AccountExists(s.ctx, "not-an-email")
	s.Require().NoError(err)
	s.False(exists)

	_, err = s.storage.GetCredential(s.ctx, "not-an-email")
	s.Require().ErrorIs(err, model.ErrAccountNotFound)
}

func (s *ServiceSuite) TestGuestSession() {
	s.random.QueueToken("guest_abc", "sess_xyz")

	session, err := s.service.Guest(s.ctx)
	s.Require().NoError(err)
	s.Equal(model.Identity("guest_abc"), session.Identity)
	s.Equal("sess_xyz", session.Token)
	s.Equal("rattata", session.Account.Profile.Avatar)
}

func (s *ServiceSuite) TestValidateSession() {
	session, err := s.service.Guest(s.ctx)
	s.Require().NoError(err)

	got, err := s.service.ValidateSession(session.Token)
	s.Require().NoError(err)
	s.Equal(session.Identity, got.Identity)
}

func (s *ServiceSuite) TestValidateUnknownToken() {
	_, err := s.service.ValidateSession("sess_bogus")
	s.Require().ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestSessionExpires() {
	session, err := s.service.Guest(s.ctx)
	s.Require().NoError(err)

	s.clock.Advance(25 * time.Hour)

	_, err = s.service.ValidateSession(session.Token)
	s.Require().ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestInvalidateSession() {
	session, err := s.service.Guest(s.ctx)
	s.Require().NoError(err)

	s.service.InvalidateSession(session.Token)

	_, err = s.service.ValidateSession(session.Token)
	s.Require().ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestCleanExpiredSessions() {
	old, err := s.service.Guest(s.ctx)
	s.Require().NoError(err)

	s.clock.Advance(25 * time.Hour)
	fresh, err := s.service.Guest(s.ctx)
	s.Require().NoError(err)

	s.service.CleanExpiredSessions()

	_, err = s.service.ValidateSession(old.Token)
	s.Require().ErrorIs(err, ErrInvalidSession)
	_, err = s.service.ValidateSession(fresh.Token)
	s.Require().NoError(err)
}
