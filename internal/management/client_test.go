package management_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dawidpereira/quetty-sub002/internal/apperrors"
	"github.com/dawidpereira/quetty-sub002/internal/management"
	"github.com/dawidpereira/quetty-sub002/internal/ratelimit"
	"github.com/dawidpereira/quetty-sub002/internal/testsupport"
)

type ManagementClientSuite struct {
	*testsupport.Suite
}

func TestManagementClientSuite(t *testing.T) {
	testsupport.Run(t, &ManagementClientSuite{Suite: testsupport.NewSuite()})
}

func (s *ManagementClientSuite) newClient(handler http.HandlerFunc) (*management.Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	limiter := ratelimit.New(1000, 1000)
	client := management.NewClient(srv.Client(), limiter).WithBaseURL(srv.URL)
	return client, srv
}

func (s *ManagementClientSuite) TestListSubscriptions() {
	client, srv := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("Bearer test-token", r.Header.Get("Authorization"))
		s.Equal("/subscriptions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":[{"subscriptionId":"sub-1","displayName":"Prod","state":"Enabled"}]}`))
	})
	defer srv.Close()

	subs, err := client.ListSubscriptions(s.Ctx, "test-token")
	s.NoError(err)
	s.Len(subs, 1)
	s.Equal("sub-1", subs[0].ID)
}

func (s *ManagementClientSuite) TestGetQueueCounts() {
	client, srv := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"properties":{"countDetails":{"activeMessageCount":5,"deadLetterMessageCount":2}}}`))
	})
	defer srv.Close()

	active, dlq, err := client.GetQueueCounts(s.Ctx, "tok", "sub", "rg", "ns", "orders")
	s.NoError(err)
	s.Equal(int64(5), active)
	s.Equal(int64(2), dlq)
}

func (s *ManagementClientSuite) TestNotFoundMapsToQueueNotFound() {
	client, srv := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer srv.Close()

	_, _, err := client.GetQueueCounts(s.Ctx, "tok", "sub", "rg", "ns", "missing")
	s.Error(err)
	s.True(apperrors.Is(err, apperrors.KindQueueNotFound))
}

func (s *ManagementClientSuite) TestUnauthorizedMapsToAuthenticationFailed() {
	client, srv := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer srv.Close()

	_, err := client.ListSubscriptions(s.Ctx, "tok")
	s.Error(err)
	s.True(apperrors.Is(err, apperrors.KindAuthenticationFailed))
}

func (s *ManagementClientSuite) TestTooManyRequestsMapsToRateLimited() {
	client, srv := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	defer srv.Close()

	_, err := client.ListSubscriptions(s.Ctx, "tok")
	s.Error(err)
	s.True(apperrors.Is(err, apperrors.KindRateLimited))
}

func (s *ManagementClientSuite) TestServerErrorMapsToServiceUnavailable() {
	client, srv := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	_, err := client.ListSubscriptions(s.Ctx, "tok")
	s.Error(err)
	s.True(apperrors.Is(err, apperrors.KindServiceUnavailable))
}

func (s *ManagementClientSuite) TestMalformedJSONMapsToInternal() {
	client, srv := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	defer srv.Close()

	_, err := client.ListSubscriptions(s.Ctx, "tok")
	s.Error(err)
	s.True(apperrors.Is(err, apperrors.KindInternal))
}
