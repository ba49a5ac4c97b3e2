package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"imeigate/internal/imeicheck"
	"imeigate/internal/membership/service"
	"imeigate/internal/membership/store"
	"imeigate/pkg/testutil"
)

const testAPIToken = "test-api-token"

// fakeVerifier returns a scripted result and records how it was called.
type fakeVerifier struct {
	record    imeicheck.DeviceRecord
	err       error
	calls     int
	lastIMEI  string
	serviceID int
}

func (f *fakeVerifier) Check(_ context.Context, imei string, serviceID int) (imeicheck.DeviceRecord, error) {
	f.calls++
	f.lastIMEI = imei
	f.serviceID = serviceID
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

type HandlerSuite struct {
	suite.Suite
	admission *service.Service
	verifier  *fakeVerifier
	router    http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	admission, err := service.New(store.NewInMemoryUserStore(), store.NewInMemoryAdminStore())
	s.Require().NoError(err)
	s.admission = admission
	s.verifier = &fakeVerifier{record: imeicheck.DeviceRecord{"deviceName": "Acme Phone"}}

	handler := New(admission, s.verifier, testAPIToken, slog.New(slog.DiscardHandler))
	r := chi.NewRouter()
	handler.Register(r)
	s.router = r
}

func (s *HandlerSuite) whitelist(telegramID int64, username string) {
	_, err := s.admission.AddToWhitelist(context.Background(), telegramID, username)
	s.Require().NoError(err)
}

func (s *HandlerSuite) TestAddToWhitelist() {
	s.Run("adds and echoes the user", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/whitelist/add",
			map[string]any{"telegram_id": 42, "username": "alice"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[whitelistAddResponse](s.T(), rr)
		s.Contains(resp.Message, "42")
		s.Equal(int64(42), resp.User.TelegramID)
		s.Equal("alice", resp.User.Username)
	})

	s.Run("rejects malformed body", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/whitelist/add")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorCode(s.T(), rr, "bad_request")
	})

	s.Run("rejects non-positive telegram id", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/whitelist/add",
			map[string]any{"telegram_id": 0})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorCode(s.T(), rr, "validation_error")
	})
}

func (s *HandlerSuite) TestRemoveFromWhitelist() {
	s.Run("unknown user yields 404", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/whitelist/remove",
			map[string]any{"telegram_id": 99})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
		testutil.AssertErrorCode(s.T(), rr, "not_found")
	})

	s.Run("removes a whitelisted user", func() {
		s.whitelist(7, "bob")

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/whitelist/remove",
			map[string]any{"telegram_id": 7})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[messageResponse](s.T(), rr)
		s.Contains(resp.Message, "removed from whitelist")
	})
}

func (s *HandlerSuite) TestCheckWhitelist() {
	s.whitelist(42, "alice")

	s.Run("whitelisted", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/whitelist/check/42")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[whitelistCheckResponse](s.T(), rr)
		s.True(resp.InWhitelist)
		s.Equal(int64(42), resp.TelegramID)
	})

	s.Run("not whitelisted", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/whitelist/check/99")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[whitelistCheckResponse](s.T(), rr)
		s.False(resp.InWhitelist)
	})

	s.Run("non-numeric id yields 400", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/whitelist/check/abc")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *HandlerSuite) TestListWhitelist() {
	s.whitelist(1, "first")
	s.whitelist(2, "second")

	req := testutil.NewRequest(s.T(), http.MethodGet, "/whitelist/list")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[whitelistListResponse](s.T(), rr)
	s.Len(resp.Whitelist, 2)
	s.Equal(int64(1), resp.Whitelist[0].TelegramID)
}

func (s *HandlerSuite) TestMakeAdmin() {
	s.Run("unknown user yields 404", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/make_admin",
			map[string]any{"telegram_id": 42})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})

	s.Run("promotes a known user", func() {
		s.whitelist(42, "alice")

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/make_admin",
			map[string]any{"telegram_id": 42})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[makeAdminResponse](s.T(), rr)
		s.Equal(int64(42), resp.Admin.TelegramID)
		s.Equal("alice", resp.Admin.Username)
	})

	s.Run("listed afterwards", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/admin/list")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[adminListResponse](s.T(), rr)
		s.Len(resp.Admins, 1)
	})
}

func (s *HandlerSuite) TestCheckIMEIAuth() {
	body := map[string]any{"imei": "490154203237518"}

	s.Run("missing token yields 403", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/check-imei", body)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
		s.Zero(s.verifier.calls)
	})

	s.Run("wrong token yields 403", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/check-imei", body)
		req.Header.Set("Authorization", "Bearer wrong")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	})

	s.Run("raw token form is accepted", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/check-imei", body)
		req.Header.Set("Authorization", testAPIToken)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	})

	s.Run("bearer token form is accepted", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/check-imei", body)
		req.Header.Set("Authorization", "Bearer "+testAPIToken)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	})
}

func (s *HandlerSuite) TestCheckIMEI() {
	post := func(body map[string]any) *http.Request {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/check-imei", body)
		req.Header.Set("Authorization", "Bearer "+testAPIToken)
		return req
	}

	s.Run("returns the device record", func() {
		rr := testutil.DoRequest(s.router, post(map[string]any{"imei": "490154203237518"}))

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[imeiCheckResponse](s.T(), rr)
		s.Equal("Acme Phone", resp.Details["deviceName"])
		s.Equal("490154203237518", s.verifier.lastIMEI)
		s.Equal(15, s.verifier.serviceID, "default service id")
	})

	s.Run("normalizes punctuated input", func() {
		rr := testutil.DoRequest(s.router, post(map[string]any{"imei": "49-015420 323751-8"}))

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Equal("490154203237518", s.verifier.lastIMEI)
	})

	s.Run("honors an explicit service id", func() {
		rr := testutil.DoRequest(s.router, post(map[string]any{"imei": "490154203237518", "serviceid": 22}))

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Equal(22, s.verifier.serviceID)
	})

	s.Run("luhn failure yields 400 without calling the verifier", func() {
		before := s.verifier.calls
		rr := testutil.DoRequest(s.router, post(map[string]any{"imei": "490154203237519"}))

		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorCode(s.T(), rr, "validation_error")
		s.Equal(before, s.verifier.calls)
	})

	s.Run("upstream rejection yields 502", func() {
		s.verifier.err = &imeicheck.ServiceRejectedError{Status: "failed"}
		defer func() { s.verifier.err = nil }()

		rr := testutil.DoRequest(s.router, post(map[string]any{"imei": "490154203237518"}))

		testutil.AssertStatus(s.T(), rr, http.StatusBadGateway)
		testutil.AssertErrorCode(s.T(), rr, "verification_failed")
	})

	s.Run("network failure yields 502", func() {
		s.verifier.err = &imeicheck.NetworkError{Err: context.DeadlineExceeded}
		defer func() { s.verifier.err = nil }()

		rr := testutil.DoRequest(s.router, post(map[string]any{"imei": "490154203237518"}))

		testutil.AssertStatus(s.T(), rr, http.StatusBadGateway)
	})
}

func (s *HandlerSuite) TestCheckIMEIRetryPolicy() {
	verifier := &fakeVerifier{err: &imeicheck.NetworkError{Err: context.DeadlineExceeded}}
	handler := New(s.admission, verifier, testAPIToken, slog.New(slog.DiscardHandler),
		WithRetryPolicy(imeicheck.RetryPolicy{Attempts: 3}),
	)
	r := chi.NewRouter()
	handler.Register(r)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/check-imei",
		map[string]any{"imei": "490154203237518"})
	req.Header.Set("Authorization", "Bearer "+testAPIToken)
	rr := testutil.DoRequest(r, req)

	testutil.AssertStatus(s.T(), rr, http.StatusBadGateway)
	s.Equal(3, verifier.calls)
}

func (s *HandlerSuite) TestHealthz() {
	handler := New(s.admission, s.verifier, testAPIToken, slog.New(slog.DiscardHandler))
	router := NewRouter(handler)

	rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.Contains(rr.Body.String(), "ok")
}
