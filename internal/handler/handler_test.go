package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/foodshare/internal/identity"
	"github.com/mmeshcher/foodshare/internal/middleware"
	"github.com/mmeshcher/foodshare/internal/model"
	"github.com/mmeshcher/foodshare/internal/repository"
	"github.com/mmeshcher/foodshare/internal/service"
	"github.com/mmeshcher/foodshare/internal/validation"
)

type stubService struct {
	pingErr error

	signupReq  service.SignupRequest
	signupUser *model.User
	signupErr  error

	signInSession *identity.Session
	signInErr     error

	sessionUser *model.User
	sessionErr  error

	listing     *model.Listing
	listingErr  error
	listings    []model.Listing
	listingsErr error
	browseQuery service.ListingQuery
	imageBytes  []byte

	claim      *model.Claim
	claimErr   error
	claims     []model.Claim
	claimActor service.Actor
	claimInput service.ClaimInput

	notifications   []model.Notification
	notificationErr error
	readAll         int64

	stats   *service.PlatformStats
	summary *service.UserSummary
}

func (s *stubService) Ping(ctx context.Context) error { return s.pingErr }

func (s *stubService) Signup(ctx context.Context, req service.SignupRequest) (*model.User, error) {
	s.signupReq = req
	return s.signupUser, s.signupErr
}

func (s *stubService) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	return s.signInSession, s.signInErr
}

func (s *stubService) Session(ctx context.Context, userID string) (*model.User, error) {
	return s.sessionUser, s.sessionErr
}

func (s *stubService) CreateListing(ctx context.Context, actor service.Actor, in validation.ListingInput) (*model.Listing, error) {
	return s.listing, s.listingErr
}

func (s *stubService) BrowseListings(ctx context.Context, q service.ListingQuery) ([]model.Listing, error) {
	s.browseQuery = q
	return s.listings, s.listingsErr
}

func (s *stubService) ListingsByDonor(ctx context.Context, donorID string) ([]model.Listing, error) {
	return s.listings, s.listingsErr
}

func (s *stubService) AttachImage(ctx context.Context, actor service.Actor, listingID string, file io.Reader) (*model.Listing, error) {
	s.imageBytes, _ = io.ReadAll(file)
	return s.listing, s.listingErr
}

func (s *stubService) RemoveImage(ctx context.Context, actor service.Actor, listingID, imageURL string) (*model.Listing, error) {
	return s.listing, s.listingErr
}

func (s *stubService) Claim(ctx context.Context, actor service.Actor, listingID string, in service.ClaimInput) (*model.Claim, error) {
	s.claimActor = actor
	s.claimInput = in
	return s.claim, s.claimErr
}

func (s *stubService) ClaimsByUser(ctx context.Context, userID string) ([]model.Claim, error) {
	return s.claims, s.claimErr
}

func (s *stubService) ListingClaims(ctx context.Context, actor service.Actor, listingID string) ([]model.Claim, error) {
	return s.claims, s.claimErr
}

func (s *stubService) MarkReceived(ctx context.Context, actor service.Actor, claimID string) (*model.Claim, error) {
	return s.claim, s.claimErr
}

func (s *stubService) MarkCollected(ctx context.Context, actor service.Actor, claimID string) (*model.Claim, error) {
	return s.claim, s.claimErr
}

func (s *stubService) MarkCompleted(ctx context.Context, actor service.Actor, listingID string) (*model.Listing, error) {
	return s.listing, s.listingErr
}

func (s *stubService) CancelClaim(ctx context.Context, actor service.Actor, claimID string) (*model.Claim, error) {
	return s.claim, s.claimErr
}

func (s *stubService) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	return s.notifications, s.notificationErr
}

func (s *stubService) MarkNotificationRead(ctx context.Context, userID, id string) (*model.Notification, error) {
	if s.notificationErr != nil {
		return nil, s.notificationErr
	}
	return &s.notifications[0], nil
}

func (s *stubService) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	return s.readAll, s.notificationErr
}

func (s *stubService) DeleteNotification(ctx context.Context, userID, id string) error {
	return s.notificationErr
}

func (s *stubService) PlatformStats(ctx context.Context, actor service.Actor) (*service.PlatformStats, error) {
	return s.stats, nil
}

func (s *stubService) UserSummary(ctx context.Context, actor service.Actor) (*service.UserSummary, error) {
	return s.summary, nil
}

var testTokens = identity.NewTokens("test-secret", time.Hour)

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware(testTokens)

	return NewHandler(svc, logger, auth, nil, nil)
}

// authCookie выпускает cookie сессии для пользователя с указанной ролью.
func authCookie(t *testing.T, h *Handler, id string, role model.Role) *http.Cookie {
	t.Helper()

	session, err := testTokens.Issue(&model.User{ID: id, Email: id + "@example.com", Role: role})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	rec := httptest.NewRecorder()
	h.authMiddleware.SetAuthCookie(rec, session)
	return rec.Result().Cookies()[0]
}

func doRouted(t *testing.T, h *Handler, req *http.Request) *http.Response {
	t.Helper()

	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)
	return rec.Result()
}

func decodeError(t *testing.T, res *http.Response) string {
	t.Helper()

	var body errorResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func TestSignup_Success(t *testing.T) {
	svc := &stubService{
		signupUser: &model.User{ID: "u1", Email: "a@b.co", Role: model.RoleDonor},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(signupRequest{
		Email:     "a@b.co",
		Password:  "secret1",
		UserData:  model.UserData{FullName: "Ann", Role: "donor"},
		IPAddress: "10.9.9.9",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(body))
	req.RemoteAddr = "192.0.2.1:5555"
	rec := httptest.NewRecorder()

	h.Signup(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp signupResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Message != "Account created successfully" || resp.User.ID != "u1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if svc.signupReq.IPAddress != "192.0.2.1" {
		t.Fatalf("ip = %q, want connection address", svc.signupReq.IPAddress)
	}
}

func TestSignup_FallsBackToBodyIP(t *testing.T) {
	svc := &stubService{signupUser: &model.User{ID: "u1"}}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(signupRequest{Email: "a@b.co", Password: "secret1", IPAddress: "10.9.9.9"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(body))
	req.RemoteAddr = ""
	rec := httptest.NewRecorder()

	h.Signup(rec, req)

	if svc.signupReq.IPAddress != "10.9.9.9" {
		t.Fatalf("ip = %q, want body address", svc.signupReq.IPAddress)
	}
}

func TestSignup_IgnoresForwardedHeadersFromUntrustedPeer(t *testing.T) {
	svc := &stubService{signupUser: &model.User{ID: "u1"}}
	h := newTestHandler(t, svc)

	for _, spoofed := range []string{"203.0.113.1", "203.0.113.2"} {
		body, _ := json.Marshal(signupRequest{Email: "a@b.co", Password: "secret1"})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(body))
		req.RemoteAddr = "192.0.2.1:5555"
		req.Header.Set("X-Real-IP", spoofed)
		req.Header.Set("X-Forwarded-For", spoofed)

		res := doRouted(t, h, req)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
		}
		if svc.signupReq.IPAddress != "192.0.2.1" {
			t.Fatalf("ip = %q, want socket address", svc.signupReq.IPAddress)
		}
	}
}

func TestSignup_TrustedProxyForwardsClientIP(t *testing.T) {
	svc := &stubService{signupUser: &model.User{ID: "u1"}}
	logger := zap.NewNop()
	h := NewHandler(svc, logger, middleware.NewAuthMiddleware(testTokens), nil,
		[]netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")})

	body, _ := json.Marshal(signupRequest{Email: "a@b.co", Password: "secret1"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(body))
	req.RemoteAddr = "10.0.0.5:443"
	req.Header.Set("X-Real-IP", "203.0.113.7")

	res := doRouted(t, h, req)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if svc.signupReq.IPAddress != "203.0.113.7" {
		t.Fatalf("ip = %q, want forwarded address", svc.signupReq.IPAddress)
	}
}

func TestSignup_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "ip limit",
			err:     &service.RateLimitError{Reason: service.RateLimitIP},
			status:  http.StatusTooManyRequests,
			message: (&service.RateLimitError{Reason: service.RateLimitIP}).Error(),
		},
		{
			name:    "email limit",
			err:     &service.RateLimitError{Reason: service.RateLimitEmail},
			status:  http.StatusTooManyRequests,
			message: (&service.RateLimitError{Reason: service.RateLimitEmail}).Error(),
		},
		{
			name:   "malformed",
			err:    service.ErrMalformedRequest,
			status: http.StatusBadRequest,
		},
		{
			name:    "upstream",
			err:     fmt.Errorf("%w: %w", service.ErrUpstream, identity.ErrUserExists),
			status:  http.StatusBadRequest,
			message: "signup failed: email already registered",
		},
		{
			name:    "unexpected",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			message: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{signupErr: tt.err})

			body, _ := json.Marshal(signupRequest{Email: "a@b.co", Password: "secret1"})
			req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			h.Signup(rec, req)

			res := rec.Result()
			if res.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", res.StatusCode, tt.status)
			}
			if msg := decodeError(t, res); tt.message != "" && msg != tt.message {
				t.Fatalf("error = %q, want %q", msg, tt.message)
			}
		})
	}
}

func TestSignup_InvalidBody(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()

	h.Signup(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSignup_CORSPreflight(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/signup", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")

	res := doRouted(t, h, req)

	if res.StatusCode >= 300 {
		t.Fatalf("status = %d, want 2xx", res.StatusCode)
	}
	if got := res.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin = %q, want *", got)
	}
}

func TestLogin_SetsCookie(t *testing.T) {
	session, err := testTokens.Issue(&model.User{ID: "u1", Role: model.RoleDonor})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	h := newTestHandler(t, &stubService{signInSession: session})

	body, _ := json.Marshal(credentialsRequest{Email: "a@b.co", Password: "secret1"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if len(res.Cookies()) != 1 || res.Cookies()[0].Value != session.AccessToken {
		t.Fatalf("expected session cookie, got %v", res.Cookies())
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newTestHandler(t, &stubService{signInErr: identity.ErrInvalidCredentials})

	body, _ := json.Marshal(credentialsRequest{Email: "a@b.co", Password: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestSession_RequiresAuth(t *testing.T) {
	h := newTestHandler(t, &stubService{sessionUser: &model.User{ID: "u1"}})

	res := doRouted(t, h, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(authCookie(t, h, "u1", model.RoleDonor))

	res = doRouted(t, h, req)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
}

func TestBrowseListings_Query(t *testing.T) {
	svc := &stubService{listings: []model.Listing{{ID: "l1", Status: model.ListingAvailable}}}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/listings?category=bakery&location=Main&search=bread&limit=5", nil)
	res := doRouted(t, h, req)

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	want := service.ListingQuery{Category: "bakery", Location: "Main", Search: "bread", Limit: 5}
	if svc.browseQuery != want {
		t.Fatalf("query = %+v, want %+v", svc.browseQuery, want)
	}
}

func TestBrowseListings_BadLimit(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := doRouted(t, h, httptest.NewRequest(http.MethodGet, "/api/listings?limit=abc", nil))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestCreateListing_Created(t *testing.T) {
	h := newTestHandler(t, &stubService{listing: &model.Listing{ID: "l1"}})

	body, _ := json.Marshal(validation.ListingInput{Title: "Bread", Quantity: "5", Category: "bakery"})
	req := httptest.NewRequest(http.MethodPost, "/api/listings", bytes.NewReader(body))
	req.AddCookie(authCookie(t, h, "donor", model.RoleDonor))

	res := doRouted(t, h, req)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
}

func TestClaimListing_EmptyBody(t *testing.T) {
	svc := &stubService{claim: &model.Claim{ID: "c1", Status: model.ClaimPending}}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/listings/l1/claim", nil)
	req.AddCookie(authCookie(t, h, "ngo", model.RoleNGO))

	res := doRouted(t, h, req)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
	if svc.claimActor.ID != "ngo" || svc.claimActor.Role != model.RoleNGO {
		t.Fatalf("actor = %+v", svc.claimActor)
	}
	if svc.claimInput.QuantityRequested != nil {
		t.Fatalf("expected no quantity, got %v", *svc.claimInput.QuantityRequested)
	}
}

func TestClaimListing_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", repository.ErrListingNotFound, http.StatusNotFound},
		{"self claim", repository.ErrSelfClaim, http.StatusForbidden},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"already claimed", repository.ErrInvalidState, http.StatusConflict},
		{"bad quantity", fmt.Errorf("%w: quantity", service.ErrMalformedRequest), http.StatusBadRequest},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{claimErr: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/api/listings/l1/claim", bytes.NewBufferString(`{"quantity_requested":2}`))
			req.AddCookie(authCookie(t, h, "ngo", model.RoleNGO))

			res := doRouted(t, h, req)
			if res.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", res.StatusCode, tt.status)
			}
		})
	}
}

func TestListingClaims(t *testing.T) {
	h := newTestHandler(t, &stubService{claims: []model.Claim{{ID: "c1"}, {ID: "c2"}}})

	req := httptest.NewRequest(http.MethodGet, "/api/listings/l1/claims", nil)
	req.AddCookie(authCookie(t, h, "donor", model.RoleDonor))

	res := doRouted(t, h, req)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var got []model.Claim
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("claims = %d, want 2", len(got))
	}

	h = newTestHandler(t, &stubService{claimErr: service.ErrForbidden})
	req = httptest.NewRequest(http.MethodGet, "/api/listings/l1/claims", nil)
	req.AddCookie(authCookie(t, h, "other", model.RoleDonor))
	if res := doRouted(t, h, req); res.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}
}

func TestClaimTransitions(t *testing.T) {
	paths := []string{
		"/api/claims/c1/receive",
		"/api/claims/c1/collect",
		"/api/claims/c1/cancel",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			h := newTestHandler(t, &stubService{claim: &model.Claim{ID: "c1"}})

			req := httptest.NewRequest(http.MethodPost, path, nil)
			req.AddCookie(authCookie(t, h, "ngo", model.RoleNGO))

			res := doRouted(t, h, req)
			if res.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
			}
		})
	}
}

func TestUploadImage(t *testing.T) {
	svc := &stubService{listing: &model.Listing{ID: "l1"}}
	h := newTestHandler(t, svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "bread.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("jpeg-bytes"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/listings/l1/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(authCookie(t, h, "donor", model.RoleDonor))

	res := doRouted(t, h, req)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
	if string(svc.imageBytes) != "jpeg-bytes" {
		t.Fatalf("image = %q", svc.imageBytes)
	}
}

func TestUploadImage_Disabled(t *testing.T) {
	h := newTestHandler(t, &stubService{listingErr: service.ErrImagesDisabled})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("image", "bread.jpg")
	_, _ = part.Write([]byte("x"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/listings/l1/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(authCookie(t, h, "donor", model.RoleDonor))

	res := doRouted(t, h, req)
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestDeleteImage_RequiresURL(t *testing.T) {
	h := newTestHandler(t, &stubService{listing: &model.Listing{ID: "l1"}})

	req := httptest.NewRequest(http.MethodDelete, "/api/listings/l1/images", nil)
	req.AddCookie(authCookie(t, h, "donor", model.RoleDonor))

	res := doRouted(t, h, req)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestNotifications(t *testing.T) {
	svc := &stubService{
		notifications: []model.Notification{{ID: "n1", UserID: "u1", Read: true}},
		readAll:       3,
	}
	h := newTestHandler(t, svc)
	cookie := authCookie(t, h, "u1", model.RoleRecipient)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.AddCookie(cookie)
	if res := doRouted(t, h, req); res.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", res.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/notifications/n1/read", nil)
	req.AddCookie(cookie)
	if res := doRouted(t, h, req); res.StatusCode != http.StatusOK {
		t.Fatalf("read status = %d", res.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/notifications/read-all", nil)
	req.AddCookie(cookie)
	res := doRouted(t, h, req)
	var body map[string]int64
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["updated"] != 3 {
		t.Fatalf("updated = %d, want 3", body["updated"])
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/notifications/n1", nil)
	req.AddCookie(cookie)
	if res := doRouted(t, h, req); res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", res.StatusCode)
	}
}

func TestDeleteNotification_NotFound(t *testing.T) {
	h := newTestHandler(t, &stubService{notificationErr: repository.ErrNotificationNotFound})

	req := httptest.NewRequest(http.MethodDelete, "/api/notifications/n1", nil)
	req.AddCookie(authCookie(t, h, "u1", model.RoleRecipient))

	if res := doRouted(t, h, req); res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestAdminStats_RequiresAdmin(t *testing.T) {
	h := newTestHandler(t, &stubService{stats: &service.PlatformStats{}})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.AddCookie(authCookie(t, h, "d1", model.RoleDonor))
	if res := doRouted(t, h, req); res.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.AddCookie(authCookie(t, h, "a1", model.RoleAdmin))
	if res := doRouted(t, h, req); res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
}

func TestDashboard(t *testing.T) {
	h := newTestHandler(t, &stubService{summary: &service.UserSummary{}})

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.AddCookie(authCookie(t, h, "d1", model.RoleDonor))

	res := doRouted(t, h, req)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	if res := doRouted(t, h, httptest.NewRequest(http.MethodGet, "/health", nil)); res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	h = newTestHandler(t, &stubService{pingErr: errors.New("db down")})
	if res := doRouted(t, h, httptest.NewRequest(http.MethodGet, "/health", nil)); res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := doRouted(t, h, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}
