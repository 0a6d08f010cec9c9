package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/config"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/invitation"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/email"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/sealer"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/repository/memory"
	auditservice "github.com/cmlabs-hris/taskflow-backend-go/internal/service/audit"
	invitationservice "github.com/cmlabs-hris/taskflow-backend-go/internal/service/invitation"
	membershipservice "github.com/cmlabs-hris/taskflow-backend-go/internal/service/membership"
	organisationservice "github.com/cmlabs-hris/taskflow-backend-go/internal/service/organisation"
	verificationservice "github.com/cmlabs-hris/taskflow-backend-go/internal/service/verification"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

type outbox struct {
	mu          sync.Mutex
	invitations []email.InvitationEmail
	welcomes    []email.WelcomeEmail
	otps        []email.OTPEmail
}

func (o *outbox) SendInvitation(ctx context.Context, msg email.InvitationEmail) email.Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.invitations = append(o.invitations, msg)
	return email.Result{Success: true}
}

func (o *outbox) SendWelcome(ctx context.Context, msg email.WelcomeEmail) email.Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.welcomes = append(o.welcomes, msg)
	return email.Result{Success: true}
}

func (o *outbox) SendOTP(ctx context.Context, msg email.OTPEmail) email.Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.otps = append(o.otps, msg)
	return email.Result{Success: true}
}

func (o *outbox) lastInviteLink(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.invitations)
	return o.invitations[len(o.invitations)-1].InviteLink
}

type testServer struct {
	router *chi.Mux
	users  user.UserRepository
	jwt    jwt.Service
	outbox *outbox
}

func newTestServer(t *testing.T, limit config.RateLimitConfig) *testServer {
	t.Helper()
	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	members := memory.NewMembershipRepository(store)
	invitations := memory.NewInvitationRepository(store)
	organisations := memory.NewOrganisationRepository(store)
	auditSvc := auditservice.NewAuditService(memory.NewAuditRepository(store))

	membershipSvc := membershipservice.NewMembershipService(memory.Transactor{}, users, members, auditSvc)
	invitationSvc := invitationservice.NewInvitationService(memory.Transactor{}, invitations, organisations, users, members, membershipSvc, auditSvc, 24*time.Hour)
	organisationSvc := organisationservice.NewOrganisationService(memory.Transactor{}, organisations, users, members, membershipSvc, memory.NewProjectRepository(store), invitations, auditSvc)

	s, err := sealer.New("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	box := &outbox{}
	verificationSvc := verificationservice.NewVerificationService(users, box, s, "Taskflow", 10*time.Minute, 5)

	jwtSvc, err := jwt.NewJWTService(handlerTestSecret, "1h")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(logger, RouterConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		RateLimit:      limit,
	}, jwtSvc, middleware.NewMembershipMiddleware(membershipSvc), Handlers{
		Invitation:   NewInvitationHandler(invitationSvc, box, "http://localhost:3000", "http://localhost:3000/dashboard"),
		Organisation: NewOrganisationHandler(organisationSvc, membershipSvc),
		Member:       NewMemberHandler(membershipSvc),
		Verification: NewVerificationHandler(verificationSvc),
		Audit:        NewAuditHandler(auditSvc),
	})

	return &testServer{router: router, users: users, jwt: jwtSvc, outbox: box}
}

func defaultLimit() config.RateLimitConfig {
	return config.RateLimitConfig{
		RequestsPerMinute:       600,
		Burst:                   100,
		VerifyRequestsPerMinute: 600,
		VerifyBurst:             100,
	}
}

// login creates a user and returns an access token for it.
func (s *testServer) login(t *testing.T, addr string) (user.User, string) {
	t.Helper()
	u, err := s.users.Create(context.Background(), user.User{Email: addr, Name: addr})
	require.NoError(t, err)
	tok, _, err := s.jwt.GenerateAccessToken(u.ID, u.Email)
	require.NoError(t, err)
	return u, tok
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    *response.Meta  `json:"meta"`
	Error   *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, accessToken string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env), "status %d", w.Code)
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func (s *testServer) createOrganisation(t *testing.T, accessToken, slug string) string {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/v1/organisations", accessToken, map[string]any{"name": "Acme", "slug": slug})
	require.Equal(t, http.StatusCreated, code)
	return decode[map[string]any](t, env)["id"].(string)
}

func TestInvitationFlow(t *testing.T) {
	s := newTestServer(t, defaultLimit())
	_, ownerToken := s.login(t, "owner@acme.io")
	alice, aliceToken := s.login(t, "alice@x.com")
	orgID := s.createOrganisation(t, ownerToken, "acme")
	base := "/api/v1/organisations/" + orgID

	code, env := s.do(t, http.MethodPost, base+"/invitations", ownerToken, map[string]any{
		"email": "alice@x.com", "name": "Alice", "department": "Engineering",
	})
	require.Equal(t, http.StatusCreated, code)
	created := decode[invitation.InvitationResponse](t, env)
	assert.Equal(t, "employee", created.Role)
	assert.False(t, created.IsNewUser)

	link := s.outbox.lastInviteLink(t)
	parsed, err := invitation.ParseInviteLink(link)
	require.NoError(t, err)
	assert.Equal(t, created.Token, parsed.Token)
	assert.Equal(t, orgID, parsed.OrganisationID)
	assert.Equal(t, "Engineering", *s.outbox.invitations[0].Department)

	code, env = s.do(t, http.MethodGet, "/api/v1/invitations/validate?link="+url.QueryEscape(link), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[invitation.ValidationResponse](t, env).Valid)

	code, env = s.do(t, http.MethodGet, "/api/v1/invitations/my", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]invitation.MyInvitationResponse](t, env), 1)

	code, _ = s.do(t, http.MethodPost, base+"/invitations", ownerToken, map[string]any{"email": "ALICE@x.com", "name": "Alice"})
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do(t, http.MethodPost, "/api/v1/invitations/"+created.Token+"/accept", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	accepted := decode[invitation.AcceptResponse](t, env)
	assert.True(t, accepted.MembershipAdded)
	assert.Equal(t, orgID, accepted.OrganisationID)
	require.Len(t, s.outbox.welcomes, 1)
	assert.Equal(t, "alice@x.com", s.outbox.welcomes[0].Email)

	code, _ = s.do(t, http.MethodPost, "/api/v1/invitations/"+created.Token+"/accept", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.do(t, http.MethodGet, base+"/permissions", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	perms := decode[map[string]any](t, env)
	assert.Equal(t, "employee", perms["role"])

	code, env = s.do(t, http.MethodGet, base+"/members", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]user.MemberResponse](t, env), 2)

	// Employees cannot invite.
	code, _ = s.do(t, http.MethodGet, base+"/invitations", aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodPost, base+"/invitations", ownerToken, map[string]any{"email": alice.Email, "name": "Alice"})
	assert.Equal(t, http.StatusConflict, code)
}

func TestInvitation_CreateValidation(t *testing.T) {
	s := newTestServer(t, defaultLimit())
	_, ownerToken := s.login(t, "owner@acme.io")
	orgID := s.createOrganisation(t, ownerToken, "acme")

	code, env := s.do(t, http.MethodPost, "/api/v1/organisations/"+orgID+"/invitations", ownerToken, map[string]any{
		"email": "bob@x.com", "name": "Bob", "role": "admin",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "role")
}

func TestInvitation_RevokeAndResend(t *testing.T) {
	s := newTestServer(t, defaultLimit())
	_, ownerToken := s.login(t, "owner@acme.io")
	orgID := s.createOrganisation(t, ownerToken, "acme")
	base := "/api/v1/organisations/" + orgID + "/invitations"

	code, env := s.do(t, http.MethodPost, base, ownerToken, map[string]any{"email": "bob@x.com", "name": "Bob"})
	require.Equal(t, http.StatusCreated, code)
	first := decode[invitation.InvitationResponse](t, env)
	assert.True(t, first.IsNewUser)

	code, env = s.do(t, http.MethodPost, base+"/"+first.Token+"/resend", ownerToken, nil)
	require.Equal(t, http.StatusOK, code)
	resent := decode[invitation.InvitationResponse](t, env)
	assert.NotEqual(t, first.Token, resent.Token)
	assert.Len(t, s.outbox.invitations, 2)

	code, _ = s.do(t, http.MethodDelete, base+"/"+first.Token, ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodDelete, base+"/"+resent.Token, ownerToken, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, base, ownerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]invitation.InvitationResponse](t, env))
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, defaultLimit())

	code, env := s.do(t, http.MethodGet, "/api/v1/invitations/my", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	code, _ = s.do(t, http.MethodGet, "/api/v1/organisations/my", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRequireMember_HidesOtherTenants(t *testing.T) {
	s := newTestServer(t, defaultLimit())
	_, ownerToken := s.login(t, "owner@acme.io")
	_, strangerToken := s.login(t, "stranger@x.com")
	orgID := s.createOrganisation(t, ownerToken, "acme")

	code, _ := s.do(t, http.MethodGet, "/api/v1/organisations/"+orgID, strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/organisations/does-not-exist", strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/organisations/"+orgID, ownerToken, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestOrganisation_UpdateDeleteAndAudit(t *testing.T) {
	s := newTestServer(t, defaultLimit())
	_, ownerToken := s.login(t, "owner@acme.io")
	orgID := s.createOrganisation(t, ownerToken, "acme")
	base := "/api/v1/organisations/" + orgID

	code, env := s.do(t, http.MethodPut, base, ownerToken, map[string]any{"name": "Acme Corp"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Acme Corp", decode[map[string]any](t, env)["name"])

	code, env = s.do(t, http.MethodGet, base+"/audit-logs?limit=10", ownerToken, nil)
	require.Equal(t, http.StatusOK, code)
	entries := decode[[]map[string]any](t, env)
	require.Len(t, entries, 2)
	assert.Equal(t, "organisation.updated", entries[0]["action"])

	code, env = s.do(t, http.MethodGet, base+"/audit-logs?limit=1", ownerToken, nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 1, env.Meta.Limit)
	assert.Equal(t, decode[[]map[string]any](t, env)[0]["id"], env.Meta.NextCursor)

	code, _ = s.do(t, http.MethodGet, base+"/audit-logs?before=bogus", ownerToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, env = s.do(t, http.MethodDelete, base, ownerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, decode[map[string]any](t, env)["members_removed"])

	code, env = s.do(t, http.MethodGet, "/api/v1/organisations/my", ownerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]map[string]any](t, env))
}

func TestOrganisation_SwitchCurrent(t *testing.T) {
	s := newTestServer(t, defaultLimit())
	_, ownerToken := s.login(t, "owner@acme.io")
	s.createOrganisation(t, ownerToken, "first")
	second := s.createOrganisation(t, ownerToken, "second")

	code, _ := s.do(t, http.MethodPut, "/api/v1/organisations/current", ownerToken, map[string]any{"organisation_id": second})
	require.Equal(t, http.StatusOK, code)

	code, env := s.do(t, http.MethodGet, "/api/v1/organisations/my", ownerToken, nil)
	require.Equal(t, http.StatusOK, code)
	for _, m := range decode[[]map[string]any](t, env) {
		assert.Equal(t, m["id"] == second, m["is_current"], "organisation %s", m["id"])
	}

	code, _ = s.do(t, http.MethodPut, "/api/v1/organisations/current", ownerToken, map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestMembers_CannotRemoveSelf(t *testing.T) {
	s := newTestServer(t, defaultLimit())
	owner, ownerToken := s.login(t, "owner@acme.io")
	orgID := s.createOrganisation(t, ownerToken, "acme")

	code, _ := s.do(t, http.MethodDelete, "/api/v1/organisations/"+orgID+"/members/"+owner.ID, ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestMalformedPathIDs(t *testing.T) {
	s := newTestServer(t, defaultLimit())
	_, ownerToken := s.login(t, "owner@acme.io")
	orgID := s.createOrganisation(t, ownerToken, "acme")

	code, _ := s.do(t, http.MethodGet, "/api/v1/organisations/not-a-uuid/members", ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := s.do(t, http.MethodDelete, "/api/v1/organisations/"+orgID+"/members/not-a-uuid", ownerToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "userID")

	code, _ = s.do(t, http.MethodPut, "/api/v1/organisations/current", ownerToken, map[string]any{"organisation_id": "bad"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestProvision_FirstRequestCreatesUser(t *testing.T) {
	s := newTestServer(t, defaultLimit())
	id := uuid.NewString()
	tok, _, err := s.jwt.GenerateAccessToken(id, "newcomer@acme.io")
	require.NoError(t, err)

	code, _ := s.do(t, http.MethodPost, "/api/v1/organisations", tok, map[string]any{"name": "Newco", "slug": "newco"})
	require.Equal(t, http.StatusCreated, code)

	u, err := s.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "newcomer@acme.io", u.Email)

	code, _ = s.do(t, http.MethodGet, "/api/v1/organisations/my", tok, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestProvision_RejectsMalformedSubject(t *testing.T) {
	s := newTestServer(t, defaultLimit())
	tok, _, err := s.jwt.GenerateAccessToken("user-1", "someone@acme.io")
	require.NoError(t, err)

	code, _ := s.do(t, http.MethodGet, "/api/v1/organisations/my", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestVerification(t *testing.T) {
	s := newTestServer(t, defaultLimit())
	s.login(t, "alice@x.com")

	code, _ := s.do(t, http.MethodPost, "/api/v1/verification/otp", "", map[string]any{"email": "alice@x.com"})
	require.Equal(t, http.StatusOK, code)
	require.Len(t, s.outbox.otps, 1)

	code, _ = s.do(t, http.MethodPost, "/api/v1/verification/otp/verify", "", map[string]any{"email": "alice@x.com", "code": "abc"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/verification/otp/verify", "", map[string]any{"email": "alice@x.com", "code": s.outbox.otps[0].Code})
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/verification/otp", "", map[string]any{"email": "alice@x.com"})
	assert.Equal(t, http.StatusConflict, code)
}

func TestPublicRateLimit(t *testing.T) {
	limit := defaultLimit()
	limit.RequestsPerMinute, limit.Burst = 1, 2
	s := newTestServer(t, limit)

	for i := 0; i < 2; i++ {
		code, _ := s.do(t, http.MethodGet, "/api/v1/invitations/validate?token=abc", "", nil)
		require.Equal(t, http.StatusOK, code)
	}
	code, env := s.do(t, http.MethodGet, "/api/v1/invitations/validate?token=abc", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "TOO_MANY_REQUESTS", env.Error.Code)
}

func TestPublicRateLimit_IgnoresForwardedFor(t *testing.T) {
	limit := defaultLimit()
	limit.RequestsPerMinute, limit.Burst = 1, 2
	s := newTestServer(t, limit)

	statuses := map[int]int{}
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/invitations/validate?token=abc", nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		statuses[w.Code]++
	}
	assert.Equal(t, map[int]int{http.StatusOK: 2, http.StatusTooManyRequests: 3}, statuses)
}

func TestVerifyCode_LimitedPerEmail(t *testing.T) {
	limit := defaultLimit()
	limit.VerifyRequestsPerMinute, limit.VerifyBurst = 1, 2
	limit.TrustProxy = true
	s := newTestServer(t, limit)
	s.login(t, "alice@x.com")

	code, _ := s.do(t, http.MethodPost, "/api/v1/verification/otp", "", map[string]any{"email": "alice@x.com"})
	require.Equal(t, http.StatusOK, code)

	statuses := map[int]int{}
	for i := 0; i < 10; i++ {
		body, err := json.Marshal(map[string]any{"email": " Alice@X.com", "code": "999999"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/verification/otp/verify", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		statuses[w.Code]++
	}
	assert.Equal(t, 8, statuses[http.StatusTooManyRequests])

	// Another address has its own bucket.
	code, _ = s.do(t, http.MethodPost, "/api/v1/verification/otp/verify", "", map[string]any{"email": "bob@x.com", "code": "999999"})
	assert.NotEqual(t, http.StatusTooManyRequests, code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, defaultLimit())
	s.do(t, http.MethodGet, "/api/v1/invitations/validate?token=abc", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "taskflow_http_request_duration_seconds")
}
