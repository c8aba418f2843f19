package skyrush_api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/SkyRush/internal/apperr"
	"github.com/BearBump/SkyRush/internal/models"
	"github.com/BearBump/SkyRush/internal/services/accounts"
	"github.com/BearBump/SkyRush/internal/session"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubAccounts struct {
	issuer *session.Issuer
}

func (s *stubAccounts) Register(_ context.Context, in models.RegisterInput) (*accounts.Session, error) {
	if in.Email == "taken@x.com" {
		return nil, apperr.Conflict("User already exists")
	}
	return s.session("u1", models.RoleUser, in.Email)
}

func (s *stubAccounts) Login(_ context.Context, in models.LoginInput) (*accounts.Session, error) {
	if in.Password != "secret123" {
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	return s.session("u1", models.RoleUser, in.Email)
}

func (s *stubAccounts) Profile(_ context.Context, userID string) (models.Profile, error) {
	return models.Profile{ID: userID, Email: "ann@x.com", Address: models.Address{ZipCode: "90210"}}, nil
}

func (s *stubAccounts) session(id, role, email string) (*accounts.Session, error) {
	tok, exp, err := s.issuer.Issue(id, role)
	if err != nil {
		return nil, err
	}
	return &accounts.Session{Token: tok, ExpiresAt: exp, Profile: models.Profile{ID: id, Email: email, Role: role}}, nil
}

type stubPackages struct {
	gotPath   string
	pathSeen  bool
	gotInput  models.PackageCreateInput
	gotRole   string
	gotStatus models.StatusUpdateInput
}

func (s *stubPackages) Create(_ context.Context, ownerID string, in models.PackageCreateInput, imagePath string) (*models.Package, error) {
	s.gotPath = imagePath
	s.gotInput = in
	if imagePath == "" {
		return nil, apperr.BadRequest("Please upload a package image")
	}
	_, err := os.Stat(imagePath)
	s.pathSeen = err == nil
	_ = os.Remove(imagePath)
	return &models.Package{
		ID: "p1", UserID: ownerID, Title: in.Title, TrackingNumber: "SR-ABCDEFGHI",
		Status:  models.PackageStatusPending,
		History: []models.StatusEvent{{Status: models.PackageStatusPending, Location: "System"}},
	}, nil
}

func (s *stubPackages) ListOwned(_ context.Context, ownerID string) ([]*models.Package, error) {
	return nil, nil
}

func (s *stubPackages) TrackPublic(_ context.Context, tn string) (*models.Package, error) {
	if tn != "SR-ABCDEFGHI" {
		return nil, apperr.NotFound("Tracking number not found")
	}
	return &models.Package{ID: "p1", UserID: "owner", TrackingNumber: tn}, nil
}

func (s *stubPackages) UpdateStatus(_ context.Context, role, id string, in models.StatusUpdateInput) (*models.Package, error) {
	s.gotRole = role
	s.gotStatus = in
	if role != models.RoleAdmin {
		return nil, apperr.Forbidden("Not authorized as an admin")
	}
	return &models.Package{ID: id, Status: in.Status}, nil
}

type stubRates struct{ got models.RateRequest }

func (s *stubRates) GetRates(_ context.Context, req models.RateRequest) ([]models.RateQuote, error) {
	s.got = req
	if req.ToAddress == nil || req.PackageInfo == nil {
		return nil, apperr.BadRequest("Missing address or package details")
	}
	return []models.RateQuote{{CarrierCode: "fedex", ShipmentCost: 9.2}}, nil
}

type stubCustomers struct{}

func (stubCustomers) FindCustomer(_ context.Context, email, phone string) (*models.Customer, error) {
	if email == "a@x.com" {
		return &models.Customer{CustomerID: 7, Email: "A@x.com"}, nil
	}
	return nil, apperr.NotFound("Customer not found in the recent records")
}

type fixture struct {
	srv      *httptest.Server
	issuer   *session.Issuer
	packages *stubPackages
	rates    *stubRates
}

func newFixture(t *testing.T, production bool) *fixture {
	t.Helper()
	issuer := session.NewIssuer("test-secret", 0)
	f := &fixture{issuer: issuer, packages: &stubPackages{}, rates: &stubRates{}}
	api := New(Deps{
		Accounts:  &stubAccounts{issuer: issuer},
		Packages:  f.packages,
		Rates:     f.rates,
		Customers: stubCustomers{},
		Sessions:  issuer,
	}, Options{
		Production:     production,
		AllowedOrigins: []string{"http://localhost:5173"},
		UploadDir:      t.TempDir(),
		MaxUploadBytes: 1 << 10,
	})
	f.srv = httptest.NewServer(api.Routes())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader, contentType string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *fixture) cookie(t *testing.T, role string) *http.Cookie {
	tok, _, err := f.issuer.Issue("u1", role)
	require.NoError(t, err)
	return &http.Cookie{Name: sessionCookie, Value: tok}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func sessionCookieFrom(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	return nil
}

func TestRoot_Health_NotFound_Metrics(t *testing.T) {
	f := newFixture(t, false)

	resp := f.do(t, http.MethodGet, "/", nil, "")
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, "SkyRush API is running...", string(body))
	require.NotEmpty(t, resp.Header.Get(requestIDHeader))

	resp = f.do(t, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/nope", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Not Found - /api/nope", decode[errorBody](t, resp).Message)

	resp = f.do(t, http.MethodGet, "/metrics", nil, "")
	body, _ = io.ReadAll(resp.Body)
	require.Contains(t, string(body), "skyrush_http_requests_total")
}

func TestRequestID_Propagated(t *testing.T) {
	f := newFixture(t, false)
	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "req-123", resp.Header.Get(requestIDHeader))
}

func TestRegister_SetsSessionCookie(t *testing.T) {
	f := newFixture(t, false)
	resp := f.do(t, http.MethodPost, "/api/auth/register", strings.NewReader(`{"email":"ann@x.com"}`), "application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	c := sessionCookieFrom(resp)
	require.NotNil(t, c)
	require.True(t, c.HttpOnly)
	require.False(t, c.Secure)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)
	require.Equal(t, int((7 * 24 * time.Hour).Seconds()), c.MaxAge)

	claims, err := f.issuer.Parse(c.Value)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)

	resp = f.do(t, http.MethodPost, "/api/auth/register", strings.NewReader(`{"email":"taken@x.com"}`), "application/json")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSecureCookieInProduction(t *testing.T) {
	f := newFixture(t, true)
	resp := f.do(t, http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"ann@x.com","password":"secret123"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, sessionCookieFrom(resp).Secure)
}

func TestErrorBody_StackOnlyOutsideProduction(t *testing.T) {
	dev := newFixture(t, false)
	resp := dev.do(t, http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"ann@x.com","password":"bad"}`), "application/json")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[errorBody](t, resp)
	require.Equal(t, "Invalid email or password", body.Message)
	require.NotEmpty(t, body.Stack)

	prod := newFixture(t, true)
	resp = prod.do(t, http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"ann@x.com","password":"bad"}`), "application/json")
	body = decode[errorBody](t, resp)
	require.Equal(t, "Invalid email or password", body.Message)
	require.Empty(t, body.Stack)

	resp = prod.do(t, http.MethodPost, "/api/auth/login", strings.NewReader(`{not json`), "application/json")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogout_ClearsCookie(t *testing.T) {
	f := newFixture(t, false)
	resp := f.do(t, http.MethodPost, "/api/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c := sessionCookieFrom(resp)
	require.NotNil(t, c)
	require.Empty(t, c.Value)
	require.True(t, c.MaxAge < 0)
	require.Equal(t, "Logged out successfully", decode[map[string]string](t, resp)["message"])
}

func TestProtectedRoutes_RequireSession(t *testing.T) {
	f := newFixture(t, false)

	resp := f.do(t, http.MethodGet, "/api/auth/profile", nil, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Not authorized, no token", decode[errorBody](t, resp).Message)

	resp = f.do(t, http.MethodGet, "/api/packages/my-packages", nil, "", &http.Cookie{Name: sessionCookie, Value: "garbage"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/auth/profile", nil, "", f.cookie(t, models.RoleUser))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "90210", decode[models.Profile](t, resp).Address.ZipCode)

	resp = f.do(t, http.MethodGet, "/api/packages/my-packages", nil, "", f.cookie(t, models.RoleUser))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, decode[[]models.Package](t, resp))
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func multipartBody(t *testing.T, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Test"))
	require.NoError(t, mw.WriteField("description", "d"))
	if content != nil {
		fw, err := mw.CreateFormFile(uploadField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestCreatePackage_Multipart(t *testing.T) {
	f := newFixture(t, false)

	body, ct := multipartBody(t, "../../box photo.png", pngHeader)
	resp := f.do(t, http.MethodPost, "/api/packages", body, ct, f.cookie(t, models.RoleUser))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	p := decode[models.Package](t, resp)
	require.Equal(t, models.PackageStatusPending, p.Status)
	require.Len(t, p.History, 1)
	require.Equal(t, "Test", f.packages.gotInput.Title)
	require.True(t, f.packages.pathSeen)
	require.True(t, strings.HasSuffix(f.packages.gotPath, "-box_photo.png"), f.packages.gotPath)
	require.NotContains(t, filepath.Base(f.packages.gotPath), "..")
}

func TestCreatePackage_Rejections(t *testing.T) {
	f := newFixture(t, false)

	body, ct := multipartBody(t, "", nil)
	resp := f.do(t, http.MethodPost, "/api/packages", body, ct, f.cookie(t, models.RoleUser))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Please upload a package image", decode[errorBody](t, resp).Message)

	body, ct = multipartBody(t, "notes.txt", []byte("plain text, not an image"))
	resp = f.do(t, http.MethodPost, "/api/packages", body, ct, f.cookie(t, models.RoleUser))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Unsupported file format", decode[errorBody](t, resp).Message)

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 4<<10)...)
	body, ct = multipartBody(t, "big.png", big)
	resp = f.do(t, http.MethodPost, "/api/packages", body, ct, f.cookie(t, models.RoleUser))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTrackPackage_Public(t *testing.T) {
	f := newFixture(t, false)

	resp := f.do(t, http.MethodGet, "/api/packages/track/SR-ABCDEFGHI", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw := decode[map[string]any](t, resp)
	_, hasUser := raw["user"]
	require.False(t, hasUser)

	resp = f.do(t, http.MethodGet, "/api/packages/track/SR-000000000", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateStatus_RoleFromSession(t *testing.T) {
	f := newFixture(t, false)
	payload := `{"status":"Processing","location":"Warehouse","note":"scanned"}`

	resp := f.do(t, http.MethodPut, "/api/packages/p1/status", strings.NewReader(payload), "application/json", f.cookie(t, models.RoleUser))
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodPut, "/api/packages/p1/status", strings.NewReader(payload), "application/json", f.cookie(t, models.RoleAdmin))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, models.RoleAdmin, f.packages.gotRole)
	require.Equal(t, "Warehouse", f.packages.gotStatus.Location)
	require.Equal(t, "p1", decode[models.Package](t, resp).ID)
}

func TestRates_AcceptsNumericStrings(t *testing.T) {
	f := newFixture(t, false)
	payload := `{"toAddress":{"country":"US","zip":"10001"},"packageInfo":{"weight":"2.5","length":10,"width":"6","height":4}}`

	resp := f.do(t, http.MethodPost, "/api/shipstation/rates", strings.NewReader(payload), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.InDelta(t, 2.5, float64(f.rates.got.PackageInfo.Weight), 1e-9)
	require.Len(t, decode[[]models.RateQuote](t, resp), 1)

	resp = f.do(t, http.MethodPost, "/api/shipstation/rates", strings.NewReader(`{}`), "application/json")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Missing address or package details", decode[errorBody](t, resp).Message)
}

func TestCustomerLookup(t *testing.T) {
	f := newFixture(t, false)

	resp := f.do(t, http.MethodGet, "/api/shipstation/customer?email=a@x.com", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int64(7), decode[models.Customer](t, resp).CustomerID)

	resp = f.do(t, http.MethodGet, "/api/shipstation/customer?phone=000", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORS_Credentials(t *testing.T) {
	f := newFixture(t, false)
	req, _ := http.NewRequest(http.MethodOptions, f.srv.URL+"/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestCleanFilename(t *testing.T) {
	require.Equal(t, "box_photo.png", cleanFilename("../../box photo.png"))
	require.Equal(t, "x.jpg", cleanFilename(`C:\Users\me\x.jpg`))
	require.Equal(t, "upload", cleanFilename(""))
}

func TestSwagger_ServedWhenConfigured(t *testing.T) {
	sw := filepath.Join(t.TempDir(), "swagger.json")
	require.NoError(t, os.WriteFile(sw, []byte(`{"swagger":"2.0"}`), 0o600))

	api := New(Deps{Sessions: session.NewIssuer("s", 0)}, Options{SwaggerPath: sw})
	srv := httptest.NewServer(api.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/swagger.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), `"swagger"`)

	plain := httptest.NewServer(New(Deps{Sessions: session.NewIssuer("s", 0)}, Options{}).Routes())
	defer plain.Close()
	resp2, err := http.Get(plain.URL + "/swagger.json")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestPanic_BecomesJSONErrorAndIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	api := New(Deps{Sessions: session.NewIssuer("s", 0), Logger: zap.New(core)}, Options{Production: true})

	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("nil map write") })
	srv := httptest.NewServer(api.requestLogger(api.recoverPanics(boom)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/packages/my-packages")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	body := decode[errorBody](t, resp)
	require.Equal(t, "Internal server error", body.Message)
	require.Empty(t, body.Stack)

	access := logs.FilterMessage("http request").All()
	require.Len(t, access, 1)
	require.EqualValues(t, http.StatusInternalServerError, access[0].ContextMap()["status"])
	require.Equal(t, 1, logs.FilterMessage("request failed").Len())
}

func TestSaveUpload_SameNameConcurrently(t *testing.T) {
	dir := t.TempDir()
	api := New(Deps{Sessions: session.NewIssuer("s", 0)}, Options{UploadDir: dir})

	const n = 8
	reqs := make([]*http.Request, n)
	for i := range reqs {
		body, ct := multipartBody(t, "box.png", pngHeader)
		reqs[i] = httptest.NewRequest(http.MethodPost, "/api/packages", body)
		reqs[i].Header.Set("Content-Type", ct)
	}

	paths := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req *http.Request) {
			defer wg.Done()
			paths[i], errs[i] = api.saveUpload(httptest.NewRecorder(), req)
		}(i, req)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	seen := map[string]bool{}
	for _, p := range paths {
		require.True(t, strings.HasSuffix(p, "-box.png"), p)
		require.False(t, seen[p], "duplicate upload path %s", p)
		seen[p] = true
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, n)
}
