package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kirillkom/movement-studio/internal/core/domain"
)

func multipartBody(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
	return out
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.WrapError(domain.ErrInvalidInput, "op", errors.New("x")), http.StatusBadRequest},
		{domain.WrapError(domain.ErrUnauthorized, "op", errors.New("x")), http.StatusUnauthorized},
		{domain.WrapError(domain.ErrSessionNotFound, "op", errors.New("x")), http.StatusNotFound},
		{domain.WrapError(domain.ErrConflict, "op", errors.New("x")), http.StatusConflict},
		{domain.WrapError(domain.ErrImageLoad, "op", errors.New("x")), http.StatusUnprocessableEntity},
		{domain.WrapError(domain.ErrNoColorData, "op", errors.New("x")), http.StatusUnprocessableEntity},
		{domain.WrapError(domain.ErrTemporary, "op", errors.New("x")), http.StatusServiceUnavailable},
		{domain.WrapError(domain.ErrCaptionService, "op", errors.New("x")), http.StatusBadGateway},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := mapErrorToHTTPStatus(tc.err); got != tc.want {
			t.Fatalf("mapErrorToHTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestInternalErrorsHideDetails(t *testing.T) {
	if msg := publicErrorMessage(http.StatusInternalServerError, errors.New("dsn=postgres://secret")); msg != "internal error" {
		t.Fatalf("unexpected public message %q", msg)
	}
}

func TestHealthzReportsBreakerStates(t *testing.T) {
	handler := NewRouter(testConfig(), newMovementFake(), analyzerFake{}, &surveyFake{}, &paletteFake{},
		WithBreakerStates(func() map[string]string { return map[string]string{"caption.openai": "closed"} }),
	).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decodeBody(t, res)
	breakers, ok := body["breakers"].(map[string]any)
	if !ok || breakers["caption.openai"] != "closed" {
		t.Fatalf("unexpected breakers payload: %v", body)
	}
}

func TestClassifyByHexReturnsAnalysis(t *testing.T) {
	f := newRouterFixture(testConfig())
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/colors/classify?hex=%23FF69B4", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	body := decodeBody(t, res)
	if body["extracted_hex"] != "#FF69B4" {
		t.Fatalf("unexpected extracted hex: %v", body["extracted_hex"])
	}
	brand, _ := body["brand_color"].(map[string]any)
	if brand["name"] != "pink" {
		t.Fatalf("expected pink brand, got %v", brand)
	}
}

func TestClassifyRejectsBadInput(t *testing.T) {
	f := newRouterFixture(testConfig())
	for _, target := range []string{
		"/v1/colors/classify",
		"/v1/colors/classify?hex=nothex",
		"/v1/colors/classify?h=400&s=50&l=50",
		"/v1/colors/classify?h=10&s=abc&l=50",
	} {
		res := httptest.NewRecorder()
		f.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, target, nil))
		if res.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, res.Code)
		}
	}
}

func TestClassifyByHSLFlagsAchromatic(t *testing.T) {
	f := newRouterFixture(testConfig())
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/colors/classify?h=200&s=5&l=50", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if body := decodeBody(t, res); body["is_achromatic"] != true {
		t.Fatalf("expected achromatic, got %v", body)
	}
}

func TestAnalyzeMapsImageLoadTo422(t *testing.T) {
	f := newRouterFixture(testConfig())
	f.analyzer.err = domain.WrapError(domain.ErrImageLoad, "decode image", errors.New("unknown format"))

	body, contentType := multipartBody(t, nil, "broken.png", []byte("not an image"))
	req := httptest.NewRequest(http.MethodPost, "/v1/colors/analyze", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.Code)
	}
	if got := decodeBody(t, res)["error"]; got != "color analysis failed" {
		t.Fatalf("unexpected error message %v", got)
	}
}

func TestAnalyzeRequiresFile(t *testing.T) {
	f := newRouterFixture(testConfig())
	body, contentType := multipartBody(t, map[string]string{"lang": "en"}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/colors/analyze", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestDescribeAlwaysReturns200(t *testing.T) {
	f := newRouterFixture(testConfig())
	f.movements.described = domain.CaptionResult{Success: false, Description: domain.CaptionErrorSentinel}

	body, contentType := multipartBody(t, map[string]string{"lang": "ko"}, "a.png", []byte("img"))
	req := httptest.NewRequest(http.MethodPost, "/v1/captions", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	out := decodeBody(t, res)
	if out["success"] != false || out["description"] != "ERROR" {
		t.Fatalf("unexpected caption payload: %v", out)
	}
}

func startSession(t *testing.T, f *routerFixture, host string) (string, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/movements", nil)
	if host != "" {
		req.Host = host
	}
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d: %s", res.Code, res.Body.String())
	}
	var out startMovementResponse
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	if out.Token == "" || out.Session == nil {
		t.Fatalf("start response missing token or session: %s", res.Body.String())
	}
	return out.Session.ID, out.Token
}

func TestStartMovementUsesInvitationHost(t *testing.T) {
	f := newRouterFixture(testConfig())
	startSession(t, f, "invitation.example.com")
	if f.movements.lastSite != domain.SiteInvitation {
		t.Fatalf("expected invitation site, got %q", f.movements.lastSite)
	}
}

func TestMovementEndpointsRequireToken(t *testing.T) {
	f := newRouterFixture(testConfig())
	id, _ := startSession(t, f, "")

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/movements/"+id, nil))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", res.Code)
	}

	otherTokens := NewSessionTokens("test-secret", time.Hour)
	foreign, _, err := otherTokens.Issue("someone-else")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/movements/"+id, nil)
	req.Header.Set("Authorization", "Bearer "+foreign)
	res = httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for another session's token, got %d", res.Code)
	}
}

func TestMovementFlowOverHTTP(t *testing.T) {
	f := newRouterFixture(testConfig())
	id, token := startSession(t, f, "")
	auth := func(req *http.Request) *http.Request {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
		return req
	}

	body, contentType := multipartBody(t, nil, "stroke.png", []byte("png-bytes"))
	req := auth(httptest.NewRequest(http.MethodPost, "/v1/movements/"+id+"/image", body))
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d: %s", res.Code, res.Body.String())
	}

	req = auth(jsonRequest(http.MethodPost, "/v1/movements/"+id+"/complete", `{"lang":"ko"}`))
	res = httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if f.movements.lastLang != domain.LanguageKorean {
		t.Fatalf("expected ko language, got %q", f.movements.lastLang)
	}

	req = auth(jsonRequest(http.MethodPut, "/v1/movements/"+id+"/caption", `{"caption":"edited"}`))
	res = httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("caption: expected 200, got %d", res.Code)
	}
	var session domain.Session
	if err := json.Unmarshal(res.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.Flow.Caption != "edited" {
		t.Fatalf("expected edited caption, got %q", session.Flow.Caption)
	}

	req = auth(httptest.NewRequest(http.MethodPost, "/v1/movements/"+id+"/reset", nil))
	res = httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", res.Code)
	}
}

func TestCompleteEditRejectsUnknownLanguage(t *testing.T) {
	f := newRouterFixture(testConfig())
	id, token := startSession(t, f, "")
	req := jsonRequest(http.MethodPost, "/v1/movements/"+id+"/complete", `{"lang":"fr"}`)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	cfg := testConfig()
	cfg.MaxImageBytes = 16
	f := newRouterFixture(cfg)
	id, token := startSession(t, f, "")

	body, contentType := multipartBody(t, nil, "big.png", bytes.Repeat([]byte("x"), 4<<20))
	req := httptest.NewRequest(http.MethodPost, "/v1/movements/"+id+"/image", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestSubmitSurveyDefaultsSiteFromHost(t *testing.T) {
	f := newRouterFixture(testConfig())
	req := jsonRequest(http.MethodPost, "/v1/surveys", `{"rating":4}`)
	req.Host = "invitation.example.com:8080"
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if len(f.surveys.submitted) != 1 || f.surveys.submitted[0].Site != "invitation" {
		t.Fatalf("unexpected submissions: %+v", f.surveys.submitted)
	}

	req = jsonRequest(http.MethodPost, "/v1/surveys", `{"rating":9}`)
	res = httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad rating, got %d", res.Code)
	}
}

func TestExportSurveysRequiresAdminKey(t *testing.T) {
	f := newRouterFixture(testConfig())

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/surveys/export", nil))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", res.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/surveys/export", nil)
	req.Header.Set("Authorization", "Bearer admin-key")
	res = httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := res.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment; filename=\"surveys-") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
}

func TestExportSurveysDisabledWithoutConfiguredKey(t *testing.T) {
	cfg := testConfig()
	cfg.AdminAPIKey = ""
	f := newRouterFixture(cfg)
	req := httptest.NewRequest(http.MethodGet, "/v1/surveys/export", nil)
	req.Header.Set("Authorization", "Bearer ")
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestPaletteStatsParsesDate(t *testing.T) {
	f := newRouterFixture(testConfig())
	f.palette.stats = []domain.PaletteStat{{BrandColor: "pink", RefinedColor: "Hot Pink", Count: 3}}

	req := httptest.NewRequest(http.MethodGet, "/v1/palette/stats?date=2026-03-15", nil)
	req.Header.Set("Authorization", "Bearer admin-key")
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !f.palette.day.Equal(want) {
		t.Fatalf("expected day %v, got %v", want, f.palette.day)
	}
	out := decodeBody(t, res)
	if out["day"] != "2026-03-15" {
		t.Fatalf("unexpected day %v", out["day"])
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/palette/stats?date=15.03.2026", nil)
	req.Header.Set("Authorization", "Bearer admin-key")
	res = httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUnknownSessionReturns404(t *testing.T) {
	f := newRouterFixture(testConfig())
	tokens := NewSessionTokens("test-secret", time.Hour)
	token, _, err := tokens.Issue("missing")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/movements/%s", "missing"), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestExportSurveysAcceptsHashedAdminKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-key"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash key: %v", err)
	}
	cfg := testConfig()
	cfg.AdminAPIKey = ""
	cfg.AdminAPIKeyHash = string(hash)
	f := newRouterFixture(cfg)

	req := httptest.NewRequest(http.MethodGet, "/v1/surveys/export", nil)
	req.Header.Set("Authorization", "Bearer hashed-key")
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/surveys/export", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	res = httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong key, got %d", res.Code)
	}
}

func TestOpenAPIDocumentLoadsAndIsServed(t *testing.T) {
	if _, err := loadOpenAPI(context.Background()); err != nil {
		t.Fatalf("loadOpenAPI() error = %v", err)
	}
	f := newRouterFixture(testConfig())
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), "Movement Studio API") {
		t.Fatalf("expected the API document, got %d", res.Code)
	}
}

func TestOpenAPIRejectsWrongJSONTypes(t *testing.T) {
	f := newRouterFixture(testConfig())
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, jsonRequest(http.MethodPost, "/v1/surveys", `{"rating":"five"}`))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if len(f.surveys.submitted) != 0 {
		t.Fatalf("invalid request must not reach the service")
	}
}

func TestOpenAPIRejectsNonJSONBody(t *testing.T) {
	f := newRouterFixture(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/v1/surveys", strings.NewReader("rating=4"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
