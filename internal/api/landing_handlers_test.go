package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/leadpage/internal/config"
	"github.com/ignite/leadpage/internal/domain"
	"github.com/ignite/leadpage/internal/repository/memory"
	"github.com/ignite/leadpage/internal/rotation"
	"github.com/ignite/leadpage/internal/service/landing"
	"github.com/ignite/leadpage/internal/storage"
)

const ownerA = "owner-a"

var testNow = time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)

type stubGenerator struct {
	reply *landing.GeneratedContent
	err   error
}

func (g *stubGenerator) Generate(ctx context.Context, req landing.ContentRequest) (*landing.GeneratedContent, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.reply, nil
}

type stubUploader struct {
	gotOwner string
	gotName  string
	gotBytes int
	err      error
}

func (u *stubUploader) Upload(_ context.Context, ownerID, filename string, r io.Reader) (*storage.UploadedImage, error) {
	data, _ := io.ReadAll(r)
	u.gotOwner, u.gotName, u.gotBytes = ownerID, filename, len(data)
	if u.err != nil {
		return nil, u.err
	}
	return &storage.UploadedImage{URL: "https://img.example.com/landing/" + filename, Size: int64(len(data))}, nil
}

type testEnv struct {
	router http.Handler
	svc    *landing.Service
	stats  *rotation.Stats
	gen    *stubGenerator
	images *stubUploader
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	gen := &stubGenerator{}
	svc := landing.NewService(memory.NewLandingRepo(), gen, landing.Config{
		PublicBaseURL:  "https://pages.example.com",
		ContentTimeout: time.Second,
		Now:            func() time.Time { return testNow },
	})
	stats := rotation.NewStats(rdb)
	images := &stubUploader{}

	router := SetupRoutes(config.ServerConfig{AllowedOrigins: []string{"https://builder.example.com"}}, Deps{
		Landing: NewLandingHandlers(svc, stats, images),
		Health:  NewHealthChecker(nil, rdb, nil, ""),
	})
	return &testEnv{router: router, svc: svc, stats: stats, gen: gen, images: images}
}

func (e *testEnv) do(t *testing.T, method, path, owner string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set(OwnerHeader, owner)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func price(v float64) *float64 { return &v }

func pageBody() *domain.LandingPageConfig {
	return &domain.LandingPageConfig{
		Slug:               "kopi-gayo",
		ProductName:        "Kopi Gayo",
		ProductDescription: "Single origin arabica from Aceh.",
		PricingMode:        domain.PricingSingle,
		Currency:           "IDR",
		ProductPrice:       price(85000),
		PrimaryColor:       "#25D366",
		AccentColor:        "#128C7E",
		HeadingFont:        "Poppins",
		BodyFont:           "Inter",
		CTAEventName:       domain.CTAContact,
		WhatsAppMessage:    "Halo {{ contact_name }}, saya mau {{ product_name }}",
		ContactTargets: []domain.ContactTarget{
			{ID: "t1", DisplayName: "Ani", PhoneNumber: "6281111111111", WeightPercent: 60},
			{ID: "t2", DisplayName: "Budi", PhoneNumber: "6282222222222", WeightPercent: 40},
		},
	}
}

func (e *testEnv) createPage(t *testing.T, owner string, cfg *domain.LandingPageConfig) *domain.LandingPageConfig {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/landing-pages", owner, cfg)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[*domain.LandingPageConfig](t, rec)
}

func TestOwnerRequired(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/landing-pages", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAndGet(t *testing.T) {
	e := newTestEnv(t)
	body := pageBody()
	body.ID = "client-chosen"
	body.Status = domain.LandingPublished

	created := e.createPage(t, ownerA, body)
	assert.NotEqual(t, "client-chosen", created.ID)
	assert.Equal(t, ownerA, created.OwnerID)
	assert.Equal(t, domain.LandingDraft, created.Status, "status only changes through publish")
	assert.Equal(t, testNow, created.CreatedAt)

	rec := e.do(t, http.MethodGet, "/api/landing-pages/"+created.ID, ownerA, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[*domain.LandingPageConfig](t, rec)
	assert.Equal(t, created.ContactTargets, got.ContactTargets)

	// Other owners cannot see it.
	rec = e.do(t, http.MethodGet, "/api/landing-pages/"+created.ID, "owner-b", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateInvalidReturnsAllViolations(t *testing.T) {
	e := newTestEnv(t)
	body := pageBody()
	body.Slug = "Bad Slug"
	body.ProductName = ""
	body.ContactTargets[1].WeightPercent = 30

	rec := e.do(t, http.MethodPost, "/api/landing-pages", ownerA, body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Code    string               `json:"code"`
		Details []landing.FieldError `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_failed", resp.Code)

	fields := map[string]landing.ViolationKind{}
	for _, f := range resp.Details {
		fields[f.Field] = f.Kind
	}
	assert.Equal(t, landing.KindFormat, fields["slug"])
	assert.Equal(t, landing.KindRequired, fields["product_name"])
	assert.Equal(t, landing.KindPercentageSum, fields["contact_targets"])

	list := e.do(t, http.MethodGet, "/api/landing-pages", ownerA, nil)
	page := decode[PaginatedResponse](t, list)
	assert.Equal(t, 0, page.Pagination.Total, "nothing persisted")
}

func TestCreateMalformedJSON(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/landing-pages", bytes.NewBufferString("{"))
	req.Header.Set(OwnerHeader, ownerA)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNewDraft(t *testing.T) {
	e := newTestEnv(t)
	name := "Sambal Roa"
	rec := e.do(t, http.MethodPost, "/api/landing-pages/draft", ownerA, landing.Patch{ProductName: &name})
	require.Equal(t, http.StatusOK, rec.Code)

	draft := decode[*domain.LandingPageConfig](t, rec)
	assert.Equal(t, "sambal-roa", draft.Slug)
	assert.Equal(t, "IDR", draft.Currency)
	assert.Equal(t, domain.CTAContact, draft.CTAEventName)

	_, err := e.svc.Get(context.Background(), draft.ID)
	assert.ErrorIs(t, err, landing.ErrNotFound, "drafts are not saved until created")
}

func TestValidateEndpoint(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/landing-pages/validate", ownerA, pageBody())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":true,"errors":[]}`, rec.Body.String())

	bad := pageBody()
	bad.ProductDescription = string(bytes.Repeat([]byte("x"), 241))
	rec = e.do(t, http.MethodPost, "/api/landing-pages/validate", ownerA, bad)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[map[string]interface{}](t, rec)
	assert.Equal(t, false, res["valid"])
	assert.Len(t, res["errors"], 1)
}

func TestPatchAndReplace(t *testing.T) {
	e := newTestEnv(t)
	created := e.createPage(t, ownerA, pageBody())

	desc := "Arabica, medium roast."
	rec := e.do(t, http.MethodPatch, "/api/landing-pages/"+created.ID, ownerA, landing.Patch{ProductDescription: &desc})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, desc, decode[*domain.LandingPageConfig](t, rec).ProductDescription)

	full := pageBody()
	full.ProductName = "Kopi Gayo Wine"
	full.OwnerID = "someone-else"
	rec = e.do(t, http.MethodPut, "/api/landing-pages/"+created.ID, ownerA, full)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	replaced := decode[*domain.LandingPageConfig](t, rec)
	assert.Equal(t, created.ID, replaced.ID)
	assert.Equal(t, ownerA, replaced.OwnerID)
	assert.Equal(t, "Kopi Gayo Wine", replaced.ProductName)

	badPrice := -1.0
	rec = e.do(t, http.MethodPatch, "/api/landing-pages/"+created.ID, ownerA, landing.Patch{ProductPrice: &badPrice})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPublishFlow(t *testing.T) {
	e := newTestEnv(t)
	created := e.createPage(t, ownerA, pageBody())

	rec := e.do(t, http.MethodPost, "/api/landing-pages/"+created.ID+"/publish", ownerA, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, fmt.Sprintf(`{"id":%q,"slug":"kopi-gayo","url":"https://pages.example.com/kopi-gayo"}`, created.ID), rec.Body.String())

	// A second page of another owner cannot take the slug.
	other := e.createPage(t, "owner-b", pageBody())
	rec = e.do(t, http.MethodPost, "/api/landing-pages/"+other.ID+"/publish", "owner-b", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"slug_taken"`)

	// The published slug is locked in.
	renamed := pageBody()
	renamed.Slug = "kopi-baru"
	rec = e.do(t, http.MethodPut, "/api/landing-pages/"+created.ID, ownerA, renamed)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"immutable"`)

	rec = e.do(t, http.MethodPost, "/api/landing-pages/"+created.ID+"/unpublish", ownerA, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	unpublished := decode[*domain.LandingPageConfig](t, rec)
	assert.Equal(t, domain.LandingDraft, unpublished.Status)
	assert.Nil(t, unpublished.PublishedAt)

	rec = e.do(t, http.MethodPost, "/api/landing-pages/"+other.ID+"/publish", "owner-b", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "slug is free again")
}

func TestListFiltersAndPaginates(t *testing.T) {
	e := newTestEnv(t)
	for i := 0; i < 3; i++ {
		body := pageBody()
		body.Slug = fmt.Sprintf("kopi-%d", i)
		e.createPage(t, ownerA, body)
	}
	e.createPage(t, "owner-b", pageBody())

	rec := e.do(t, http.MethodGet, "/api/landing-pages?limit=2", ownerA, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data       []domain.LandingPageConfig `json:"data"`
		Pagination PaginationMeta             `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, 3, resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
	assert.True(t, resp.Pagination.HasMore)

	rec = e.do(t, http.MethodGet, "/api/landing-pages?status=published", ownerA, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Data)

	rec = e.do(t, http.MethodGet, "/api/landing-pages?status=archived", ownerA, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDelete(t *testing.T) {
	e := newTestEnv(t)
	created := e.createPage(t, ownerA, pageBody())

	rec := e.do(t, http.MethodDelete, "/api/landing-pages/"+created.ID, "owner-b", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/landing-pages/"+created.ID, ownerA, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/landing-pages/"+created.ID, ownerA, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDistributeContacts(t *testing.T) {
	e := newTestEnv(t)
	body := pageBody()
	body.ContactTargets = append(body.ContactTargets, domain.ContactTarget{ID: "t3", DisplayName: "Citra", PhoneNumber: "6283333333333"})
	body.ContactTargets[0].WeightPercent = 100
	body.ContactTargets[1].WeightPercent = 0
	created := e.createPage(t, ownerA, body)

	rec := e.do(t, http.MethodPost, "/api/landing-pages/"+created.ID+"/contacts/distribute", ownerA, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[*domain.LandingPageConfig](t, rec)
	weights := []int{}
	for _, ct := range got.ContactTargets {
		weights = append(weights, ct.WeightPercent)
	}
	assert.Equal(t, []int{34, 33, 33}, weights)
}

func TestRoutingReport(t *testing.T) {
	e := newTestEnv(t)
	created := e.createPage(t, ownerA, pageBody())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, e.stats.RecordSelection(ctx, created.ID, "t1"))
	}
	require.NoError(t, e.stats.RecordSelection(ctx, created.ID, "t2"))

	rec := e.do(t, http.MethodGet, "/api/landing-pages/"+created.ID+"/routing", ownerA, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Total   int64           `json:"total_selections"`
		Targets []routingTarget `json:"targets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(4), resp.Total)
	require.Len(t, resp.Targets, 2)
	assert.Equal(t, 60, resp.Targets[0].Upper)
	assert.Equal(t, 100, resp.Targets[1].Upper)
	assert.Equal(t, int64(3), resp.Targets[0].Selections)
	assert.InDelta(t, 75.0, resp.Targets[0].ObservedPct, 0.001)
}

func TestRoutingReportWithoutTargets(t *testing.T) {
	e := newTestEnv(t)
	body := pageBody()
	body.ContactTargets = nil
	body.WhatsAppNumber = "6281234567890"
	created := e.createPage(t, ownerA, body)

	rec := e.do(t, http.MethodGet, "/api/landing-pages/"+created.ID+"/routing", ownerA, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRegenerateContent(t *testing.T) {
	e := newTestEnv(t)
	created := e.createPage(t, ownerA, pageBody())
	e.gen.reply = &landing.GeneratedContent{Benefits: []string{"Fresh roasted", "Fair trade"}}

	rec := e.do(t, http.MethodPost, "/api/landing-pages/"+created.ID+"/content/benefits", ownerA, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"content":{"kind":"benefits","benefits":["Fresh roasted","Fair trade"]}}`, rec.Body.String())

	stored, err := e.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Benefits, "preview does not persist")

	rec = e.do(t, http.MethodPost, "/api/landing-pages/"+created.ID+"/content/benefits?apply=true", ownerA, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stored, err = e.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fresh roasted", "Fair trade"}, stored.Benefits)
}

func TestRegenerateContentErrors(t *testing.T) {
	e := newTestEnv(t)
	created := e.createPage(t, ownerA, pageBody())

	rec := e.do(t, http.MethodPost, "/api/landing-pages/"+created.ID+"/content/poems", ownerA, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	e.gen.err = context.DeadlineExceeded
	rec = e.do(t, http.MethodPost, "/api/landing-pages/"+created.ID+"/content/seo", ownerA, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"upstream_timeout"`)

	e.gen.err = nil
	e.gen.reply = &landing.GeneratedContent{}
	rec = e.do(t, http.MethodPost, "/api/landing-pages/"+created.ID+"/content/testimonials", ownerA, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"upstream_failure"`)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartUpload(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestUploadImage(t *testing.T) {
	e := newTestEnv(t)
	data := pngBytes(t)
	body, contentType := multipartUpload(t, "file", "hero.png", data)

	req := httptest.NewRequest(http.MethodPost, "/api/landing-pages/images", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(OwnerHeader, ownerA)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, ownerA, e.images.gotOwner)
	assert.Equal(t, "hero.png", e.images.gotName)
	assert.Equal(t, len(data), e.images.gotBytes)
	assert.Equal(t, "https://img.example.com/landing/hero.png", decode[storage.UploadedImage](t, rec).URL)
}

func TestUploadImageErrors(t *testing.T) {
	e := newTestEnv(t)

	send := func(field string, data []byte) int {
		body, contentType := multipartUpload(t, field, "x.png", data)
		req := httptest.NewRequest(http.MethodPost, "/api/landing-pages/images", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set(OwnerHeader, ownerA)
		rec := httptest.NewRecorder()
		e.router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusBadRequest, send("image", pngBytes(t)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, send("file", make([]byte, storage.MaxUploadBytes+128<<10)))

	e.images.err = fmt.Errorf("%w: text/plain", storage.ErrUnsupportedType)
	assert.Equal(t, http.StatusUnsupportedMediaType, send("file", []byte("hello")))
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/landing-pages", nil)
	req.Header.Set("Origin", "https://builder.example.com")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	req.Header.Set("Access-Control-Request-Headers", OwnerHeader)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	assert.Equal(t, "https://builder.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[HealthStatus](t, rec)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "up", status.Checks["redis"].Status)
	assert.Equal(t, "not_configured", status.Checks["database"].Status)

	rec = e.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDetermineOverallStatus(t *testing.T) {
	assert.Equal(t, "unhealthy", determineOverallStatus(map[string]ComponentCheck{"database": {Status: "down"}}))
	assert.Equal(t, "degraded", determineOverallStatus(map[string]ComponentCheck{
		"database": {Status: "up"}, "redis": {Status: "down"},
	}))
	assert.Equal(t, "healthy", determineOverallStatus(map[string]ComponentCheck{
		"database": {Status: "not_configured"}, "images": {Status: "not_configured"},
	}))
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5s", formatUptime(5*time.Second))
	assert.Equal(t, "2m 3s", formatUptime(2*time.Minute+3*time.Second))
	assert.Equal(t, "1d 2h 0m 0s", formatUptime(26*time.Hour))
}
