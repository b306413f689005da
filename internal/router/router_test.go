package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"mime/multipart"
	"testing"

	"officine/internal/config"
	"officine/internal/infra"
	"officine/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Fields  map[string]string `json:"fields"`
}

type api struct {
	t   *testing.T
	eng *gin.Engine
	svc *Services
	rdb *redis.Client
}

func newAPI(t *testing.T) *api {
	t.Helper()
	uploads, err := infra.NewUploadStore(t.TempDir(), 1)
	require.NoError(t, err)
	cfg := &config.Config{
		Env:                "test",
		JWTSecret:          "router-secret",
		JWTExpirationHours: 1,
		JWTRefreshHours:    2,
		PharmacyName:       "Pharmacie du Centre",
	}
	d := Deps{Config: cfg, Hub: realtime.NewHub(), Uploads: uploads}
	s := NewServices(d)
	return &api{t: t, eng: New(d, s, Limiters{}), svc: s}
}

func (a *api) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.eng.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (a *api) upload(path, token, field string, content []byte) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "scan.png")
	require.NoError(a.t, err)
	_, err = part.Write(content)
	require.NoError(a.t, err)
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	a.eng.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func (a *api) client(email string) string {
	a.t.Helper()
	w, _ := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "fullName": "Client " + email, "password": "client-pass-1",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return a.login(email, "client-pass-1")
}

func (a *api) login(email, password string) string {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &out))
	return out.AccessToken
}

func (a *api) admin() string {
	a.t.Helper()
	_, err := a.svc.Auth.EnsureAdmin(context.Background(), "admin@officine.test", "Admin", "admin-pass-1")
	require.NoError(a.t, err)
	return a.login("admin@officine.test", "admin-pass-1")
}

func TestCategoryRoundTrip(t *testing.T) {
	a := newAPI(t)
	token := a.admin()

	w, env := a.do(http.MethodPost, "/api/categories", token, map[string]string{"name": "Vitamines", "slug": "vitamines"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "vitamines", created.Slug)

	w, env = a.do(http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []struct {
		Slug string `json:"slug"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "vitamines", list[0].Slug)

	w, _ = a.do(http.MethodDelete, "/api/categories/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = a.do(http.MethodGet, "/api/categories", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = a.do(http.MethodGet, "/api/categories/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAccessControl(t *testing.T) {
	a := newAPI(t)

	w, _ := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "claire@example.test", "fullName": "Claire", "password": "client-pass-1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	client := a.login("claire@example.test", "client-pass-1")

	w, _ = a.do(http.MethodPost, "/api/categories", "", map[string]string{"name": "Soins", "slug": "soins"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := a.do(http.MethodPost, "/api/categories", client, map[string]string{"name": "Soins", "slug": "soins"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, env.Success)

	w, _ = a.do(http.MethodGet, "/api/sales", client, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = a.do(http.MethodGet, "/api/auth/me", client, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = a.do(http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidationEnvelope(t *testing.T) {
	a := newAPI(t)
	token := a.admin()

	w, env := a.do(http.MethodPost, "/api/categories", token, map[string]string{"name": "V"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "min", env.Fields["name"])
	assert.Equal(t, "required", env.Fields["slug"])

	w, _ = a.do(http.MethodGet, "/api/categories/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPharmacistRecordsSale(t *testing.T) {
	a := newAPI(t)
	admin := a.admin()

	w, _ := a.do(http.MethodPost, "/api/personnel", admin, map[string]string{
		"email": "paul@officine.test", "fullName": "Paul", "password": "pharma-pass-1", "role": "pharmacist",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	pharmacist := a.login("paul@officine.test", "pharma-pass-1")

	w, env := a.do(http.MethodPost, "/api/products", admin, map[string]any{
		"sku": "DOLI500", "name": "Doliprane 500mg", "priceHT": "1.80", "priceTTC": "1.90", "stock": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var product struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &product))

	w, _ = a.do(http.MethodPost, "/api/sales", pharmacist, map[string]any{"productId": product.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env = a.do(http.MethodGet, "/api/products/"+product.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var after struct {
		Stock int `json:"stock"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &after))
	assert.Equal(t, 3, after.Stock)

	w, _ = a.do(http.MethodPost, "/api/sales", pharmacist, map[string]any{"productId": product.ID, "quantity": 4})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = a.do(http.MethodGet, "/api/stock/movements", pharmacist, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthInMemory(t *testing.T) {
	a := newAPI(t)
	w, _ := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "memory")

	w, _ = a.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestPrescriptionUploadAndVisibility(t *testing.T) {
	a := newAPI(t)
	admin := a.admin()
	alice := a.client("alice@example.test")
	bob := a.client("bob@example.test")

	w, env := a.upload("/api/prescriptions", alice, "image", pngHeader)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rx struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rx))
	assert.Equal(t, "pending", rx.Status)

	w, _ = a.upload("/api/prescriptions", alice, "image", []byte("plain text, not a scan"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = a.upload("/api/prescriptions", alice, "file", pngHeader)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = a.do(http.MethodGet, "/api/prescriptions/"+rx.ID, alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = a.do(http.MethodGet, "/api/prescriptions/"+rx.ID, bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = a.do(http.MethodGet, "/api/prescriptions/"+rx.ID+"/image", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w, _ = a.do(http.MethodGet, "/api/prescriptions/all", alice, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = a.do(http.MethodGet, "/api/prescriptions/all", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all struct {
		Prescriptions []struct {
			ID string `json:"id"`
		} `json:"prescriptions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &all))
	require.Len(t, all.Prescriptions, 1)
	assert.Equal(t, rx.ID, all.Prescriptions[0].ID)

	w, _ = a.do(http.MethodPost, "/api/prescriptions/"+rx.ID+"/prepare", admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFailedJobs_AdminOnly(t *testing.T) {
	a := newAPI(t)
	admin := a.admin()

	w, env := a.do(http.MethodGet, "/api/jobs/failed", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got struct {
		Total   int64 `json:"total"`
		Entries []any `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Zero(t, got.Total)
	assert.Empty(t, got.Entries)

	w, env = a.do(http.MethodGet, "/api/jobs/failed?limit=500", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "max", env.Fields["limit"])

	client := a.client("dora@example.test")
	w, _ = a.do(http.MethodGet, "/api/jobs/failed", client, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
