package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nemoguigrat/uralintern/internal/config"
	"github.com/nemoguigrat/uralintern/internal/models"
	"github.com/nemoguigrat/uralintern/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(t *testing.T, r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r http.Handler, email string) string {
	t.Helper()
	w := request(t, r, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"email": email, "password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		User struct {
			Token string `json:"token"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.User.Token)
	return resp.User.Token
}

func TestGradingFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Config{
		JWTSecret:      "test-secret",
		TokenTTL:       time.Hour,
		UploadDir:      t.TempDir(),
		ReportCacheTTL: time.Minute,
	}
	r := setupRouter(cfg, db, rdb)

	stage := fx.Stage(fx.Event(true), true)
	trainee := fx.Trainee(fx.Team())
	expert := fx.User(models.RoleExpert)

	traineeToken := login(t, r, trainee.User.Email)
	expertToken := login(t, r, expert.Email)

	w := request(t, r, http.MethodGet, "/api/v1/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = request(t, r, http.MethodGet, "/api/v1/admin/users", expertToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = request(t, r, http.MethodGet, "/api/v1/grade/get/report", traineeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mr.Exists(fmt.Sprintf("report:trainee:%d", trainee.ID)))

	w = request(t, r, http.MethodPost, "/api/v1/grade/create-update", expertToken, map[string]interface{}{
		"trainee": trainee.ID, "stage": stage.ID, "competence1": 2, "competence2": 1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, mr.Exists(fmt.Sprintf("report:trainee:%d", trainee.ID)), "grade write drops the cached report")

	w = request(t, r, http.MethodGet, "/api/v1/grade/get/report", traineeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Rating struct {
			General map[string]float64 `json:"general"`
			Expert  map[string]float64 `json:"expert"`
			Self    map[string]float64 `json:"self"`
		} `json:"rating"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2.0, resp.Rating.General["competence1"])
	assert.Equal(t, 1.0, resp.Rating.Expert["competence2"])
	assert.Equal(t, 0.0, resp.Rating.Self["competence1"])

	w = request(t, r, http.MethodGet, "/api/v1/grade/get/to", traineeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var received struct {
		Grades []models.Grade `json:"grades"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &received))
	require.Len(t, received.Grades, 1)
	assert.Equal(t, expert.ID, received.Grades[0].UserID)
}

func TestSwaggerServed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	r := setupRouter(&config.Config{JWTSecret: "s", UploadDir: t.TempDir()}, db, nil)

	w := request(t, r, http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Uralintern API")
}
