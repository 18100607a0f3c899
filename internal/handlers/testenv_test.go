package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mvoronin/learnhub/internal/cache"
	"github.com/mvoronin/learnhub/internal/models"
	"github.com/mvoronin/learnhub/internal/session"
	"github.com/mvoronin/learnhub/internal/tokens"
)

type testEnv struct {
	T        *testing.T
	E        *echo.Echo
	DB       *gorm.DB
	Redis    *miniredis.Miniredis
	Sessions *session.Store
	Cache    *cache.CourseCache
	Issuer   *tokens.Issuer
	Mailer   *stubMailer

	A  *AuthHandler
	U  *UserHandler
	C  *CourseHandler
	O  *OrderHandler
	N  *NotificationHandler
	An *AnalyticsHandler
}

type stubMailer struct {
	Fail bool
	Sent []string
}

func (m *stubMailer) Send(recipient, subject, tmpl string, data any) error {
	if m.Fail {
		return fmt.Errorf("smtp: connection refused")
	}
	m.Sent = append(m.Sent, recipient)
	return nil
}

func InitTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Order{},
		&models.OrderItem{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := InitTestDB(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sessions := session.NewStoreWithClient(client)
	courseCache := cache.NewCourseCache(client, cache.DefaultTTL)

	issuer := &tokens.Issuer{
		AccessSecret:  []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    72 * time.Hour,
	}

	mailer := &stubMailer{}

	env := &testEnv{
		T:        t,
		E:        echo.New(),
		DB:       db,
		Redis:    mr,
		Sessions: sessions,
		Cache:    courseCache,
		Issuer:   issuer,
		Mailer:   mailer,
	}
	env.A = &AuthHandler{DB: db, Issuer: issuer, Sessions: sessions, Mailer: mailer}
	env.U = &UserHandler{DB: db, Sessions: sessions, Issuer: issuer}
	env.C = &CourseHandler{DB: db, Cache: courseCache}
	env.O = &OrderHandler{DB: db, Mailer: mailer}
	env.N = &NotificationHandler{DB: db}
	env.An = &AnalyticsHandler{DB: db}

	return env
}

func (env *testEnv) doJSONRequest(method, path string, payload any) (*httptest.ResponseRecorder, *http.Request, echo.Context) {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(env.T, err)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, req, c
}

// createUser seeds a user row plus a live session and returns the
// user; the echo context from asUser carries the session snapshot the
// same way RequireAuth would attach it.
func (env *testEnv) createUser(t *testing.T, email, role string) *models.User {
	t.Helper()

	user := models.User{
		Email:        email,
		Name:         "Test User",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, env.DB.Create(&user).Error)

	snap := session.Snapshot{ID: user.ID.String(), Email: user.Email, Name: user.Name, Role: user.Role}
	require.NoError(t, env.Sessions.Put(context.Background(), user.ID.String(), snap, env.Issuer.RefreshTTL))

	return &user
}

func (env *testEnv) asUser(c echo.Context, user *models.User) {
	c.Set("user", &session.Snapshot{
		ID:    user.ID.String(),
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	})
}
