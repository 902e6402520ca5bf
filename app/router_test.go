package app

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meshvault/model-api/app/models"
	"meshvault/model-api/db"
	"meshvault/model-api/internal"
	"meshvault/model-api/internal/model"
	"meshvault/model-api/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func bearerFor(t *testing.T, userID string) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"username": userID,
		"is_admin": false,
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	signed, err := tok.SignedString([]byte(viper.GetString("security.jwt_secret")))
	require.NoError(t, err)
	return "Bearer " + signed
}

// The response cache on model routes must never hand one user's cached
// response to another. Both users request the same URI here, within the
// cache TTL.
func TestModelCacheIsScopedPerUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	viper.Set("security.jwt_secret", "test-secret")
	viper.Set("storage.type", "db")

	conn, err := gorm.Open(sqlite.Open("file:router_cache_test?mode=memory&cache=shared"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	d := &internal.Deps{DB: conn}

	for _, id := range []string{"cacheowner000001", "cacheother000001"} {
		require.NoError(t, conn.Create(&model.User{
			ID:            id,
			Username:      id,
			Email:         id + "@example.com",
			PasswordHash:  "$argon2id$fake",
			EmailVerified: true,
		}).Error)
	}

	m := model.Model{
		ID:     uuid.New(),
		UserID: "cacheowner000001",
		Name:   "Private",
		Format: "stl",
		Size:   10,
	}
	require.NoError(t, conn.Create(&m).Error)

	r := gin.New()
	r.Use(middleware.NewRequestIDMiddleware())
	r.GET("/api/models/:id", middleware.NewJWTMiddleware(conn), cacheFor(30), func(c *gin.Context) {
		models.Fetch(c, d)
	})

	get := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/models/%s", m.ID), nil)
		req.Header.Set("Authorization", token)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	owner := bearerFor(t, "cacheowner000001")
	other := bearerFor(t, "cacheother000001")

	// The owner primes the cache, the other user must still see a 404
	w := get(owner)
	require.Equal(t, http.StatusOK, w.Code)

	w = get(other)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.NotContains(t, w.Body.String(), "Private")

	// And the other user's cached 404 must not shadow the owner's model
	w = get(owner)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Private")
}
