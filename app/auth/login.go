package auth

import (
	"net/http"
	"strings"
	"time"

	"meshvault/model-api/internal"
	"meshvault/model-api/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tokenTTL = time.Hour * 24 * 7

type loginBody struct {
	Username string `json:"username"` // Username or email
	Password string `json:"password"`
}

func Login(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data loginBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Malformed or invalid JSON request body",
			"requestID": requestID,
		})
		return
	}

	if data.Username == "" || data.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Username and password fields can't be empty",
			"requestID": requestID,
		})
		return
	}

	// Usernames are case sensitive, stored emails are lowercase
	var user model.User
	err := d.DB.
		Where("username = ? OR email = ?", data.Username, strings.ToLower(data.Username)).
		First(&user).
		Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			loginPending(c, d, requestID, data)
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to look up user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if user.PasswordHash == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "This account uses Google sign-in. Please click 'Sign in with Google'",
			"requestID": requestID,
		})
		return
	}

	ok, err := d.Argon.VerifyPasswd(data.Password, user.PasswordHash)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to verify password", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":     "Invalid credentials",
			"requestID": requestID,
		})
		return
	}

	if !user.EmailVerified {
		c.JSON(http.StatusForbidden, gin.H{
			"error":     "Email not verified. Please check your inbox for the verification link",
			"requestID": requestID,
		})
		return
	}

	token, err := makeToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate JWT auth token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// loginPending handles the case where the credentials belong to a not yet
// verified registration. With a matching password the caller gets told to
// verify their email instead of a generic credentials error.
func loginPending(c *gin.Context, d *internal.Deps, requestID string, data loginBody) {
	var pending model.PendingRegistration
	err := d.DB.
		Where("username = ? OR email = ?", data.Username, strings.ToLower(data.Username)).
		First(&pending).
		Error
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":     "Invalid credentials",
			"requestID": requestID,
		})
		return
	}

	ok, err := d.Argon.VerifyPasswd(data.Password, pending.PasswordHash)
	if err != nil || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":     "Invalid credentials",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusForbidden, gin.H{
		"error":     "Email not verified. Please check your inbox for the verification link",
		"requestID": requestID,
	})
}

func makeToken(u *model.User) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  u.ID,
		"username": u.Username,
		"is_admin": u.IsAdmin,
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(tokenTTL).Unix(),
	})

	return t.SignedString([]byte(viper.GetString("security.jwt_secret")))
}
