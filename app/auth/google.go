package auth

import (
	"net/http"
	"strings"

	"meshvault/model-api/internal"
	"meshvault/model-api/internal/model"
	"meshvault/model-api/internal/service"
	"meshvault/model-api/pkg/util"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const stateCookie = "oauth_state"

// GoogleLogin kicks off the OAuth code flow. The random state lands in a
// short-lived cookie and must echo back on the callback.
func GoogleLogin(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	state, err := util.GenerateToken(16)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate OAuth state", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.SetCookie(stateCookie, state, 600, "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, service.GoogleOAuthConfig().AuthCodeURL(state))
}

// GoogleCallback finishes the flow: verify state, exchange the code, then
// find or create a verified user for the Google identity and hand the
// frontend a token via redirect.
func GoogleCallback(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	frontend := viper.GetString("host.frontend_url")

	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || c.Query("state") != state {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid OAuth state",
			"requestID": requestID,
		})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusTemporaryRedirect, frontend+"/login?error=oauth_failed")
		return
	}

	gu, err := service.FetchGoogleUser(c.Request.Context(), service.GoogleOAuthConfig(), code)
	if err != nil {
		zap.L().Error("Google OAuth exchange failed", zap.Error(err), zap.String("requestID", requestID))
		c.Redirect(http.StatusTemporaryRedirect, frontend+"/login?error=oauth_failed")
		return
	}

	var user model.User
	err = d.DB.
		Where("email = ?", strings.ToLower(gu.Email)).
		First(&user).
		Error
	if err == gorm.ErrRecordNotFound {
		user, err = createGoogleUser(d, gu)
	}
	if err != nil {
		zap.L().Error("Failed to find or create Google user", zap.Error(err), zap.String("requestID", requestID))
		c.Redirect(http.StatusTemporaryRedirect, frontend+"/login?error=oauth_failed")
		return
	}

	token, err := makeToken(&user)
	if err != nil {
		zap.L().Error("Failed to generate JWT auth token", zap.Error(err), zap.String("requestID", requestID))
		c.Redirect(http.StatusTemporaryRedirect, frontend+"/login?error=oauth_failed")
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, frontend+"/login?token="+token)
}

func createGoogleUser(d *internal.Deps, gu *service.GoogleUser) (model.User, error) {
	userID, err := gonanoid.Generate(idCharset, 16)
	if err != nil {
		return model.User{}, err
	}

	user := model.User{
		ID:            userID,
		Username:      googleUsername(gu),
		Email:         strings.ToLower(gu.Email),
		FullName:      gu.Name,
		EmailVerified: true, // Google already verified the address
	}

	if err := d.DB.Create(&user).Error; err != nil {
		// Most likely a username collision, retry once with a random suffix
		user.Username = user.Username + "-" + strings.ToLower(util.RandStr(4))
		if err := d.DB.Create(&user).Error; err != nil {
			return model.User{}, err
		}
	}

	return user, nil
}

// googleUsername derives a username from the Google profile, falling back to
// the mailbox name.
func googleUsername(gu *service.GoogleUser) string {
	name := strings.ToLower(strings.ReplaceAll(gu.Name, " ", "-"))
	name = strings.Trim(name, "-")

	if name == "" {
		name, _, _ = strings.Cut(gu.Email, "@")
	}

	if len(name) > 32 {
		name = name[:32]
	}

	return name
}
