package handler

import (
	"encoding/json"
	"net/http"

	"fitcrush/config"
	"fitcrush/internal/models"
	"fitcrush/internal/repository"
	"fitcrush/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

const oauthStateCookie = "fitcrush_oauth_state"

type GoogleOAuthHandler struct {
	cfg       *config.Config
	authSvc   *service.AuthService
	auditRepo *repository.AuditLogRepository
}

func NewGoogleOAuthHandler(cfg *config.Config, authSvc *service.AuthService, auditRepo *repository.AuditLogRepository) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{cfg: cfg, authSvc: authSvc, auditRepo: auditRepo}
}

func (h *GoogleOAuthHandler) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.cfg.OAuth.GoogleClientID,
		ClientSecret: h.cfg.OAuth.GoogleClientSecret,
		RedirectURL:  h.cfg.OAuth.GoogleRedirectURL,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

func (h *GoogleOAuthHandler) configured(c *gin.Context) bool {
	if h.cfg.OAuth.GoogleClientID == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google OAuth not configured", "code": "oauth_disabled"})
		return false
	}
	return true
}

// Redirect redirects user to Google consent screen.
func (h *GoogleOAuthHandler) Redirect(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	state := uuid.NewString()
	c.SetCookie(oauthStateCookie, state, 600, "/", "", h.cfg.IsProduction(), true)
	c.Redirect(http.StatusFound, h.OAuth2Config().AuthCodeURL(state, oauth2.AccessTypeOffline))
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Callback exchanges the code, fetches the Google profile and signs the user in.
func (h *GoogleOAuthHandler) Callback(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	state, _ := c.Cookie(oauthStateCookie)
	if state == "" || state != c.Query("state") {
		badRequest(c, "invalid oauth state")
		return
	}
	code := c.Query("code")
	if code == "" {
		badRequest(c, "missing code")
		return
	}
	ctx := c.Request.Context()
	conf := h.OAuth2Config()
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		badRequest(c, "exchange failed")
		return
	}
	resp, err := conf.Client(ctx, tok).Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		respondError(c, err)
		return
	}
	defer resp.Body.Close()
	var info googleUserInfo
	if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&info) != nil || info.ID == "" {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to get user info", "code": "oauth_failed"})
		return
	}
	u, tokens, isNew, err := h.authSvc.LoginWithGoogle(ctx, service.GoogleProfile{
		ID: info.ID, Email: info.Email, Name: info.Name, Picture: info.Picture,
	}, "")
	if err != nil {
		respondError(c, err)
		return
	}
	h.audit(u.ID, c)
	if h.cfg.OAuth.FrontendURL != "" {
		c.Redirect(http.StatusFound, h.cfg.OAuth.FrontendURL+"#access_token="+tokens.AccessToken+"&refresh_token="+tokens.RefreshToken)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "access_token": tokens.AccessToken, "refresh_token": tokens.RefreshToken, "is_new": isNew})
}

// Token accepts an ID token from the mobile Google sign-in SDK.
func (h *GoogleOAuthHandler) Token(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	var req struct {
		IDToken      string `json:"id_token" binding:"required"`
		ReferralCode string `json:"referral_code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "id_token required")
		return
	}
	ctx := c.Request.Context()
	payload, err := idtoken.Validate(ctx, req.IDToken, h.cfg.OAuth.GoogleClientID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid id token", "code": "invalid_token"})
		return
	}
	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	u, tokens, isNew, err := h.authSvc.LoginWithGoogle(ctx, service.GoogleProfile{
		ID: payload.Subject, Email: email, Name: name, Picture: picture,
	}, req.ReferralCode)
	if err != nil {
		respondError(c, err)
		return
	}
	h.audit(u.ID, c)
	c.JSON(http.StatusOK, gin.H{"user": u, "access_token": tokens.AccessToken, "refresh_token": tokens.RefreshToken, "is_new": isNew})
}

func (h *GoogleOAuthHandler) audit(userID uint, c *gin.Context) {
	if h.auditRepo == nil {
		return
	}
	_ = h.auditRepo.Create(&models.AuditLog{UserID: &userID, Action: "google_login", Resource: "auth", IP: c.ClientIP(), UserAgent: c.Request.UserAgent()})
}
