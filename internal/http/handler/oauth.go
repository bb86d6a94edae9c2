package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/itsnaseer/slackbrix/internal/service"
)

const (
	stateCookieName = "slackbrix_oauth_state"
	stateCookieAge  = 600
)

type OAuthConfig struct {
	PublicBaseURL string
	InstallPath   string
	RedirectPath  string
	IsProduction  bool
}

type OAuthHandler struct {
	oauth service.OAuthService
	cfg   OAuthConfig
}

func NewOAuthHandler(oauth service.OAuthService, cfg OAuthConfig) *OAuthHandler {
	return &OAuthHandler{oauth: oauth, cfg: cfg}
}

// Install starts a direct install by redirecting to Slack's authorize page.
func (h *OAuthHandler) Install(c *gin.Context) {
	ctx := c.Request.Context()

	authURL, state, err := h.authorizeURL(c)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build install url", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start install"})
		return
	}

	// Binds the state to this browser on top of its signature.
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, state, stateCookieAge, "/", "", h.cfg.IsProduction, true)

	c.Redirect(http.StatusFound, authURL)
}

func (h *OAuthHandler) Callback(c *gin.Context) {
	ctx := c.Request.Context()

	code := c.Query("code")
	state := c.Query("state")

	if errParam := c.Query("error"); errParam != "" {
		slog.WarnContext(ctx, "slack oauth declined", "error", errParam)
		h.failure(c, http.StatusBadRequest, "The install was cancelled in Slack.")
		return
	}

	if err := h.oauth.VerifyState(state); err != nil {
		slog.WarnContext(ctx, "invalid oauth state", "error", err)
		h.failure(c, http.StatusBadRequest, "The install link expired or was tampered with.")
		return
	}
	stored, err := c.Cookie(stateCookieName)
	if err != nil || stored != state {
		slog.WarnContext(ctx, "oauth state not issued to this browser")
		h.failure(c, http.StatusBadRequest, "The install was started from a different browser.")
		return
	}
	c.SetCookie(stateCookieName, "", -1, "/", "", h.cfg.IsProduction, true)

	rec, err := h.oauth.HandleCallback(ctx, code, h.redirectURI(c))
	if err != nil {
		slog.ErrorContext(ctx, "failed to complete install", "error", err)
		if errors.Is(err, service.ErrInvalidCode) {
			h.failure(c, http.StatusBadRequest, "Slack rejected the authorization code.")
			return
		}
		h.failure(c, http.StatusInternalServerError, "The installation could not be saved.")
		return
	}

	slog.InfoContext(ctx, "slack app installed", "installation_id", rec.ID)

	team := ""
	if rec.TeamID != nil {
		team = *rec.TeamID
	} else if rec.EnterpriseID != nil {
		team = *rec.EnterpriseID
	}
	c.HTML(http.StatusOK, installSuccessTemplate, gin.H{"Team": team})
}

func (h *OAuthHandler) authorizeURL(c *gin.Context) (string, string, error) {
	authURL, err := h.oauth.InstallURL(h.redirectURI(c))
	if err != nil {
		return "", "", err
	}
	u, err := url.Parse(authURL)
	if err != nil {
		return "", "", err
	}
	return authURL, u.Query().Get("state"), nil
}

// redirectURI is PUBLIC_BASE_URL plus the callback path, or the request's own
// origin when no public URL is configured.
func (h *OAuthHandler) redirectURI(c *gin.Context) string {
	base := strings.TrimRight(h.cfg.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + c.Request.Host
	}
	return base + h.cfg.RedirectPath
}

func (h *OAuthHandler) failure(c *gin.Context, status int, reason string) {
	c.HTML(status, installFailureTemplate, gin.H{
		"Reason":      reason,
		"InstallPath": h.cfg.InstallPath,
	})
}
