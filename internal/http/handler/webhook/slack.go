package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/itsnaseer/slackbrix/common/logger"
	"github.com/itsnaseer/slackbrix/internal/model"
	"github.com/itsnaseer/slackbrix/internal/queue"
	"github.com/itsnaseer/slackbrix/internal/reactor"
	"github.com/itsnaseer/slackbrix/internal/service"
)

const (
	outcomeHandled      = "handled"
	outcomeIgnored      = "ignored"
	outcomeDuplicate    = "duplicate"
	outcomeUnauthorized = "unauthorized"
	outcomeFailed       = "failed"
)

var slackEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "slackbrix_slack_events_total",
		Help: "Slack events received, by inner event type and outcome.",
	},
	[]string{"type", "outcome"},
)

// EventReactor is what the webhook dispatches authorized events to.
type EventReactor interface {
	IsHelpRequest(ev *slackevents.MessageEvent) bool
	OnChannelCreated(ctx context.Context, client reactor.SlackClient, ev *slackevents.ChannelCreatedEvent) error
	OnHelpRequested(ctx context.Context, claims model.IdentityClaims, ev *slackevents.MessageEvent) error
}

type SlackWebhookHandler struct {
	signingSecret string
	authorizer    service.Authorizer
	installations service.InstallationService
	deduper       queue.Deduper
	reactor       EventReactor
	clients       reactor.ClientFactory
}

func NewSlackWebhookHandler(
	signingSecret string,
	authorizer service.Authorizer,
	installations service.InstallationService,
	deduper queue.Deduper,
	eventReactor EventReactor,
	clients reactor.ClientFactory,
) *SlackWebhookHandler {
	return &SlackWebhookHandler{
		signingSecret: signingSecret,
		authorizer:    authorizer,
		installations: installations,
		deduper:       deduper,
		reactor:       eventReactor,
		clients:       clients,
	}
}

// envelope is the outer Events API payload. slackevents does not expose the
// authorizations block, which carries the per-install enterprise flag.
type envelope struct {
	Type                string          `json:"type"`
	Challenge           string          `json:"challenge"`
	EventID             string          `json:"event_id"`
	EnterpriseID        string          `json:"enterprise_id"`
	TeamID              string          `json:"team_id"`
	IsEnterpriseInstall bool            `json:"is_enterprise_install"`
	Authorizations      []authorization `json:"authorizations"`
	Event               struct {
		Type string `json:"type"`
	} `json:"event"`
}

type authorization struct {
	EnterpriseID        string `json:"enterprise_id"`
	TeamID              string `json:"team_id"`
	IsEnterpriseInstall bool   `json:"is_enterprise_install"`
}

func (e *envelope) claims() model.IdentityClaims {
	claims := model.IdentityClaims{
		EnterpriseID:        e.EnterpriseID,
		TeamID:              e.TeamID,
		IsEnterpriseInstall: e.IsEnterpriseInstall,
	}
	if len(e.Authorizations) > 0 {
		claims.IsEnterpriseInstall = e.Authorizations[0].IsEnterpriseInstall
	}
	return claims
}

func (h *SlackWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	if err := h.verify(c.Request.Header, body); err != nil {
		slog.WarnContext(ctx, "rejected slack request", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	switch env.Type {
	case slackevents.URLVerification:
		c.String(http.StatusOK, env.Challenge)
		return
	case slackevents.CallbackEvent:
	default:
		slog.DebugContext(ctx, "ignoring slack envelope", "type", env.Type)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	eventType := env.Event.Type
	claims := env.claims()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		EventID:      logger.Ptr(env.EventID),
		EventType:    logger.Ptr(eventType),
		EnterpriseID: optionalField(claims.EnterpriseID),
		TeamID:       optionalField(claims.TeamID),
	})

	first, err := h.deduper.FirstSeen(ctx, env.EventID)
	if err != nil {
		// A broken dedupe store must not drop events.
		slog.WarnContext(ctx, "event dedupe unavailable", "error", err)
		first = true
	}
	if !first {
		slog.InfoContext(ctx, "duplicate slack event acknowledged",
			"retry_num", c.GetHeader("X-Slack-Retry-Num"),
			"retry_reason", c.GetHeader("X-Slack-Retry-Reason"),
		)
		slackEventsTotal.WithLabelValues(eventType, outcomeDuplicate).Inc()
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	auth, err := h.authorizer.Authorize(ctx, claims)
	if err != nil {
		if errors.Is(err, service.ErrNotAuthorized) {
			slog.WarnContext(ctx, "no installation for slack event, dropping", "error", err)
			slackEventsTotal.WithLabelValues(eventType, outcomeUnauthorized).Inc()
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		h.fail(ctx, c, env.EventID, eventType, fmt.Errorf("authorizing event: %w", err))
		return
	}

	handled, err := h.dispatch(ctx, body, claims, auth)
	if err != nil {
		h.fail(ctx, c, env.EventID, eventType, err)
		return
	}

	outcome := outcomeIgnored
	if handled {
		outcome = outcomeHandled
	}
	slackEventsTotal.WithLabelValues(eventType, outcome).Inc()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *SlackWebhookHandler) verify(header http.Header, body []byte) error {
	sv, err := slack.NewSecretsVerifier(header, h.signingSecret)
	if err != nil {
		return err
	}
	if _, err := sv.Write(body); err != nil {
		return err
	}
	return sv.Ensure()
}

// dispatch routes one authorized event. It reports whether any handler ran.
func (h *SlackWebhookHandler) dispatch(ctx context.Context, body []byte, claims model.IdentityClaims, auth *model.Authorization) (bool, error) {
	ev, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		// Inner types slackevents does not know about are not ours to handle.
		slog.DebugContext(ctx, "unparsed slack event", "error", err)
		return false, nil
	}

	switch inner := ev.InnerEvent.Data.(type) {
	case *slackevents.ChannelCreatedEvent:
		if err := h.reactor.OnChannelCreated(ctx, h.clients(auth.BotToken), inner); err != nil {
			return true, fmt.Errorf("handling channel_created: %w", err)
		}
		return true, nil

	case *slackevents.MessageEvent:
		if !h.reactor.IsHelpRequest(inner) {
			return false, nil
		}
		if err := h.reactor.OnHelpRequested(ctx, claims, inner); err != nil {
			return true, fmt.Errorf("handling help request: %w", err)
		}
		slog.InfoContext(ctx, "demo conversation requested", "channel_id", inner.Channel)
		return true, nil

	case *slackevents.AppUninstalledEvent:
		// DeleteInstallation keys on the enterprise id whenever one is present,
		// so uninstalling a workspace app inside a grid org removes the org's
		// E: row and leaves the workspace's T: row. Kept on purpose.
		if err := h.installations.DeleteInstallation(ctx, claims); err != nil {
			return true, fmt.Errorf("handling app_uninstalled: %w", err)
		}
		slog.InfoContext(ctx, "app uninstalled, installation removed")
		return true, nil

	case *slackevents.TokensRevokedEvent:
		if len(inner.Tokens.Bot) == 0 {
			return false, nil
		}
		if err := h.installations.DeleteInstallation(ctx, claims); err != nil {
			return true, fmt.Errorf("handling tokens_revoked: %w", err)
		}
		slog.InfoContext(ctx, "bot tokens revoked, installation removed", "bot_tokens", len(inner.Tokens.Bot))
		return true, nil
	}

	return false, nil
}

// fail answers 500 so Slack redelivers, and releases the event id so that
// redelivery is not mistaken for a duplicate.
func (h *SlackWebhookHandler) fail(ctx context.Context, c *gin.Context, eventID, eventType string, err error) {
	slog.ErrorContext(ctx, "failed to handle slack event", "error", err)
	slackEventsTotal.WithLabelValues(eventType, outcomeFailed).Inc()

	if relErr := h.deduper.Release(ctx, eventID); relErr != nil {
		slog.WarnContext(ctx, "failed to release event id", "error", relErr)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
}

func optionalField(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
