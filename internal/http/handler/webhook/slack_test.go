package webhook_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/itsnaseer/slackbrix/common/logger"
	"github.com/itsnaseer/slackbrix/internal/http/handler/webhook"
	"github.com/itsnaseer/slackbrix/internal/model"
)

const signingSecret = "8f742231b10e8888abcd99yyyzzz85a5"

func signedRequest(body string) *http.Request {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(signingSecret))
	fmt.Fprintf(mac, "v0:%s:%s", ts, body)

	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func callback(eventID, event string) string {
	return fmt.Sprintf(`{
		"type": "event_callback",
		"team_id": "T1",
		"api_app_id": "A1",
		"event_id": %q,
		"event_time": 1700000000,
		"is_enterprise_install": false,
		"event": %s
	}`, eventID, event)
}

const helpMessage = `{"type":"message","channel":"C1","user":"U1","text":"I need help.","ts":"1700000000.000100"}`

var _ = Describe("SlackWebhookHandler", func() {
	var (
		router        *gin.Engine
		buf           *bytes.Buffer
		authorizer    *fakeAuthorizer
		installations *fakeInstallations
		deduper       *fakeDeduper
		react         *fakeReactor
	)

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		buf = &bytes.Buffer{}
		slog.SetDefault(slog.New(logger.NewTraceHandler(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))))

		authorizer = &fakeAuthorizer{}
		installations = &fakeInstallations{}
		deduper = newFakeDeduper()
		react = &fakeReactor{trigger: "I need help."}

		h := webhook.NewSlackWebhookHandler(signingSecret, authorizer, installations, deduper, react, tokenFactory)
		router.POST("/slack/events", h.HandleEvent)
	})

	Describe("request verification", func() {
		It("rejects a bad signature", func() {
			req := signedRequest(callback("Ev1", helpMessage))
			req.Header.Set("X-Slack-Signature", "v0=deadbeef")

			w := serve(req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(authorizer.claims).To(BeEmpty())
		})

		It("rejects a request with no signature headers", func() {
			req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewBufferString("{}"))

			Expect(serve(req).Code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects a stale timestamp", func() {
			body := callback("Ev1", helpMessage)
			req := signedRequest(body)
			req.Header.Set("X-Slack-Request-Timestamp", strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10))

			Expect(serve(req).Code).To(Equal(http.StatusUnauthorized))
		})
	})

	It("echoes the url_verification challenge", func() {
		w := serve(signedRequest(`{"type":"url_verification","token":"t","challenge":"3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P"}`))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P"))
	})

	Describe("claims", func() {
		It("takes the enterprise flag from the first authorization", func() {
			body := `{
				"type": "event_callback",
				"enterprise_id": "E1",
				"team_id": "T1",
				"event_id": "Ev9",
				"is_enterprise_install": false,
				"authorizations": [{"enterprise_id": "E1", "team_id": "T1", "is_enterprise_install": true}],
				"event": ` + helpMessage + `
			}`

			Expect(serve(signedRequest(body)).Code).To(Equal(http.StatusOK))
			Expect(authorizer.claims).To(ConsistOf(model.IdentityClaims{
				EnterpriseID:        "E1",
				TeamID:              "T1",
				IsEnterpriseInstall: true,
			}))
		})

		It("falls back to the top-level flag", func() {
			Expect(serve(signedRequest(callback("Ev1", helpMessage))).Code).To(Equal(http.StatusOK))
			Expect(authorizer.claims).To(ConsistOf(model.IdentityClaims{TeamID: "T1"}))
		})
	})

	Describe("dispatch", func() {
		It("enqueues a demo conversation for the trigger text", func() {
			w := serve(signedRequest(callback("Ev1", helpMessage)))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(react.helped).To(ConsistOf(model.IdentityClaims{TeamID: "T1"}))
			Expect(buf.String()).To(ContainSubstring("demo conversation requested"))
			Expect(buf.String()).To(ContainSubstring(`"event_id":"Ev1"`))
		})

		It("ignores ordinary messages", func() {
			msg := `{"type":"message","channel":"C1","user":"U1","text":"hello","ts":"1700000000.000100"}`

			Expect(serve(signedRequest(callback("Ev1", msg))).Code).To(Equal(http.StatusOK))
			Expect(react.helped).To(BeEmpty())
		})

		It("joins newly created channels with the installation's bot token", func() {
			ev := `{"type":"channel_created","channel":{"id":"C9","name":"launch","created":1700000000,"creator":"U1"}}`

			Expect(serve(signedRequest(callback("Ev2", ev))).Code).To(Equal(http.StatusOK))
			Expect(react.created).To(HaveLen(1))
			Expect(react.created[0].Channel.ID).To(Equal("C9"))
			Expect(react.createdTokens).To(ConsistOf("xoxb-test"))
		})

		It("deletes the installation on app_uninstalled", func() {
			Expect(serve(signedRequest(callback("Ev3", `{"type":"app_uninstalled"}`))).Code).To(Equal(http.StatusOK))
			Expect(installations.deleted).To(ConsistOf(model.InstallationQuery{TeamID: "T1"}))
		})

		It("deletes by enterprise id when a grid workspace uninstalls", func() {
			body := `{
				"type": "event_callback",
				"enterprise_id": "E1",
				"team_id": "T5",
				"event_id": "Ev7",
				"is_enterprise_install": false,
				"event": {"type":"app_uninstalled"}
			}`

			Expect(serve(signedRequest(body)).Code).To(Equal(http.StatusOK))
			Expect(installations.deleted).To(ConsistOf(model.InstallationQuery{EnterpriseID: "E1", TeamID: "T5"}))
		})

		It("deletes the installation when bot tokens are revoked", func() {
			ev := `{"type":"tokens_revoked","tokens":{"oauth":[],"bot":["UBOT"]}}`

			Expect(serve(signedRequest(callback("Ev4", ev))).Code).To(Equal(http.StatusOK))
			Expect(installations.deleted).To(HaveLen(1))
		})

		It("keeps the installation when only user tokens are revoked", func() {
			ev := `{"type":"tokens_revoked","tokens":{"oauth":["U1"]}}`

			Expect(serve(signedRequest(callback("Ev5", ev))).Code).To(Equal(http.StatusOK))
			Expect(installations.deleted).To(BeEmpty())
		})

		It("acknowledges event types it does not handle", func() {
			ev := `{"type":"reaction_added","user":"U1","reaction":"tada","item":{"type":"message","channel":"C1","ts":"1.2"}}`

			Expect(serve(signedRequest(callback("Ev6", ev))).Code).To(Equal(http.StatusOK))
			Expect(react.helped).To(BeEmpty())
			Expect(installations.deleted).To(BeEmpty())
		})
	})

	Describe("deduplication", func() {
		It("acknowledges a redelivered event without handling it twice", func() {
			body := callback("Ev1", helpMessage)

			Expect(serve(signedRequest(body)).Code).To(Equal(http.StatusOK))
			retry := signedRequest(body)
			retry.Header.Set("X-Slack-Retry-Num", "1")
			Expect(serve(retry).Code).To(Equal(http.StatusOK))

			Expect(react.helped).To(HaveLen(1))
			Expect(authorizer.claims).To(HaveLen(1))
			Expect(buf.String()).To(ContainSubstring("duplicate slack event acknowledged"))
		})

		It("still handles events when the dedupe store fails", func() {
			deduper.err = errors.New("redis down")

			Expect(serve(signedRequest(callback("Ev1", helpMessage))).Code).To(Equal(http.StatusOK))
			Expect(react.helped).To(HaveLen(1))
		})
	})

	Describe("authorization failures", func() {
		It("acknowledges and drops events with no installation", func() {
			authorizer.err = notAuthorized()

			w := serve(signedRequest(callback("Ev1", helpMessage)))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(react.helped).To(BeEmpty())
			Expect(buf.String()).To(ContainSubstring("no installation for slack event"))
		})

		It("answers 500 on other errors so Slack retries", func() {
			authorizer.err = errors.New("connection refused")

			w := serve(signedRequest(callback("Ev1", helpMessage)))

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(deduper.released).To(ConsistOf("Ev1"))
		})
	})

	It("releases the event id when a handler fails", func() {
		react.helpErr = errors.New("xadd failed")
		body := callback("Ev1", helpMessage)

		Expect(serve(signedRequest(body)).Code).To(Equal(http.StatusInternalServerError))

		react.helpErr = nil
		Expect(serve(signedRequest(body)).Code).To(Equal(http.StatusOK))
		Expect(react.helped).To(HaveLen(2))
	})
})
