package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/itsnaseer/slackbrix/internal/http/handler"
	"github.com/itsnaseer/slackbrix/internal/model"
)

var _ = Describe("InstallationHandler", func() {
	var (
		router *gin.Engine
		svc    *mockInstallationService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockInstallationService{}
		h := handler.NewInstallationHandler(svc)
		router.GET("/installations", h.List)
		router.DELETE("/installations", h.Delete)
	})

	serve := func(method, target string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, target, nil))
		return w
	}

	Describe("List", func() {
		It("returns installations without bot tokens", func() {
			team := "T1"
			var gotLimit, gotOffset int32
			svc.listFn = func(_ context.Context, limit, offset int32) ([]model.InstallationRecord, error) {
				gotLimit, gotOffset = limit, offset
				return []model.InstallationRecord{
					{ID: "T:T1", TeamID: &team, BotToken: "xoxb-secret", TokenType: "bot", Scopes: []string{"chat:write"}},
				}, nil
			}

			w := serve(http.MethodGet, "/installations?offset=10")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).NotTo(ContainSubstring("xoxb-secret"))
			Expect(gotLimit).To(Equal(int32(50)))
			Expect(gotOffset).To(Equal(int32(10)))

			var resp struct {
				Installations []map[string]any `json:"installations"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Installations).To(HaveLen(1))
			Expect(resp.Installations[0]["id"]).To(Equal("T:T1"))
			Expect(resp.Installations[0]["is_enterprise_install"]).To(BeFalse())
		})

		It("rejects an out of range limit", func() {
			Expect(serve(http.MethodGet, "/installations?limit=1000").Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 500 when the store fails", func() {
			svc.listFn = func(context.Context, int32, int32) ([]model.InstallationRecord, error) {
				return nil, errors.New("boom")
			}
			Expect(serve(http.MethodGet, "/installations").Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Delete", func() {
		It("deletes by team id", func() {
			var got model.InstallationQuery
			svc.deleteFn = func(_ context.Context, q model.InstallationQuery) error {
				got = q
				return nil
			}

			w := serve(http.MethodDelete, "/installations?team_id=T1")

			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(got).To(Equal(model.InstallationQuery{TeamID: "T1"}))
		})

		It("passes the enterprise id through", func() {
			var got model.InstallationQuery
			svc.deleteFn = func(_ context.Context, q model.InstallationQuery) error {
				got = q
				return nil
			}

			Expect(serve(http.MethodDelete, "/installations?enterprise_id=E1").Code).To(Equal(http.StatusNoContent))
			Expect(got.EnterpriseID).To(Equal("E1"))
		})

		It("requires an identifier", func() {
			Expect(serve(http.MethodDelete, "/installations").Code).To(Equal(http.StatusBadRequest))
		})
	})
})
