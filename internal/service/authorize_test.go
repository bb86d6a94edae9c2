package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/itsnaseer/slackbrix/internal/model"
	"github.com/itsnaseer/slackbrix/internal/service"
	"github.com/itsnaseer/slackbrix/internal/store"
)

var _ = Describe("Authorizer", func() {
	var (
		ctx       context.Context
		mockStore *mockInstallationStore
		authz     service.Authorizer
	)

	BeforeEach(func() {
		ctx = context.Background()
		mockStore = newMockInstallationStore()
		authz = service.NewAuthorizer(service.NewInstallationService(mockStore))
	})

	It("returns the bot credentials of the matching installation", func() {
		mockStore.rows["T:T1"] = model.InstallationRecord{
			ID:        "T:T1",
			TeamID:    strPtr("T1"),
			BotToken:  "xoxb-1",
			BotID:     strPtr("B1"),
			BotUserID: strPtr("UBOT"),
		}

		auth, err := authz.Authorize(ctx, model.IdentityClaims{TeamID: "T1"})

		Expect(err).NotTo(HaveOccurred())
		Expect(auth.BotToken).To(Equal("xoxb-1"))
		Expect(auth.BotID).To(Equal("B1"))
		Expect(auth.BotUserID).To(Equal("UBOT"))
		Expect(auth.TeamID).To(Equal("T1"))
		Expect(auth.EnterpriseID).To(BeEmpty())
	})

	It("fails with ErrNotAuthorized when no installation exists", func() {
		_, err := authz.Authorize(ctx, model.IdentityClaims{TeamID: "T404"})

		Expect(errors.Is(err, service.ErrNotAuthorized)).To(BeTrue())
		Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
	})

	It("does not report storage failures as unauthorized", func() {
		mockStore.getByIDFn = func(context.Context, string) (*model.InstallationRecord, error) {
			return nil, errors.New("pool closed")
		}

		_, err := authz.Authorize(ctx, model.IdentityClaims{TeamID: "T1"})

		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, service.ErrNotAuthorized)).To(BeFalse())
	})
})
