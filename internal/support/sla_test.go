package support_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	supportdm "github.com/frahmantamala/licensestore/internal/core/datamodel/support"
	"github.com/frahmantamala/licensestore/internal/support"
)

func TestSupport(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Support Suite")
}

var _ = Describe("SLA", func() {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	Describe("PolicyFor", func() {
		It("tightens windows as priority rises", func() {
			Expect(support.PolicyFor(supportdm.PriorityUrgent).Response).To(Equal(time.Hour))
			Expect(support.PolicyFor(supportdm.PriorityHigh).Resolution).To(Equal(24 * time.Hour))
			Expect(support.PolicyFor(supportdm.PriorityLow).Response).To(Equal(24 * time.Hour))
		})

		It("falls back to medium", func() {
			Expect(support.PolicyFor("whatever")).To(Equal(support.PolicyFor(supportdm.PriorityMedium)))
		})
	})

	DescribeTable("WindowState",
		func(elapsed time.Duration, done *time.Duration, expected string) {
			due := start.Add(8 * time.Hour)
			var doneAt *time.Time
			if done != nil {
				at := start.Add(*done)
				doneAt = &at
			}
			Expect(support.WindowState(start, due, doneAt, start.Add(elapsed))).To(Equal(expected))
		},
		Entry("fresh", time.Hour, nil, support.SLAOnTrack),
		Entry("last quarter", 6*time.Hour+30*time.Minute, nil, support.SLAAtRisk),
		Entry("past due", 9*time.Hour, nil, support.SLABreached),
		Entry("met in time", 30*time.Hour, ptr(2*time.Hour), support.SLAOnTrack),
		Entry("met late", 30*time.Hour, ptr(10*time.Hour), support.SLABreached),
	)

	Describe("TicketSLA", func() {
		var t *supportdm.Ticket

		BeforeEach(func() {
			policy := support.PolicyFor(supportdm.PriorityHigh)
			t = &supportdm.Ticket{
				Priority:        supportdm.PriorityHigh,
				Status:          supportdm.TicketOpen,
				CreatedAt:       start,
				UpdatedAt:       start,
				ResponseDueAt:   start.Add(policy.Response),
				ResolutionDueAt: start.Add(policy.Resolution),
			}
		})

		It("reports the worse window overall", func() {
			response, resolution, overall := support.TicketSLA(t, start.Add(5*time.Hour))
			Expect(response).To(Equal(support.SLABreached))
			Expect(resolution).To(Equal(support.SLAOnTrack))
			Expect(overall).To(Equal(support.SLABreached))
		})

		It("stops the resolution clock when a ticket is closed unresolved", func() {
			responded := start.Add(time.Hour)
			t.FirstResponseAt = &responded
			t.Status = supportdm.TicketClosed
			t.UpdatedAt = start.Add(2 * time.Hour)

			_, resolution, overall := support.TicketSLA(t, start.Add(100*time.Hour))
			Expect(resolution).To(Equal(support.SLAOnTrack))
			Expect(overall).To(Equal(support.SLAOnTrack))
		})
	})

	Describe("CanTransitionTicket", func() {
		It("lets resolved tickets reopen", func() {
			Expect(support.CanTransitionTicket(supportdm.TicketResolved, supportdm.TicketOpen)).To(BeTrue())
		})

		It("treats closed as terminal", func() {
			Expect(support.CanTransitionTicket(supportdm.TicketClosed, supportdm.TicketOpen)).To(BeFalse())
			Expect(support.CanTransitionTicket(supportdm.TicketClosed, supportdm.TicketResolved)).To(BeFalse())
		})
	})
})

func ptr(d time.Duration) *time.Duration { return &d }
