package jobs_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/licensestore/internal/jobs"
)

func TestJobs(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Jobs Suite")
}

var _ = ginkgo.Describe("Scheduler", func() {
	var scheduler *jobs.Scheduler

	ginkgo.BeforeEach(func() {
		scheduler = jobs.NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	count := func(n int) jobs.Func {
		return func(ctx context.Context) (int, error) { return n, nil }
	}

	ginkgo.It("rejects bad schedules and duplicate names", func() {
		gomega.Expect(scheduler.Add(jobs.Job{Name: "sla", Schedule: "every now and then", Run: count(0)})).ToNot(gomega.Succeed())
		gomega.Expect(scheduler.Add(jobs.Job{Name: "sla", Schedule: "*/10 * * * *", Run: count(0)})).To(gomega.Succeed())
		gomega.Expect(scheduler.Add(jobs.Job{Name: "sla", Schedule: "*/5 * * * *", Run: count(0)})).ToNot(gomega.Succeed())
		gomega.Expect(scheduler.Add(jobs.Job{Name: "nameless", Schedule: "* * * * *"})).ToNot(gomega.Succeed())
		gomega.Expect(scheduler.Names()).To(gomega.Equal([]string{"sla"}))
	})

	ginkgo.It("runs a job on demand", func() {
		gomega.Expect(scheduler.Add(jobs.Job{Name: "expire", Schedule: "0 * * * *", Run: count(3)})).To(gomega.Succeed())

		n, err := scheduler.RunNow(context.Background(), "expire")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(n).To(gomega.Equal(3))

		_, err = scheduler.RunNow(context.Background(), "missing")
		gomega.Expect(err).To(gomega.HaveOccurred())
	})

	ginkgo.It("bounds a run with the job timeout", func() {
		gomega.Expect(scheduler.Add(jobs.Job{
			Name:     "slow",
			Schedule: "* * * * *",
			Timeout:  10 * time.Millisecond,
			Run: func(ctx context.Context) (int, error) {
				<-ctx.Done()
				return 0, ctx.Err()
			},
		})).To(gomega.Succeed())

		_, err := scheduler.RunNow(context.Background(), "slow")
		gomega.Expect(errors.Is(err, context.DeadlineExceeded)).To(gomega.BeTrue())
	})

	ginkgo.It("plans the next run once started", func() {
		gomega.Expect(scheduler.Add(jobs.Job{Name: "reconcile", Schedule: "* * * * *", Run: count(0)})).To(gomega.Succeed())
		gomega.Expect(scheduler.Next("reconcile")).To(gomega.BeZero())

		scheduler.Start()
		defer scheduler.Stop(context.Background())

		next := scheduler.Next("reconcile")
		gomega.Expect(next).To(gomega.BeTemporally(">", time.Now()))
		gomega.Expect(next).To(gomega.BeTemporally("<=", time.Now().Add(time.Minute)))
	})
})
