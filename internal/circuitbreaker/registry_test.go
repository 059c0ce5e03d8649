package circuitbreaker_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/circuit-breaker/internal/circuitbreaker"
)

var _ = Describe("Registry", func() {
	var (
		registry *circuitbreaker.Registry
		cfg      circuitbreaker.Config
		ctx      context.Context
	)

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry(quietLogger())
		cfg = circuitbreaker.DefaultConfig()
		ctx = context.Background()
	})

	Describe("GetOrCreate", func() {
		It("should create a new breaker for an unknown name", func() {
			cb, err := registry.GetOrCreate("cache", cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(cb).NotTo(BeNil())
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should return the same breaker for the same name", func() {
			cb1, err := registry.GetOrCreate("cache", cfg)
			Expect(err).NotTo(HaveOccurred())
			cb2, err := registry.GetOrCreate("cache", cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(cb1).To(BeIdenticalTo(cb2))
		})

		It("should return different breakers for different names", func() {
			cb1, err := registry.GetOrCreate("cache", cfg)
			Expect(err).NotTo(HaveOccurred())
			cb2, err := registry.GetOrCreate("queue", cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(cb1).NotTo(BeIdenticalTo(cb2))
		})

		It("should keep the first configuration for an existing name", func() {
			cb1, err := registry.GetOrCreate("cache", circuitbreaker.Config{
				FailureThreshold: 2,
				SuccessThreshold: 1,
				RecoveryTimeout:  time.Second,
				HalfOpenMaxCalls: 1,
			})
			Expect(err).NotTo(HaveOccurred())

			cb2, err := registry.GetOrCreate("cache", circuitbreaker.Config{
				FailureThreshold: 9,
				SuccessThreshold: 9,
				RecoveryTimeout:  time.Minute,
				HalfOpenMaxCalls: 9,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(cb2).To(BeIdenticalTo(cb1))
			Expect(cb2.Config().FailureThreshold).To(Equal(2))
		})

		It("should surface configuration errors", func() {
			_, err := registry.GetOrCreate("bad", circuitbreaker.Config{})
			Expect(err).To(HaveOccurred())
		})

		It("should yield exactly one instance for concurrent first lookups", func() {
			const goroutines = 100

			var wg sync.WaitGroup
			breakers := make([]*circuitbreaker.CircuitBreaker, goroutines)

			wg.Add(goroutines)
			for i := 0; i < goroutines; i++ {
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					cb, err := registry.GetOrCreate("shared", cfg)
					Expect(err).NotTo(HaveOccurred())
					breakers[i] = cb
				}(i)
			}
			wg.Wait()

			for i := 1; i < goroutines; i++ {
				Expect(breakers[i]).To(BeIdenticalTo(breakers[0]))
			}
		})
	})

	Describe("Lookup", func() {
		It("should report absence without creating an entry", func() {
			cb, exists := registry.Lookup("missing")
			Expect(exists).To(BeFalse())
			Expect(cb).To(BeNil())
			Expect(registry.Names()).To(BeEmpty())
		})

		It("should find an existing breaker", func() {
			created, err := registry.GetOrCreate("cache", cfg)
			Expect(err).NotTo(HaveOccurred())

			found, exists := registry.Lookup("cache")
			Expect(exists).To(BeTrue())
			Expect(found).To(BeIdenticalTo(created))
		})
	})

	Describe("Reset", func() {
		trip := func(cb *circuitbreaker.CircuitBreaker) {
			for i := 0; i < cb.Config().FailureThreshold; i++ {
				Expect(cb.Do(ctx, fail)).To(MatchError(errBoom))
			}
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
		}

		It("should reset a single named breaker", func() {
			cb, err := registry.GetOrCreate("cache", cfg)
			Expect(err).NotTo(HaveOccurred())
			trip(cb)

			Expect(registry.Reset("cache")).To(BeTrue())
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(cb.Metrics()).To(Equal(circuitbreaker.Metrics{}))
		})

		It("should report false for an unknown name", func() {
			Expect(registry.Reset("missing")).To(BeFalse())
		})

		It("should reset every breaker without removing entries", func() {
			cb1, err := registry.GetOrCreate("cache", cfg)
			Expect(err).NotTo(HaveOccurred())
			cb2, err := registry.GetOrCreate("queue", cfg)
			Expect(err).NotTo(HaveOccurred())
			trip(cb1)
			trip(cb2)

			registry.ResetAll()

			Expect(cb1.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(cb2.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(registry.Names()).To(ConsistOf("cache", "queue"))
		})
	})

	Describe("Snapshot", func() {
		It("should return the status of every breaker", func() {
			cb, err := registry.GetOrCreate("cache", cfg)
			Expect(err).NotTo(HaveOccurred())
			_, err = registry.GetOrCreate("queue", cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(cb.Do(ctx, succeed)).To(Succeed())

			snapshot := registry.Snapshot()
			Expect(snapshot).To(HaveLen(2))
			Expect(snapshot["cache"].State).To(Equal("CLOSED"))
			Expect(snapshot["cache"].Metrics.TotalCalls).To(Equal(int64(1)))
			Expect(snapshot["cache"].SuccessRate).To(BeNumerically("==", 100))
			Expect(snapshot["queue"].Metrics.TotalCalls).To(BeZero())
		})

		It("should be empty for a fresh registry", func() {
			Expect(registry.Snapshot()).To(BeEmpty())
		})
	})
})
