package ratelimit

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRateLimit(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RateLimit Suite")
}

var _ = Describe("Limiter", func() {
	var (
		limiter *Limiter
		clock   time.Time
	)

	newLimiter := func(cfg Config) *Limiter {
		l := New(cfg)
		l.now = func() time.Time { return clock }
		return l
	}

	BeforeEach(func() {
		clock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		limiter = newLimiter(Config{
			AnonLimit:          3,
			AuthLimit:          5,
			Window:             time.Minute,
			CountAuthAgainstIP: true,
		})
	})

	Describe("anonymous requests", func() {
		It("admits up to the limit and then rejects", func() {
			for i := 0; i < 3; i++ {
				decision := limiter.Allow("10.0.0.1", "")
				Expect(decision.Limited).To(BeFalse())
				Expect(decision.Limit).To(Equal(3))
				Expect(decision.Remaining).To(Equal(2 - i))
			}

			decision := limiter.Allow("10.0.0.1", "")
			Expect(decision.Limited).To(BeTrue())
			Expect(decision.Remaining).To(Equal(0))
		})

		It("tracks addresses independently", func() {
			for i := 0; i < 3; i++ {
				limiter.Allow("10.0.0.1", "")
			}
			Expect(limiter.Allow("10.0.0.1", "").Limited).To(BeTrue())
			Expect(limiter.Allow("10.0.0.2", "").Limited).To(BeFalse())
		})

		It("re-admits once the window has elapsed", func() {
			for i := 0; i < 3; i++ {
				limiter.Allow("10.0.0.1", "")
			}
			Expect(limiter.Allow("10.0.0.1", "").Limited).To(BeTrue())

			clock = clock.Add(61 * time.Second)
			Expect(limiter.Allow("10.0.0.1", "").Limited).To(BeFalse())
		})

		It("frees capacity gradually as old requests age out", func() {
			limiter.Allow("10.0.0.1", "")
			clock = clock.Add(30 * time.Second)
			limiter.Allow("10.0.0.1", "")
			limiter.Allow("10.0.0.1", "")
			Expect(limiter.Allow("10.0.0.1", "").Limited).To(BeTrue())

			// Only the first request has aged out: one slot back.
			clock = clock.Add(31 * time.Second)
			Expect(limiter.Allow("10.0.0.1", "").Limited).To(BeFalse())
			Expect(limiter.Allow("10.0.0.1", "").Limited).To(BeTrue())
		})
	})

	Describe("authenticated requests", func() {
		It("governs by token with the higher limit", func() {
			for i := 0; i < 5; i++ {
				decision := limiter.Allow("10.0.0.1", "token-a")
				Expect(decision.Limited).To(BeFalse())
				Expect(decision.Limit).To(Equal(5))
			}
			Expect(limiter.Allow("10.0.0.1", "token-a").Limited).To(BeTrue())
		})

		It("tracks tokens independently of each other", func() {
			for i := 0; i < 5; i++ {
				limiter.Allow("10.0.0.1", "token-a")
			}
			Expect(limiter.Allow("10.0.0.1", "token-a").Limited).To(BeTrue())
			Expect(limiter.Allow("10.0.0.1", "token-b").Limited).To(BeFalse())
		})

		It("charges the IP bucket too when configured", func() {
			limiter.Allow("10.0.0.1", "token-a")
			limiter.Allow("10.0.0.1", "token-b")
			limiter.Allow("10.0.0.1", "token-c")

			// Three authenticated requests consumed the whole anonymous
			// budget for this address.
			Expect(limiter.Allow("10.0.0.1", "").Limited).To(BeTrue())
		})

		It("leaves the IP bucket alone when not configured", func() {
			limiter = newLimiter(Config{
				AnonLimit:          3,
				AuthLimit:          5,
				Window:             time.Minute,
				CountAuthAgainstIP: false,
			})

			limiter.Allow("10.0.0.1", "token-a")
			limiter.Allow("10.0.0.1", "token-b")
			limiter.Allow("10.0.0.1", "token-c")

			Expect(limiter.Allow("10.0.0.1", "").Limited).To(BeFalse())
		})
	})

	Describe("reset metadata", func() {
		It("points a loaded window at the oldest request's expiry", func() {
			first := clock
			limiter.Allow("10.0.0.1", "")
			clock = clock.Add(10 * time.Second)
			limiter.Allow("10.0.0.1", "")
			limiter.Allow("10.0.0.1", "")

			decision := limiter.Allow("10.0.0.1", "")
			Expect(decision.Limited).To(BeTrue())
			Expect(decision.Reset).To(Equal(first.Add(time.Minute).Unix()))
		})

		It("points an empty window a full window ahead", func() {
			decision := limiter.Allow("10.0.0.1", "")
			Expect(decision.Reset).To(Equal(clock.Add(time.Minute).Unix()))
		})
	})

	Describe("periodic sweep", func() {
		It("drops idle keys after enough checks", func() {
			limiter.Allow("10.0.0.9", "")
			clock = clock.Add(2 * time.Minute)

			// Keep a different key busy past the sweep threshold.
			for i := 0; i < sweepEvery+1; i++ {
				limiter.Allow("10.0.0.1", "")
				clock = clock.Add(time.Minute)
			}

			limiter.mu.Lock()
			_, exists := limiter.ipBucket["10.0.0.9"]
			limiter.mu.Unlock()
			Expect(exists).To(BeFalse())
		})
	})

	Describe("concurrent access", func() {
		It("never admits more than the limit", func() {
			limiter = newLimiter(Config{
				AnonLimit:          50,
				AuthLimit:          50,
				Window:             time.Minute,
				CountAuthAgainstIP: true,
			})

			admitted := make(chan bool, 200)
			done := make(chan struct{})
			for w := 0; w < 4; w++ {
				go func() {
					for i := 0; i < 50; i++ {
						admitted <- !limiter.Allow("10.0.0.1", "").Limited
					}
					done <- struct{}{}
				}()
			}
			for w := 0; w < 4; w++ {
				<-done
			}
			close(admitted)

			count := 0
			for ok := range admitted {
				if ok {
					count++
				}
			}
			Expect(count).To(Equal(50))
		})
	})
})
