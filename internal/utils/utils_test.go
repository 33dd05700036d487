package utils_test

import (
	"context"
	"errors"
	"fmt"
	neturl "net/url"
	"syscall"
	"time"

	"github.com/airbusgeo/coverstore/internal/utils"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"google.golang.org/api/googleapi"
)

var _ = Describe("Temporary", func() {
	var err error

	itShouldBeTemporary := func(expected bool) {
		It(fmt.Sprintf("should be temporary: %v", expected), func() {
			Expect(utils.Temporary(err)).To(Equal(expected))
		})
	}

	Context("nil", func() {
		BeforeEach(func() { err = nil })
		itShouldBeTemporary(false)
	})

	Context("marked and wrapped", func() {
		BeforeEach(func() {
			err = fmt.Errorf("load section: %w", utils.MakeTemporary(errors.New("busy")))
		})
		itShouldBeTemporary(true)
	})

	Context("marked but not wrapped", func() {
		BeforeEach(func() {
			err = fmt.Errorf("load section: %v", utils.MakeTemporary(errors.New("busy")))
		})
		itShouldBeTemporary(false)
	})

	Context("connection reset inside an url error", func() {
		BeforeEach(func() {
			err = &neturl.Error{Op: "Get", URL: "https://storage", Err: syscall.ECONNRESET}
		})
		itShouldBeTemporary(true)
	})

	Context("permission denied", func() {
		BeforeEach(func() { err = fmt.Errorf("open: %w", syscall.EACCES) })
		itShouldBeTemporary(false)
	})

	Context("google api 503", func() {
		BeforeEach(func() { err = &googleapi.Error{Code: 503} })
		itShouldBeTemporary(true)
	})

	Context("google api 429", func() {
		BeforeEach(func() { err = &googleapi.Error{Code: 429} })
		itShouldBeTemporary(true)
	})

	Context("google api 404", func() {
		BeforeEach(func() { err = &googleapi.Error{Code: 404} })
		itShouldBeTemporary(false)
	})

	Context("deadline exceeded", func() {
		BeforeEach(func() { err = fmt.Errorf("read tile: %w", context.DeadlineExceeded) })
		itShouldBeTemporary(true)
	})

	It("should not mark nil", func() {
		Expect(utils.MakeTemporary(nil)).To(BeNil())
	})
})

var _ = Describe("Backoff", func() {
	It("should wait base*2^retry", func() {
		start := time.Now()
		Expect(utils.Backoff(context.Background(), 5*time.Millisecond, 2)).To(Succeed())
		Expect(time.Since(start)).To(BeNumerically(">=", 20*time.Millisecond))
	})

	It("should stop on cancel", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(utils.Backoff(ctx, time.Hour, 0)).To(MatchError(context.Canceled))
	})
})

var _ = Describe("Arithmetic", func() {
	It("should divide rounding up", func() {
		Expect(utils.CeilDiv(32, 16)).To(Equal(2))
		Expect(utils.CeilDiv(33, 16)).To(Equal(3))
		Expect(utils.CeilDiv(0, 16)).To(Equal(0))
	})

	It("should round half up", func() {
		Expect(utils.RoundHalfUp(2.5)).To(Equal(3))
		Expect(utils.RoundHalfUp(2.49)).To(Equal(2))
		Expect(utils.RoundHalfUp(-0.4)).To(Equal(0))
	})

	It("should clamp", func() {
		Expect(utils.Clamp(5, 0, 3)).To(Equal(3))
		Expect(utils.Clamp(-1.5, 0, 3)).To(Equal(0.0))
		Expect(utils.Clamp(uint8(2), 0, 3)).To(Equal(uint8(2)))
	})

	It("should format floats", func() {
		Expect(utils.F64ToS(0.1)).To(Equal("0.1"))
		Expect(utils.F64ToS(-12)).To(Equal("-12"))
	})
})
