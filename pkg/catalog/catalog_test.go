package catalog_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docchat/pkg/catalog"
)

type fakeLister struct {
	models []string
	err    error
	calls  int
}

func (f *fakeLister) ListModels(context.Context) ([]string, error) {
	f.calls++
	return f.models, f.err
}

var _ = Describe("Catalog", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("returns the provider's models in order", func() {
		lister := &fakeLister{models: []string{"gpt-4o", "gpt-3.5-turbo"}}
		c := catalog.New(lister, 0, nil)

		Expect(c.List(ctx)).To(Equal([]string{"gpt-4o", "gpt-3.5-turbo"}))
		Expect(c.Default(ctx)).To(Equal("gpt-4o"))
	})

	It("falls back to exactly gpt-3.5-turbo when the provider fails", func() {
		c := catalog.New(&fakeLister{err: errors.New("401")}, time.Minute, nil)

		Expect(c.List(ctx)).To(Equal([]string{"gpt-3.5-turbo"}))
	})

	It("falls back when the provider returns nothing", func() {
		c := catalog.New(&fakeLister{}, 0, nil)

		Expect(c.List(ctx)).To(Equal([]string{"gpt-3.5-turbo"}))
	})

	It("reuses a successful listing until invalidated", func() {
		lister := &fakeLister{models: []string{"a"}}
		c := catalog.New(lister, time.Minute, nil)

		c.List(ctx)
		c.List(ctx)
		Expect(lister.calls).To(Equal(1))

		c.Invalidate()
		c.List(ctx)
		Expect(lister.calls).To(Equal(2))
	})

	It("does not cache fallbacks", func() {
		lister := &fakeLister{err: errors.New("timeout")}
		c := catalog.New(lister, time.Minute, nil)

		Expect(c.List(ctx)).To(Equal(catalog.Fallback()))

		lister.err = nil
		lister.models = []string{"gpt-4o"}
		Expect(c.List(ctx)).To(Equal([]string{"gpt-4o"}))
	})

	It("hands out copies", func() {
		c := catalog.New(&fakeLister{models: []string{"a", "b"}}, time.Minute, nil)

		first := c.List(ctx)
		first[0] = "mutated"
		Expect(c.List(ctx)[0]).To(Equal("a"))
	})
})
