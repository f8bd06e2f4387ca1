package extract_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/extract"
)

func TestExtract(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Extract Suite")
}

var _ = Describe("PlainText", func() {
	var (
		extractor *extract.PlainText
		ctx       context.Context
	)

	BeforeEach(func() {
		extractor = extract.NewPlainText()
		ctx = context.Background()
	})

	It("passes UTF-8 bytes through unchanged", func() {
		text, err := extractor.Extract(ctx, []byte("héllo wörld"))
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("héllo wörld"))
	})

	It("returns an empty string for empty input", func() {
		text, err := extractor.Extract(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(BeEmpty())
	})

	It("rejects invalid UTF-8", func() {
		_, err := extractor.Extract(ctx, []byte{0xff, 0xfe, 0xfd})
		Expect(err).To(MatchError(extract.ErrExtraction))
	})
})

var _ = Describe("PDF", func() {
	It("wraps unreadable input in ErrExtraction", func() {
		extractor := extract.NewPDF()
		_, err := extractor.Extract(context.Background(), []byte("not a pdf at all"))
		Expect(err).To(MatchError(extract.ErrExtraction))
	})
})
