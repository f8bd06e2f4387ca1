package answer_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/answer"
	"github.com/papercomputeco/stacks/pkg/retrieval"
)

func TestAnswer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Answer Suite")
}

var _ = Describe("Concat", func() {
	var synth *answer.Concat

	BeforeEach(func() {
		synth = answer.NewConcat()
	})

	It("explains when no chunks are relevant", func() {
		out, err := synth.Synthesize(context.Background(), "anything?", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("couldn't find any relevant information"))
	})

	It("joins ranked chunk texts most relevant first", func() {
		chunks := []retrieval.Result{
			{ChunkText: "first", Score: 0.1},
			{ChunkText: "second", Score: 0.4},
		}
		out, err := synth.Synthesize(context.Background(), "anything?", chunks)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix("Based on the document"))
		Expect(out).To(ContainSubstring("first\n\nsecond"))
	})
})
