package nop_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stacks/pkg/eventstream"
	"github.com/papercomputeco/stacks/pkg/eventstream/nop"
)

func TestNop(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Nop Publisher Suite")
}

var _ = Describe("Publisher", func() {
	var publisher *nop.Publisher

	BeforeEach(func() {
		publisher = nop.NewPublisher()
	})

	It("accepts a well-formed event", func() {
		err := publisher.PublishDocumentIngested(context.Background(), &eventstream.DocumentIngestedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeDocumentIngested,
			EventID:       "test-event",
			EmittedAt:     time.Now(),
			Document:      eventstream.DocumentMeta{ID: 1, Filename: "doc.pdf"},
			ChunksStored:  3,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects a nil event", func() {
		err := publisher.PublishDocumentIngested(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilEvent))
	})

	It("closes without error", func() {
		Expect(publisher.Close()).To(Succeed())
	})
})
