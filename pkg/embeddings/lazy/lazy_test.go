package lazy_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/embeddings"
	"github.com/papercomputeco/stacks/pkg/embeddings/lazy"
)

func TestLazy(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Lazy Embedder Suite")
}

// stubBackend is a fixed-output embeddings backend for exercising the
// lazy wrapper without a model server.
type stubBackend struct {
	vector []float32
	err    error
	calls  atomic.Int64
}

func (s *stubBackend) Embed(_ context.Context, _ string) ([]float32, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubBackend) Close() error { return nil }

var _ = Describe("Embedder", func() {
	var logger *zap.Logger

	BeforeEach(func() {
		logger = zap.NewNop()
	})

	It("returns a zero-length vector for blank input without loading the model", func() {
		loads := 0
		e := lazy.NewEmbedder(func() (embeddings.Embedder, error) {
			loads++
			return &stubBackend{vector: []float32{1, 0, 0}}, nil
		}, logger)

		for _, blank := range []string{"", "   ", "\n\t "} {
			vec, err := e.Embed(context.Background(), blank)
			Expect(err).NotTo(HaveOccurred())
			Expect(vec).To(BeEmpty())
			Expect(vec).NotTo(BeNil())
		}
		Expect(loads).To(BeZero())
	})

	It("loads the backend exactly once across sequential calls", func() {
		loads := 0
		e := lazy.NewEmbedder(func() (embeddings.Embedder, error) {
			loads++
			return &stubBackend{vector: []float32{3, 4}}, nil
		}, logger)

		for range 5 {
			_, err := e.Embed(context.Background(), "hello")
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(loads).To(Equal(1))
	})

	It("shares one in-flight load across concurrent first callers", func() {
		var loads atomic.Int64
		started := make(chan struct{})
		e := lazy.NewEmbedder(func() (embeddings.Embedder, error) {
			loads.Add(1)
			<-started
			return &stubBackend{vector: []float32{1, 2, 2}}, nil
		}, logger)

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				vec, err := e.Embed(context.Background(), "concurrent")
				Expect(err).NotTo(HaveOccurred())
				Expect(vec).To(HaveLen(3))
			}()
		}
		close(started)
		wg.Wait()

		Expect(loads.Load()).To(Equal(int64(1)))
	})

	It("retries a failed load on the next call instead of caching the failure", func() {
		attempts := 0
		e := lazy.NewEmbedder(func() (embeddings.Embedder, error) {
			attempts++
			if attempts == 1 {
				return nil, errors.New("model download failed")
			}
			return &stubBackend{vector: []float32{0, 1}}, nil
		}, logger)

		_, err := e.Embed(context.Background(), "first")
		Expect(err).To(MatchError(embeddings.ErrUnavailable))

		vec, err := e.Embed(context.Background(), "second")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(HaveLen(2))
		Expect(attempts).To(Equal(2))
	})

	It("normalizes backend output to unit length", func() {
		e := lazy.NewEmbedder(func() (embeddings.Embedder, error) {
			return &stubBackend{vector: []float32{3, 0, 4}}, nil
		}, logger)

		vec, err := e.Embed(context.Background(), "pythagoras")
		Expect(err).NotTo(HaveOccurred())

		var sum float64
		for _, x := range vec {
			sum += float64(x) * float64(x)
		}
		Expect(math.Sqrt(sum)).To(BeNumerically("~", 1.0, 1e-6))
		Expect(vec[0]).To(BeNumerically("~", 0.6, 1e-6))
		Expect(vec[2]).To(BeNumerically("~", 0.8, 1e-6))
	})

	It("wraps inference failures as ErrUnavailable", func() {
		e := lazy.NewEmbedder(func() (embeddings.Embedder, error) {
			return &stubBackend{err: errors.New("inference crashed")}, nil
		}, logger)

		_, err := e.Embed(context.Background(), "boom")
		Expect(err).To(MatchError(embeddings.ErrUnavailable))
	})

	It("rejects zero-norm backend output", func() {
		e := lazy.NewEmbedder(func() (embeddings.Embedder, error) {
			return &stubBackend{vector: []float32{0, 0, 0}}, nil
		}, logger)

		_, err := e.Embed(context.Background(), "degenerate")
		Expect(err).To(MatchError(embeddings.ErrUnavailable))
	})

	It("reloads after Close", func() {
		loads := 0
		e := lazy.NewEmbedder(func() (embeddings.Embedder, error) {
			loads++
			return &stubBackend{vector: []float32{1}}, nil
		}, logger)

		_, err := e.Embed(context.Background(), "one")
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Close()).To(Succeed())

		_, err = e.Embed(context.Background(), "two")
		Expect(err).NotTo(HaveOccurred())
		Expect(loads).To(Equal(2))
	})
})
