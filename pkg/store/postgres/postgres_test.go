package postgres_test

import (
	"context"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/store"
	"github.com/papercomputeco/stacks/pkg/store/postgres"
)

func TestPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Postgres Store Suite")
}

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("STACKS_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("STACKS_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	var (
		driver *postgres.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		driver, err = postgres.NewDriver(ctx, postgres.Config{
			ConnString: connStr(),
			Dimensions: 4,
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	It("persists, ranks, and cascades a document's chunks", func() {
		tx, err := driver.Begin(ctx)
		Expect(err).NotTo(HaveOccurred())

		docID, err := tx.InsertDocument(ctx, "integration.pdf")
		Expect(err).NotTo(HaveOccurred())

		embeddings := [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}, {0.9, 0.1, 0, 0}}
		for i, emb := range embeddings {
			Expect(tx.InsertChunk(ctx, docID, "chunk", emb, i)).To(Succeed())
		}
		Expect(tx.Commit(ctx)).To(Succeed())

		exists, err := driver.DocumentExists(ctx, docID)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())

		results, err := driver.TopKByDistance(ctx, docID, []float32{1, 0, 0, 0}, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
		Expect(results[0].Order).To(Equal(0))
		Expect(results[1].Distance).To(BeNumerically(">=", results[0].Distance))

		Expect(driver.DeleteDocument(ctx, docID)).To(Succeed())

		results, err = driver.TopKByDistance(ctx, docID, []float32{1, 0, 0, 0}, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())
	})

	It("discards every row when a transaction rolls back", func() {
		tx, err := driver.Begin(ctx)
		Expect(err).NotTo(HaveOccurred())

		docID, err := tx.InsertDocument(ctx, "rollback.pdf")
		Expect(err).NotTo(HaveOccurred())
		Expect(tx.InsertChunk(ctx, docID, "orphan", []float32{1, 0, 0, 0}, 0)).To(Succeed())
		Expect(tx.Rollback(ctx)).To(Succeed())

		exists, err := driver.DocumentExists(ctx, docID)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
	})

	It("returns ErrDocumentNotFound when deleting an unknown document", func() {
		err := driver.DeleteDocument(ctx, -1)
		Expect(err).To(MatchError(store.ErrDocumentNotFound))
	})
})
