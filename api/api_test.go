package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/answer"
	"github.com/papercomputeco/stacks/pkg/eventstream/nop"
	"github.com/papercomputeco/stacks/pkg/extract"
	"github.com/papercomputeco/stacks/pkg/ingest"
	"github.com/papercomputeco/stacks/pkg/retrieval"
	testutils "github.com/papercomputeco/stacks/pkg/utils/test"
)

func TestAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "API Suite")
}

// uploadRequest builds a multipart POST with the given field name and file contents.
func uploadRequest(field, filename string, contents []byte) *http.Request {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile(field, filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(contents)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())

	req, err := http.NewRequest(http.MethodPost, "/api/pdfs/upload", &body)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// queryRequest builds a JSON POST against the query endpoint.
func queryRequest(documentID string, question string) *http.Request {
	body, err := json.Marshal(map[string]string{"question": question})
	Expect(err).NotTo(HaveOccurred())

	req, err := http.NewRequest(
		http.MethodPost,
		fmt.Sprintf("/api/pdfs/query/%s", documentID),
		bytes.NewReader(body),
	)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	return req
}

var _ = Describe("API server", func() {
	var (
		server   *Server
		embedder *testutils.MockEmbedder
		storer   *testutils.MockStore
	)

	BeforeEach(func() {
		embedder = testutils.NewMockEmbedder()
		storer = testutils.NewMockStore()
		logger := zap.NewNop()

		coordinator := ingest.NewCoordinator(embedder, storer, nop.NewPublisher(), logger)
		ranker := retrieval.NewRanker(embedder, storer, logger)

		var err error
		server, err = NewServer(Config{
			ListenAddr:  ":0",
			Extractor:   extract.NewPlainText(),
			Coordinator: coordinator,
			Ranker:      ranker,
			Synthesizer: answer.NewConcat(),
			Store:       storer,
			Logger:      logger,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("GET /ping", func() {
		It("returns pong", func() {
			req, err := http.NewRequest(http.MethodGet, "/ping", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("pong"))
		})
	})

	Describe("GET /healthz", func() {
		It("reports ok when the store responds", func() {
			req, err := http.NewRequest(http.MethodGet, "/healthz", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("POST /api/pdfs/upload", func() {
		It("ingests a document and returns 201 with the document id", func() {
			req := uploadRequest("pdfFile", "notes.txt", []byte("The quick brown fox jumps over the lazy dog."))

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var envelope UploadResponse
			Expect(json.NewDecoder(resp.Body).Decode(&envelope)).To(Succeed())
			Expect(envelope.Data).NotTo(BeNil())
			Expect(envelope.Data.DocumentID).To(BeNumerically(">", 0))
			Expect(envelope.Data.Filename).To(Equal("notes.txt"))
			Expect(envelope.Data.ChunksStored).To(Equal(1))

			Expect(storer.Docs).To(HaveLen(1))
		})

		It("returns 400 when no file is attached", func() {
			req, err := http.NewRequest(http.MethodPost, "/api/pdfs/upload", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 when the wrong field name is used", func() {
			req := uploadRequest("document", "notes.txt", []byte("some text"))

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 for a document with no extractable text", func() {
			req := uploadRequest("pdfFile", "blank.txt", []byte("   \n\t  "))

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(storer.Docs).To(BeEmpty())
		})

		It("returns 500 and persists nothing when the store fails mid-batch", func() {
			storer.CommitErr = fmt.Errorf("disk full")
			req := uploadRequest("pdfFile", "notes.txt", []byte("text that would otherwise persist"))

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(storer.Docs).To(BeEmpty())
			Expect(storer.Chunks).To(BeEmpty())
		})
	})

	Describe("POST /api/pdfs/query/:documentId", func() {
		var documentID int64

		BeforeEach(func() {
			req := uploadRequest("pdfFile", "notes.txt", []byte("Cats sleep for most of the day."))
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var envelope UploadResponse
			Expect(json.NewDecoder(resp.Body).Decode(&envelope)).To(Succeed())
			documentID = envelope.Data.DocumentID
		})

		It("answers a question with ranked chunks", func() {
			req := queryRequest(fmt.Sprintf("%d", documentID), "How long do cats sleep?")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var envelope QueryResponse
			Expect(json.NewDecoder(resp.Body).Decode(&envelope)).To(Succeed())
			Expect(envelope.Data.Answer).To(ContainSubstring("Cats sleep"))
			Expect(envelope.Data.RelevantChunks).To(HaveLen(1))
			Expect(envelope.Data.RelevantChunks[0].ChunkOrder).To(Equal(0))
		})

		It("returns 400 for a blank question", func() {
			req := queryRequest(fmt.Sprintf("%d", documentID), "   ")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 for a non-numeric document id", func() {
			req := queryRequest("not-a-number", "anything")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for an unknown document id", func() {
			req := queryRequest("99999", "anything")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("returns 500 when the embedder fails", func() {
			embedder.FailOn = "doomed question"
			req := queryRequest(fmt.Sprintf("%d", documentID), "doomed question")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})
})
