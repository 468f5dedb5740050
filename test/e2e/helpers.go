//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/aura-labs/aura/internal/api/handlers"
	"github.com/aura-labs/aura/internal/chunker"
	"github.com/aura-labs/aura/internal/extract"
	"github.com/aura-labs/aura/internal/repository"
	"github.com/aura-labs/aura/internal/server"
	"github.com/aura-labs/aura/internal/service"
	"github.com/aura-labs/aura/internal/storage"
	"github.com/aura-labs/aura/internal/testutil"
	"github.com/aura-labs/aura/internal/vectorindex"
	"github.com/jackc/pgx/v5/pgxpool"
)

const testAPIToken = "e2e-test-token"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server.
// The OpenAI clients are replaced with deterministic stubs so the suite runs
// offline; everything else is the real stack.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	// Start PostgreSQL container
	pgC := testutil.NewPostgresContainer(ctx, t)

	// Start RustFS container
	s3C := testutil.NewRustFSContainer(ctx, t)

	// Create connection pool and run migrations
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	// Create S3 client
	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}

	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	// Find free port for server
	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	// Start HTTP server
	serverURL, serverCloser := startServer(t, pool, s3Client, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (int, []byte, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (int, []byte, error) {
	return e.doRequest("POST", path, body, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (int, []byte, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return 0, nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, respBody, nil
}

// startServer starts the HTTP server with the full pipeline wired up
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, port int) (string, func()) {
	cacheRepo := repository.NewDocumentCacheRepository(pool)
	queryLogRepo := repository.NewQueryLogRepository(pool)
	index := vectorindex.NewPgIndex(pool)

	embedder := &stubEmbedder{}
	extractor := extract.NewHTTPExtractor(10 * 1024 * 1024)

	ingestionSvc := service.NewIngestionService(cacheRepo, extractor, embedder, index, s3Client, chunker.Config{
		Window:  1000,
		Overlap: 200,
	})
	retriever := service.NewRetriever(embedder, index, 5, 0)
	synthesizer := service.NewSynthesizer(&stubGenerator{})
	pipeline := service.NewPipelineService(ingestionSvc, retriever, synthesizer, queryLogRepo, 10*time.Second)

	router := server.NewRouter(server.RouterConfig{
		APIToken:       testAPIToken,
		QueryHandler:   handlers.NewQueryHandler(pipeline),
		StatsHandler:   handlers.NewStatsHandler(cacheRepo, index, queryLogRepo),
		LogsHandler:    handlers.NewLogsHandler(queryLogRepo),
		RequestTimeout: 60 * time.Second,
	})

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to start
	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// stubEmbedder derives a unit vector deterministically from the text hash, so
// identical texts always land on identical embeddings.
type stubEmbedder struct{}

func embedText(text string) []float32 {
	const dims = 1536

	seed := sha256.Sum256([]byte(text))
	vec := make([]float32, dims)
	var norm float64
	for i := 0; i < dims; i++ {
		h := sha256.Sum256(append(seed[:], byte(i), byte(i>>8)))
		v := float64(binary.BigEndian.Uint32(h[:4]))/float64(math.MaxUint32) - 0.5
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = embedText(text)
	}
	return out, nil
}

func (s *stubEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return embedText(text), nil
}

// stubGenerator answers every prompt with a fixed grounded-answer payload.
type stubGenerator struct{}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return `{"answer": "The policy covers the procedure after a 30-day waiting period.", "sources": [1], "confidence": 0.9}`, nil
}
