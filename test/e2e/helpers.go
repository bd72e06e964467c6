//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recollect-labs/recollect/internal/api/handlers"
	"github.com/recollect-labs/recollect/internal/domain"
	"github.com/recollect-labs/recollect/internal/extractor"
	"github.com/recollect-labs/recollect/internal/jobs"
	"github.com/recollect-labs/recollect/internal/repository"
	"github.com/recollect-labs/recollect/internal/server"
	"github.com/recollect-labs/recollect/internal/service"
	"github.com/recollect-labs/recollect/internal/testutil"
)

const embeddingDimensions = 768

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	Worker       *jobs.Worker
	UserID       string
	AuthToken    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment: a PostgreSQL container,
// an in-process API server with deterministic model stubs, and a running
// ingest worker.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	env.startServer(port)
	env.bootstrap()

	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Worker != nil {
		e.Worker.Stop()
	}
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// bootstrap creates a user and an API key for authenticated requests
func (e *E2ETestEnv) bootstrap() {
	userRepo := repository.NewUserRepository(e.Pool)
	apiKeyRepo := repository.NewAPIKeyRepository(e.Pool)
	authSvc := service.NewAuthService(userRepo, apiKeyRepo, &service.DefaultUUIDGenerator{})

	user, err := authSvc.CreateUser(e.Ctx, "e2e-user")
	if err != nil {
		e.T.Fatalf("failed to create user: %v", err)
	}
	e.UserID = user.ID

	token, err := authSvc.CreateAPIKey(e.Ctx, user.ID, "e2e-key")
	if err != nil {
		e.T.Fatalf("failed to create API key: %v", err)
	}
	e.AuthToken = token
}

// startServer wires the full stack with stub embedding and chat clients and
// starts the HTTP server plus the ingest worker.
func (e *E2ETestEnv) startServer(port int) {
	userRepo := repository.NewUserRepository(e.Pool)
	apiKeyRepo := repository.NewAPIKeyRepository(e.Pool)
	contentRepo := repository.NewContentRepository(e.Pool)
	chunkRepo := repository.NewChunkRepository(e.Pool)
	jobRepo := repository.NewIngestJobRepository(e.Pool)
	txRunner := repository.NewTxRunner(e.Pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(userRepo, apiKeyRepo, uuidGen)

	model := &stubModel{}
	ingestSvc := service.NewIngestService(model, chunkRepo)
	searchSvc := service.NewSearchService(model, chunkRepo, model)
	contentSvc := service.NewContentServiceWithTx(contentRepo, jobRepo, ingestSvc, txRunner)

	processor := jobs.NewIngestWorker(jobRepo, contentRepo, extractor.New(), ingestSvc)
	e.Worker = jobs.NewWorker(processor, 100*time.Millisecond)
	go e.Worker.Start(e.Ctx)

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:  authSvc,
		ContentHandler: handlers.NewContentHandler(contentSvc),
		SearchHandler:  handlers.NewSearchHandler(searchSvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.T.Logf("server error: %v", err)
		}
	}()

	e.ServerURL = fmt.Sprintf("http://localhost:%d", port)
	waitForServer(e.T, e.ServerURL, 10*time.Second)

	e.ServerCloser = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// WaitForJob polls until the ingest job for a content item reaches a
// terminal status.
func (e *E2ETestEnv) WaitForJob(contentID string, timeout time.Duration) string {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var status string
		err := e.Pool.QueryRow(e.Ctx,
			"SELECT status FROM ingest_jobs WHERE content_id = $1 ORDER BY created_at DESC LIMIT 1",
			contentID,
		).Scan(&status)
		if err == nil && (status == string(domain.IngestJobStatusCompleted) || status == string(domain.IngestJobStatusFailed)) {
			return status
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.T.Fatalf("ingest job for content %s did not finish within %v", contentID, timeout)
	return ""
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("PUT", path, body, authToken)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path, authToken string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
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

// stubModel is a deterministic stand-in for the OpenAI client. Texts
// mentioning "quantum" embed on one axis and everything else on another, so
// retrieval scores are exactly 1.0 or 0.0. Chat completions echo the final
// prompt message so tests can assert on the assembled context.
type stubModel struct{}

func (m *stubModel) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDimensions)
	if strings.Contains(strings.ToLower(text), "quantum") {
		vec[0] = 1
	} else {
		vec[1] = 1
	}
	return vec, nil
}

func (m *stubModel) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages")
	}
	if strings.Contains(messages[0].Content, "query optimizer") {
		// Degrade to the raw query so retrieval stays deterministic
		return "", nil
	}
	return messages[len(messages)-1].Content, nil
}
