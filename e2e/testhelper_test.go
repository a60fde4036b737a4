package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pantrypal/api/internal/auth"
	"github.com/pantrypal/api/internal/client"
	"github.com/pantrypal/api/internal/config"
	"github.com/pantrypal/api/internal/server"
	"github.com/pantrypal/api/internal/store"
)

const (
	testJWTSecret = "test-secret-for-e2e"
	testUserID    = "test-user-123"

	receiptPipelineID = "pl-receipt"
	recipePipelineID  = "pl-recipe"
	suggestPipelineID = "pl-suggest"
)

// testApp holds all components needed for testing
type testApp struct {
	app   *fiber.App
	store *store.MemoryStore
}

// scenario scripts one remote pipeline
type scenario struct {
	states      []string // returned in order; the last one repeats
	outputs     map[string]interface{}
	errMessage  string
	startStatus int
	pollStatus  int
}

// fakeGumloop serves upload_file, start_pipeline and get_pl_run from scenarios keyed by pipeline id
type fakeGumloop struct {
	mu        sync.Mutex
	scenarios map[string]*scenario
	polls     map[string]int
	inputs    map[string]map[string]string
}

func newFakeGumloop(scenarios map[string]*scenario) *fakeGumloop {
	return &fakeGumloop{
		scenarios: scenarios,
		polls:     make(map[string]int),
		inputs:    make(map[string]map[string]string),
	}
}

// input returns the value a pipeline was started with
func (f *fakeGumloop) input(pipelineID, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inputs[pipelineID][name]
}

func (f *fakeGumloop) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload_file", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			FileName string `json:"file_name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]string{"file_name": body.FileName})
	})
	mux.HandleFunc("/start_pipeline", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SavedItemID    string `json:"saved_item_id"`
			PipelineInputs []struct {
				InputName string `json:"input_name"`
				Value     string `json:"value"`
			} `json:"pipeline_inputs"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		sc := f.scenarios[body.SavedItemID]
		in := make(map[string]string)
		for _, pi := range body.PipelineInputs {
			in[pi.InputName] = pi.Value
		}
		f.inputs[body.SavedItemID] = in
		f.mu.Unlock()

		if sc == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if sc.startStatus != 0 {
			w.WriteHeader(sc.startStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"run_id": body.SavedItemID + "-run"})
	})
	mux.HandleFunc("/get_pl_run", func(w http.ResponseWriter, r *http.Request) {
		pipelineID := strings.TrimSuffix(r.URL.Query().Get("run_id"), "-run")

		f.mu.Lock()
		sc := f.scenarios[pipelineID]
		f.polls[pipelineID]++
		n := f.polls[pipelineID]
		f.mu.Unlock()

		if sc == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if sc.pollStatus != 0 {
			w.WriteHeader(sc.pollStatus)
			return
		}
		state := sc.states[len(sc.states)-1]
		if n-1 < len(sc.states) {
			state = sc.states[n-1]
		}
		resp := map[string]interface{}{"state": state}
		if state == "DONE" {
			resp["outputs"] = sc.outputs
		}
		if sc.errMessage != "" {
			resp["error"] = sc.errMessage
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	return mux
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:  config.ServerConfig{Port: "5001", Env: "test"},
		Logging: config.LoggingConfig{Level: "error", Format: "json"},
		Store:   config.StoreConfig{Backend: config.StoreBackendMemory},
		JWT:     config.JWTConfig{Secret: testJWTSecret},
		Pipeline: config.PipelineConfig{
			UserID:            "pipeline-user",
			ReceiptPipelineID: receiptPipelineID,
			RecipePipelineID:  recipePipelineID,
			SuggestPipelineID: suggestPipelineID,
			ReceiptOutput:     "receipt_text",
			RecipeOutput:      "recipe_json",
			MaxSuggestions:    3,
			PollInterval:      5 * time.Millisecond,
			MaxWait:           200 * time.Millisecond,
			RequestTimeout:    time.Second,
		},
		Upload: config.UploadConfig{MaxBytes: 1 << 20, TempDir: t.TempDir()},
	}
}

// setupApp creates the application with an unconfigured pipeline client.
// This triggers mock responses in the pipeline-backed services.
func setupApp(t *testing.T) *testApp {
	t.Helper()
	return newTestApp(t, testConfig(t))
}

// setupAppWithPipeline points the pipeline client at a fake remote service
func setupAppWithPipeline(t *testing.T, f *fakeGumloop) *testApp {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	cfg := testConfig(t)
	cfg.Pipeline.APIKey = "test-key"
	cfg.Pipeline.BaseURL = srv.URL
	return newTestApp(t, cfg)
}

func newTestApp(t *testing.T, cfg *config.Config) *testApp {
	t.Helper()
	st := store.NewMemoryStore()
	app := server.New(server.Deps{
		Config:    cfg,
		Store:     st,
		Pipeline:  client.NewPipelineClient(&cfg.Pipeline),
		AccessLog: io.Discard,
	})
	return &testApp{app: app, store: st}
}

// generateToken creates an HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	return tokenFor(t, testUserID)
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	signed, err := auth.NewLegacyToken(userID, "test@example.com", testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// doReceiptUpload posts data as the multipart "receipt" field.
func doReceiptUpload(t *testing.T, app *fiber.App, fileName, contentType string, data []byte) (*http.Response, error) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="receipt"; filename="%s"`, fileName))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("failed to create form part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write form part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, "/api/pantry/receipt", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+generateToken(t))
	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// assertErrorCode checks the {error:{code}} envelope.
func assertErrorCode(t *testing.T, body map[string]interface{}, expected string) {
	t.Helper()
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected 'error' object in response, got %v", body)
	}
	if errObj["code"] != expected {
		t.Errorf("expected error code %q, got %v", expected, errObj["code"])
	}
}
