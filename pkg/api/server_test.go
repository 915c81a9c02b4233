package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"arithmitra/pkg/account"
	"arithmitra/pkg/chat"
	"arithmitra/pkg/gateway"
	memorycollector "arithmitra/pkg/metrics/memory"
	"arithmitra/pkg/session"
	"arithmitra/pkg/transfer"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

type stubModel struct {
	fraud     string
	loan      string
	jsonErr   error
	fragments []string
	streamErr error
}

func (m *stubModel) GenerateJSON(ctx context.Context, req gateway.StructuredRequest) ([]byte, error) {
	if m.jsonErr != nil {
		return nil, m.jsonErr
	}
	for _, f := range req.Schema.Fields {
		if f.Name == "isFraud" {
			return []byte(m.fraud), nil
		}
	}
	return []byte(m.loan), nil
}

func (m *stubModel) StreamChat(ctx context.Context, req gateway.ChatRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, f := range m.fragments {
			if !yield(f, nil) {
				return
			}
		}
		if m.streamErr != nil {
			yield("", m.streamErr)
		}
	}
}

func newStubModel() *stubModel {
	return &stubModel{
		fraud:     `{"isFraud":true,"riskScore":88,"explanation":"Asks for OTP","advice":"Never share OTPs"}`,
		loan:      `{"eligibilityScore":64,"status":"Medium","reasoning":"High existing EMI","tips":["Close a loan"]}`,
		fragments: []string{"Save ", "20% ", "monthly."},
	}
}

type testEnv struct {
	server   *Server
	sessions *session.Registry
	snapshot *memorycollector.MemoryCollector
	registry *prometheus.Registry
}

func setupTestServer(t *testing.T, model gateway.Model) *testEnv {
	t.Helper()

	snapshot := memorycollector.NewMemoryCollector()
	gw := gateway.New(model, gateway.DefaultConfig(), gateway.WithMetrics(snapshot))

	sessionConfig := session.DefaultConfig()
	sessionConfig.Transfer.SettleLatency = 5 * time.Millisecond
	sessionConfig.Transfer.ResetDelay = time.Hour
	sessions := session.NewRegistry(sessionConfig, gw, session.WithMetrics(snapshot))
	t.Cleanup(func() { sessions.Close() })

	registry := prometheus.NewRegistry()
	server := NewServer(Deps{
		Sessions:   sessions,
		Accounts:   account.NewStore(account.NewMemoryStorage(), account.WithBcryptCost(bcrypt.MinCost)),
		Assessor:   gw,
		Snapshot:   snapshot,
		Gatherer:   registry,
		Registerer: registry,
	}, DefaultServerConfig())

	return &testEnv{server: server, sessions: sessions, snapshot: snapshot, registry: registry}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) newSession(t *testing.T) string {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/sessions", `{"language":"en"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body)
	}
	var info session.Info
	decodeBody(t, w, &info)
	return info.ID
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode body %q: %v", w.Body.String(), err)
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("Expected status %d, got %d: %s", want, w.Code, w.Body)
	}
}

func TestServer_Health(t *testing.T) {
	env := setupTestServer(t, newStubModel())

	w := env.do(t, http.MethodGet, "/health", "")
	expectStatus(t, w, http.StatusOK)

	var response map[string]interface{}
	decodeBody(t, w, &response)
	if response["status"] != "healthy" {
		t.Errorf("Expected status healthy, got %v", response["status"])
	}
}

func TestServer_Status(t *testing.T) {
	env := setupTestServer(t, newStubModel())
	env.newSession(t)

	w := env.do(t, http.MethodGet, "/status", "")
	expectStatus(t, w, http.StatusOK)

	var response map[string]interface{}
	decodeBody(t, w, &response)
	if response["status"] != "running" {
		t.Errorf("Expected status running, got %v", response["status"])
	}
	if response["sessions"] != float64(1) {
		t.Errorf("Expected 1 session, got %v", response["sessions"])
	}
	if response["model"] != "closed" {
		t.Errorf("Expected closed model circuit, got %v", response["model"])
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	env := setupTestServer(t, newStubModel())

	w := env.do(t, http.MethodPost, "/health", "")
	expectStatus(t, w, http.StatusMethodNotAllowed)

	w = env.do(t, http.MethodGet, "/nowhere", "")
	expectStatus(t, w, http.StatusNotFound)
}

func TestServer_Metrics(t *testing.T) {
	env := setupTestServer(t, newStubModel())
	env.do(t, http.MethodGet, "/health", "")

	w := env.do(t, http.MethodGet, "/metrics", "")
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `http_request_duration_seconds_count{code="200",method="GET",route="/health"} 1`) {
		t.Errorf("Expected /health request metric, got:\n%s", w.Body)
	}

	w = env.do(t, http.MethodGet, "/metrics/json", "")
	expectStatus(t, w, http.StatusOK)
}

func TestServer_EMI(t *testing.T) {
	env := setupTestServer(t, newStubModel())

	w := env.do(t, http.MethodPost, "/api/calc/emi", `{"principal":1000000,"rate":10,"years":5}`)
	expectStatus(t, w, http.StatusOK)

	var res struct {
		EMI    float64 `json:"emi"`
		Months int     `json:"months"`
	}
	decodeBody(t, w, &res)
	if res.EMI != 21247 || res.Months != 60 {
		t.Errorf("Unexpected EMI result: %+v", res)
	}
}

func TestServer_EMINegligibleRate(t *testing.T) {
	env := setupTestServer(t, newStubModel())

	w := env.do(t, http.MethodPost, "/api/calc/emi", `{"principal":100000,"rate":1e-15,"years":5}`)
	expectStatus(t, w, http.StatusOK)

	var res struct {
		EMI          float64 `json:"emi"`
		TotalPayment float64 `json:"totalPayment"`
	}
	decodeBody(t, w, &res)
	if res.EMI != 1667 || res.TotalPayment != 100000 {
		t.Errorf("Expected an even split of the principal, got %+v", res)
	}
}

func TestServer_ValidationErrors(t *testing.T) {
	env := setupTestServer(t, newStubModel())

	tests := []struct {
		name  string
		path  string
		body  string
		field string
	}{
		{"emi zero principal", "/api/calc/emi", `{"principal":0,"rate":10,"years":5}`, "principal"},
		{"emi rate too high", "/api/calc/emi", `{"principal":100000,"rate":1000,"years":5}`, "rate"},
		{"emi tenure too long", "/api/calc/emi", `{"principal":100000,"rate":100,"years":1000000}`, "years"},
		{"premium missing type", "/api/calc/premium", `{"coverage":500000,"age":30}`, "type"},
		{"cards zero income", "/api/credit/cards", `{"income":0}`, "income"},
		{"score bad pan", "/api/credit/score", `{"pan":"ABC","mobile":"9876543210"}`, "pan"},
		{"loan out of range score", "/api/assess/loan", `{"income":50000,"creditScore":100,"existingEmi":0,"amount":100000,"tenure":5}`, "creditScore"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tt.path, tt.body)
			expectStatus(t, w, http.StatusBadRequest)

			var resp errorResponse
			decodeBody(t, w, &resp)
			if _, ok := resp.Fields[tt.field]; !ok {
				t.Errorf("Expected field error for %s, got %+v", tt.field, resp)
			}
		})
	}
}

func TestServer_StrictDecoding(t *testing.T) {
	env := setupTestServer(t, newStubModel())

	for _, body := range []string{
		`{"principal":1000,"rate":1,"years":1,"extra":true}`,
		`{"principal":1000,"rate":1,"years":1}{}`,
		`not json`,
		``,
	} {
		w := env.do(t, http.MethodPost, "/api/calc/emi", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Body %q: expected status 400, got %d", body, w.Code)
		}
	}
}

func TestServer_PremiumAndCredit(t *testing.T) {
	env := setupTestServer(t, newStubModel())

	w := env.do(t, http.MethodPost, "/api/calc/premium", `{"type":"health","coverage":500000,"age":30}`)
	expectStatus(t, w, http.StatusOK)
	var premium premiumResponse
	decodeBody(t, w, &premium)
	if premium.Premium != 13500 || len(premium.Plans) != 3 {
		t.Errorf("Unexpected premium response: %+v", premium)
	}

	w = env.do(t, http.MethodGet, "/api/credit/band?score=760", "")
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"Excellent"`) {
		t.Errorf("Expected Excellent band, got %s", w.Body)
	}

	w = env.do(t, http.MethodGet, "/api/credit/band?score=abc", "")
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(t, http.MethodPost, "/api/credit/score", `{"pan":"abcde1234f","mobile":"9876543210"}`)
	expectStatus(t, w, http.StatusOK)
	var report struct {
		Score int `json:"score"`
	}
	decodeBody(t, w, &report)
	if report.Score < 600 || report.Score > 850 {
		t.Errorf("Score out of range: %d", report.Score)
	}

	w = env.do(t, http.MethodPost, "/api/credit/cards", `{"income":30000}`)
	expectStatus(t, w, http.StatusOK)
	var cards cardsResponse
	decodeBody(t, w, &cards)
	if len(cards.Cards) != 3 {
		t.Errorf("Expected 3 eligible cards, got %d", len(cards.Cards))
	}
}

func TestServer_AssessFraud(t *testing.T) {
	env := setupTestServer(t, newStubModel())

	w := env.do(t, http.MethodPost, "/api/assess/fraud", `{"text":"Your KYC is expiring, share OTP"}`)
	expectStatus(t, w, http.StatusOK)

	var result gateway.FraudResult
	decodeBody(t, w, &result)
	if !result.IsFraud || result.RiskScore != 88 {
		t.Errorf("Unexpected fraud result: %+v", result)
	}

	w = env.do(t, http.MethodPost, "/api/assess/fraud", `{"text":"   "}`)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestServer_AssessUpstreamFailure(t *testing.T) {
	model := newStubModel()
	model.jsonErr = errors.New("connection refused")
	env := setupTestServer(t, model)

	w := env.do(t, http.MethodPost, "/api/assess/loan", `{"income":50000,"creditScore":720,"existingEmi":0,"amount":100000,"tenure":5}`)
	expectStatus(t, w, http.StatusBadGateway)

	var resp map[string]interface{}
	decodeBody(t, w, &resp)
	if _, ok := resp["eligibilityScore"]; ok {
		t.Error("Expected no result body on upstream failure")
	}
}

func TestServer_AssessInvalidModelResponse(t *testing.T) {
	model := newStubModel()
	model.fraud = `{"isFraud":true}`
	env := setupTestServer(t, model)

	w := env.do(t, http.MethodPost, "/api/assess/fraud", `{"text":"win a prize"}`)
	expectStatus(t, w, http.StatusBadGateway)
}

func TestServer_Auth(t *testing.T) {
	env := setupTestServer(t, newStubModel())
	id := env.newSession(t)

	w := env.do(t, http.MethodPost, "/api/auth/signup", `{"name":"Asha","email":"asha@example.com","password":"secret1"}`)
	expectStatus(t, w, http.StatusCreated)

	w = env.do(t, http.MethodPost, "/api/auth/signup", `{"name":"Asha","email":"asha@example.com","password":"secret1"}`)
	expectStatus(t, w, http.StatusConflict)

	w = env.do(t, http.MethodPost, "/api/auth/signup", `{"name":"Asha","email":"asha@example.com","password":"123"}`)
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(t, http.MethodPost, "/api/auth/login", `{"email":"asha@example.com","password":"wrong-one"}`)
	expectStatus(t, w, http.StatusUnauthorized)

	w = env.do(t, http.MethodPost, "/api/auth/login", `{"email":"asha@example.com","password":"secret1","sessionId":"`+id+`"}`)
	expectStatus(t, w, http.StatusOK)

	w = env.do(t, http.MethodGet, "/api/sessions/"+id, "")
	expectStatus(t, w, http.StatusOK)
	var info session.Info
	decodeBody(t, w, &info)
	if info.User == nil || info.User.Email != "asha@example.com" {
		t.Errorf("Expected signed in session, got %+v", info)
	}

	w = env.do(t, http.MethodPost, "/api/auth/federated", `{"provider":"google","name":"Ravi","email":"ravi@gmail.com"}`)
	expectStatus(t, w, http.StatusOK)
}

func TestServer_SignInUnknownSession(t *testing.T) {
	env := setupTestServer(t, newStubModel())
	ctx := context.Background()

	w := env.do(t, http.MethodPost, "/api/auth/signup", `{"name":"Asha","email":"asha@example.com","password":"secret1"}`)
	expectStatus(t, w, http.StatusCreated)

	// The session is resolved first, so a bad id fails the same way whatever
	// the credentials are.
	for _, body := range []string{
		`{"email":"asha@example.com","password":"secret1","sessionId":"missing"}`,
		`{"email":"asha@example.com","password":"wrong-one","sessionId":"missing"}`,
	} {
		w = env.do(t, http.MethodPost, "/api/auth/login", body)
		expectStatus(t, w, http.StatusNotFound)
	}

	before, err := env.server.deps.Accounts.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	w = env.do(t, http.MethodPost, "/api/auth/federated", `{"provider":"google","name":"Ravi","email":"ravi@gmail.com","sessionId":"missing"}`)
	expectStatus(t, w, http.StatusNotFound)

	after, err := env.server.deps.Accounts.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if after != before {
		t.Errorf("Federated sign-in against an unknown session created an account: %d -> %d", before, after)
	}
}

func TestServer_SessionLifecycle(t *testing.T) {
	env := setupTestServer(t, newStubModel())
	id := env.newSession(t)

	w := env.do(t, http.MethodPut, "/api/sessions/"+id+"/language", `{"language":"hi"}`)
	expectStatus(t, w, http.StatusOK)
	var lang languageResponse
	decodeBody(t, w, &lang)
	if lang.Language != chat.Hindi || !lang.Reset {
		t.Errorf("Unexpected language response: %+v", lang)
	}

	w = env.do(t, http.MethodPut, "/api/sessions/"+id+"/theme", `{"theme":"dark"}`)
	expectStatus(t, w, http.StatusOK)
	w = env.do(t, http.MethodGet, "/api/sessions/"+id+"/theme", "")
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"dark"`) {
		t.Errorf("Expected dark theme, got %s", w.Body)
	}

	w = env.do(t, http.MethodDelete, "/api/sessions/"+id, "")
	expectStatus(t, w, http.StatusNoContent)

	w = env.do(t, http.MethodGet, "/api/sessions/"+id, "")
	expectStatus(t, w, http.StatusNotFound)

	w = env.do(t, http.MethodPost, "/api/sessions", `{"language":"xx"}`)
	expectStatus(t, w, http.StatusBadRequest)
}

func waitForStep(t *testing.T, env *testEnv, id string, step transfer.Step) transfer.Snapshot {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		w := env.do(t, http.MethodGet, "/api/sessions/"+id+"/transfer", "")
		var snap transfer.Snapshot
		decodeBody(t, w, &snap)
		if snap.Step == step {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for step %s, at %s", step, snap.Step)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer_WalletTransfer(t *testing.T) {
	env := setupTestServer(t, newStubModel())
	id := env.newSession(t)
	base := "/api/sessions/" + id

	w := env.do(t, http.MethodPost, base+"/transfer", `{"recipient":"Ravi","account":"ravi@upi","amount":"100","provider":"wallet"}`)
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(t, http.MethodPost, base+"/transfer/topup", `{"amount":"500"}`)
	expectStatus(t, w, http.StatusOK)

	w = env.do(t, http.MethodPost, base+"/transfer", `{"recipient":"Ravi","account":"ravi@upi","amount":"100","provider":"wallet"}`)
	expectStatus(t, w, http.StatusAccepted)

	snap := waitForStep(t, env, id, transfer.StepSuccess)
	if snap.Balance.String() != "400" {
		t.Errorf("Expected balance 400, got %s", snap.Balance)
	}

	w = env.do(t, http.MethodPost, base+"/transfer", `{"recipient":"Ravi","account":"ravi@upi","amount":"1","provider":"wallet"}`)
	expectStatus(t, w, http.StatusConflict)

	w = env.do(t, http.MethodGet, base+"/transactions", "")
	expectStatus(t, w, http.StatusOK)
	var txs []transfer.Transaction
	decodeBody(t, w, &txs)
	if len(txs) != 1 || txs[0].Method != "Wallet" {
		t.Errorf("Unexpected transactions: %+v", txs)
	}
}

func TestServer_UPITransferPIN(t *testing.T) {
	env := setupTestServer(t, newStubModel())
	id := env.newSession(t)
	base := "/api/sessions/" + id

	w := env.do(t, http.MethodPost, base+"/transfer", `{"recipient":"Meera","account":"meera@okaxis","amount":"250","provider":"gpay"}`)
	expectStatus(t, w, http.StatusAccepted)
	var snap transfer.Snapshot
	decodeBody(t, w, &snap)
	if snap.Step != transfer.StepPIN {
		t.Fatalf("Expected pin step, got %s", snap.Step)
	}

	w = env.do(t, http.MethodPost, base+"/transfer/pin", `{"pin":"12a4"}`)
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(t, http.MethodPost, base+"/transfer/cancel", "")
	expectStatus(t, w, http.StatusOK)

	w = env.do(t, http.MethodPost, base+"/transfer/cancel", "")
	expectStatus(t, w, http.StatusConflict)

	w = env.do(t, http.MethodPost, base+"/transfer", `{"recipient":"Meera","account":"meera@okaxis","amount":"250","provider":"gpay"}`)
	expectStatus(t, w, http.StatusAccepted)
	w = env.do(t, http.MethodPost, base+"/transfer/pin", `{"pin":"1234"}`)
	expectStatus(t, w, http.StatusAccepted)

	snap = waitForStep(t, env, id, transfer.StepSuccess)
	if len(snap.Transactions) != 1 || snap.Transactions[0].Method != "GPay" {
		t.Errorf("Unexpected transactions: %+v", snap.Transactions)
	}
}

func TestServer_Expenses(t *testing.T) {
	env := setupTestServer(t, newStubModel())
	id := env.newSession(t)
	base := "/api/sessions/" + id

	w := env.do(t, http.MethodPost, base+"/expenses", `{"title":"Groceries","amount":"450","category":"Food"}`)
	expectStatus(t, w, http.StatusCreated)
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, w, &created)

	w = env.do(t, http.MethodPost, base+"/expenses", `{"title":"","amount":"10"}`)
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(t, http.MethodGet, base+"/expenses", "")
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"total":"450"`) {
		t.Errorf("Expected total 450, got %s", w.Body)
	}

	w = env.do(t, http.MethodDelete, base+"/expenses/"+created.ID, "")
	expectStatus(t, w, http.StatusNoContent)

	w = env.do(t, http.MethodDelete, base+"/expenses/"+created.ID, "")
	expectStatus(t, w, http.StatusNotFound)
}

func TestServer_ChatStreamsText(t *testing.T) {
	env := setupTestServer(t, newStubModel())
	id := env.newSession(t)

	w := env.do(t, http.MethodPost, "/api/sessions/"+id+"/chat", `{"message":"How do I save more?"}`)
	expectStatus(t, w, http.StatusOK)
	if got := w.Body.String(); got != "Save 20% monthly." {
		t.Errorf("Expected concatenated reply, got %q", got)
	}

	w = env.do(t, http.MethodGet, "/api/sessions/"+id+"/chat", "")
	expectStatus(t, w, http.StatusOK)
	var messages []chat.Message
	decodeBody(t, w, &messages)
	if len(messages) != 3 || messages[2].Text != "Save 20% monthly." {
		t.Errorf("Unexpected history: %+v", messages)
	}
}

func TestServer_ChatNDJSON(t *testing.T) {
	env := setupTestServer(t, newStubModel())
	id := env.newSession(t)

	w := env.do(t, http.MethodPost, "/api/sessions/"+id+"/chat?format=ndjson", `{"message":"Hi"}`)
	expectStatus(t, w, http.StatusOK)

	var last chat.Message
	lines := 0
	sc := bufio.NewScanner(bytes.NewReader(w.Body.Bytes()))
	for sc.Scan() {
		lines++
		if err := json.Unmarshal(sc.Bytes(), &last); err != nil {
			t.Fatalf("Bad line %q: %v", sc.Text(), err)
		}
	}
	if lines != 4 {
		t.Errorf("Expected 3 fragment updates and a final one, got %d", lines)
	}
	if last.Pending || last.Text != "Save 20% monthly." {
		t.Errorf("Unexpected final message: %+v", last)
	}
}

func TestServer_ChatFallbackAfterPartialReply(t *testing.T) {
	model := newStubModel()
	model.streamErr = errors.New("stream reset")
	env := setupTestServer(t, model)
	id := env.newSession(t)

	w := env.do(t, http.MethodPost, "/api/sessions/"+id+"/chat", `{"message":"Hi"}`)
	expectStatus(t, w, http.StatusOK)
	if want := "Save 20% monthly.\n" + chat.Fallback; w.Body.String() != want {
		t.Errorf("Expected %q, got %q", want, w.Body.String())
	}
}

func TestServer_ChatBlankMessage(t *testing.T) {
	env := setupTestServer(t, newStubModel())
	id := env.newSession(t)

	w := env.do(t, http.MethodPost, "/api/sessions/"+id+"/chat", `{"message":" "}`)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestServer_StartStop(t *testing.T) {
	env := setupTestServer(t, newStubModel())
	config := DefaultServerConfig()
	config.Address = "127.0.0.1:0"
	server := NewServer(env.server.deps, config)

	done := make(chan error, 1)
	go func() { done <- server.ListenAndServe() }()

	time.Sleep(20 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
}

func TestDefaultServerConfig(t *testing.T) {
	config := DefaultServerConfig()

	if config.Address != ":8080" {
		t.Errorf("Expected address :8080, got %s", config.Address)
	}
	if config.MaxBodyBytes <= 0 {
		t.Error("Expected a body limit")
	}
	if config.StreamTimeout <= config.WriteTimeout {
		t.Error("Expected streams to outlive the normal write timeout")
	}
}

func TestWriteJSON_UnencodableValue(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusOK, map[string]float64{"emi": math.Inf(1)})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
	var resp errorResponse
	decodeBody(t, w, &resp)
	if resp.Error == "" {
		t.Error("Expected an error message in the body")
	}
}
