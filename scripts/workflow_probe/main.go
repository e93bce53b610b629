package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type account struct {
	Role     string `json:"role"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type probeConfig struct {
	SchoolCode string    `json:"schoolCode"`
	Accounts   []account `json:"accounts"`
}

type step struct {
	name      string
	method    string
	path      string
	role      string
	body      interface{}
	wantState string
}

type result struct {
	Step     step
	Status   int
	State    string
	Duration time.Duration
	Error    error
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type paperView struct {
	ID            string `json:"id"`
	WorkflowState string `json:"workflowState"`
}

func main() {
	var (
		base         string
		prefix       string
		accountsPath string
		blueprintID  string
		timeout      time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&prefix, "prefix", "/api/v1", "API route prefix")
	flag.StringVar(&accountsPath, "accounts", filepath.Join("scripts", "workflow_probe", "accounts.json"), "Path to JSON accounts file")
	flag.StringVar(&blueprintID, "blueprint", "", "Blueprint to attach to the draft (required when tenant policy mandates one)")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	cfg, err := loadAccounts(accountsPath)
	if err != nil {
		log.Fatalf("failed to load accounts: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	root := strings.TrimRight(base, "/") + prefix

	tokens := make(map[string]string, len(cfg.Accounts))
	for _, acct := range cfg.Accounts {
		token, err := login(client, root, cfg.SchoolCode, acct)
		if err != nil {
			log.Fatalf("login failed for %s (%s): %v", acct.Role, acct.Email, err)
		}
		tokens[acct.Role] = token
	}

	create := step{
		name:      "create draft",
		method:    http.MethodPost,
		path:      "/papers",
		role:      "teacher",
		body:      draftPayload(blueprintID),
		wantState: "draft",
	}
	first, paper := perform(client, root, tokens, create)
	results := []result{first}
	if first.Error == nil {
		for _, st := range goldenPath(paper.ID) {
			res, _ := perform(client, root, tokens, st)
			results = append(results, res)
			if res.Error != nil {
				break
			}
		}
	}

	failed := printReport(results)
	fmt.Printf("Steps: %d, Failed: %d\n", len(results), failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func loadAccounts(path string) (*probeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg probeConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Accounts) == 0 {
		return nil, fmt.Errorf("no accounts defined in %s", path)
	}
	return &cfg, nil
}

// goldenPath walks one paper from submission to the archive shelf, asserting
// the resting state after every hop.
func goldenPath(paperID string) []step {
	base := "/papers/" + paperID
	return []step{
		{name: "submit for review", method: http.MethodPost, path: base + "/submit", role: "teacher", body: map[string]string{"comments": "workflow probe"}, wantState: "pending_hod"},
		{name: "hod approves", method: http.MethodPost, path: base + "/review", role: "hod", body: map[string]string{"decision": "approve"}, wantState: "hod_approved"},
		{name: "hod advances", method: http.MethodPost, path: base + "/advance", role: "hod", wantState: "pending_principal"},
		{name: "principal approves", method: http.MethodPost, path: base + "/review", role: "principal", body: map[string]string{"decision": "approve"}, wantState: "principal_approved"},
		{name: "principal sends to committee", method: http.MethodPost, path: base + "/send-to-committee", role: "principal", wantState: "sent_to_committee"},
		{name: "committee activates", method: http.MethodPost, path: base + "/activate", role: "exam_committee", wantState: "active"},
		{name: "committee locks", method: http.MethodPost, path: base + "/lock", role: "exam_committee", wantState: "locked"},
		{name: "admin archives", method: http.MethodPost, path: base + "/archive", role: "admin", wantState: "archived"},
	}
}

func draftPayload(blueprintID string) map[string]interface{} {
	payload := map[string]interface{}{
		"title":           fmt.Sprintf("Workflow probe %s", time.Now().Format("2006-01-02 15:04:05")),
		"grade":           "10",
		"subject":         "Mathematics",
		"totalMarks":      80,
		"durationMinutes": 180,
	}
	if blueprintID != "" {
		payload["blueprintId"] = blueprintID
	}
	return payload
}

func login(client *http.Client, root, schoolCode string, acct account) (string, error) {
	payload := map[string]string{
		"email":    acct.Email,
		"password": acct.Password,
	}
	if acct.Role != "super_admin" {
		payload["schoolCode"] = schoolCode
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	resp, err := client.Post(root+"/auth/login", "application/json", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if env.Error != nil {
		return "", fmt.Errorf("%s: %s", env.Error.Code, env.Error.Message)
	}
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(env.Data, &tokens); err != nil {
		return "", fmt.Errorf("decode tokens: %w", err)
	}
	if tokens.AccessToken == "" {
		return "", fmt.Errorf("login returned no access token (HTTP %d)", resp.StatusCode)
	}
	return tokens.AccessToken, nil
}

func perform(client *http.Client, root string, tokens map[string]string, st step) (result, paperView) {
	res := result{Step: st}

	token, ok := tokens[st.role]
	if !ok {
		res.Error = fmt.Errorf("no account configured for role %s", st.role)
		return res, paperView{}
	}

	var body io.Reader
	if st.body != nil {
		raw, err := json.Marshal(st.body)
		if err != nil {
			res.Error = err
			return res, paperView{}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(st.method, root+st.path, body)
	if err != nil {
		res.Error = err
		return res, paperView{}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if st.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err
		return res, paperView{}
	}
	defer resp.Body.Close()
	res.Status = resp.StatusCode

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		res.Error = fmt.Errorf("decode response: %w", err)
		return res, paperView{}
	}
	if env.Error != nil {
		res.Error = fmt.Errorf("%s: %s", env.Error.Code, env.Error.Message)
		return res, paperView{}
	}

	var paper paperView
	if err := json.Unmarshal(env.Data, &paper); err != nil {
		res.Error = fmt.Errorf("decode paper: %w", err)
		return res, paperView{}
	}
	res.State = paper.WorkflowState
	if st.wantState != "" && paper.WorkflowState != st.wantState {
		res.Error = fmt.Errorf("paper rested in %s, want %s", paper.WorkflowState, st.wantState)
	}
	return res, paper
}

func printReport(results []result) int {
	fmt.Println("Workflow Probe Report")
	fmt.Println("=====================")
	failed := 0
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "FAIL"
			failed++
		}
		fmt.Printf("[%s] %s (as %s)\n", status, res.Step.name, res.Step.role)
		fmt.Printf("  HTTP %d in %s\n", res.Status, res.Duration)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		} else if res.State != "" {
			fmt.Printf("  State: %s\n", res.State)
		}
	}
	return failed
}
