package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

var baseURL = "http://localhost:4000"

func main() {
	if v := os.Getenv("E2E_BASE_URL"); v != "" {
		baseURL = v
	}
	// Wait for server to start
	time.Sleep(2 * time.Second)

	// 1. Health Check
	checkEndpoint("GET", "/health", "", nil, 200, nil)

	// 2. Register and check the session
	username := fmt.Sprintf("e2e-%d", time.Now().UnixNano())
	var auth struct {
		Token string `json:"token"`
		User  struct {
			ID             string `json:"id"`
			RecoveryPhrase string `json:"recovery_phrase"`
		} `json:"user"`
	}
	checkEndpoint("POST", "/auth/register", "", map[string]string{"username": username, "password": "e2e-pass"}, 201, &auth)
	checkEndpoint("GET", "/me", auth.Token, nil, 200, nil)

	// 3. Market data
	checkEndpoint("GET", "/tokens/search?q=SOL", "", nil, 200, nil)

	// 4. Add a holding
	var holding struct {
		ID string `json:"id"`
	}
	checkEndpoint("POST", "/users/"+auth.User.ID+"/holdings", auth.Token, map[string]string{
		"token_address": "So11111111111111111111111111111111111111112",
		"token_symbol":  "SOL",
		"token_name":    "Wrapped SOL",
		"quantity":      "1.5",
		"average_price": "100",
	}, 201, &holding)
	fmt.Printf("Created Holding ID: %s\n", holding.ID)

	// 5. Portfolio with live prices
	checkEndpoint("GET", "/users/"+auth.User.ID+"/portfolio", auth.Token, nil, 200, nil)

	// 6. Update and remove
	checkEndpoint("PATCH", "/holdings/"+holding.ID, auth.Token, map[string]string{"quantity": "3"}, 200, nil)
	checkEndpoint("DELETE", "/holdings/"+holding.ID, auth.Token, nil, 200, nil)

	// 7. Recover the password, then log out
	checkEndpoint("POST", "/auth/recover", "", map[string]string{
		"username":        username,
		"recovery_phrase": auth.User.RecoveryPhrase,
		"new_password":    "e2e-pass-2",
	}, 200, nil)
	checkEndpoint("POST", "/auth/login", "", map[string]string{"username": username, "password": "e2e-pass-2"}, 200, nil)
	checkEndpoint("POST", "/auth/logout", auth.Token, nil, 200, nil)

	fmt.Println("ALL TESTS PASSED")
}

func checkEndpoint(method, path, token string, body interface{}, expectedStatus int, out interface{}) {
	fmt.Printf("Testing %s %s...\n", method, path)
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, baseURL+path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != expectedStatus {
		log.Fatalf("Expected status %d, got %d. Body: %s", expectedStatus, resp.StatusCode, string(respBody))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			log.Fatalf("Decode failed: %v", err)
		}
	}
	fmt.Printf("Response: %s\n", string(respBody))
}
