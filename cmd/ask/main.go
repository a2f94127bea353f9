// cmd/ask/main.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	httpclient "query-orchestrator/internal/common/http"
	"query-orchestrator/internal/models"
)

func main() {
	addr := flag.String("addr", envOr("ORCHESTRATOR_URL", "http://localhost:8080"), "Orchestrator base URL")
	tenant := flag.String("tenant", "", "Tenant to search (server default when empty)")
	timeout := flag.Duration("timeout", 90*time.Second, "Request timeout")
	raw := flag.Bool("json", false, "Print the raw JSON response")
	flag.Parse()

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" {
		fmt.Println("Usage: ask [--addr=http://localhost:8080] [--tenant=acme] [--json] <query>")
		os.Exit(1)
	}

	client := httpclient.NewClient(*timeout, "query-orchestrator-cli/1.0")
	body, err := ask(context.Background(), client, *addr, query, *tenant)
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}

	if *raw {
		fmt.Println(string(body))
		return
	}

	var resp models.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		log.Fatalf("decode response: %v", err)
	}
	fmt.Println(render(query, &resp))
}

func ask(ctx context.Context, client *httpclient.Client, addr, query, tenant string) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{"query": query, "tenant": tenant})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(addr, "/")+"/api/query", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
