package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

// rpcCall is swapped out in tests.
var rpcCall = callRPC

func callRPC(method string, params []interface{}, requireAuth bool) (json.RawMessage, *rpcError, error) {
	if params == nil {
		params = []interface{}{}
	}
	payload, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requireAuth {
		if token := strings.TrimSpace(rpcAuthToken); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("POST %s: %w", rpcEndpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	var decoded rpcResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if decoded.Error != nil {
		return nil, decoded.Error, nil
	}
	return decoded.Result, nil, nil
}

// callInto performs a call and decodes the result into out.
func callInto(method string, params []interface{}, requireAuth bool, out interface{}) error {
	result, rpcErr, err := rpcCall(method, params, requireAuth)
	if err != nil {
		return err
	}
	if rpcErr != nil {
		return fmt.Errorf("%s: %s (code %d)", method, rpcErr.Message, rpcErr.Code)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

func handleRPCCallError(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func handleRPCError(stderr io.Writer, rpcErr *rpcError) int {
	fmt.Fprintf(stderr, "Error: %s (code %d)\n", rpcErr.Message, rpcErr.Code)
	if len(rpcErr.Data) > 0 && string(rpcErr.Data) != "null" {
		writeRPCResult(stderr, rpcErr.Data)
	}
	return 1
}

func writeRPCResult(w io.Writer, result json.RawMessage) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err != nil {
		fmt.Fprintln(w, string(result))
		return
	}
	fmt.Fprintln(w, buf.String())
}

// query runs a read-only method and prints its result.
func query(stdout, stderr io.Writer, method string, params ...interface{}) int {
	result, rpcErr, err := rpcCall(method, params, false)
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	if rpcErr != nil {
		return handleRPCError(stderr, rpcErr)
	}
	writeRPCResult(stdout, result)
	return 0
}
