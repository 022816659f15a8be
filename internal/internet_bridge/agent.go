package internet_bridge

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Config wires a local daemon to a public relay so operators can reach it
// from outside the home network.
type Config struct {
	PublicWS   string // ws://host:port/agent
	LocalURL   string // http://localhost:8080
	AgentID    string
	RetryDelay time.Duration
}

type requestMsg struct {
	Type    string            `json:"type"`
	ReqId   string            `json:"reqId"`
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers"`
	Body    interface{}       `json:"body"`
}

type responseMsg struct {
	Type   string      `json:"type"`
	ReqId  string      `json:"reqId"`
	Status int         `json:"status"`
	Body   interface{} `json:"body"`
}

// Start connects to the relay and reconnects forever on failure
func Start(cfg Config) {
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	for {
		run(cfg)
		log.Println("BRIDGE: Disconnected from relay, reconnecting...")
		time.Sleep(cfg.RetryDelay)
	}
}

func run(cfg Config) {
	ws, _, err := websocket.DefaultDialer.Dial(cfg.PublicWS, nil)
	if err != nil {
		log.Printf("BRIDGE: WebSocket dial failed: %v", err)
		return
	}
	defer ws.Close()

	ws.WriteJSON(map[string]interface{}{
		"type": "register",
		"id":   cfg.AgentID,
	})
	log.Printf("BRIDGE: Registered with relay as %s", cfg.AgentID)

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var req requestMsg
		if err := json.Unmarshal(msg, &req); err != nil {
			continue
		}
		if req.Type != "request" {
			continue
		}

		respBody, status := doLocalRequest(cfg.LocalURL, req)

		ws.WriteJSON(responseMsg{
			Type:   "response",
			ReqId:  req.ReqId,
			Status: status,
			Body:   respBody,
		})
	}
}

func doLocalRequest(base string, req requestMsg) (interface{}, int) {
	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, _ := json.Marshal(req.Body)
		bodyReader = bytes.NewBuffer(bodyBytes)
	}

	httpReq, err := http.NewRequest(req.Method, base+req.Path, bodyReader)
	if err != nil {
		return "bad relayed request", 500
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// Auth headers must survive the relay hop or every forwarded
	// request would come back 401
	for key, value := range req.Headers {
		if key == "Authorization" {
			httpReq.Header.Set(key, value)
		}
	}

	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Do(httpReq)
	if err != nil {
		return "local request failed", 500
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var parsed interface{}
	json.Unmarshal(raw, &parsed)

	return parsed, resp.StatusCode
}
