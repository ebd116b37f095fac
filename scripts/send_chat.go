package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/viper"

	"github.com/jetwayhq/jetway/pkg/configutil"
)

type gatewayConfig struct {
	Transports struct {
		Provider string         `mapstructure:"provider"`
		Settings map[string]any `mapstructure:"settings"`
	} `mapstructure:"transports"`
}

type gatewaySettings struct {
	ServerAddr    string `mapstructure:"server_addr"`
	WebsocketPath string `mapstructure:"ws_path"`
}

type clientEvent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type serverEvent struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	MIME    string `json:"mime,omitempty"`
	Data    string `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func main() {
	configPath := flag.String("config", "examples/airline/config.yaml", "")
	wsURL := flag.String("url", "", "override gateway websocket URL")
	text := flag.String("text", "", "user message to send")
	wait := flag.Duration("wait", 15*time.Second, "how long to wait for image/audio envelopes after the reply")
	flag.Parse()
	if strings.TrimSpace(*text) == "" {
		fmt.Println("usage: send_chat -text='How much is a ticket to Paris?' [-config=...] [-url=ws://...]")
		os.Exit(1)
	}

	url := *wsURL
	if url == "" {
		resolved, err := resolveURL(*configPath)
		if err != nil {
			fmt.Println("config error:", err)
			os.Exit(1)
		}
		url = resolved
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fmt.Println("dial error:", err)
		os.Exit(1)
	}
	defer conn.Close()

	payload, _ := json.Marshal(clientEvent{Type: "user", Text: *text})
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		fmt.Println("send error:", err)
		os.Exit(1)
	}

	deadline := time.Now().Add(2 * time.Minute)
	gotReply := false
	for {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if gotReply {
				return
			}
			fmt.Println("read error:", err)
			os.Exit(1)
		}
		var evt serverEvent
		if err := json.Unmarshal(msg, &evt); err != nil {
			continue
		}
		switch evt.Type {
		case "reply":
			fmt.Println("reply:", evt.Text)
			gotReply = true
			// Artifacts trail the reply on the same socket.
			deadline = time.Now().Add(*wait)
		case "image", "audio":
			fmt.Printf("%s: %s (%d base64 chars)\n", evt.Type, evt.MIME, len(evt.Data))
		case "error":
			fmt.Println("error:", evt.Message)
			os.Exit(1)
		}
	}
}

func resolveURL(path string) (string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return "", err
	}
	var cfg gatewayConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return "", err
	}
	var settings gatewaySettings
	if err := configutil.DecodeSettings(cfg.Transports.Settings, &settings); err != nil {
		return "", err
	}
	addr := settings.ServerAddr
	if addr == "" {
		addr = ":8080"
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	wsPath := settings.WebsocketPath
	if wsPath == "" {
		wsPath = "/ws"
	}
	return "ws://" + addr + wsPath, nil
}
