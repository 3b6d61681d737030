// Command client is a terminal chat peer for manual testing: it connects to
// a running server, prints every frame it receives, and sends each stdin
// line as a message to the configured chat.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chat-hive/auth"
	"chat-hive/domain"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=http://localhost:8080"`
	ChatID        string `env:"CHAT_ID,required=true"`
	UserID        string `env:"CHAT_USER_ID,required=true"`
	JWTSecret     string `env:"JWT_SECRET,required=true"`
	LogLevel      string `env:"LOG_LEVEL,required=true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v", err)
	}
	os.Exit(code)
}

// run handles the connection lifecycle, configuration loading, and the two
// pump loops. The exit code propagates to main.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Mint a token locally and dial the websocket endpoint.
	token, err := auth.GenerateToken([]byte(config.JWTSecret), config.UserID, 24*time.Hour)
	if err != nil {
		return exitConfig, fmt.Errorf("token error: %w", err)
	}

	url := "ws" + strings.TrimPrefix(config.ServerAddress, "http") + "/ws?access_token=" + token
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	color.Green.Printf(">>> Connected to %s as %s, chat %s (Ctrl+C to quit)\n",
		config.ServerAddress, config.UserID, config.ChatID)

	// 4. Reception loop: print every frame until the server goes away.
	errChan := make(chan error, 1)
	go func() {
		for {
			var frame struct {
				Event   string          `json:"event"`
				Payload json.RawMessage `json:"payload"`
			}
			if err := conn.ReadJSON(&frame); err != nil {
				errChan <- err
				return
			}
			printFrame(frame.Event, frame.Payload)
		}
	}()

	// 5. Send loop: every stdin line becomes a message.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			err := conn.WriteJSON(map[string]any{
				"event": domain.EventNewMessage,
				"payload": map[string]any{
					"chatId":  config.ChatID,
					"message": text,
				},
			})
			if err != nil {
				errChan <- err
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Interrupted, shutting down...")
		return exitOK, nil
	case err := <-errChan:
		return exitRuntime, fmt.Errorf("connection lost: %w", err)
	}
}

func printFrame(event string, payload json.RawMessage) {
	switch event {
	case domain.EventNewMessage:
		var p domain.NewMessagePayload
		if json.Unmarshal(payload, &p) == nil {
			color.Cyan.Printf("[%s] %s: %s\n", p.ChatID, p.Message.Sender.Name, p.Message.Content)
			return
		}
	case domain.EventOnlineUsers:
		var users []string
		if json.Unmarshal(payload, &users) == nil {
			color.Yellow.Printf("online: %s\n", strings.Join(users, ", "))
			return
		}
	case domain.EventError:
		var p domain.ErrorPayload
		if json.Unmarshal(payload, &p) == nil {
			color.Red.Printf("error: %s\n", p.Message)
			return
		}
	}
	color.Gray.Printf("%s %s\n", event, string(payload))
}
