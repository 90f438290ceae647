package main

import (
	"bufio"
	"bytes"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"

	"github.com/wfunc/arise/network"
)

// login 用邮箱密码换取令牌
func login(server, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post(strings.TrimSuffix(server, "/")+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var res struct {
		Token string `json:"token"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed (%d): %s", resp.StatusCode, res.Error)
	}
	return res.Token, nil
}

func wsURL(server, token string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

func send(c *websocket.Conn, event string) error {
	frame, err := network.Encode(event, nil)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, frame)
}

func main() {
	server := pflag.String("server", "http://localhost:8080", "server base URL")
	token := pflag.String("token", "", "bearer token")
	email := pflag.String("email", "", "login email, used when --token is empty")
	password := pflag.String("password", "", "login password")
	pingEvery := pflag.Duration("ping", 20*time.Second, "heartbeat interval")
	pflag.Parse()

	if *token == "" {
		if *email == "" {
			log.Fatal("either --token or --email/--password is required")
		}
		t, err := login(*server, *email, *password)
		if err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		*token = t
	}

	target, err := wsURL(*server, *token)
	if err != nil {
		log.Fatalf("Bad server URL: %v", err)
	}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	log.Printf("Connecting to %s", strings.SplitN(target, "?", 2)[0])

	c, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, frame, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			msg, err := network.Decode(frame)
			if err != nil {
				log.Printf("Received invalid frame: %v", err)
				continue
			}
			log.Printf("<- %s: %s", msg.Event, string(msg.Data))
		}
	}()

	lines := make(chan string)
	go func() {
		reader := bufio.NewScanner(os.Stdin)
		for reader.Scan() {
			lines <- strings.TrimSpace(reader.Text())
		}
	}()

	log.Println("Connected. Type 'leaderboard' or 'ping' and press Enter.")
	ticker := time.NewTicker(*pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := send(c, network.EventPing); err != nil {
				log.Println("Write error:", err)
				return
			}
		case text := <-lines:
			var event string
			switch text {
			case "leaderboard":
				event = network.EventRequestLeaderboard
			case "ping":
				event = network.EventPing
			default:
				continue
			}
			if err := send(c, event); err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> %s", event)
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}
