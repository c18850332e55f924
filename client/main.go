// Command client is a terminal player for manual testing.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"

	"github.com/wfunc/whosaidit/network"
)

const heartbeatInterval = 20 * time.Second

// send wraps data in an envelope and writes it to the server.
func send(c *websocket.Conn, event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.WriteJSON(network.Envelope{Event: event, Data: raw})
}

func main() {
	addr := pflag.StringP("addr", "a", "localhost:8080", "server address")
	roomID := pflag.StringP("room", "r", "", "room to join on connect")
	name := pflag.StringP("name", "n", "", "player name")
	pflag.Parse()

	log.SetFlags(0)
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			var env network.Envelope
			if err := c.ReadJSON(&env); err != nil {
				log.Println("Read error:", err)
				return
			}
			fmt.Println(render(&env))
		}
	}()

	// stdin is read on its own goroutine so interrupts are handled promptly.
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	if *roomID != "" && *name != "" {
		if err := send(c, network.EventJoin, network.JoinRequest{Room: *roomID, Name: *name}); err != nil {
			log.Println("Write error:", err)
			return
		}
	}
	fmt.Println(usage)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-done:
			return
		case <-heartbeat.C:
			if err := send(c, network.EventHeartbeat, struct{}{}); err != nil {
				log.Println("Write error:", err)
				return
			}
		case line, ok := <-lines:
			if !ok {
				closeConn(c, done)
				return
			}
			if line == "" {
				continue
			}
			event, data, err := parseCommand(line)
			if errors.Is(err, errQuit) {
				closeConn(c, done)
				return
			}
			if err != nil {
				fmt.Println(err)
				continue
			}
			if err := send(c, event, data); err != nil {
				log.Println("Write error:", err)
				return
			}
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			closeConn(c, done)
			return
		}
	}
}

func closeConn(c *websocket.Conn, done <-chan struct{}) {
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		log.Println("Write close error:", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}
