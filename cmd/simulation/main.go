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

	"audiocodes-connector/internal/dto"
	"audiocodes-connector/pkg/events"
	pktNats "audiocodes-connector/pkg/nats"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// Plays a scripted call against a running connector:
//
//	go run ./cmd/simulation -token secret "I want to check my order" "yes"
func main() {
	baseURL := flag.String("url", "http://localhost:3000", "connector base URL")
	authType := flag.String("auth-type", "Bearer", "authorization scheme")
	token := flag.String("token", os.Getenv("AUDIOCODES_TOKEN"), "channel token")
	natsURL := flag.String("nats", "", "NATS URL to print connector events from")
	flag.Parse()

	utterances := flag.Args()
	if len(utterances) == 0 {
		utterances = []string{"Hello", "I want to talk to an agent", "yes"}
	}

	if *natsURL != "" {
		sub := watchEvents(*natsURL)
		if sub != nil {
			defer sub.Close()
		}
	}

	c := &client{
		baseURL:       strings.TrimRight(*baseURL, "/"),
		authorization: *authType + " " + *token,
		http:          &http.Client{Timeout: 30 * time.Second},
	}

	conversation := uuid.NewString()
	color.Cyan("📞 Starting simulated call %s\n", conversation)

	created, err := c.createConversation(conversation)
	if err != nil {
		color.Red("CreateConversation failed: %v", err)
		os.Exit(1)
	}
	color.Green("Session expires after %ds", created.ExpiresSeconds)

	turns := []dto.InboundActivity{{Type: dto.ActivityTypeEvent, Name: dto.EventStart}}
	for _, u := range utterances {
		turns = append(turns, dto.InboundActivity{Type: dto.ActivityTypeMessage, Text: u})
	}
	turns = append(turns, dto.InboundActivity{Type: dto.ActivityTypeEvent, Name: dto.EventHangup})

	for _, turn := range turns {
		if turn.Type == dto.ActivityTypeMessage {
			color.Yellow("\nCALLER: %s", turn.Text)
		} else {
			color.Yellow("\nCALLER <%s>", turn.Name)
		}

		start := time.Now()
		res, err := c.activities(created.ActivitiesURL, conversation, turn)
		if err != nil {
			color.Red("Failed: %v", err)
			continue
		}
		printActivities(res.Activities, time.Since(start))
	}

	if err := c.disconnect(created.DisconnectURL, conversation); err != nil {
		color.Red("Disconnect failed: %v", err)
	}
	color.Cyan("\n📴 Call finished")

	// Give the event watch a moment to print the last events.
	if *natsURL != "" {
		time.Sleep(time.Second)
	}
}

func printActivities(activities []dto.Activity, elapsed time.Duration) {
	if len(activities) == 0 {
		color.White("BOT (%v): <silence>", elapsed)
		return
	}
	for _, a := range activities {
		switch {
		case a.Type == dto.ActivityTypeMessage:
			color.Green("BOT (%v): %s", elapsed, a.Text)
		case a.Name == dto.EventHandover:
			color.Magenta("BOT (%v): <handover %v>", elapsed, a.ActivityParams["transferTarget"])
		default:
			color.Magenta("BOT (%v): <%s>", elapsed, a.Name)
		}
	}
}

func watchEvents(url string) *pktNats.Subscriber {
	sub, err := pktNats.NewSubscriber(url)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS: %v", err)
		return nil
	}

	err = sub.Subscribe(context.Background(), pktNats.SubjectPrefix+">", "", func(ctx context.Context, e events.Event) error {
		color.Blue("  [event] %s %v", e.EventType(), e.Payload())
		return nil
	})
	if err != nil {
		log.Printf("[WARN] Failed to watch connector events: %v", err)
		sub.Close()
		return nil
	}
	return sub
}

type client struct {
	baseURL       string
	authorization string
	http          *http.Client
}

func (c *client) createConversation(conversation string) (*dto.CreateConversationResponse, error) {
	var out dto.CreateConversationResponse
	err := c.post("/CreateConversation", dto.CreateConversationRequest{Conversation: conversation}, &out)
	return &out, err
}

func (c *client) activities(path, conversation string, activity dto.InboundActivity) (*dto.ActivitiesResponse, error) {
	var out dto.ActivitiesResponse
	err := c.post("/"+path, dto.ActivitiesPayload{
		Conversation: conversation,
		Activities:   []dto.InboundActivity{activity},
	}, &out)
	return &out, err
}

func (c *client) disconnect(path, conversation string) error {
	return c.post("/"+path, dto.DisconnectRequest{Conversation: conversation, Reason: "Simulation finished"}, nil)
}

func (c *client) post(path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authorization)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
