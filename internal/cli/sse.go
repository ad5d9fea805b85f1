package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/notify"
)

// connectedEvent is sent once when a stream opens
const connectedEvent = "connected"

// readSSE parses a server-sent event stream, calling fn for each complete
// event until the stream ends. Comment lines are skipped.
func readSSE(r io.Reader, fn func(event, data string)) error {
	scanner := bufio.NewScanner(r)
	var currentEvent string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, ":"):
			// Keepalive comment
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			// End of event
			if currentEvent != "" {
				fn(currentEvent, strings.Join(dataLines, "\n"))
			}
			currentEvent = ""
			dataLines = nil
		}
	}
	return scanner.Err()
}

// openStream connects to a room's event stream
func (c *Client) openStream(ctx context.Context, code model.RoomCode) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+roomPath(code, "/events"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: connection failed: %w", model.ErrTransient, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(resp.Body)
		return nil, decodeError(resp.StatusCode, body)
	}
	return resp, nil
}

// Subscribe implements notify.Subscriber over the room's SSE stream. The
// subscription's channel closes when the stream drops.
func (c *Client) Subscribe(ctx context.Context, code model.RoomCode, subjects ...model.Subject) (*notify.Subscription, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	resp, err := c.openStream(streamCtx, code)
	if err != nil {
		cancel()
		return nil, err
	}

	ch := make(chan model.ChangeEvent, notify.SubscriptionBuffer)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(ch)
		defer func() { _ = resp.Body.Close() }()

		_ = readSSE(resp.Body, func(event, data string) {
			if event == connectedEvent {
				return
			}
			var ev model.ChangeEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				return
			}
			if notify.Wants(subjects, ev.Subject) {
				notify.Offer(ch, ev)
			}
		})
	}()

	return notify.NewSubscription(ch, func() {
		cancel()
		wg.Wait()
	}), nil
}
