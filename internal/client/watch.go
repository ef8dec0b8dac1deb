package client

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	types "github.com/yungbote/employee-directory/internal/domain"
	"github.com/yungbote/employee-directory/internal/realtime"
)

// ChangeEvent is one decoded EmployeesChanged notification.
type ChangeEvent struct {
	Op   string
	Name string
}

type wireMessage struct {
	Channel string                    `json:"channel"`
	Event   realtime.SSEEvent         `json:"event"`
	Data    realtime.EmployeesChanged `json:"data"`
}

// Watch streams change events until ctx ends or the server closes the
// stream. fn runs on the reading goroutine; returning from Watch with a nil
// error means the stream ended cleanly.
func (c *Client) Watch(ctx context.Context, fn func(ChangeEvent)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/employees/events", nil)
	if err != nil {
		return types.Wrap(types.CodeInternal, "employee.watch", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return types.Wrap(types.CodeStoreUnavailable, "employee.watch", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	err = readEvents(resp, func(data string) {
		var msg wireMessage
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			return
		}
		if msg.Event != realtime.SSEEventEmployeesChanged {
			return
		}
		fn(ChangeEvent{Op: msg.Data.Op, Name: msg.Data.Name})
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readEvents hands the joined data lines of each event to onData. Comment
// lines (heartbeats) and other fields are skipped.
func readEvents(resp *http.Response, onData func(string)) error {
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	var data []string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				onData(strings.Join(data, "\n"))
				data = data[:0]
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return sc.Err()
}
