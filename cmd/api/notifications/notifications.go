package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/library-service/cmd/api/library"
)

const topicReservationFulfilled = "/reservation_fulfilled"

var ErrNotificationsDisabled = errors.New("notifications not enabled")

/* Publishes plain-text messages to ntfy topics under baseURL. */
type Ntfy struct {
	baseURL string
	enabled bool
	timeout time.Duration
	client  *http.Client
}

func NewNtfy(enableNotifications bool, notificationsTimeout time.Duration, notificationsBaseURL string, client *http.Client) *Ntfy {
	if client == nil {
		client = &http.Client{}
	}
	return &Ntfy{
		baseURL: strings.TrimSuffix(notificationsBaseURL, "/"),
		enabled: enableNotifications,
		timeout: notificationsTimeout,
		client:  client,
	}
}

// ReservationFulfilled tells the reserver that the returned book was
// handed to them through the new borrowing b.
func (ntf *Ntfy) ReservationFulfilled(ctx context.Context, b library.Borrowing) error {
	if !ntf.enabled {
		return ErrNotificationsDisabled
	}

	message := fmt.Sprintf("Reservation fulfilled:\nBorrowing: %s\nUser: %s\nBook: %s\nReturn due: %s",
		b.ID, b.UserID, b.BookID, b.ReturnDue.Format(time.RFC3339))
	return ntf.publish(ctx, topicReservationFulfilled, message)
}

func (ntf *Ntfy) publish(ctx context.Context, topic, message string) error {
	ctx, cancel := context.WithTimeout(ctx, ntf.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ntf.baseURL+topic, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("delivering message to topic (%s): %w", ntf.baseURL+topic, err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := ntf.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivering message to topic (%s): %w", ntf.baseURL+topic, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("delivering message to topic (%s): unexpected status %d", ntf.baseURL+topic, resp.StatusCode)
	}
	return nil
}
