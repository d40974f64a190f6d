package tracking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/leadpage/internal/pkg/logger"
)

type EventType string

const (
	EventContactSelected EventType = "contact_selected"
)

// SelectionEvent records one routed WhatsApp click.
type SelectionEvent struct {
	EventID     string    `json:"event_id"`
	EventType   EventType `json:"event_type"`
	PageID      string    `json:"page_id"`
	Slug        string    `json:"slug"`
	TargetID    string    `json:"target_id,omitempty"` // empty when the fallback number was used
	PhoneNumber string    `json:"phone_number"`
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent"`
	Referrer    string    `json:"referrer,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// SendMessageAPI is the subset of the SQS client used by Publisher.
type SendMessageAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type Publisher struct {
	client   SendMessageAPI
	queueURL string
	timeout  time.Duration
}

func NewPublisher(client SendMessageAPI, queueURL string) *Publisher {
	return &Publisher{client: client, queueURL: queueURL, timeout: 5 * time.Second}
}

// Publish sends evt in the background. The redirect never waits on SQS and
// failures are only logged.
func (p *Publisher) Publish(_ context.Context, evt SelectionEvent) {
	body, err := json.Marshal(evt)
	if err != nil {
		logger.Error("marshal selection event", "error", err.Error())
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(p.queueURL),
			MessageBody: aws.String(string(body)),
		})
		if err != nil {
			logger.Error("publishing selection event to SQS", "page_id", evt.PageID, "error", err.Error())
		}
	}()
}
