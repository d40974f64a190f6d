package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu       sync.Mutex
	messages []sqstypes.Message
	deleted  []string
	sent     []string
	sentCh   chan struct{}
}

func (q *fakeQueue) ReceiveMessage(_ context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := &sqs.ReceiveMessageOutput{Messages: q.messages}
	q.messages = nil
	return out, nil
}

func (q *fakeQueue) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (q *fakeQueue) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	q.mu.Lock()
	q.sent = append(q.sent, aws.ToString(in.MessageBody))
	q.mu.Unlock()
	if q.sentCh != nil {
		q.sentCh <- struct{}{}
	}
	return &sqs.SendMessageOutput{}, nil
}

func sqsMessage(t *testing.T, handle string, evt SelectionEvent) sqstypes.Message {
	t.Helper()
	body, err := json.Marshal(evt)
	require.NoError(t, err)
	return sqstypes.Message{Body: aws.String(string(body)), ReceiptHandle: aws.String(handle)}
}

func TestConsumerStoresSelections(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	good := SelectionEvent{
		EventID:     "6f1c2a7e-0a4e-4b53-9a57-0d1f6f0f6b11",
		EventType:   EventContactSelected,
		PageID:      "0b6f1c2a-7e0a-4e4b-939a-570d1f6f0f6b",
		Slug:        "madu-murni",
		TargetID:    "ani",
		PhoneNumber: "62811",
		Timestamp:   ts,
	}
	badPage := good
	badPage.PageID = "not-a-uuid"

	q := &fakeQueue{messages: []sqstypes.Message{
		sqsMessage(t, "h-good", good),
		{Body: aws.String("{garbage"), ReceiptHandle: aws.String("h-garbage")},
		sqsMessage(t, "h-badpage", badPage),
		sqsMessage(t, "h-unknown", SelectionEvent{EventType: "page_view"}),
	}}

	mock.ExpectExec(`INSERT INTO contact_selections`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "madu-murni", "ani", "62811", "", "", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c := NewConsumer(q, "https://sqs.example/queue", db)
	require.NoError(t, c.receiveOnce(context.Background(), 0))

	assert.ElementsMatch(t, []string{"h-good", "h-garbage", "h-badpage", "h-unknown"}, q.deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumerKeepsMessageOnDBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	q := &fakeQueue{messages: []sqstypes.Message{sqsMessage(t, "h1", SelectionEvent{
		EventType: EventContactSelected,
		PageID:    "0b6f1c2a-7e0a-4e4b-939a-570d1f6f0f6b",
	})}}
	mock.ExpectExec(`INSERT INTO contact_selections`).WillReturnError(errors.New("db down"))

	c := NewConsumer(q, "q", db)
	require.NoError(t, c.receiveOnce(context.Background(), 0))
	assert.Empty(t, q.deleted)
}

func TestConsumerDropsEventWithBadPageID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	q := &fakeQueue{messages: []sqstypes.Message{sqsMessage(t, "h-bad", SelectionEvent{
		EventType: EventContactSelected,
		PageID:    "not-a-uuid",
		TargetID:  "ani",
	})}}

	c := NewConsumer(q, "q", db)
	require.NoError(t, c.receiveOnce(context.Background(), 0))

	assert.Equal(t, []string{"h-bad"}, q.deleted)
	assert.NoError(t, mock.ExpectationsWereMet(), "nothing is inserted")
}

func TestConsumerStop(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := NewConsumer(&fakeQueue{}, "q", db)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	c.Stop()
}

func TestPublisherSendsEvent(t *testing.T) {
	q := &fakeQueue{sentCh: make(chan struct{}, 1)}
	p := NewPublisher(q, "https://sqs.example/queue")

	p.Publish(context.Background(), SelectionEvent{EventType: EventContactSelected, PageID: "page-1", TargetID: "ani"})

	select {
	case <-q.sentCh:
	case <-time.After(2 * time.Second):
		t.Fatal("event not sent")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	require.Len(t, q.sent, 1)
	var got SelectionEvent
	require.NoError(t, json.Unmarshal([]byte(q.sent[0]), &got))
	assert.Equal(t, "ani", got.TargetID)
}
