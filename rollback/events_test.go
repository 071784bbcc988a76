/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package rollback

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// fakeSQS records SendMessageBatch calls and accepts every entry.
type fakeSQS struct {
	batches [][]sqstypes.SendMessageBatchRequestEntry
}

func (f *fakeSQS) SendMessageBatch(_ context.Context, params *sqs.SendMessageBatchInput, _ ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error) {
	f.batches = append(f.batches, params.Entries)
	out := &sqs.SendMessageBatchOutput{}
	for _, e := range params.Entries {
		out.Successful = append(out.Successful, sqstypes.SendMessageBatchResultEntry{Id: e.Id})
	}
	return out, nil
}

func makeEvents(n int) []RevertedEvent {
	events := make([]RevertedEvent, n)
	for i := range events {
		events[i] = RevertedEvent{
			EventType:    EventTypeLicenseReverted,
			Compact:      "aslp",
			Jurisdiction: "oh",
			ProviderID:   "prov-1",
			Action:       ActionRevert,
		}
	}
	return events
}

func TestSQSPublisherBatchesAtEntryLimit(t *testing.T) {
	client := &fakeSQS{}
	publisher := NewSQSPublisher(client, "https://sqs.example/queue")

	if err := publisher.PublishReverted(context.Background(), makeEvents(25)); err != nil {
		t.Fatalf("PublishReverted: %v", err)
	}
	sizes := make([]int, 0, len(client.batches))
	for _, b := range client.batches {
		sizes = append(sizes, len(b))
	}
	if len(sizes) != 3 || sizes[0] != 10 || sizes[1] != 10 || sizes[2] != 5 {
		t.Errorf("batch sizes = %v, want [10 10 5]", sizes)
	}

	var event RevertedEvent
	if err := json.Unmarshal([]byte(aws.ToString(client.batches[0][0].MessageBody)), &event); err != nil {
		t.Fatalf("message body is not a reverted event: %v", err)
	}
	if event.EventType != EventTypeLicenseReverted {
		t.Errorf("eventType = %s", event.EventType)
	}
}

func TestSQSPublisherReportsRejectedEntries(t *testing.T) {
	publisher := NewSQSPublisher(rejectFirstSQS{}, "https://sqs.example/queue")

	err := publisher.PublishReverted(context.Background(), makeEvents(3))
	if err == nil || !strings.Contains(err.Error(), "rejected by the queue") {
		t.Errorf("got %v, want a rejected-entries error", err)
	}
}

// rejectFirstSQS fails the first entry of every batch.
type rejectFirstSQS struct{}

func (rejectFirstSQS) SendMessageBatch(_ context.Context, params *sqs.SendMessageBatchInput, _ ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error) {
	out := &sqs.SendMessageBatchOutput{}
	for i, e := range params.Entries {
		if i == 0 {
			out.Failed = append(out.Failed, sqstypes.BatchResultErrorEntry{Id: e.Id})
			continue
		}
		out.Successful = append(out.Successful, sqstypes.SendMessageBatchResultEntry{Id: e.Id})
	}
	return out, nil
}
