/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package rollback

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
)

// RevertedEvent notifies downstream consumers that a license was reverted
// or deleted by a rollback. Delivery is at-least-once, best-effort:
// publication failures never affect the data state already committed.
type RevertedEvent struct {
	EventType               string `json:"eventType"`
	Compact                 string `json:"compact"`
	Jurisdiction            string `json:"jurisdiction"`
	ProviderID              string `json:"providerId"`
	LicenseTypeAbbreviation string `json:"licenseTypeAbbreviation"`
	Action                  string `json:"action"`
	RollbackReason          string `json:"rollbackReason"`
	ExecutionName           string `json:"executionName"`
	EventTime               string `json:"eventTime"`
}

// EventTypeLicenseReverted is the eventType for license rollback events.
const EventTypeLicenseReverted = "license.rollbackReverted"

// Publisher sends reverted-record notification events.
type Publisher interface {
	PublishReverted(ctx context.Context, events []RevertedEvent) error
}

// SQSAPI is the narrow SQS surface the publisher depends on.
type SQSAPI interface {
	SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
}

var _ SQSAPI = (*sqs.Client)(nil)

// sqsBatchSize is the SQS per-call entry limit.
const sqsBatchSize = 10

// SQSPublisher publishes reverted-record events to an SQS queue.
type SQSPublisher struct {
	client   SQSAPI
	queueURL string
}

// NewSQSPublisher constructs an SQSPublisher.
func NewSQSPublisher(client SQSAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL}
}

// PublishReverted implements Publisher, batching at the SQS entry limit.
// Individual entry failures within an accepted batch are reported as one
// error naming the failed entries.
func (p *SQSPublisher) PublishReverted(ctx context.Context, events []RevertedEvent) error {
	for start := 0; start < len(events); start += sqsBatchSize {
		end := start + sqsBatchSize
		if end > len(events) {
			end = len(events)
		}
		entries := make([]sqstypes.SendMessageBatchRequestEntry, 0, end-start)
		for _, event := range events[start:end] {
			body, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("failed to encode reverted event: %w", err)
			}
			entries = append(entries, sqstypes.SendMessageBatchRequestEntry{
				Id:          aws.String(uuid.NewString()),
				MessageBody: aws.String(string(body)),
			})
		}
		out, err := p.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: aws.String(p.queueURL),
			Entries:  entries,
		})
		if err != nil {
			return fmt.Errorf("failed to publish reverted events: %w", err)
		}
		if len(out.Failed) > 0 {
			return fmt.Errorf("%d of %d reverted events were rejected by the queue", len(out.Failed), len(entries))
		}
	}
	return nil
}

func revertedEvents(plan *ProviderPlan, w *Window, now time.Time) []RevertedEvent {
	events := make([]RevertedEvent, 0, len(plan.Licenses))
	for _, lp := range plan.Licenses {
		events = append(events, RevertedEvent{
			EventType:               EventTypeLicenseReverted,
			Compact:                 w.Compact,
			Jurisdiction:            lp.License.Jurisdiction,
			ProviderID:              plan.ProviderID,
			LicenseTypeAbbreviation: lp.License.LicenseTypeAbbreviation,
			Action:                  lp.Action,
			RollbackReason:          w.RollbackReason,
			ExecutionName:           w.ExecutionName,
			EventTime:               now.UTC().Format(time.RFC3339),
		})
	}
	return events
}
