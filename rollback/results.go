/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package rollback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	apperrors "github.com/suparena/compactconnect/errors"
)

// IneligibleUpdate describes one update record that blocked an automated
// revert of its provider.
type IneligibleUpdate struct {
	Jurisdiction            string `json:"jurisdiction"`
	LicenseTypeAbbreviation string `json:"licenseTypeAbbreviation"`
	UpdateType              string `json:"updateType"`
	CreateDate              string `json:"createDate"`
	Reason                  string `json:"reason"`
}

// ProviderSkippedDetails records a provider left untouched, with every
// reason found. A skipped provider never receives a partial revert.
type ProviderSkippedDetails struct {
	ProviderID        string             `json:"providerId"`
	Reasons           []string           `json:"reasons"`
	IneligibleUpdates []IneligibleUpdate `json:"ineligibleUpdates,omitempty"`
}

// ProviderFailedDetails records a provider whose revert transaction was
// rejected by the store. Earlier batches for the provider may have
// committed; a human must investigate before re-running.
type ProviderFailedDetails struct {
	ProviderID string `json:"providerId"`
	Error      string `json:"error"`
}

// RevertedLicense summarizes the action applied to one license.
type RevertedLicense struct {
	Jurisdiction            string   `json:"jurisdiction"`
	LicenseTypeAbbreviation string   `json:"licenseTypeAbbreviation"`
	Action                  string   `json:"action"`
	DeletedUpdateKeys       []string `json:"deletedUpdateKeys,omitempty"`
}

// ProviderRevertedSummary summarizes a successfully reverted provider.
type ProviderRevertedSummary struct {
	ProviderID       string            `json:"providerId"`
	LicensesReverted []RevertedLicense `json:"licensesReverted"`
}

// Results is the durable artifact recording what a rollback execution
// actually did. It is the system of record for the execution: a resumed
// invocation loads it, appends newly-processed providers and saves it back,
// never truncating existing entries.
type Results struct {
	ExecutionName             string                    `json:"executionName"`
	SkippedProviderDetails    []ProviderSkippedDetails  `json:"skippedProviderDetails"`
	FailedProviderDetails     []ProviderFailedDetails   `json:"failedProviderDetails"`
	RevertedProviderSummaries []ProviderRevertedSummary `json:"revertedProviderSummaries"`
}

// Merge appends other's entries onto r.
func (r *Results) Merge(other *Results) {
	if other == nil {
		return
	}
	r.SkippedProviderDetails = append(r.SkippedProviderDetails, other.SkippedProviderDetails...)
	r.FailedProviderDetails = append(r.FailedProviderDetails, other.FailedProviderDetails...)
	r.RevertedProviderSummaries = append(r.RevertedProviderSummaries, other.RevertedProviderSummaries...)
}

// ResultsStore persists the results artifact in a durable object store.
type ResultsStore interface {
	// Load returns the stored artifact for the execution, or an empty
	// artifact if none has been written yet.
	Load(ctx context.Context, executionName string) (*Results, error)
	// Save writes the artifact and returns the object key it was stored at.
	Save(ctx context.Context, results *Results) (string, error)
}

// S3API is the narrow S3 surface the results store depends on.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ S3API = (*s3.Client)(nil)

// S3ResultsStore stores results artifacts as JSON objects keyed by
// execution name.
type S3ResultsStore struct {
	client S3API
	bucket string
}

// NewS3ResultsStore constructs an S3ResultsStore.
func NewS3ResultsStore(client S3API, bucket string) *S3ResultsStore {
	return &S3ResultsStore{client: client, bucket: bucket}
}

func resultsKey(executionName string) string {
	return fmt.Sprintf("rollback/%s/results.json", executionName)
}

// Load implements ResultsStore. A missing object is a fresh execution, not
// an error.
func (s *S3ResultsStore) Load(ctx context.Context, executionName string) (*Results, error) {
	key := resultsKey(executionName)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *s3types.NoSuchKey
		if errors.As(err, &notFound) {
			return &Results{ExecutionName: executionName}, nil
		}
		return nil, fmt.Errorf("failed to load results %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read results %s: %w", key, err)
	}
	var results Results
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, apperrors.NewDataCorruptionError("rollbackResults", key, err.Error())
	}
	return &results, nil
}

// Save implements ResultsStore.
func (s *S3ResultsStore) Save(ctx context.Context, results *Results) (string, error) {
	key := resultsKey(results.ExecutionName)
	body, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to encode results %s: %w", key, err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to save results %s: %w", key, err)
	}
	return key, nil
}
