/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package rollback

import (
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/suparena/compactconnect/errors"
)

// MaxWindow is the hard ceiling on the rollback window. A wider window is
// rejected outright to prevent an accidental mass rollback.
const MaxWindow = 7 * 24 * time.Hour

// JobInput is the JSON job document of one engine invocation. A resumed
// invocation carries the continuation fields returned by the previous one.
type JobInput struct {
	Compact                string `json:"compact"`
	Jurisdiction           string `json:"jurisdiction"`
	StartDateTime          string `json:"startDateTime"`
	EndDateTime            string `json:"endDateTime"`
	RollbackReason         string `json:"rollbackReason"`
	ExecutionName          string `json:"executionName"`
	ProvidersProcessed     int    `json:"providersProcessed,omitempty"`
	ContinueFromProviderID string `json:"continueFromProviderId,omitempty"`
}

// Window is a validated job input with parsed datetimes.
type Window struct {
	Compact                string
	Jurisdiction           string
	Start                  time.Time
	End                    time.Time
	RollbackReason         string
	ExecutionName          string
	ProvidersProcessed     int
	ContinueFromProviderID string
}

// Validate parses and validates the job input. Any failure here is terminal
// for the invocation; the engine maps it to a FAILED result and performs no
// work.
func (in JobInput) Validate() (*Window, error) {
	for field, value := range map[string]string{
		"compact":        in.Compact,
		"jurisdiction":   in.Jurisdiction,
		"startDateTime":  in.StartDateTime,
		"endDateTime":    in.EndDateTime,
		"rollbackReason": in.RollbackReason,
		"executionName":  in.ExecutionName,
	} {
		if value == "" {
			return nil, errors.NewInvalidRequestError(field, "is required")
		}
	}

	start, err := parseDateTime(in.StartDateTime)
	if err != nil {
		return nil, errors.NewInvalidRequestError("startDateTime", err.Error())
	}
	end, err := parseDateTime(in.EndDateTime)
	if err != nil {
		return nil, errors.NewInvalidRequestError("endDateTime", err.Error())
	}

	if !start.Before(end) {
		return nil, errors.NewInvalidRequestError("startDateTime",
			"Start time must be before end time")
	}
	if end.Sub(start) > MaxWindow {
		return nil, errors.NewInvalidRequestError("endDateTime",
			fmt.Sprintf("Rollback window cannot exceed %d days", int(MaxWindow.Hours()/24)))
	}

	return &Window{
		Compact:                in.Compact,
		Jurisdiction:           in.Jurisdiction,
		Start:                  start,
		End:                    end,
		RollbackReason:         in.RollbackReason,
		ExecutionName:          in.ExecutionName,
		ProvidersProcessed:     in.ProvidersProcessed,
		ContinueFromProviderID: in.ContinueFromProviderID,
	}, nil
}

func parseDateTime(s string) (time.Time, error) {
	if !strfmt.IsDateTime(s) {
		return time.Time{}, fmt.Errorf("Invalid datetime format: %q", s)
	}
	dt, err := strfmt.ParseDateTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("Invalid datetime format: %q", s)
	}
	return time.Time(dt).UTC(), nil
}
