/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package rollback

import (
	"strings"
	"testing"
	"time"

	"github.com/suparena/compactconnect/errors"
)

func validInput() JobInput {
	return JobInput{
		Compact:        "aslp",
		Jurisdiction:   "oh",
		StartDateTime:  "2024-06-01T00:00:00Z",
		EndDateTime:    "2024-06-03T00:00:00Z",
		RollbackReason: "bad upload",
		ExecutionName:  "exec-1",
	}
}

func TestValidateAcceptsGoodInput(t *testing.T) {
	w, err := validInput().Validate()
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !w.Start.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", w.Start)
	}
	if !w.End.Equal(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", w.End)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*JobInput)
		message string
	}{
		{
			name:    "start equal to end",
			mutate:  func(in *JobInput) { in.EndDateTime = in.StartDateTime },
			message: "before end time",
		},
		{
			name: "start after end",
			mutate: func(in *JobInput) {
				in.StartDateTime = "2024-06-05T00:00:00Z"
			},
			message: "before end time",
		},
		{
			name: "window wider than seven days",
			mutate: func(in *JobInput) {
				in.EndDateTime = "2024-06-09T00:00:01Z"
			},
			message: "cannot exceed",
		},
		{
			name:    "malformed start datetime",
			mutate:  func(in *JobInput) { in.StartDateTime = "June 1st 2024" },
			message: "Invalid datetime format",
		},
		{
			name:    "malformed end datetime",
			mutate:  func(in *JobInput) { in.EndDateTime = "2024-06-03" },
			message: "Invalid datetime format",
		},
		{
			name:    "missing compact",
			mutate:  func(in *JobInput) { in.Compact = "" },
			message: "required",
		},
		{
			name:    "missing rollback reason",
			mutate:  func(in *JobInput) { in.RollbackReason = "" },
			message: "required",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := in.Validate()
			if !errors.IsInvalidRequest(err) {
				t.Fatalf("got %v, want invalid request", err)
			}
			if !strings.Contains(err.Error(), tc.message) {
				t.Errorf("error %q does not contain %q", err.Error(), tc.message)
			}
		})
	}
}

func TestValidateAllowsExactlySevenDays(t *testing.T) {
	in := validInput()
	in.EndDateTime = "2024-06-08T00:00:00Z"
	if _, err := in.Validate(); err != nil {
		t.Errorf("exactly seven days rejected: %v", err)
	}
}
