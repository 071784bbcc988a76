/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Command rollback runs one invocation of the license-upload rollback
// engine. It reads a job-input JSON document from a file or stdin, applies
// the revert, and prints the job output JSON. An IN_PROGRESS output must be
// fed back in as the next invocation's input continuation fields.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"

	"github.com/suparena/compactconnect"
	"github.com/suparena/compactconnect/compactconfig"
	"github.com/suparena/compactconnect/datastore/ddb"
	"github.com/suparena/compactconnect/rollback"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
	inputFlag   = flag.String("input", "-", "Job input JSON file, or - for stdin")
	envFlag     = flag.String("env", "", "Optional .env file to load")
	configFlag  = flag.String("config", "compacts.yaml", "Compact configuration YAML file")
)

func main() {
	flag.Parse()

	if *versionFlag || *vFlag {
		info := compactconnect.GetVersionInfo()
		fmt.Printf("CompactConnect rollback version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	if err := run(context.Background(), logger); err != nil {
		logger.Error("rollback invocation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	if *envFlag != "" {
		if err := godotenv.Load(*envFlag); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", *envFlag, err)
		}
	} else {
		// A missing default .env is fine.
		_ = godotenv.Load()
	}

	tableName := os.Getenv("COMPACTCONNECT_TABLE_NAME")
	resultsBucket := os.Getenv("COMPACTCONNECT_RESULTS_BUCKET")
	eventQueueURL := os.Getenv("COMPACTCONNECT_EVENT_QUEUE_URL")
	if tableName == "" || resultsBucket == "" || eventQueueURL == "" {
		return fmt.Errorf("COMPACTCONNECT_TABLE_NAME, COMPACTCONNECT_RESULTS_BUCKET and COMPACTCONNECT_EVENT_QUEUE_URL must be set")
	}

	if _, err := compactconfig.Load(*configFlag); err != nil {
		return fmt.Errorf("failed to load compact configuration: %w", err)
	}

	input, err := readInput(*inputFlag)
	if err != nil {
		return err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	store := ddb.NewDynamodbDataStore(ddb.NewClientFromConfig(awsCfg), tableName)
	results := rollback.NewS3ResultsStore(s3.NewFromConfig(awsCfg), resultsBucket)
	publisher := rollback.NewSQSPublisher(sqs.NewFromConfig(awsCfg), eventQueueURL)

	engine := rollback.NewEngine(store, results, publisher, logger)
	output, err := engine.Run(ctx, input)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func readInput(path string) (rollback.JobInput, error) {
	var in rollback.JobInput
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return in, fmt.Errorf("failed to read job input: %w", err)
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("failed to parse job input: %w", err)
	}
	return in, nil
}
