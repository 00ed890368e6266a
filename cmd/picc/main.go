// Command picc hashes, signs, and submits PICC decisions.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/JaimeStill/notary/internal/picc"
	"github.com/JaimeStill/notary/pkg/client"
	"github.com/JaimeStill/notary/pkg/formatting"
	"github.com/JaimeStill/notary/pkg/signature"
)

const usage = `usage: picc <command> [flags]

commands:
  submit  -url URL -secret SECRET -file FILE   submit a decision
  hash    -file FILE                            print the content hash and label
  sign    -secret SECRET -file FILE             print the signature header for FILE`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var err error
	switch os.Args[1] {
	case "submit":
		err = runSubmit(os.Args[2:], logger)
	case "hash":
		err = runHash(os.Args[2:])
	case "sign":
		err = runSign(os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("picc failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func runSubmit(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	url := fs.String("url", os.Getenv("NOTARY_URL"), "gateway API base URL")
	secret := fs.String("secret", os.Getenv("NOTARY_WEBHOOK_SECRET"), "shared webhook secret")
	file := fs.String("file", "", "decision file (JSON, or markdown with a json fence)")
	attempts := fs.Int("attempts", 3, "total attempts for retryable failures")
	timeout := fs.Duration("timeout", time.Minute, "overall deadline")
	fs.Parse(args)

	if *url == "" || *secret == "" {
		return errors.New("url and secret required")
	}

	p, err := readPayload(*file)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*url, *secret,
		client.WithRetry(*attempts, time.Second),
		client.WithLogger(logger),
	)

	res, err := c.Submit(ctx, p)
	if err != nil {
		return err
	}

	return printJSON(res)
}

func runHash(args []string) error {
	fs := flag.NewFlagSet("hash", flag.ExitOnError)
	file := fs.String("file", "", "decision file (JSON, or markdown with a json fence)")
	fs.Parse(args)

	p, err := readPayload(*file)
	if err != nil {
		return err
	}

	digest, err := client.Hash(&p)
	if err != nil {
		return err
	}

	return printJSON(map[string]string{
		"hash":  digest.String(),
		"label": digest.Label(),
	})
}

// runSign signs the file bytes exactly as stored.
func runSign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	secret := fs.String("secret", os.Getenv("NOTARY_WEBHOOK_SECRET"), "shared webhook secret")
	file := fs.String("file", "", "request body file")
	fs.Parse(args)

	if *secret == "" {
		return errors.New("secret required")
	}

	body, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read %s: %w", *file, err)
	}

	fmt.Printf("%s: %s\n", signature.Header, signature.Sign([]byte(*secret), body))
	return nil
}

func readPayload(path string) (picc.Payload, error) {
	if path == "" {
		return picc.Payload{}, errors.New("file required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return picc.Payload{}, fmt.Errorf("read %s: %w", path, err)
	}

	return formatting.Parse[picc.Payload](string(data))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
