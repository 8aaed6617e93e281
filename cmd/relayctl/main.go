// Relayctl builds and origin-signs a sponsored token transfer, the
// way an agent does before asking a relay to pay its fee. It prints
// the transaction hex and, with --relay, submits it.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/blockberries/relay/chain"
	"github.com/blockberries/relay/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		keyEnv      = pflag.String("key-env", "AGENT_PRIVATE_KEY", "environment variable holding the agent's private key")
		network     = pflag.String("network", "testnet", `network: "mainnet", anything else selects testnet`)
		nodeURL     = pflag.String("node-url", "", "node API URL, for nonce lookup (default: the network's public API)")
		recipient   = pflag.String("recipient", "", "recipient address (required)")
		amount      = pflag.Uint64("amount", 0, "amount to transfer (required)")
		memo        = pflag.String("memo", "", "transfer memo")
		nonce       = pflag.Int64("nonce", -1, "origin nonce; negative looks it up on the node")
		standard    = pflag.Bool("standard", false, "build a self-paying transaction instead of a sponsored one")
		fee         = pflag.Uint64("fee", 180, "origin fee, with --standard only")
		relayURL    = pflag.String("relay", "", "relay base URL; when set, POST the transaction to {relay}/relay")
		timeout     = pflag.Duration("timeout", 30*time.Second, "timeout for node and relay calls")
		showVersion = pflag.Bool("version", false, "print version information and exit")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Printf("relayctl %s\n", version.Info())
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	keyHex := os.Getenv(*keyEnv)
	if keyHex == "" {
		return fmt.Errorf("%s is not set", *keyEnv)
	}
	key, err := chain.ParsePrivateKey(keyHex)
	if err != nil {
		return err
	}
	if *recipient == "" || *amount == 0 {
		return errors.New("--recipient and --amount are required")
	}
	to, err := chain.ParseAddress(*recipient)
	if err != nil {
		return fmt.Errorf("--recipient: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	target := chain.SelectNetwork(*network, *nodeURL)
	origin := chain.AddressOf(&key.PublicKey)
	n := uint64(*nonce)
	if *nonce < 0 {
		n, err = chain.NewClient(*timeout, nil).AccountNonce(ctx, origin, target)
		if err != nil {
			return fmt.Errorf("look up nonce: %w", err)
		}
	}

	tx := chain.NewTokenTransfer(target, chain.TransferOptions{
		Recipient: to,
		Amount:    *amount,
		Memo:      *memo,
		Nonce:     n,
		Fee:       *fee,
		Sponsored: !*standard,
	})
	signed, err := chain.SignOrigin(tx, key)
	if err != nil {
		return err
	}
	raw, err := chain.EncodeHex(signed)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "origin %s nonce %d on %s (%s)\n", origin, n, target.Name, signed.Auth.Kind)
	fmt.Println(raw)

	if *relayURL == "" {
		return nil
	}
	return submit(ctx, strings.TrimRight(*relayURL, "/")+"/relay", raw)
}

// submit posts the transaction to a relay and prints its answer.
func submit(ctx context.Context, url, raw string) error {
	body, err := json.Marshal(map[string]string{"transaction": raw})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	fmt.Fprintf(os.Stderr, "relay answered %s\n", resp.Status)
	fmt.Println(strings.TrimSpace(string(out)))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay refused the transaction (%d)", resp.StatusCode)
	}
	return nil
}
