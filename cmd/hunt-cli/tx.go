package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"strings"

	"treasurehunt/cmd/internal/passphrase"
	"treasurehunt/core/types"
	"treasurehunt/crypto"
	"treasurehunt/native/treasure"
)

type chainInfo struct {
	ChainID string `json:"chainId"`
	Height  uint64 `json:"height"`
}

// prepareTx fetches the chain id and the sender's next nonce.
func prepareTx(sender crypto.Address) (string, uint64, error) {
	var info chainInfo
	if err := callInto("hunt_chainInfo", nil, false, &info); err != nil {
		return "", 0, err
	}
	var nonce uint64
	if err := callInto("hunt_getNonce", []interface{}{sender.String()}, false, &nonce); err != nil {
		return "", 0, err
	}
	return info.ChainID, nonce, nil
}

// submit sends a signed transaction and prints the outcome.
func submit(tx *types.Transaction, stdout, stderr io.Writer) int {
	result, rpcErr, err := rpcCall("hunt_sendTransaction", []interface{}{tx}, true)
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	if rpcErr != nil {
		return handleRPCError(stderr, rpcErr)
	}
	writeRPCResult(stdout, result)
	return 0
}

func validCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range", lat)
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return fmt.Errorf("longitude %v out of range", lng)
	}
	return nil
}

func buildCreateTx(chainID string, nonce uint64, key *crypto.PrivateKey, in treasure.CreateInstruction) (*types.Transaction, error) {
	tx, err := types.NewTransaction(chainID, types.TxTypeCreateTreasure, nonce, key.PubKey().Address(), in)
	if err != nil {
		return nil, err
	}
	if err := tx.Sign(key); err != nil {
		return nil, err
	}
	return tx, nil
}

func runCreate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var keyFile string
	var in treasure.CreateInstruction
	fs.StringVar(&keyFile, "key", "hunt.key", "authority keystore")
	fs.StringVar(&in.Seed, "seed", "", "address seed (defaults to the name)")
	fs.StringVar(&in.Name, "name", "", "treasure name (max 50 bytes)")
	fs.StringVar(&in.Symbol, "symbol", "", "token symbol (max 10 bytes)")
	fs.StringVar(&in.URI, "uri", "", "metadata URI (max 200 bytes)")
	fs.Float64Var(&in.LocationLat, "lat", 0, "latitude")
	fs.Float64Var(&in.LocationLng, "lng", 0, "longitude")
	fs.Uint64Var(&in.RewardAmount, "reward", 0, "advisory reward amount")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return 1
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		fmt.Fprintln(stderr, "Error: --name is required")
		return 1
	}
	if err := validCoordinates(in.LocationLat, in.LocationLng); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	key, err := loadKey(keyFile, passphrase.NewSource(passphrase.EnvVar))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	chainID, nonce, err := prepareTx(key.PubKey().Address())
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	tx, err := buildCreateTx(chainID, nonce, key, in)
	if err != nil {
		fmt.Fprintf(stderr, "Error: build transaction: %v\n", err)
		return 1
	}
	return submit(tx, stdout, stderr)
}

func runDiscover(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var keyFile, authorityFile, treasureAddr string
	var lat, lng float64
	fs.StringVar(&keyFile, "key", "hunt.key", "finder keystore")
	fs.StringVar(&authorityFile, "authority-key", "", "authority keystore used to co-sign")
	fs.StringVar(&treasureAddr, "treasure", "", "treasure address")
	fs.Float64Var(&lat, "lat", 0, "claimant latitude")
	fs.Float64Var(&lng, "lng", 0, "claimant longitude")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(authorityFile) == "" {
		fmt.Fprintln(stderr, "Error: --authority-key is required")
		return 1
	}
	addr, err := crypto.DecodeAddress(strings.TrimSpace(treasureAddr))
	if err != nil {
		fmt.Fprintf(stderr, "Error: --treasure: %v\n", err)
		return 1
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["lat"] != set["lng"] {
		fmt.Fprintln(stderr, "Error: --lat and --lng must be given together")
		return 1
	}

	var record treasure.Record
	if err := callInto("treasure_get", []interface{}{addr.String()}, false, &record); err != nil {
		return handleRPCCallError(stderr, err)
	}
	if record.Treasure == nil {
		fmt.Fprintln(stderr, "Error: treasure record missing")
		return 1
	}
	if record.Treasure.IsFound {
		fmt.Fprintf(stderr, "Error: treasure already found by %s\n", record.Treasure.Finder)
		return 1
	}

	finder, err := loadKey(keyFile, passphrase.NewSource(passphrase.EnvVar))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	authority, err := loadKey(authorityFile, passphrase.NewSource(authorityPassEnv, passphrase.WithLabel("authority keystore")))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if authority.PubKey().Address() != record.Treasure.Authority {
		fmt.Fprintf(stderr, "Error: %s is not the treasure authority\n", authority.PubKey().Address())
		return 1
	}

	in := treasure.DiscoverInstruction{Treasure: addr, Mint: record.Treasure.Mint}
	if set["lat"] {
		if err := validCoordinates(lat, lng); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		in.ClaimLat, in.ClaimLng = &lat, &lng
	}

	chainID, nonce, err := prepareTx(finder.PubKey().Address())
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	tx, err := types.NewTransaction(chainID, types.TxTypeDiscoverTreasure, nonce, finder.PubKey().Address(), in)
	if err == nil {
		tx.SetCosigner(authority.PubKey().Address())
		err = tx.Sign(finder)
	}
	if err == nil {
		err = tx.Cosign(authority)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: build transaction: %v\n", err)
		return 1
	}
	return submit(tx, stdout, stderr)
}

// sendResult mirrors the hunt_sendTransaction result.
type sendResult struct {
	TxHash  string          `json:"txHash"`
	Receipt json.RawMessage `json:"receipt"`
}
