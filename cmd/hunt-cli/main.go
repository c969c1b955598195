package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

var rpcEndpoint = defaultRPCEndpoint() // overridden via HUNT_RPC_URL or --rpc
var rpcAuthToken = os.Getenv("HUNT_RPC_TOKEN")

func main() {
	args, err := applyGlobalFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(run(args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	rest := args[1:]
	switch args[0] {
	case "generate-key":
		return runGenerateKey(rest, stdout, stderr)
	case "address":
		return runAddress(rest, stdout, stderr)
	case "create":
		return runCreate(rest, stdout, stderr)
	case "discover":
		return runDiscover(rest, stdout, stderr)
	case "seed":
		return runSeed(rest, stdout, stderr)
	case "get":
		return runGet(rest, stdout, stderr)
	case "list":
		return runList(rest, stdout, stderr)
	case "nearby":
		return runNearby(rest, stdout, stderr)
	case "balance":
		return runBalance(rest, stdout, stderr)
	case "metadata":
		return runMetadata(rest, stdout, stderr)
	case "leaderboard":
		return runLeaderboard(rest, stdout, stderr)
	case "receipt":
		return runReceipt(rest, stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("HUNT_RPC_URL")); v != "" {
		return v
	}
	return "http://127.0.0.1:8545"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func usage() string {
	return strings.TrimSpace(`
Usage: hunt-cli [--rpc URL] <command> [flags]

Keys:
  generate-key --out FILE            create an encrypted keystore
  address --key FILE                 print the address of a keystore

Transactions (HUNT_RPC_TOKEN is sent as bearer token):
  create --key FILE --name N --symbol S --uri U --lat LAT --lng LNG --reward R [--seed SEED]
  discover --key FINDER --authority-key FILE --treasure ADDR [--lat LAT --lng LNG]
  seed --key FILE --file treasures.yaml

Queries:
  get ADDR
  list [--offset N] [--limit N]
  nearby --lat LAT --lng LNG [--radius M] [--unfound] [--limit N]
  balance --owner ADDR --mint ADDR
  metadata MINT
  leaderboard [top [--limit N] | player ADDR | search QUERY | stats]
  receipt TXHASH

Passphrases are read from HUNT_KEYSTORE_PASSPHRASE (co-signer: HUNT_AUTHORITY_PASSPHRASE)
or prompted on the terminal.`)
}
