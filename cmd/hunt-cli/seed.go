package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"treasurehunt/cmd/internal/passphrase"
	"treasurehunt/native/treasure"
)

// seedFile lists treasures to create in one go.
type seedFile struct {
	Treasures []seedTreasure `yaml:"treasures"`
}

type seedTreasure struct {
	Seed   string  `yaml:"seed"`
	Name   string  `yaml:"name"`
	Symbol string  `yaml:"symbol"`
	URI    string  `yaml:"uri"`
	Lat    float64 `yaml:"lat"`
	Lng    float64 `yaml:"lng"`
	Reward uint64  `yaml:"reward"`
}

func loadSeedFile(path string) ([]treasure.CreateInstruction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(file.Treasures) == 0 {
		return nil, errors.New("seed file lists no treasures")
	}
	out := make([]treasure.CreateInstruction, 0, len(file.Treasures))
	seen := make(map[string]struct{}, len(file.Treasures))
	for i, entry := range file.Treasures {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("treasure %d: name required", i)
		}
		seed := entry.Seed
		if seed == "" {
			seed = name
		}
		if _, dup := seen[seed]; dup {
			return nil, fmt.Errorf("treasure %d: duplicate seed %q", i, seed)
		}
		seen[seed] = struct{}{}
		if err := validCoordinates(entry.Lat, entry.Lng); err != nil {
			return nil, fmt.Errorf("treasure %d: %w", i, err)
		}
		out = append(out, treasure.CreateInstruction{
			Seed:         entry.Seed,
			Name:         name,
			Symbol:       entry.Symbol,
			URI:          entry.URI,
			LocationLat:  entry.Lat,
			LocationLng:  entry.Lng,
			RewardAmount: entry.Reward,
		})
	}
	return out, nil
}

func runSeed(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var keyFile, file string
	fs.StringVar(&keyFile, "key", "hunt.key", "authority keystore")
	fs.StringVar(&file, "file", "", "yaml file listing treasures")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(file) == "" {
		fmt.Fprintln(stderr, "Error: --file is required")
		return 1
	}
	instructions, err := loadSeedFile(file)
	if err != nil {
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

	for i, in := range instructions {
		tx, err := buildCreateTx(chainID, nonce+uint64(i), key, in)
		if err != nil {
			fmt.Fprintf(stderr, "Error: build %q: %v\n", in.Name, err)
			return 1
		}
		result, rpcErr, err := rpcCall("hunt_sendTransaction", []interface{}{tx}, true)
		if err != nil {
			return handleRPCCallError(stderr, err)
		}
		if rpcErr != nil {
			fmt.Fprintf(stderr, "Error: %q rejected after %d created\n", in.Name, i)
			return handleRPCError(stderr, rpcErr)
		}
		var sent sendResult
		if err := json.Unmarshal(result, &sent); err != nil {
			return handleRPCCallError(stderr, err)
		}
		fmt.Fprintf(stdout, "created %s tx %s\n", in.Name, sent.TxHash)
	}
	fmt.Fprintf(stdout, "%d treasures created\n", len(instructions))
	return 0
}
