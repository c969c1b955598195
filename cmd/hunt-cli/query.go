package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

func singleArg(name string, args []string, stderr io.Writer) (string, bool) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		fmt.Fprintf(stderr, "Error: %s takes exactly one argument\n", name)
		return "", false
	}
	return strings.TrimSpace(args[0]), true
}

func runGet(args []string, stdout, stderr io.Writer) int {
	addr, ok := singleArg("get", args, stderr)
	if !ok {
		return 1
	}
	return query(stdout, stderr, "treasure_get", addr)
}

func runReceipt(args []string, stdout, stderr io.Writer) int {
	hash, ok := singleArg("receipt", args, stderr)
	if !ok {
		return 1
	}
	return query(stdout, stderr, "hunt_getReceipt", hash)
}

func runMetadata(args []string, stdout, stderr io.Writer) int {
	mint, ok := singleArg("metadata", args, stderr)
	if !ok {
		return 1
	}
	return query(stdout, stderr, "metadata_get", mint)
}

func runList(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	offset := fs.Int("offset", 0, "records to skip")
	limit := fs.Int("limit", 50, "records to return")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *offset < 0 || *limit <= 0 {
		fmt.Fprintln(stderr, "Error: --offset must be >= 0 and --limit > 0")
		return 1
	}
	return query(stdout, stderr, "treasure_list", map[string]int{"offset": *offset, "limit": *limit})
}

func runNearby(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("nearby", flag.ContinueOnError)
	fs.SetOutput(stderr)
	lat := fs.Float64("lat", 0, "latitude")
	lng := fs.Float64("lng", 0, "longitude")
	radius := fs.Float64("radius", 1000, "search radius in metres")
	unfound := fs.Bool("unfound", false, "only unfound treasures")
	limit := fs.Int("limit", 0, "maximum results")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["lat"] || !set["lng"] {
		fmt.Fprintln(stderr, "Error: --lat and --lng are required")
		return 1
	}
	if err := validCoordinates(*lat, *lng); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return query(stdout, stderr, "treasure_nearby", map[string]interface{}{
		"lat":          *lat,
		"lng":          *lng,
		"radiusMeters": *radius,
		"unfoundOnly":  *unfound,
		"limit":        *limit,
	})
}

func runBalance(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	fs.SetOutput(stderr)
	owner := fs.String("owner", "", "token owner address")
	mint := fs.String("mint", "", "mint address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(*owner) == "" || strings.TrimSpace(*mint) == "" {
		fmt.Fprintln(stderr, "Error: --owner and --mint are required")
		return 1
	}
	return query(stdout, stderr, "token_balance", strings.TrimSpace(*owner), strings.TrimSpace(*mint))
}

func runLeaderboard(args []string, stdout, stderr io.Writer) int {
	sub := "top"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	switch sub {
	case "top":
		fs := flag.NewFlagSet("leaderboard top", flag.ContinueOnError)
		fs.SetOutput(stderr)
		limit := fs.Int("limit", 15, "entries to return")
		if err := fs.Parse(args); err != nil {
			return 1
		}
		return query(stdout, stderr, "leaderboard_top", *limit)
	case "player":
		addr, ok := singleArg("leaderboard player", args, stderr)
		if !ok {
			return 1
		}
		return query(stdout, stderr, "leaderboard_player", addr)
	case "search":
		q, ok := singleArg("leaderboard search", args, stderr)
		if !ok {
			return 1
		}
		return query(stdout, stderr, "leaderboard_search", q)
	case "stats":
		return query(stdout, stderr, "leaderboard_stats")
	default:
		fmt.Fprintf(stderr, "Unknown leaderboard subcommand: %s\n", sub)
		return 1
	}
}
