// Command psi-receiver runs one PSI session from the receiver's side:
// it loads a dataset, generates session keys, encrypts the dataset, posts
// the query on the exchange, waits for the sender's reply and prints the
// intersection.
package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/blindset/psi"
	"github.com/blindset/psi/internal/exchange"
	"github.com/blindset/psi/internal/presenter"
	"github.com/blindset/psi/internal/transcript"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		datasetPath = flag.String("dataset", "", "path to the dataset file (one entry per line)")
		hashWidth   = flag.Int("hash-width", 0, "hash entries to this bit width instead of parsing bit-strings")
		paramSet    = flag.String("params", "n13", "parameter set: n12 or n13")
		redisAddr   = flag.String("redis", "localhost:6379", "Redis address")
		redisDB     = flag.Int("redis-db", 0, "Redis database number")
		exchName    = flag.String("exchange", "default", "exchange name")
		session     = flag.String("session", "", "session ID (random if empty)")
		timeout     = flag.Duration("timeout", 5*time.Minute, "how long to wait for the sender's reply")
		outPath     = flag.String("out", "", "write the intersection to this file")
		auditDir    = flag.String("audit", "", "record the session transcript under this directory")
	)
	flag.Parse()

	if *datasetPath == "" {
		return fmt.Errorf("-dataset is required")
	}

	params, err := paramsByName(*paramSet)
	if err != nil {
		return err
	}

	dataset, err := loadDataset(*datasetPath, *hashWidth)
	if err != nil {
		return err
	}

	sessionID := *session
	if sessionID == "" {
		if sessionID, err = randomSessionID(); err != nil {
			return err
		}
	}

	log.Printf("PSI receiver starting...")
	log.Printf("  Session: %s", sessionID)
	log.Printf("  Dataset: %d elements, %d-bit", dataset.Len(), dataset.BitWidth())
	log.Printf("  Slots: %d", params.SlotCount())

	recv, err := psi.SetupKeys(psi.NewEngine(params))
	if err != nil {
		return fmt.Errorf("setup keys: %w", err)
	}
	if err := recv.SetDataset(dataset); err != nil {
		return fmt.Errorf("set dataset: %w", err)
	}

	ct, err := recv.EncryptDataset()
	if err != nil {
		return fmt.Errorf("encrypt dataset: %w", err)
	}
	log.Printf("Dataset encrypted")

	query, err := buildQuery(sessionID, recv, ct)
	if err != nil {
		return err
	}

	exch, err := exchange.NewRedisExchange(exchange.RedisConfig{
		Addr: *redisAddr,
		DB:   *redisDB,
	}, *exchName)
	if err != nil {
		return fmt.Errorf("create exchange: %w", err)
	}
	defer exch.Close()

	var audit transcript.Store
	if *auditDir != "" {
		if audit, err = transcript.NewFileStore(*auditDir); err != nil {
			return fmt.Errorf("create transcript store: %w", err)
		}
		defer audit.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := exch.PostQuery(ctx, query); err != nil {
		return fmt.Errorf("post query: %w", err)
	}
	if audit != nil {
		if _, err := audit.Record(ctx, sessionID, transcript.KindQuery, query.Ciphertext); err != nil {
			return fmt.Errorf("record query: %w", err)
		}
	}
	log.Printf("Query posted, waiting for the sender...")

	resp, err := exch.AwaitResponse(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("await response: %w", err)
	}
	if audit != nil {
		if _, err := audit.Record(ctx, sessionID, transcript.KindResponse, resp.Ciphertext); err != nil {
			return fmt.Errorf("record response: %w", err)
		}
	}
	log.Printf("Reply received")

	var reply psi.Ciphertext
	if err := reply.UnmarshalBinary(resp.Ciphertext); err != nil {
		return err
	}

	result, err := recv.DecryptAndIntersect(reply)
	if err != nil {
		return fmt.Errorf("decrypt and intersect: %w", err)
	}

	if err := presenter.WriteTable(os.Stdout, result.Intersection); err != nil {
		return err
	}
	if err := presenter.WriteNoiseBudget(os.Stdout, result.NoiseBudget); err != nil {
		return err
	}
	if *outPath != "" {
		if err := presenter.WriteResultFile(*outPath, result.Intersection); err != nil {
			return err
		}
		log.Printf("Result written to %s", *outPath)
	}
	if audit != nil {
		if _, err := audit.Record(ctx, sessionID, transcript.KindResult, []byte(strings.Join(result.Intersection, "\n"))); err != nil {
			return fmt.Errorf("record result: %w", err)
		}
	}

	return nil
}

func paramsByName(name string) (psi.Parameters, error) {
	switch name {
	case "n12":
		return psi.NewParametersFromLiteral(psi.PN12T65537)
	case "n13":
		return psi.NewParametersFromLiteral(psi.PN13T65537)
	default:
		return psi.Parameters{}, fmt.Errorf("unknown parameter set %q", name)
	}
}

func loadDataset(path string, hashWidth int) (*psi.Dataset, error) {
	if hashWidth == 0 {
		return psi.LoadDataset(path)
	}
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	return psi.HashStrings(lines, hashWidth)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return lines, nil
}

func randomSessionID() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("session ID: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

func buildQuery(sessionID string, recv *psi.Receiver, ct psi.Ciphertext) (*exchange.Query, error) {
	paramsData, err := recv.Parameters().MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal parameters: %w", err)
	}
	pkData, err := recv.PublicKey().MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	rlkData, err := recv.RelinearizationKey().MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal relinearization key: %w", err)
	}
	ctData, err := ct.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return &exchange.Query{
		SessionID:  sessionID,
		Params:     paramsData,
		PublicKey:  pkData,
		RelinKey:   rlkData,
		Ciphertext: ctData,
	}, nil
}
