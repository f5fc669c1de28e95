// Command psi-sender runs the sender's side as a worker: it waits for
// receiver queries on the exchange, evaluates the blind intersection
// computation over its own dataset and posts the replies. The sender never
// sees a key that could decrypt anything.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/blindset/psi"
	"github.com/blindset/psi/internal/exchange"
	"github.com/blindset/psi/sendersim"
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
		redisAddr   = flag.String("redis", "localhost:6379", "Redis address")
		redisDB     = flag.Int("redis-db", 0, "Redis database number")
		exchName    = flag.String("exchange", "default", "exchange name")
		metricsAddr = flag.String("metrics", ":9091", "metrics server address")
	)
	flag.Parse()

	if *datasetPath == "" {
		return fmt.Errorf("-dataset is required")
	}

	dataset, err := loadDataset(*datasetPath, *hashWidth)
	if err != nil {
		return err
	}

	log.Printf("PSI sender starting...")
	log.Printf("  Dataset: %d elements, %d-bit", dataset.Len(), dataset.BitWidth())
	log.Printf("  Redis: %s", *redisAddr)
	log.Printf("  Metrics: %s", *metricsAddr)

	exch, err := exchange.NewRedisExchange(exchange.RedisConfig{
		Addr: *redisAddr,
		DB:   *redisDB,
	}, *exchName)
	if err != nil {
		return fmt.Errorf("create exchange: %w", err)
	}
	defer exch.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var served, failed atomic.Uint64

	// Metrics server.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "# HELP psi_queries_total Total PSI queries served\n")
		fmt.Fprintf(w, "# TYPE psi_queries_total counter\n")
		fmt.Fprintf(w, "psi_queries_total{status=\"success\"} %d\n", served.Load())
		fmt.Fprintf(w, "psi_queries_total{status=\"failure\"} %d\n", failed.Load())
	})
	server := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	// Query loop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			query, err := exch.NextQuery(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				log.Printf("Next query: %v", err)
				failed.Add(1)
				continue
			}
			if err := serve(ctx, exch, dataset, query); err != nil {
				log.Printf("Session %s: %v", query.SessionID, err)
				failed.Add(1)
				continue
			}
			served.Add(1)
			log.Printf("Session %s served", query.SessionID)
		}
	}()

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("Received %v, shutting down...", sig)
	case <-done:
	}

	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// serve answers one receiver query under that receiver's own parameters
// and keys.
func serve(ctx context.Context, exch exchange.Exchange, dataset *psi.Dataset, query *exchange.Query) error {
	params, err := psi.ParametersFromBytes(query.Params)
	if err != nil {
		return err
	}
	pk, err := psi.PublicKeyFromBytes(query.PublicKey)
	if err != nil {
		return err
	}
	rlk, err := psi.RelinearizationKeyFromBytes(query.RelinKey)
	if err != nil {
		return err
	}
	var ct psi.Ciphertext
	if err := ct.UnmarshalBinary(query.Ciphertext); err != nil {
		return err
	}

	sender := sendersim.New(params, pk, rlk, dataset.Values())
	reply, err := sender.Intersect(ct)
	if err != nil {
		return fmt.Errorf("intersect: %w", err)
	}
	replyData, err := reply.MarshalBinary()
	if err != nil {
		return err
	}

	return exch.PostResponse(ctx, &exchange.Response{
		SessionID:  query.SessionID,
		Ciphertext: replyData,
	})
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
