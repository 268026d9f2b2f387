package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/niksmo/shop/config"
	"github.com/niksmo/shop/internal/adapter"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	partitions        = 3
	replicationFactor = 3
	cleanupPolicy     = "delete"
	retention         = 7 * 24 * time.Hour
)

func main() {
	sigCtx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer cancel()

	cfg := config.Load()

	cl := createClient(cfg.Broker)
	defer cl.Close()

	topic := cfg.Broker.Topics.ExportEvents
	printStart(topic)
	start := time.Now()

	if err := makeTopics(sigCtx, cl, topic); err != nil {
		printFail(err)
		cancel()
		os.Exit(2)
	}
	printComplete(start)
}

func createClient(brokerCfg config.Broker) *kadm.Client {
	opts := []kgo.Opt{kgo.SeedBrokers(brokerCfg.SeedBrokers...)}

	tlsCfg, err := adapter.MakeTLSConfig(
		brokerCfg.TLS.CA, brokerCfg.TLS.Cert, brokerCfg.TLS.Key,
	)
	if err != nil {
		panic(err) // develop mistake
	}
	if tlsCfg != nil {
		opts = append(opts, kgo.DialTLSConfig(tlsCfg))
	}

	cl, err := kadm.NewOptClient(opts...)
	if err != nil {
		panic(err) // develop mistake
	}
	return cl
}

func topicConfig() map[string]*string {
	policy := cleanupPolicy
	minISR := "1"
	retentionMs := fmt.Sprint(retention.Milliseconds())
	return map[string]*string{
		"cleanup.policy":      &policy,
		"min.insync.replicas": &minISR,
		"retention.ms":        &retentionMs,
	}
}

func makeTopics(ctx context.Context, cl *kadm.Client, topics ...string) error {
	responses, err := cl.CreateTopics(
		ctx,
		partitions,
		replicationFactor,
		topicConfig(),
		topics...,
	)
	if err != nil {
		return err
	}

	var errs []error
	for _, res := range responses.Sorted() {
		if res.Err != nil {
			if errors.Is(res.Err, kerr.TopicAlreadyExists) {
				fmt.Printf("topic: %q already exists\n", res.Topic)
			} else {
				errs = append(errs, fmt.Errorf("%s: %w", res.Topic, res.Err))
			}
			continue
		}
		fmt.Printf("topic: %q successfully created\n", res.Topic)
	}

	return errors.Join(errs...)
}

func printStart(topics ...string) {
	fmt.Println("initializing topics...")
	for _, t := range topics {
		fmt.Printf("\t- %q\n", t)
	}
	fmt.Println()
}

func printComplete(start time.Time) {
	fmt.Printf("\ncomplete in %s\n", time.Since(start))
}

func printFail(err error) {
	fmt.Printf("failed to create topics: \n%s\n", err)
}
