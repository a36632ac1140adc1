package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"

	"github.com/venom-hub/internal/kafka"
)

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "build-views", "Kafka topic")
	buildList := flag.String("builds", "", "Build IDs to view (comma-separated)")
	users := flag.Int("users", 50, "Number of distinct viewers")
	rate := flag.Int("rate", 20, "Views per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	if *buildList == "" {
		log.Fatal("at least one build ID is required (-builds)")
	}
	if *rate <= 0 || *users <= 0 {
		log.Fatal("-rate and -users must be positive")
	}
	builds := strings.Split(*buildList, ",")
	brokerList := strings.Split(*brokers, ",")

	fmt.Printf("Publishing views for %d builds to %s on %s at %d/sec\n", len(builds), *topic, *brokers, *rate)

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}

	var successCount, errorCount, sentCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	shutdown := func() {
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("Completed. Sent: %d, Errors: %d\n", atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()
	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}

	for {
		select {
		case <-sigChan:
			fmt.Println("Shutting down...")
			shutdown()
			return

		case <-deadline:
			fmt.Println("Duration reached, shutting down...")
			shutdown()
			return

		case <-ticker.C:
			// Early builds in the list get most of the traffic
			idx := rand.Intn(len(builds))
			if rand.Intn(100) < 60 {
				idx = rand.Intn((len(builds) + 1) / 2)
			}
			ev := kafka.ViewEvent{
				BuildID:   builds[idx],
				UserID:    fmt.Sprintf("viewer-%d", rand.Intn(*users)),
				Timestamp: time.Now().UTC(),
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("Failed to marshal event: %v", err)
				continue
			}
			producer.Input() <- &sarama.ProducerMessage{
				Topic: *topic,
				Key:   sarama.StringEncoder(ev.BuildID),
				Value: sarama.ByteEncoder(data),
			}
			atomic.AddInt64(&sentCount, 1)

		case <-statsTicker.C:
			fmt.Printf("[%s] Queued: %d | Sent: %d | Errors: %d\n",
				time.Now().Format("15:04:05"),
				atomic.LoadInt64(&sentCount),
				atomic.LoadInt64(&successCount),
				atomic.LoadInt64(&errorCount),
			)
		}
	}
}
