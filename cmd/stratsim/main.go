// Command stratsim publishes synthetic momentum portfolios to the input
// topic. Each simulated strategy drives a random walk per instrument and
// flips between full-conviction long and short whenever the walk changes
// direction, which exercises the aggregation path end to end without a
// real strategy fleet.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"KellyMux/internal/domain/models"
	pkgkafka "KellyMux/pkg/kafka"
)

type instrumentWalk struct {
	instrument models.Instrument
	price      float64
	long       bool
}

type strategy struct {
	id    string
	walks []*instrumentWalk
}

func newStrategy(id string, instruments []models.Instrument, startPrice float64) *strategy {
	walks := make([]*instrumentWalk, 0, len(instruments))
	for _, inst := range instruments {
		walks = append(walks, &instrumentWalk{instrument: inst, price: startPrice, long: true})
	}
	return &strategy{id: id, walks: walks}
}

// step advances every walk by a +/-1% tick and returns a portfolio when
// at least one instrument flipped direction.
func (s *strategy) step(rng *rand.Rand) (models.TargetPortfolio, bool) {
	flipped := false
	for _, w := range s.walks {
		change := rng.Float64()*0.02 - 0.01
		w.price *= 1.0 + change
		if w.price < 0.01 {
			w.price = 0.01
		}
		up := change >= 0
		if up != w.long {
			w.long = up
			flipped = true
		}
	}
	if !flipped {
		return models.TargetPortfolio{}, false
	}

	weights := make(map[models.Instrument]float64, len(s.walks))
	per := 1.0 / float64(len(s.walks))
	for _, w := range s.walks {
		if w.long {
			weights[w.instrument] = per
		} else {
			weights[w.instrument] = -per
		}
	}
	return models.TargetPortfolio{OwnerID: s.id, Weights: weights}, true
}

func parseInstruments(spec string) ([]models.Instrument, error) {
	parts := strings.Split(spec, ",")
	instruments := make([]models.Instrument, 0, len(parts))
	for _, p := range parts {
		var inst models.Instrument
		if err := inst.UnmarshalText([]byte(strings.TrimSpace(p))); err != nil {
			return nil, err
		}
		instruments = append(instruments, inst)
	}
	return instruments, nil
}

func main() {
	brokers := flag.String("brokers", "localhost:9092", "comma-separated Kafka brokers")
	topic := flag.String("topic", "portfolio.updates", "input topic to publish to")
	instrumentSpec := flag.String("instruments", "stock:AAPL:US,stock:TSLA:US,stock:MSFT:US", "comma-separated category:symbol:venue instruments")
	strategies := flag.Int("strategies", 2, "number of simulated strategies")
	interval := flag.Duration("interval", 500*time.Millisecond, "tick interval")
	seed := flag.Int64("seed", 0, "random seed (0 = time-based)")
	flag.Parse()

	instruments, err := parseInstruments(*instrumentSpec)
	if err != nil {
		log.Fatalf("bad instrument spec: %v", err)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(strings.Split(*brokers, ",")),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		log.Fatalf("kafka producer: %v", err)
	}
	defer producer.Close()

	sims := make([]*strategy, 0, *strategies)
	for i := 0; i < *strategies; i++ {
		id := "StratSim" + string(rune('A'+i%26))
		sims = append(sims, newStrategy(id, instruments, 100.0))
	}
	log.Printf("stratsim: %d strategies, %d instruments, topic=%s seed=%d",
		len(sims), len(instruments), *topic, *seed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	published := 0
	for {
		select {
		case <-sigCh:
			log.Printf("stratsim: stopping after %d portfolios", published)
			return
		case <-ticker.C:
			for _, s := range sims {
				portfolio, ok := s.step(rng)
				if !ok {
					continue
				}
				if err := producer.Publish(ctx, *topic, []byte(portfolio.OwnerID), portfolio); err != nil {
					log.Printf("publish failed for %s: %v", portfolio.OwnerID, err)
					continue
				}
				published++
			}
		}
	}
}
