// Command desbench runs a small synthetic benchmark of the dynamic selection
// engine: it generates a two-cluster dataset, trains a bootstrap pool of
// centroid classifiers, fits the engine on a held-out selection set, and
// reports test accuracy against the pooled majority baseline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/dynsel/dynsel"
	"github.com/dynsel/dynsel/internal/domain"
	"github.com/dynsel/dynsel/internal/testutils"
)

func main() {
	var (
		k        = flag.Int("k", 7, "Region of competence size")
		members  = flag.Int("pool", 10, "Number of bootstrap pool members")
		perClass = flag.Int("per-class", 200, "Samples generated per class")
		spread   = flag.Float64("spread", 1.2, "Cluster standard deviation")
		dfp      = flag.Bool("dfp", false, "Enable frienemy pruning")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "Dataset seed")
	)
	flag.Parse()

	blobs := testutils.DefaultBlobConfig()
	blobs.PerClass = *perClass
	blobs.Spread = *spread
	data := testutils.GenerateBlobs(blobs, *seed)

	// Split into training data for the pool, a selection set for the
	// engine, and a held-out test set.
	train, rest := testutils.SplitDataset(data, 0.5)
	dsel, test := testutils.SplitDataset(rest, 0.5)

	pool := make(dynsel.Pool, 0, *members)
	for i, sub := range testutils.BootstrapPoolData(train, *members, *seed+1) {
		clf, err := testutils.TrainCentroidClassifier(sub)
		if err != nil {
			log.Fatalf("Failed to train pool member %d: %v", i, err)
		}
		pool = append(pool, clf)
	}

	config := dynsel.DefaultConfig()
	config.K = *k
	config.DFP = *dfp

	engine, err := dynsel.NewEngine(config, pool)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	ctx := context.Background()
	start := time.Now()
	if err := engine.Fit(ctx, dsel); err != nil {
		log.Fatalf("Fit failed: %v", err)
	}
	fitElapsed := time.Since(start)

	start = time.Now()
	accuracy, err := engine.Score(ctx, test.Samples, test.Labels)
	if err != nil {
		log.Fatalf("Score failed: %v", err)
	}
	scoreElapsed := time.Since(start)

	baseline := baselineAccuracy(ctx, pool, test)

	fmt.Printf("Dynamic selection benchmark:\n")
	fmt.Printf("- Pool members: %d\n", len(pool))
	fmt.Printf("- Selection set: %d samples, test set: %d samples\n", dsel.Len(), test.Len())
	fmt.Printf("- Region size k: %d, pruning: %v\n", *k, *dfp)
	fmt.Printf("- Fit time: %s, score time: %s\n", fitElapsed, scoreElapsed)
	fmt.Printf("- Static majority accuracy: %.3f\n", baseline)
	fmt.Printf("- Dynamic selection accuracy: %.3f\n", accuracy)
}

// baselineAccuracy scores the pool as a static majority-vote ensemble,
// ignoring the selection set entirely.
func baselineAccuracy(ctx context.Context, pool dynsel.Pool, test domain.Dataset) float64 {
	correct := 0
	for i, sample := range test.Samples {
		tally := make(map[domain.Label]int, 2)
		var best domain.Label
		for _, clf := range pool {
			label, err := clf.Predict(ctx, sample)
			if err != nil {
				log.Fatalf("Baseline predict failed: %v", err)
			}
			tally[label]++
			if tally[label] > tally[best] {
				best = label
			}
		}
		if best == test.Labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(test.Len())
}
