package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/LaneMorgan/tilegrid"
)

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Time the tuned matrix multiply across a size sweep",
		Flags: []cli.Flag{
			&cli.IntSliceFlag{
				Name:  "sizes",
				Value: cli.NewIntSlice(256, 512, 1024),
				Usage: "Square problem sizes to sweep",
			},
			&cli.IntFlag{Name: "reps", Value: 5, Usage: "Timed repetitions per size"},
		},
		Action: runBench,
	}
}

func runBench(c *cli.Context) error {
	rng := rand.New(rand.NewSource(42))
	tuner := tilegrid.DefaultTuner()

	fmt.Printf("%-16s %-20s %-12s %s\n", "size", "config", "best", "GFLOP/s")
	for _, size := range c.IntSlice("sizes") {
		m, n, k := size, size, size

		dA, err := tilegrid.Malloc(m * k * 4)
		if err != nil {
			return err
		}
		dB, err := tilegrid.Malloc(k * n * 4)
		if err != nil {
			return err
		}
		dC, err := tilegrid.Malloc(m * n * 4)
		if err != nil {
			return err
		}

		a := dA.Float32()[: m*k : m*k]
		b := dB.Float32()[: k*n : k*n]
		for i := range a {
			a[i] = rng.Float32()
		}
		for i := range b {
			b[i] = rng.Float32()
		}

		// First call pays the autotune search.
		if err := tilegrid.MatMul(dC, dA, dB, m, n, k); err != nil {
			return err
		}

		best := time.Duration(1<<63 - 1)
		for rep := 0; rep < c.Int("reps"); rep++ {
			start := time.Now()
			if err := tilegrid.MatMul(dC, dA, dB, m, n, k); err != nil {
				return err
			}
			if elapsed := time.Since(start); elapsed < best {
				best = elapsed
			}
		}

		cfg, _ := tuner.Lookup(tilegrid.Problem{M: m, N: n, K: k, DType: "float32"})
		flops := 2 * float64(m) * float64(n) * float64(k)
		fmt.Printf("%-16s %-20s %-12s %.2f\n",
			fmt.Sprintf("%dx%dx%d", m, n, k), cfg.String(), best, flops/best.Seconds()/1e9)

		tilegrid.Free(dA)
		tilegrid.Free(dB)
		tilegrid.Free(dC)
	}
	return nil
}
