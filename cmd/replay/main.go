// Command replay prints observations from a zstd observation archive:
// the whole timeline, or a single tick in full.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"citymayor.ai/internal/persistence/obslog"
)

func main() {
	var (
		path = flag.String("archive", "./data/observations.jsonl.zst", "observation archive path")
		tick = flag.Uint64("tick", 0, "print the full observation at this tick (0 = timeline only)")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	observations, err := obslog.ReadAll(*path)
	if err != nil {
		logger.Fatalf("read archive: %v", err)
	}
	if len(observations) == 0 {
		logger.Fatalf("archive is empty: %s", *path)
	}

	if *tick > 0 {
		for _, obs := range observations {
			if obs.Time.Tick == *tick {
				out, err := json.MarshalIndent(obs, "", "  ")
				if err != nil {
					logger.Fatalf("marshal: %v", err)
				}
				fmt.Println(string(out))
				return
			}
		}
		logger.Fatalf("no observation at tick %d", *tick)
	}

	fmt.Printf("%-10s %-12s %-10s %-10s %-8s\n", "TICK", "DATE", "MONEY", "POP", "JOBS")
	for _, obs := range observations {
		fmt.Printf("%-10d %04d-%02d-%02d   %-10d %-10d %-8d\n",
			obs.Time.Tick, obs.Time.Year, obs.Time.Month, obs.Time.Day,
			obs.Stats.Money, obs.Stats.Population, obs.Stats.Jobs)
	}
}
