// mkfixture writes a synthetic encounter Parquet file for benchmarks and manual runs.
// Codes are drawn from the built-in reference tables at --hit-rate, otherwise
// from a pool of codes that match no category.
// Usage: go run ./cmd/mkfixture --out testdata/encounters.parquet --rows 100000 --icd-version 10
package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"

	goparquet "github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/gyeh/pccc/internal/codes"
	"github.com/gyeh/pccc/internal/model"
)

var noise = map[int][]string{
	9:  {"V700", "7806", "4659", "78900", "V3000", "3829", "8703", "9904"},
	10: {"R69", "Z0000", "J069", "R509", "Z3800", "H6690", "3E0234Z", "0DB68ZX"},
}

func main() {
	out := flag.String("out", "testdata/encounters.parquet", "output parquet")
	rows := flag.Int("rows", 10000, "encounters to write")
	version := flag.Int("icd-version", 10, "ICD version: 9 or 10")
	hitRate := flag.Float64("hit-rate", 0.1, "probability that a code is drawn from the reference tables")
	maxDx := flag.Int("max-dx", 8, "maximum diagnosis codes per encounter")
	maxPc := flag.Int("max-pc", 3, "maximum procedure codes per encounter")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	ts, err := codes.Build(*version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build tables: %v\n", err)
		os.Exit(1)
	}

	var dxPool, pcPool []string
	for _, ti := range ts.Tables() {
		if ti.CodeType == model.Diagnosis {
			dxPool = append(dxPool, ti.Codes...)
		} else {
			pcPool = append(pcPool, ti.Codes...)
		}
	}
	filler := noise[*version]

	rng := rand.New(rand.NewPCG(*seed, *seed+1))
	pick := func(pool []string) string {
		if rng.Float64() < *hitRate {
			return pool[rng.IntN(len(pool))]
		}
		return filler[rng.IntN(len(filler))]
	}

	outFile, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output: %v\n", err)
		os.Exit(1)
	}
	defer outFile.Close()

	writer := goparquet.NewGenericWriter[model.EncounterRow](outFile,
		goparquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
	)

	const batch = 4096
	buf := make([]model.EncounterRow, 0, batch)
	var dxCount, pcCount int
	for i := range *rows {
		row := model.EncounterRow{
			ID: fmt.Sprintf("enc-%08d", i),
			Dx: make([]string, rng.IntN(*maxDx+1)),
			Pc: make([]string, rng.IntN(*maxPc+1)),
		}
		for j := range row.Dx {
			row.Dx[j] = pick(dxPool)
		}
		for j := range row.Pc {
			row.Pc[j] = pick(pcPool)
		}
		dxCount += len(row.Dx)
		pcCount += len(row.Pc)

		buf = append(buf, row)
		if len(buf) == batch {
			if _, err := writer.Write(buf); err != nil {
				fmt.Fprintf(os.Stderr, "write: %v\n", err)
				os.Exit(1)
			}
			buf = buf[:0]
		}
	}
	if len(buf) > 0 {
		if _, err := writer.Write(buf); err != nil {
			fmt.Fprintf(os.Stderr, "write: %v\n", err)
			os.Exit(1)
		}
	}
	if err := writer.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close writer: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d encounters to %s (icd%d, %d dx codes, %d pc codes)\n",
		*rows, *out, *version, dxCount, pcCount)
}
