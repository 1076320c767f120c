package main

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"NetBurst/internal/model"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/burstcat/main.go <gob_file>")
		os.Exit(1)
	}
	gobFile := os.Args[1]

	file, err := os.Open(gobFile)
	if err != nil {
		log.Fatalf("Unable to open file: %v", err)
	}
	defer file.Close()

	// The gob sink encodes bursts one at a time, so decode until EOF.
	decoder := gob.NewDecoder(file)
	count := 0
	for {
		var b model.Burst
		if err := decoder.Decode(&b); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			log.Fatalf("Failed to decode gob data: %v", err)
		}
		fmt.Printf("%.6f - %s -> %s, start: %.6f, end: %.6f, packets: %d, bytes: %d\n",
			b.CompletionTime, b.SrcEndpoint(), b.DstEndpoint(), b.Start, b.End, b.NumPackets, b.Size)
		count++
	}
	fmt.Printf("Decoded %d bursts.\n", count)
}
