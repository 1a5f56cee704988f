package main

import (
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"Go2NetIDS/internal/exporter"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/gobana/main.go <snapshot_dir>")
		os.Exit(1)
	}

	vectors, err := exporter.ReadSnapshot(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to read snapshot: %v", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FLOW\tDURATION\tBYTES/S\tFWD HDR\tBWD HDR\tSTDDEV\tMEAN")
	for _, fv := range vectors {
		fmt.Fprintf(tw, "%s\t%.3f\t%.1f\t%d\t%d\t%.1f\t%.1f\n",
			fv.FlowID, fv.Duration, fv.BytesPerSecond, fv.ForwardHeaderBytes, fv.BackwardHeaderBytes,
			fv.PacketLengthStdDev, fv.PacketLengthMean)
	}
	tw.Flush()
	fmt.Printf("%d flows\n", len(vectors))
}
