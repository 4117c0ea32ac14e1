package main

import (
	"fmt"
	"log"
	"os"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <captured-sequence.jsonl>\n", os.Args[0])
		os.Exit(1)
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		log.Fatalf("replayvalidate: %v", err)
	}
	defer f.Close()

	result, err := Replay(f)
	if err != nil {
		log.Fatalf("replayvalidate: %v", err)
	}

	fmt.Printf("total_seconds=%d invalid_book_seconds=%d (%.2f%%) exceptions=%d crossed_seconds=%d discontinuities=%d\n",
		result.TotalSeconds, result.InvalidBookSeconds, result.InvalidBookSecondsPct()*100,
		result.Exceptions, result.CrossedSeconds, result.Discontinuities)

	if result.Pass() {
		fmt.Println("ReplayPass=true")
		os.Exit(0)
	}
	fmt.Println("ReplayPass=false")
	os.Exit(1)
}
