// Package main demonstrates basic usage of the doppel library.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/codeGROOVE-dev/doppel"
	"github.com/codeGROOVE-dev/doppel/evidence"
)

func main() {
	docs := []evidence.Document{
		{
			Index:     0,
			SourceURL: "https://github.com/janedoe",
			RawText:   "Jane Doe. Software engineer at Acme Corp. Based in Portland. Find me on instagram.com/janedoe",
		},
		{
			Index:     1,
			SourceURL: "https://instagram.com/janedoe",
			RawText:   "Jane Doe, photographer and engineer. jane.doe@gmail.com. Portland, OR",
		},
		{
			Index:     2,
			SourceURL: "https://example.com/staff",
			RawText:   "John Smith joined the accounting team in 2019.",
		},
	}

	clusters, err := doppel.Analyze(context.Background(), docs)
	if err != nil {
		log.Fatalf("Analyze failed: %v", err)
	}

	for _, person := range doppel.Summarize(clusters) {
		fmt.Printf("Name:       %s\n", person.Name)
		fmt.Printf("Documents:  %d\n", person.Documents)
		fmt.Printf("Confidence: %.2f\n", person.Confidence)
		if person.Canonical != nil {
			fmt.Printf("Handle:     @%s (%s)\n", person.Canonical.Handle, person.Canonical.Platform)
		}
		fmt.Println()
	}
}
