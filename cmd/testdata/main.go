package main

import (
	"flag"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
)

/*generates synthetic review lines mixing positive, negative and neutral vocabulary*/

var (
	TotalCount   = flag.Int64("total_count", 1e4, "Total number of review lines to generate")
	PositiveBias = flag.Float64("positive_bias", 0.4, "Fraction of lines leaning positive")
	NegativeBias = flag.Float64("negative_bias", 0.3, "Fraction of lines leaning negative")
	OutputPath   = flag.String("output", "var/reviews.txt", "Output file path")
)

var positiveWords = []string{
	"good", "great", "excellent", "awesome", "fantastic",
	"wonderful", "amazing", "love", "perfect", "best",
}

var negativeWords = []string{
	"bad", "terrible", "awful", "horrible", "worst",
	"hate", "disappointing", "broken", "useless", "poor",
}

var neutralFiller = []string{
	"the product arrived on time",
	"I ordered this last week",
	"the packaging was standard",
	"delivery took three days",
	"this was my second purchase",
	"the manual covers setup",
}

func generateRow() string {
	roll := rand.Float64()

	var sentiment []string
	switch {
	case roll < *PositiveBias:
		sentiment = positiveWords
	case roll < *PositiveBias+*NegativeBias:
		sentiment = negativeWords
	default:
		return neutralFiller[rand.IntN(len(neutralFiller))] + "\n"
	}

	words := []string{neutralFiller[rand.IntN(len(neutralFiller))]}
	for i := 0; i < 1+rand.IntN(3); i++ {
		words = append(words, sentiment[rand.IntN(len(sentiment))])
	}
	return strings.Join(words, " ") + "\n"
}

func main() {
	flag.Parse()

	// open file for writing
	if err := os.MkdirAll(filepath.Dir(*OutputPath), 0755); err != nil {
		panic(err)
	}
	file, err := os.Create(*OutputPath)
	if err != nil {
		panic(err)
	}
	defer file.Close()

	// generate data
	for i := int64(0); i < *TotalCount; i++ {
		_, err := file.WriteString(generateRow())
		if err != nil {
			panic(err)
		}
	}
}
