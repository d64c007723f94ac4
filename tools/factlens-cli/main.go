package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NullMeDev/factlens/internal/evidence"
)

func main() {
	host := flag.String("host", "http://localhost:8080", "factlens API base URL")
	raw := flag.Bool("json", false, "Print the full record as JSON")
	timeout := flag.Duration("timeout", time.Minute, "Request timeout")
	flag.Parse()

	claim := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if claim == "" {
		fmt.Println("Usage: factlens-cli [-host URL] [-json] <claim text>")
		os.Exit(2)
	}

	body, _ := json.Marshal(map[string]string{"claim": claim})
	client := &http.Client{Timeout: *timeout}
	resp, err := client.Post(strings.TrimRight(*host, "/")+"/api/verify", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Println("Request failed:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Response [%d]: %s\n", resp.StatusCode, data)
		os.Exit(1)
	}
	if *raw {
		fmt.Println(string(data))
		return
	}

	var rec evidence.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		fmt.Println("Unreadable response:", err)
		os.Exit(1)
	}
	printRecord(&rec)
}

func printRecord(rec *evidence.Record) {
	fmt.Printf("Claim:      %s\n", rec.NormalizedClaim)
	fmt.Printf("Verdict:    %s (%.0f%% confidence)\n", rec.AIAnalysis.VerdictSuggestion, rec.AIAnalysis.Confidence*100)
	fmt.Printf("Evidence:   regional %d, web %d, scraper %d, news %d, fact-checks %d\n",
		rec.Summary.RegionalCount, rec.Summary.WebSearchCount, rec.Summary.ScraperCount,
		rec.Summary.NewsCount, len(rec.FactCheck.Claims))
	for _, line := range rec.AIAnalysis.Reasoning {
		fmt.Printf("  - %s\n", line)
	}

	for _, res := range []evidence.SourceResult{rec.Regional, rec.WebSearch, rec.Scraper, rec.News} {
		if res.Error != "" {
			fmt.Printf("! %s: %s\n", res.Source, res.Error)
		}
	}
	if rec.FactCheck.Error != "" {
		fmt.Printf("! fact_check: %s\n", rec.FactCheck.Error)
	}
	if rec.Error != "" {
		fmt.Printf("Error: %s\n", rec.Error)
	}
}
