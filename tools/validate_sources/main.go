package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/NullMeDev/factlens/internal/config"
	"github.com/NullMeDev/factlens/internal/evidence"
	"github.com/NullMeDev/factlens/internal/fanout"
	"github.com/NullMeDev/factlens/internal/sources"
)

// Result is the outcome of probing one regional site.
type Result struct {
	Site    sources.RegionalSite
	Valid   bool
	Skipped bool
	Items   int
	Message string
	Time    time.Duration
}

func main() {
	path := flag.String("file", config.DefaultSourcesFile, "Sources YAML file")
	probe := flag.String("claim", "fact check", "Claim used to probe each site")
	timeout := flag.Duration("timeout", sources.DefaultTimeout, "Per-site timeout")
	flag.Parse()

	fmt.Println("factlens Source Validator")
	fmt.Println("=========================")

	file, err := config.LoadSourcesFile(*path)
	if err != nil {
		fmt.Printf("Failed to load %s: %v\n", *path, err)
		os.Exit(1)
	}
	keywords := file.VerdictKeywords
	if keywords.IsZero() {
		keywords = evidence.DefaultKeywords()
	}
	fmt.Printf("Testing %d regional fact-checkers from %s\n\n", len(file.Regional), *path)

	opts := sources.Options{Timeout: *timeout}
	results := make([]Result, len(file.Regional))
	tasks := make([]fanout.Task, 0, len(file.Regional))
	for i, site := range file.Regional {
		i, site := i, site
		results[i] = Result{Site: site}
		tasks = append(tasks, fanout.Task{
			Name: site.Key,
			Run: func(ctx context.Context) {
				results[i] = check(ctx, site, keywords, opts, *probe)
			},
		})
	}
	fanout.Join(context.Background(), tasks...)

	var valid, invalid int
	invalidSites := make([]string, 0)
	for _, result := range results {
		switch {
		case result.Skipped:
			fmt.Printf("⏭️  %-32s %s\n", result.Site.Name, result.Message)
		case result.Valid:
			fmt.Printf("✅ %-32s [%7dms] %d items\n", result.Site.Name, result.Time.Milliseconds(), result.Items)
			valid++
		default:
			fmt.Printf("❌ %-32s [%7dms] %s\n", result.Site.Name, result.Time.Milliseconds(), result.Message)
			invalid++
			invalidSites = append(invalidSites, result.Site.Key)
		}
	}

	fmt.Println("\nValidation Summary:")
	fmt.Printf("Valid sites:   %d\n", valid)
	fmt.Printf("Invalid sites: %d\n", invalid)

	if invalid > 0 {
		fmt.Println("\nInvalid sites:")
		for _, key := range invalidSites {
			fmt.Printf("- %s\n", key)
		}
		os.Exit(1)
	}
}

func check(ctx context.Context, site sources.RegionalSite, keywords evidence.KeywordTable, opts sources.Options, claim string) Result {
	if site.Disabled {
		return Result{Site: site, Valid: true, Skipped: true, Message: "SKIPPED (disabled)"}
	}
	if err := site.Validate(); err != nil {
		return Result{Site: site, Message: err.Error()}
	}

	start := time.Now()
	res := sources.NewSiteScraper(site, keywords, opts).Fetch(ctx, claim)
	result := Result{Site: site, Items: len(res.Items), Time: time.Since(start)}
	if res.Failed() {
		result.Message = res.Error
		return result
	}
	// An empty page usually means the selectors no longer match.
	if len(res.Items) == 0 {
		result.Message = "no items matched the configured selectors"
		return result
	}
	result.Valid = true
	result.Message = "OK"
	return result
}
