package verify

import (
	"github.com/NullMeDev/factlens/internal/config"
	"github.com/NullMeDev/factlens/internal/logging"
	"github.com/NullMeDev/factlens/internal/reasoner"
	"github.com/NullMeDev/factlens/internal/sources"
)

// NewSources builds the production sources from cfg.
func NewSources(cfg *config.Config, log *logging.Logger) Sources {
	opts := cfg.SourceOptions()
	opts.Logger = log

	return Sources{
		FactCheck: sources.NewFactCheckIndex(cfg.FactCheckAPIKey, opts),
		Regional:  sources.NewRegionalFromSites(cfg.Regional, cfg.Keywords, opts),
		WebSearch: sources.NewWebSearch(cfg.SearchAPIKey, cfg.SearchEngineID, opts),
		Scraper:   sources.NewDuckDuckGo(opts),
		News:      sources.NewNewsAPI(cfg.NewsAPIKey, opts),
	}
}

// NewReasoner picks the OpenAI reasoner when a key is configured and the
// offline one otherwise.
func NewReasoner(cfg *config.Config, log *logging.Logger) reasoner.Reasoner {
	if cfg.OpenAIAPIKey == "" {
		log.Warning("OPENAI_API_KEY not set, verdicts will stay UNVERIFIED")
		return reasoner.Offline{}
	}
	return reasoner.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
}

// FromConfig wires a Verifier from cfg.
func FromConfig(cfg *config.Config, log *logging.Logger) *Verifier {
	if log == nil {
		log = logging.Default()
	}
	return New(NewSources(cfg, log), NewReasoner(cfg, log), WithLogger(log))
}

// All returns every source of s for health probing, keyed the same way as
// progress reports. Nil sources are left out.
func (s Sources) All() map[string]sources.Source {
	out := map[string]sources.Source{}
	if src, ok := s.FactCheck.(sources.Source); ok && src != nil {
		out[SourceFactCheck] = src
	}
	for key, src := range map[string]sources.Source{
		SourceRegional:  s.Regional,
		SourceWebSearch: s.WebSearch,
		SourceScraper:   s.Scraper,
		SourceNews:      s.News,
	} {
		if src != nil {
			out[key] = src
		}
	}
	return out
}
