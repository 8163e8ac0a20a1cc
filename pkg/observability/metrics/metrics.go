package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

var (
	opinionsLive         atomic.Int64
	opinionsCached       atomic.Int64
	opinionsFallback     atomic.Int64
	translationsLive     atomic.Int64
	translationsFallback atomic.Int64
	translationsRefused  atomic.Int64
	lookupsFound         atomic.Int64
	lookupsNotFound      atomic.Int64
	lookupsStoreError    atomic.Int64
	submitsAccepted      atomic.Int64
	submitsRejected      atomic.Int64
)

type Snapshot struct {
	OpinionsLive         int64
	OpinionsCached       int64
	OpinionsFallback     int64
	TranslationsLive     int64
	TranslationsFallback int64
	TranslationsRefused  int64
	LookupsFound         int64
	LookupsNotFound      int64
	LookupsStoreError    int64
	SubmitsAccepted      int64
	SubmitsRejected      int64
}

// ObserveOpinion records where an opinion came from: live, cache or fallback.
func ObserveOpinion(source string) {
	switch source {
	case "live":
		opinionsLive.Add(1)
	case "cache":
		opinionsCached.Add(1)
	default:
		opinionsFallback.Add(1)
	}
}

func ObserveTranslation(source string, refused bool) {
	if refused {
		translationsRefused.Add(1)
	}
	if source == "live" {
		translationsLive.Add(1)
		return
	}
	translationsFallback.Add(1)
}

// ObserveLookup takes one of found, not_found or store_error.
func ObserveLookup(outcome string) {
	switch outcome {
	case "found":
		lookupsFound.Add(1)
	case "not_found":
		lookupsNotFound.Add(1)
	default:
		lookupsStoreError.Add(1)
	}
}

func ObserveSubmit(accepted bool) {
	if accepted {
		submitsAccepted.Add(1)
		return
	}
	submitsRejected.Add(1)
}

func Read() Snapshot {
	return Snapshot{
		OpinionsLive:         opinionsLive.Load(),
		OpinionsCached:       opinionsCached.Load(),
		OpinionsFallback:     opinionsFallback.Load(),
		TranslationsLive:     translationsLive.Load(),
		TranslationsFallback: translationsFallback.Load(),
		TranslationsRefused:  translationsRefused.Load(),
		LookupsFound:         lookupsFound.Load(),
		LookupsNotFound:      lookupsNotFound.Load(),
		LookupsStoreError:    lookupsStoreError.Load(),
		SubmitsAccepted:      submitsAccepted.Load(),
		SubmitsRejected:      submitsRejected.Load(),
	}
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	writeText(w, Read())
}

func writeText(w io.Writer, s Snapshot) {
	counter(w, "clinica_copilot_opinions_total", "Second opinions served, by source.", map[string]int64{
		"live": s.OpinionsLive, "cache": s.OpinionsCached, "fallback": s.OpinionsFallback,
	})
	counter(w, "clinica_copilot_translations_total", "Natural-language query translations, by source.", map[string]int64{
		"live": s.TranslationsLive, "fallback": s.TranslationsFallback,
	})

	fmt.Fprintf(w, "# HELP clinica_copilot_translations_refused_total Live translations answered with the refusal sentinel.\n")
	fmt.Fprintf(w, "# TYPE clinica_copilot_translations_refused_total counter\n")
	fmt.Fprintf(w, "clinica_copilot_translations_refused_total %d\n", s.TranslationsRefused)

	fmt.Fprintf(w, "# HELP clinica_copilot_lookups_total Patient lookups, by outcome.\n")
	fmt.Fprintf(w, "# TYPE clinica_copilot_lookups_total counter\n")
	fmt.Fprintf(w, "clinica_copilot_lookups_total{outcome=\"found\"} %d\n", s.LookupsFound)
	fmt.Fprintf(w, "clinica_copilot_lookups_total{outcome=\"not_found\"} %d\n", s.LookupsNotFound)
	fmt.Fprintf(w, "clinica_copilot_lookups_total{outcome=\"store_error\"} %d\n", s.LookupsStoreError)

	fmt.Fprintf(w, "# HELP clinica_copilot_submits_total Admin conversation submissions, by outcome.\n")
	fmt.Fprintf(w, "# TYPE clinica_copilot_submits_total counter\n")
	fmt.Fprintf(w, "clinica_copilot_submits_total{outcome=\"accepted\"} %d\n", s.SubmitsAccepted)
	fmt.Fprintf(w, "clinica_copilot_submits_total{outcome=\"rejected\"} %d\n", s.SubmitsRejected)
}

func counter(w io.Writer, name, help string, bySource map[string]int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	for _, source := range []string{"live", "cache", "fallback"} {
		value, ok := bySource[source]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s{source=%q} %d\n", name, source, value)
	}
}
