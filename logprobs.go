package lumen

import (
	"encoding/json"
	"sort"
)

// Logprobs controls log-probability reporting for completion and chat
// tasks. The zero value disables it.
type Logprobs struct {
	kind logprobsKind
	top  int
}

type logprobsKind int

const (
	logprobsNo logprobsKind = iota
	logprobsSampled
	logprobsTop
)

// Top alternatives are capped by the API.
const maxTopLogprobs = 20

// NoLogprobs requests no log probabilities.
func NoLogprobs() Logprobs { return Logprobs{kind: logprobsNo} }

// SampledLogprobs requests the log probability of each sampled token.
func SampledLogprobs() Logprobs { return Logprobs{kind: logprobsSampled} }

// TopLogprobs requests the sampled token's log probability plus the n
// most probable alternatives at each position, 0 <= n <= 20. Values
// above the cap are clamped.
func TopLogprobs(n int) Logprobs {
	if n < 0 {
		n = 0
	}
	if n > maxTopLogprobs {
		n = maxTopLogprobs
	}
	return Logprobs{kind: logprobsTop, top: n}
}

// enabled reports whether the request should set logprobs at all.
func (l Logprobs) enabled() bool { return l.kind != logprobsNo }

// topCount returns the top_logprobs request field, nil unless Top was
// requested.
func (l Logprobs) topCount() *int {
	if l.kind != logprobsTop {
		return nil
	}
	n := l.top
	return &n
}

// Logprob is the log probability of a single token.
type Logprob struct {
	Token   string  `json:"token"`
	Logprob float64 `json:"logprob"`
}

// Distribution is the log-probability information for one position of
// the completion: the sampled token plus any requested alternatives.
type Distribution struct {
	Sampled Logprob
	Top     []Logprob
}

// UnmarshalJSON flattens the sampled token fields that the API inlines
// alongside top_logprobs.
func (d *Distribution) UnmarshalJSON(raw []byte) error {
	var wire struct {
		Logprob
		Top []Logprob `json:"top_logprobs"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return err
	}
	d.Sampled = wire.Logprob
	d.Top = wire.Top
	return nil
}

// normalize orders the alternatives by descending log probability. When
// the sampled token also appears among them it is removed and the list
// truncated, so the sampled entry plus the alternatives cover requested
// distinct tokens; otherwise the list keeps exactly requested entries.
func (d *Distribution) normalize(requested int) {
	sort.SliceStable(d.Top, func(i, j int) bool {
		return d.Top[i].Logprob > d.Top[j].Logprob
	})
	limit := requested
	kept := d.Top[:0]
	for _, alt := range d.Top {
		if alt.Token == d.Sampled.Token {
			limit = requested - 1
			continue
		}
		kept = append(kept, alt)
	}
	if limit < 0 {
		limit = 0
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}
	d.Top = kept
}

func normalizeDistributions(dists []Distribution, requested int) {
	for i := range dists {
		dists[i].normalize(requested)
	}
}
