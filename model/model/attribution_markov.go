package model

import (
	"math"
	"strings"
)

// Canonical states of the journey Markov chain. Channel names are used
// as-is for the remaining states, so the sentinels are $-prefixed to
// stay out of the channel namespace.
const (
	MarkovStateStart      = "$start"
	MarkovStateConversion = "$conversion"
	MarkovStateNull       = "$null"
)

// MarkovMinUniquePaths is the minimum number of distinct channel paths
// required before the chain is considered estimable.
const MarkovMinUniquePaths = 2

const (
	markovMaxIterations = 200
	markovEpsilon       = 1e-9
)

// markovChain holds first-order transition probabilities estimated from
// observed journey frequencies.
type markovChain struct {
	transitions map[string]map[string]float64
	channels    []string
}

// buildMarkovChain estimates the chain from all journeys, converted and
// abandoned alike. Converted journeys terminate in the conversion state,
// the rest in the null state. Journeys without touchpoints carry no
// transition information and are skipped.
func buildMarkovChain(journeys []Journey) *markovChain {
	counts := make(map[string]map[string]float64)
	channelSet := make(map[string]bool)

	addTransition := func(from, to string) {
		if _, exists := counts[from]; !exists {
			counts[from] = make(map[string]float64)
		}
		counts[from][to]++
	}

	for i := range journeys {
		path := journeys[i].ChannelPath()
		if len(path) == 0 {
			continue
		}

		previous := MarkovStateStart
		for _, channel := range path {
			channelSet[channel] = true
			addTransition(previous, channel)
			previous = channel
		}
		if journeys[i].Converted {
			addTransition(previous, MarkovStateConversion)
		} else {
			addTransition(previous, MarkovStateNull)
		}
	}

	transitions := make(map[string]map[string]float64, len(counts))
	for from, outgoing := range counts {
		total := 0.0
		for _, count := range outgoing {
			total += count
		}
		probabilities := make(map[string]float64, len(outgoing))
		for to, count := range outgoing {
			probabilities[to] = count / total
		}
		transitions[from] = probabilities
	}

	channels := make([]string, 0, len(channelSet))
	for channel := range channelSet {
		channels = append(channels, channel)
	}
	return &markovChain{transitions: transitions, channels: channels}
}

// conversionProbability computes the absorption probability into the
// conversion state starting from $start, by iterating the fixed point
// p(s) = sum_t P(s->t) * p(t) with p($conversion)=1 and p($null)=0.
// Iteration handles cyclic channel hops without a matrix inverse.
// removedChannel, when non-empty, is forced to zero so every path
// through it is redirected to the null state.
func (chain *markovChain) conversionProbability(removedChannel string) float64 {
	probabilities := make(map[string]float64, len(chain.transitions)+2)
	probabilities[MarkovStateConversion] = 1

	for iteration := 0; iteration < markovMaxIterations; iteration++ {
		maxDelta := 0.0
		for state, outgoing := range chain.transitions {
			if state == removedChannel {
				continue
			}
			updated := 0.0
			for to, probability := range outgoing {
				if to == removedChannel {
					continue
				}
				updated += probability * probabilities[to]
			}
			if delta := math.Abs(updated - probabilities[state]); delta > maxDelta {
				maxDelta = delta
			}
			probabilities[state] = updated
		}
		if maxDelta < markovEpsilon {
			break
		}
	}
	return probabilities[MarkovStateStart]
}

// countDistinctChannelPaths reports how many distinct channel sequences
// the journey set contains, ignoring empty journeys.
func countDistinctChannelPaths(journeys []Journey) int {
	distinct := make(map[string]bool)
	for i := range journeys {
		path := journeys[i].ChannelPath()
		if len(path) == 0 {
			continue
		}
		distinct[strings.Join(path, ">")] = true
	}
	return len(distinct)
}

// ComputeMarkovAttribution distributes the total conversion value by
// each channel's removal effect: the relative drop in conversion
// probability when the channel is cut out of the chain. Negative
// effects are clamped to zero before normalization. Degenerate chains
// (too few distinct paths, zero baseline, or no positive removal
// effect) fall back to the linear model so that credit is always
// produced; the second return reports that fallback.
func ComputeMarkovAttribution(journeys []Journey, minUniquePaths int) (map[string]float64, bool) {
	if minUniquePaths <= 0 {
		minUniquePaths = MarkovMinUniquePaths
	}
	if countDistinctChannelPaths(journeys) < minUniquePaths {
		return ComputeLinearAttribution(journeys), true
	}

	chain := buildMarkovChain(journeys)
	baseline := chain.conversionProbability("")
	if baseline <= 0 {
		return ComputeLinearAttribution(journeys), true
	}

	removalEffects := make(map[string]float64, len(chain.channels))
	totalEffect := 0.0
	for _, channel := range chain.channels {
		effect := 1 - chain.conversionProbability(channel)/baseline
		if effect < 0 {
			effect = 0
		}
		removalEffects[channel] = effect
		totalEffect += effect
	}
	if totalEffect == 0 {
		return ComputeLinearAttribution(journeys), true
	}

	totalValue := 0.0
	for _, journey := range attributableJourneys(journeys) {
		totalValue += journey.ConversionValue
	}

	credit := make(map[string]float64, len(removalEffects))
	for channel, effect := range removalEffects {
		credit[channel] = effect / totalEffect * totalValue
	}
	return credit, false
}
