package model

import (
	"strings"
)

// Canonical funnel step labels produced by the step mapper. Rollup rows
// and transition edges are keyed on these, so the set is closed.
const (
	StepPaidLanding    = "Paid Landing"
	StepOrganicLanding = "Organic Landing"
	StepContentView    = "Product View / Content View"
	StepAddToCart      = "Add to Cart / Form Start"
	StepCheckout       = "Checkout / Form Submit"
	StepConversion     = "Purchase / Lead Won"
	StepOther          = "Other"
)

// MaxPathSteps caps the canonical step sequence length for rollups.
const MaxPathSteps = 12

var checkoutEventMarkers = []string{
	"checkout", "payment", "purchase", "order", "form_submit", "submit",
}

var addToCartEventMarkers = []string{
	"add_to_cart", "cart", "form_start", "signup_start", "trial_start",
}

var contentViewEventMarkers = []string{
	"product", "pdp", "content", "article", "blog", "pricing", "view",
}

var paidMediumMarkers = []string{
	"cpc", "ppc", "paid", "ads", "display", "retarget",
}

func containsAnyMarker(value string, markers []string) bool {
	if value == "" {
		return false
	}
	value = strings.ToLower(value)
	for _, marker := range markers {
		if strings.Contains(value, marker) {
			return true
		}
	}
	return false
}

// isPaidTouchpoint classifies the acquisition medium from the channel
// name or the campaign's UTM-style taxonomy.
func isPaidTouchpoint(touchpoint *Touchpoint) bool {
	return containsAnyMarker(touchpoint.Channel, paidMediumMarkers) ||
		containsAnyMarker(touchpoint.Campaign, paidMediumMarkers)
}

// MapTouchpointStep classifies one touchpoint into a canonical funnel
// step. Event naming wins over channel-based landing classification,
// and landing classification applies only at position 0.
func MapTouchpointStep(touchpoint *Touchpoint, position int) string {
	eventName := touchpoint.EventName

	if containsAnyMarker(eventName, checkoutEventMarkers) {
		return StepCheckout
	}
	if containsAnyMarker(eventName, addToCartEventMarkers) {
		return StepAddToCart
	}
	if containsAnyMarker(eventName, contentViewEventMarkers) {
		return StepContentView
	}

	if position == 0 {
		if isPaidTouchpoint(touchpoint) {
			return StepPaidLanding
		}
		return StepOrganicLanding
	}
	return StepOther
}

// DedupSteps collapses consecutive runs of the same canonical step and
// truncates the collapsed sequence to at most maxSteps entries, keeping
// the head. maxSteps <= 0 disables truncation.
func DedupSteps(steps []string, maxSteps int) []string {
	deduped := make([]string, 0, len(steps))
	for _, step := range steps {
		if len(deduped) > 0 && deduped[len(deduped)-1] == step {
			continue
		}
		deduped = append(deduped, step)
	}

	if maxSteps > 0 && len(deduped) > maxSteps {
		deduped = deduped[:maxSteps]
	}
	return deduped
}

// CanonicalStepsForJourney maps every touchpoint of the journey through
// the step mapper, appends the conversion step for converted journeys,
// and returns the deduplicated, capped canonical sequence.
func CanonicalStepsForJourney(journey *Journey, maxSteps int) []string {
	steps := make([]string, 0, len(journey.Touchpoints)+1)
	for position := range journey.Touchpoints {
		steps = append(steps, MapTouchpointStep(&journey.Touchpoints[position], position))
	}
	if journey.Converted {
		steps = append(steps, StepConversion)
	}
	return DedupSteps(steps, maxSteps)
}

// Channel groups used as a rollup dimension tag. Mirrors the default
// acquisition-channel taxonomy used by the reporting layer.
const (
	ChannelGroupPaidSearch    = "Paid Search"
	ChannelGroupPaidSocial    = "Paid Social"
	ChannelGroupOrganicSearch = "Organic Search"
	ChannelGroupOrganicSocial = "Organic Social"
	ChannelGroupEmail         = "Email"
	ChannelGroupAffiliate     = "Affiliate"
	ChannelGroupReferral      = "Referral"
	ChannelGroupDirect        = "Direct"
	ChannelGroupOther         = "Other Campaigns"
)

var searchEngineMarkers = []string{"google", "bing", "yahoo", "duckduckgo", "baidu", "search"}

var socialNetworkMarkers = []string{
	"facebook", "meta", "instagram", "linkedin", "twitter", "tiktok",
	"youtube", "pinterest", "reddit", "social",
}

var emailChannelMarkers = []string{"email", "newsletter", "mailchimp", "sendgrid"}

var affiliateChannelMarkers = []string{"affiliate", "partner"}

var referralChannelMarkers = []string{"referral", "refer"}

// ChannelGroupForChannel buckets a raw channel name into its reporting
// channel group.
func ChannelGroupForChannel(channel string) string {
	if channel == "" || channel == ChannelUnknown {
		return ChannelGroupOther
	}

	lowerChannel := strings.ToLower(channel)
	isPaid := containsAnyMarker(lowerChannel, paidMediumMarkers)

	if containsAnyMarker(lowerChannel, searchEngineMarkers) {
		if isPaid {
			return ChannelGroupPaidSearch
		}
		return ChannelGroupOrganicSearch
	}
	if containsAnyMarker(lowerChannel, socialNetworkMarkers) {
		if isPaid {
			return ChannelGroupPaidSocial
		}
		return ChannelGroupOrganicSocial
	}
	if containsAnyMarker(lowerChannel, emailChannelMarkers) {
		return ChannelGroupEmail
	}
	if containsAnyMarker(lowerChannel, affiliateChannelMarkers) {
		return ChannelGroupAffiliate
	}
	if containsAnyMarker(lowerChannel, referralChannelMarkers) {
		return ChannelGroupReferral
	}
	if lowerChannel == "direct" || lowerChannel == "(direct)" || lowerChannel == "none" {
		return ChannelGroupDirect
	}
	if isPaid {
		return ChannelGroupPaidSearch
	}
	return ChannelGroupOther
}
