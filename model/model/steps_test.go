package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapTouchpointStep(t *testing.T) {
	// Event markers resolve the deepest matching funnel stage.
	assert.Equal(t, StepCheckout, MapTouchpointStep(&Touchpoint{EventName: "checkout_completed"}, 3))
	assert.Equal(t, StepCheckout, MapTouchpointStep(&Touchpoint{EventName: "purchase"}, 2))
	assert.Equal(t, StepAddToCart, MapTouchpointStep(&Touchpoint{EventName: "add_to_cart"}, 2))
	assert.Equal(t, StepAddToCart, MapTouchpointStep(&Touchpoint{EventName: "trial_start"}, 1))
	assert.Equal(t, StepContentView, MapTouchpointStep(&Touchpoint{EventName: "product_detail"}, 1))
	assert.Equal(t, StepContentView, MapTouchpointStep(&Touchpoint{EventName: "blog_read"}, 4))

	// Checkout markers outrank cart markers, cart outranks content.
	assert.Equal(t, StepAddToCart, MapTouchpointStep(&Touchpoint{EventName: "view_cart"}, 2))
	assert.Equal(t, StepCheckout, MapTouchpointStep(&Touchpoint{EventName: "checkout_view"}, 2))

	// Position 0 without an event marker is a landing, split by medium.
	assert.Equal(t, StepPaidLanding, MapTouchpointStep(&Touchpoint{Channel: "google_cpc"}, 0))
	assert.Equal(t, StepPaidLanding, MapTouchpointStep(&Touchpoint{Channel: "google", Campaign: "summer_cpc"}, 0))
	assert.Equal(t, StepOrganicLanding, MapTouchpointStep(&Touchpoint{Channel: "google"}, 0))
	assert.Equal(t, StepOrganicLanding, MapTouchpointStep(&Touchpoint{}, 0))

	// Event naming wins over landing classification at position 0.
	assert.Equal(t, StepCheckout, MapTouchpointStep(&Touchpoint{Channel: "google_cpc", EventName: "checkout"}, 0))

	// Later positions without a recognized event are Other.
	assert.Equal(t, StepOther, MapTouchpointStep(&Touchpoint{Channel: "google", EventName: "session_resumed"}, 2))
	assert.Equal(t, StepOther, MapTouchpointStep(&Touchpoint{Channel: "email"}, 1))
}

func TestDedupSteps(t *testing.T) {
	// Consecutive runs collapse to one entry.
	assert.Equal(t, []string{"A", "B", "C"},
		DedupSteps([]string{"A", "A", "B", "B", "B", "C"}, 0))

	// Non-consecutive repeats survive.
	assert.Equal(t, []string{"A", "B", "A"}, DedupSteps([]string{"A", "B", "A"}, 0))

	// Truncation keeps the head of the collapsed sequence.
	assert.Equal(t, []string{"A", "B"}, DedupSteps([]string{"A", "B", "C", "D"}, 2))
	assert.Equal(t, []string{"A", "B"}, DedupSteps([]string{"A", "A", "B", "C"}, 2))

	// Zero and negative caps disable truncation.
	assert.Equal(t, []string{"A", "B", "C", "D"}, DedupSteps([]string{"A", "B", "C", "D"}, 0))
	assert.Equal(t, []string{"A", "B", "C", "D"}, DedupSteps([]string{"A", "B", "C", "D"}, -1))

	assert.Equal(t, []string{}, DedupSteps(nil, 5))
}

func TestCanonicalStepsForJourney(t *testing.T) {
	journey := Journey{
		Touchpoints: []Touchpoint{
			{Channel: "google", Campaign: "brand_cpc"},
			{EventName: "product_detail"},
			{EventName: "product_gallery"},
			{EventName: "add_to_cart"},
			{EventName: "checkout_submit"},
		},
		Converted: true,
	}

	// The two content views collapse; conversion closes the sequence.
	steps := CanonicalStepsForJourney(&journey, 0)
	assert.Equal(t, []string{StepPaidLanding, StepContentView, StepAddToCart,
		StepCheckout, StepConversion}, steps)

	// Abandoned journeys carry no conversion step.
	journey.Converted = false
	steps = CanonicalStepsForJourney(&journey, 0)
	assert.Equal(t, []string{StepPaidLanding, StepContentView, StepAddToCart,
		StepCheckout}, steps)

	// The cap applies to the final sequence, head kept.
	journey.Converted = true
	steps = CanonicalStepsForJourney(&journey, 3)
	assert.Equal(t, []string{StepPaidLanding, StepContentView, StepAddToCart}, steps)

	// A converted journey without touchpoints is just the conversion.
	empty := Journey{Converted: true}
	assert.Equal(t, []string{StepConversion}, CanonicalStepsForJourney(&empty, 0))

	abandoned := Journey{}
	assert.Equal(t, []string{}, CanonicalStepsForJourney(&abandoned, 0))
}

func TestChannelGroupForChannel(t *testing.T) {
	assert.Equal(t, ChannelGroupOrganicSearch, ChannelGroupForChannel("google"))
	assert.Equal(t, ChannelGroupOrganicSearch, ChannelGroupForChannel("Bing"))
	assert.Equal(t, ChannelGroupPaidSearch, ChannelGroupForChannel("google_cpc"))
	assert.Equal(t, ChannelGroupPaidSearch, ChannelGroupForChannel("Google Ads"))

	assert.Equal(t, ChannelGroupOrganicSocial, ChannelGroupForChannel("facebook"))
	assert.Equal(t, ChannelGroupOrganicSocial, ChannelGroupForChannel("instagram"))
	assert.Equal(t, ChannelGroupPaidSocial, ChannelGroupForChannel("facebook_paid"))
	assert.Equal(t, ChannelGroupPaidSocial, ChannelGroupForChannel("tiktok_ads"))

	assert.Equal(t, ChannelGroupEmail, ChannelGroupForChannel("email"))
	assert.Equal(t, ChannelGroupEmail, ChannelGroupForChannel("newsletter"))
	assert.Equal(t, ChannelGroupAffiliate, ChannelGroupForChannel("partner_program"))
	assert.Equal(t, ChannelGroupReferral, ChannelGroupForChannel("referral"))

	assert.Equal(t, ChannelGroupDirect, ChannelGroupForChannel("direct"))
	assert.Equal(t, ChannelGroupDirect, ChannelGroupForChannel("(direct)"))
	assert.Equal(t, ChannelGroupDirect, ChannelGroupForChannel("none"))

	// Paid traffic with no recognized network defaults to paid search.
	assert.Equal(t, ChannelGroupPaidSearch, ChannelGroupForChannel("quora_ads"))

	assert.Equal(t, ChannelGroupOther, ChannelGroupForChannel(""))
	assert.Equal(t, ChannelGroupOther, ChannelGroupForChannel(ChannelUnknown))
	assert.Equal(t, ChannelGroupOther, ChannelGroupForChannel("billboard"))
}
