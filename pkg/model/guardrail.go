package model

import "github.com/m-mizutani/goerr/v2"

// Topic is a coarse subject label assigned by the guardrail
type Topic string

const (
	TopicAddress      Topic = "address"
	TopicAvailability Topic = "availability"
	TopicPrice        Topic = "price"
	TopicFacility     Topic = "facility"
	TopicContact      Topic = "contact"
	TopicPayment      Topic = "payment"
	TopicExtraFee     Topic = "extra_fee"
	TopicRules        Topic = "rules"
	TopicKostType     Topic = "kost_type"
	TopicLaundry      Topic = "laundry"
	TopicOther        Topic = "other"
)

// Topics returns all topics in a stable order
func Topics() []Topic {
	return []Topic{
		TopicAddress,
		TopicAvailability,
		TopicPrice,
		TopicFacility,
		TopicContact,
		TopicPayment,
		TopicExtraFee,
		TopicRules,
		TopicKostType,
		TopicLaundry,
		TopicOther,
	}
}

// Validate checks if the topic belongs to the fixed topic set
func (t Topic) Validate() error {
	for _, v := range Topics() {
		if t == v {
			return nil
		}
	}
	return goerr.Wrap(ErrInvalidArgument, "invalid topic", goerr.V("topic", t))
}

// GuardrailResult tells whether a question can be answered in this domain
type GuardrailResult struct {
	InScope bool  `json:"in_scope"`
	Intent  Topic `json:"intent"`
}
