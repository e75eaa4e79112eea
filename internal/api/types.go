package api

// Message roles accepted in a conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// FallbackContent is returned in place of a reply when a vendor call fails.
const FallbackContent = "I'm having trouble connecting to the AI service. Please try again."

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1000
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options are the generation parameters shared by every vendor.
// A nil Temperature means 0.7; a zero MaxTokens means 1000 output tokens.
type Options struct {
	Temperature *float64
	MaxTokens   int
}

// Temperature returns a pointer for Options.Temperature, so that an explicit
// 0 stays distinguishable from unset.
func Temperature(v float64) *float64 {
	return &v
}

func (o Options) withDefaults() Options {
	if o.Temperature == nil {
		o.Temperature = Temperature(defaultTemperature)
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	return o
}

func (o Options) temperature() float64 {
	if o.Temperature == nil {
		return defaultTemperature
	}
	return *o.Temperature
}

// Result is the outcome of one Generate call. When Failure is set, Content
// holds FallbackContent and TokensUsed is zero.
type Result struct {
	Content    string
	TokensUsed int
	ModelUsed  string
	Provider   string
	Failure    *Failure
}

// Failed reports whether the call ended in a failure.
func (r Result) Failed() bool {
	return r.Failure != nil
}
