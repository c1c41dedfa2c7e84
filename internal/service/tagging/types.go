package tagging

// The section types below are the provider-independent inputs of the parsers.
// Times are provider-native and are passed through unchanged.

// Word is one transcribed token with its boundaries.
type Word struct {
	Text       string
	Start      float64
	End        float64
	Confidence *float64
}

// Utterance is one continuous speech segment attributed to a single speaker.
type Utterance struct {
	Speaker string
	Text    string
	Start   float64
	End     float64
}

// Entity is a named entity located by its time range.
type Entity struct {
	Type  string
	Text  string
	Start float64
	End   float64
}

// Chapter is an automatically detected chapter located by its time range.
type Chapter struct {
	Summary  string
	Headline string
	Gist     string
	Start    float64
	End      float64
}

// Sentiment is a span of text classified by polarity.
type Sentiment struct {
	Text       string
	Polarity   string
	Confidence float64
	Start      float64
	End        float64
}

// TopicLabel is one relevance-scored label of a topic fragment.
type TopicLabel struct {
	Label     string
	Relevance float64
}

// TopicFragment is a span of text with the topic labels detected in it.
type TopicFragment struct {
	Text   string
	Labels []TopicLabel
	Start  float64
	End    float64
}
