package api

import "time"

type TranslateRequest struct {
	Text      string `json:"text"`
	BeamSize  *int   `json:"beam_size,omitempty"`
	NBest     *int   `json:"n_best,omitempty"`
	MaxLength *int   `json:"max_length,omitempty"`
	Normalize *bool  `json:"normalize,omitempty"`
	Alignment *bool  `json:"alignment,omitempty"`
}

type TranslateResponse struct {
	ID           string              `json:"id"`
	Object       string              `json:"object"`
	CreatedAt    int64               `json:"created_at"`
	Source       []string            `json:"source"`
	Translations []TranslationOutput `json:"translations"`
	Stats        TranslateStats      `json:"stats"`
}

type TranslationOutput struct {
	Text      string      `json:"text"`
	Tokens    []int       `json:"tokens"`
	Score     float32     `json:"score"`
	Alignment [][]float32 `json:"alignment,omitempty"`
}

type TranslateStats struct {
	SourceTokens int     `json:"source_tokens"`
	Steps        int     `json:"steps"`
	Hypotheses   int     `json:"hypotheses"`
	Filtered     int     `json:"filtered_vocab,omitempty"`
	DurationMS   float64 `json:"duration_ms"`
}

type ModelResponse struct {
	Object      string        `json:"object"`
	DimEmb      int           `json:"dim_emb"`
	DimRnn      int           `json:"dim_rnn"`
	DimOut      int           `json:"dim_out"`
	SrcVocab    int           `json:"src_vocab"`
	TrgVocab    int           `json:"trg_vocab"`
	Params      int           `json:"params"`
	SourceWords int           `json:"source_words"`
	TargetWords int           `json:"target_words"`
	Shortlist   bool          `json:"shortlist"`
	Defaults    SearchDefault `json:"defaults"`
}

type SearchDefault struct {
	BeamSize  int  `json:"beam_size"`
	NBest     int  `json:"n_best"`
	MaxLength int  `json:"max_length"`
	Normalize bool `json:"normalize"`
}

type ErrorEnvelope struct {
	Error ResponseError `json:"error"`
}

type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func durationMS(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
