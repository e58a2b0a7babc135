package lumen

import (
	"context"
	"encoding/json"
)

// TaskExplanation scores how much individual parts of a prompt influenced
// the model towards generating a given target string.
type TaskExplanation struct {
	// The prompt, typically the input of a previous completion request.
	Prompt Prompt
	// The target string to be explained.
	Target string
	// Granularity of the prompt parts a single score is computed for.
	Granularity Granularity
}

// Granularity selects how the prompt is partitioned for explanation. The
// zero value lets the service pick a partitioning that yields roughly 30
// scores: sentences for large prompts, words or tokens for short ones.
type Granularity string

const (
	GranularityAuto      Granularity = ""
	GranularityWord      Granularity = "word"
	GranularitySentence  Granularity = "sentence"
	GranularityParagraph Granularity = "paragraph"
)

// MarshalJSON implements json.Marshaler; granularity travels as a tagged
// object on the wire.
func (g Granularity) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{Type: string(g)})
}

type explanationBody struct {
	Model             string       `json:"model"`
	Prompt            Prompt       `json:"prompt"`
	Target            string       `json:"target"`
	PromptGranularity *Granularity `json:"prompt_granularity,omitempty"`
}

// ExplanationResponse is the wire shape of an explanation: one
// explanation per part of the target.
type ExplanationResponse struct {
	Explanations []struct {
		Items []itemExplanationWire `json:"items"`
	} `json:"explanations"`
}

// ExplanationOutput holds the scores for the last explained target part.
type ExplanationOutput struct {
	Items []ItemExplanation
}

// ItemExplanation scores the parts of one prompt modality or of the
// target. Implementations are [TextExplanation], [ImageExplanation] and
// [TargetExplanation].
type ItemExplanation interface {
	itemExplanation()
}

// TextExplanation scores the parts of a text prompt item.
type TextExplanation struct {
	Scores []TextScore
}

func (TextExplanation) itemExplanation() {}

// ImageExplanation scores regions of an image prompt item.
type ImageExplanation struct {
	Scores []ImageScore
}

func (ImageExplanation) itemExplanation() {}

// TargetExplanation scores the parts of the target itself.
type TargetExplanation struct {
	Scores []TextScore
}

func (TargetExplanation) itemExplanation() {}

// TextScore is the importance of a text span, addressed by byte offset.
type TextScore struct {
	Start  int     `json:"start"`
	Length int     `json:"length"`
	Score  float32 `json:"score"`
}

// ImageScore is the importance of a rectangular image region, with
// coordinates relative to the image dimensions.
type ImageScore struct {
	Left   float32
	Top    float32
	Width  float32
	Height float32
	Score  float32
}

// UnmarshalJSON flattens the nested bounding box the API returns.
func (s *ImageScore) UnmarshalJSON(raw []byte) error {
	var wire struct {
		Rect struct {
			Left   float32 `json:"left"`
			Top    float32 `json:"top"`
			Width  float32 `json:"width"`
			Height float32 `json:"height"`
		} `json:"rect"`
		Score float32 `json:"score"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return err
	}
	*s = ImageScore{
		Left:   wire.Rect.Left,
		Top:    wire.Rect.Top,
		Width:  wire.Rect.Width,
		Height: wire.Rect.Height,
		Score:  wire.Score,
	}
	return nil
}

// itemExplanationWire is the tagged wire union of explanation items.
type itemExplanationWire struct {
	Type        string          `json:"type"`
	Scores      json.RawMessage `json:"scores"`
	explanation ItemExplanation
}

func (w *itemExplanationWire) UnmarshalJSON(raw []byte) error {
	type plain itemExplanationWire
	if err := json.Unmarshal(raw, (*plain)(w)); err != nil {
		return err
	}
	switch w.Type {
	case "text":
		var scores []TextScore
		if err := json.Unmarshal(w.Scores, &scores); err != nil {
			return err
		}
		w.explanation = TextExplanation{Scores: scores}
	case "image":
		var scores []ImageScore
		if err := json.Unmarshal(w.Scores, &scores); err != nil {
			return err
		}
		w.explanation = ImageExplanation{Scores: scores}
	case "target":
		var scores []TextScore
		if err := json.Unmarshal(w.Scores, &scores); err != nil {
			return err
		}
		w.explanation = TargetExplanation{Scores: scores}
	}
	return nil
}

// Plan implements [Task].
func (t TaskExplanation) Plan(model string) RequestSpec {
	body := explanationBody{Model: model, Prompt: t.Prompt, Target: t.Target}
	if t.Granularity != GranularityAuto {
		g := t.Granularity
		body.PromptGranularity = &g
	}
	return postSpec("/explain", body)
}

// Output implements [Task].
func (t TaskExplanation) Output(body ExplanationResponse) ExplanationOutput {
	if len(body.Explanations) == 0 {
		return ExplanationOutput{}
	}
	last := body.Explanations[len(body.Explanations)-1]
	items := make([]ItemExplanation, 0, len(last.Items))
	for _, item := range last.Items {
		if item.explanation != nil {
			items = append(items, item.explanation)
		}
	}
	return ExplanationOutput{Items: items}
}

// Explain scores the influence of prompt parts on generating the target.
func (c *Client) Explain(ctx context.Context, model string, task TaskExplanation, opts ...RequestOption) (ExplanationOutput, error) {
	return Do(ctx, c, model, task, opts...)
}
