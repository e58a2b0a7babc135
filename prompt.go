package lumen

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"golang.org/x/image/draw"

	_ "image/gif"
	_ "image/jpeg"
)

// Multimodal models expect square images of this edge length.
const imageEdge = 384

// Prompt is the model input for completion and explanation tasks. It is
// an ordered sequence of modalities, usually a single text item.
type Prompt []Modality

// TextPrompt is shorthand for a prompt with one text item.
func TextPrompt(text string) Prompt {
	return Prompt{Text(text)}
}

// JoinConsecutiveTexts merges adjacent text items into one, separated by
// sep. Useful when a prompt is assembled from fragments and the model
// should see contiguous text as a single item.
func (p Prompt) JoinConsecutiveTexts(sep string) Prompt {
	out := make(Prompt, 0, len(p))
	var run []string
	flush := func() {
		if len(run) > 0 {
			out = append(out, Text(strings.Join(run, sep)))
			run = run[:0]
		}
	}
	for _, m := range p {
		if t, ok := m.(Text); ok {
			run = append(run, string(t))
			continue
		}
		flush()
		out = append(out, m)
	}
	flush()
	return out
}

// Modality is one item of a [Prompt]. Implementations are [Text] and
// [Image].
type Modality interface {
	modality()
}

// Text is a text prompt item.
type Text string

func (Text) modality() {}

// MarshalJSON implements json.Marshaler.
func (t Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Data string `json:"data"`
	}{Type: "text", Data: string(t)})
}

// Image is an image prompt item, held as base64-encoded PNG bytes in the
// shape the API expects.
type Image struct {
	data string
}

func (Image) modality() {}

// MarshalJSON implements json.Marshaler.
func (i Image) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Data string `json:"data"`
	}{Type: "image", Data: i.data})
}

// ImageFromBytes decodes, preprocesses and encodes raw image bytes
// (PNG, JPEG or GIF) into a prompt item. The image is center-cropped to a
// square and scaled to the edge length multimodal models expect, so large
// images do not inflate the request payload.
func ImageFromBytes(raw []byte) (Image, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Image{}, fmt.Errorf("decoding image: %w", err)
	}

	scaled := image.NewRGBA(image.Rect(0, 0, imageEdge, imageEdge))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, centerSquare(src.Bounds()), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return Image{}, fmt.Errorf("encoding image: %w", err)
	}
	return Image{data: base64.StdEncoding.EncodeToString(buf.Bytes())}, nil
}

// ImageFromFile reads and preprocesses the image at path.
func ImageFromFile(path string) (Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("reading image file: %w", err)
	}
	return ImageFromBytes(raw)
}

// centerSquare returns the largest centered square within r.
func centerSquare(r image.Rectangle) image.Rectangle {
	w, h := r.Dx(), r.Dy()
	if w == h {
		return r
	}
	if w > h {
		off := (w - h) / 2
		return image.Rect(r.Min.X+off, r.Min.Y, r.Min.X+off+h, r.Max.Y)
	}
	off := (h - w) / 2
	return image.Rect(r.Min.X, r.Min.Y+off, r.Max.X, r.Min.Y+off+w)
}
