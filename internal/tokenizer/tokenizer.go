// Package tokenizer estimates the token footprint of a rendered snapshot.
package tokenizer

import (
	"errors"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates token counts for text content.
type Counter interface {
	Name() string
	CountString(input string) (int, error)
}

const (
	defaultModel        = "gpt-4o"
	defaultEncodingName = "cl100k_base"
)

// NewCounter returns a Counter for the requested model, falling back to the
// default encoding when the model is unknown to the tokenizer tables.
func NewCounter(model string) (Counter, error) {
	selectedModel := strings.ToLower(strings.TrimSpace(model))
	if selectedModel == "" {
		selectedModel = defaultModel
	}
	encoding, encodingError := tiktoken.EncodingForModel(selectedModel)
	if encodingError == nil && encoding != nil {
		return tiktokenCounter{encoding: encoding, name: selectedModel}, nil
	}
	fallbackEncoding, fallbackError := tiktoken.GetEncoding(defaultEncodingName)
	if fallbackError != nil {
		return nil, fallbackError
	}
	return tiktokenCounter{encoding: fallbackEncoding, name: defaultEncodingName}, nil
}

type tiktokenCounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

func (counter tiktokenCounter) Name() string {
	return counter.name
}

func (counter tiktokenCounter) CountString(input string) (int, error) {
	if counter.encoding == nil {
		return 0, errors.New("nil tiktoken encoder")
	}
	tokenIDs := counter.encoding.Encode(input, nil, nil)
	return len(tokenIDs), nil
}
