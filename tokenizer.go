package main

import (
	"fmt"
	"os"
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"
	hf "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

const (
	defaultTiktokenModel = "gpt-4o"
	defaultHFModel       = "gpt2"
)

// Tokenizer counts model tokens in report content.
type Tokenizer interface {
	CountTokens(text string) int
}

// TokenizerConfig selects a tokenizer implementation.
type TokenizerConfig struct {
	Kind  string // "tiktoken" or "huggingface"
	Model string
	File  string // local tokenizer.json, huggingface only
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCounter) CountTokens(text string) int {
	return len(c.enc.EncodeOrdinary(text))
}

type hfCounter struct {
	tk *hf.Tokenizer
}

func (c *hfCounter) CountTokens(text string) int {
	en, err := c.tk.EncodeSingle(text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: huggingface tokenizer failed to encode text: %v\n", err)
		return 0
	}
	return len(en.Tokens)
}

// newTokenizer builds the tokenizer named by cfg.Kind.
func newTokenizer(cfg TokenizerConfig) (Tokenizer, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "tiktoken":
		return newTiktoken(cfg.Model)
	case "huggingface", "hf":
		return newHuggingFace(cfg.Model, cfg.File)
	default:
		return nil, fmt.Errorf("unsupported tokenizer type: %s (use tiktoken or huggingface)", cfg.Kind)
	}
}

func newTiktoken(model string) (Tokenizer, error) {
	if model == "" {
		model = defaultTiktokenModel
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: tiktoken model %q not found, falling back to %q: %v\n", model, defaultTiktokenModel, err)
		enc, err = tiktoken.EncodingForModel(defaultTiktokenModel)
		if err != nil {
			return nil, fmt.Errorf("failed to get tiktoken encoding for %s: %w", defaultTiktokenModel, err)
		}
	}
	return &tiktokenCounter{enc: enc}, nil
}

func newHuggingFace(model, file string) (Tokenizer, error) {
	if file == "" {
		if model == "" {
			model = defaultHFModel
		}
		cached, err := hf.CachedPath(model, "tokenizer.json")
		if err != nil {
			return nil, fmt.Errorf("failed to get cache path for model %s: %w", model, err)
		}
		file = cached
	}
	tk, err := pretrained.FromFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer from %s: %w", file, err)
	}
	return &hfCounter{tk: tk}, nil
}
