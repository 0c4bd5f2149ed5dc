package handler

import (
	"context"
	"encoding/base64"
	"strings"

	"autotask/internal/task/llmclient"
	"autotask/internal/task/sandbox"

	"github.com/gabriel-vasile/mimetype"
)

// InputPlaceholder marks where text input is placed in a prompt template.
const InputPlaceholder = "{input}"

// LLMExtractConfig describes one extraction prompt.
type LLMExtractConfig struct {
	Input string
	// Image sends the input as an image data URL instead of inlining it as text.
	Image bool
	// Prompt is the instruction. Text input replaces InputPlaceholder or is appended after a blank line.
	Prompt      string
	StripSpaces bool
	Output      string
}

// LLMExtract asks the completer to pull one value out of an input file.
type LLMExtract struct {
	meta
	guard     *sandbox.Guard
	completer llmclient.Completer
	cfg       LLMExtractConfig
}

func NewLLMExtract(guard *sandbox.Guard, completer llmclient.Completer, cfg LLMExtractConfig) *LLMExtract {
	return &LLMExtract{
		meta:      meta{kind: "llm-extract", artifact: cfg.Output},
		guard:     guard,
		completer: completer,
		cfg:       cfg,
	}
}

func (h *LLMExtract) Run(ctx context.Context) error {
	data, err := readInput(h.guard, h.cfg.Input)
	if err != nil {
		return err
	}

	var answer string
	if h.cfg.Image {
		answer, err = h.completer.CompleteWithImage(ctx, h.cfg.Prompt, dataURL(data))
	} else {
		answer, err = h.completer.Complete(ctx, renderPrompt(h.cfg.Prompt, string(data)))
	}
	if err != nil {
		return err
	}

	answer = strings.TrimSpace(answer)
	if h.cfg.StripSpaces {
		answer = strings.Join(strings.Fields(answer), "")
	}
	return writeArtifact(h.guard, h.cfg.Output, []byte(answer))
}

func renderPrompt(template, input string) string {
	if strings.Contains(template, InputPlaceholder) {
		return strings.ReplaceAll(template, InputPlaceholder, input)
	}
	return template + "\n\n" + input
}

func dataURL(data []byte) string {
	mime := mimetype.Detect(data).String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
