package handler

import (
	"context"
	"fmt"
	"math"
	"strings"

	"autotask/internal/task/llmclient"
	"autotask/internal/task/sandbox"
	appErr "autotask/pkg/errors"
)

// NearestPairConfig names the line file and the artifact.
type NearestPairConfig struct {
	Input  string
	Output string
}

// NearestPair embeds every non-blank input line and writes the two lines with the highest
// cosine similarity, in input order. Ties go to the lexicographically first index pair.
type NearestPair struct {
	meta
	guard    *sandbox.Guard
	embedder llmclient.Embedder
	cfg      NearestPairConfig
}

func NewNearestPair(guard *sandbox.Guard, embedder llmclient.Embedder, cfg NearestPairConfig) *NearestPair {
	return &NearestPair{
		meta:     meta{kind: "nearest-pair", artifact: cfg.Output},
		guard:    guard,
		embedder: embedder,
		cfg:      cfg,
	}
}

func (h *NearestPair) Run(ctx context.Context) error {
	data, err := readInput(h.guard, h.cfg.Input)
	if err != nil {
		return err
	}
	var lines []string
	for _, line := range splitLines(data) {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return appErr.Malformed(h.cfg.Input, "need at least two non-blank lines")
	}

	vectors, err := h.embedder.Embed(ctx, lines)
	if err != nil {
		return err
	}
	if len(vectors) != len(lines) {
		return appErr.Newf(appErr.RemoteCallFailed, "expected %d embeddings, got %d", len(lines), len(vectors))
	}
	i, j, err := mostSimilarPair(vectors)
	if err != nil {
		return appErr.Wrapf(err, appErr.RemoteCallFailed, "compare embeddings failed")
	}
	return writeArtifact(h.guard, h.cfg.Output, []byte(lines[i]+"\n"+lines[j]+"\n"))
}

// mostSimilarPair returns i < j maximising cosine similarity. Only a strictly greater
// similarity replaces the current best, which keeps the first pair on ties.
func mostSimilarPair(vectors [][]float64) (int, int, error) {
	bestI, bestJ := -1, -1
	best := math.Inf(-1)
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			sim, err := cosineSimilarity(vectors[i], vectors[j])
			if err != nil {
				return 0, 0, err
			}
			if sim > best {
				best, bestI, bestJ = sim, i, j
			}
		}
	}
	if bestI < 0 {
		return 0, 0, fmt.Errorf("need at least two vectors")
	}
	return bestI, bestJ, nil
}

func cosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}
	var dot, aMag, bMag float64
	for i := range a {
		dot += a[i] * b[i]
		aMag += a[i] * a[i]
		bMag += b[i] * b[i]
	}
	if aMag == 0 || bMag == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(aMag) * math.Sqrt(bMag)), nil
}
