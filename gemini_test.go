package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPuzzle(t *testing.T) {
	projectID := os.Getenv("GCP_PROJECT_ID")
	if projectID == "" {
		t.Skip("GCP_PROJECT_ID not set, skipping integration test")
	}
	imagePath := os.Getenv("WORDSEARCH_TEST_IMAGE")
	if imagePath == "" {
		t.Skip("WORDSEARCH_TEST_IMAGE not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := NewGeminiClient(ctx, GeminiConfig{Project: projectID}, slog.Default())
	require.NoError(t, err)
	defer client.Close()

	imageData, err := os.ReadFile(imagePath)
	require.NoError(t, err)

	mimeType := "image/png"
	if ext := strings.ToLower(filepath.Ext(imagePath)); ext == ".jpg" || ext == ".jpeg" {
		mimeType = "image/jpeg"
	}

	p, err := client.ExtractPuzzle(ctx, imageData, mimeType)
	require.NoError(t, err)
	require.NotZero(t, p.Grid.Rows())
	require.NotEmpty(t, p.Words)

	t.Logf("Grid: %dx%d, %d words", p.Grid.Rows(), p.Grid.Cols(), len(p.Words))
	for _, r := range Solve(p.Grid, p.Words) {
		t.Log(r.String())
	}
}

func TestNewGeminiClientRequiresProject(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestPuzzleFromResponse(t *testing.T) {
	_, err := puzzleFromResponse("")
	assert.ErrorIs(t, err, errEmptyResponse)

	p, err := puzzleFromResponse(`{"title": "Fruits", "rows": 2, "cols": 3, "cells": ["kiw", "ABC"], "words": ["KIW", "CBA"]}`)
	require.NoError(t, err)
	assert.Equal(t, "Fruits", p.Title)
	assert.Equal(t, "KIW", p.Grid.Row(0))
	assert.Equal(t, []string{"KIW", "CBA"}, p.Words)

	_, err = puzzleFromResponse(`{"rows": 3, "cols": 3, "cells": ["ABC"], "words": ["A"]}`)
	require.ErrorIs(t, err, ErrMissingRows)
	assert.Contains(t, err.Error(), "raw response")

	_, err = puzzleFromResponse("Voici la grille : ...")
	assert.Error(t, err)
}
