package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const extractPrompt = `Analyse cette photo de grille de mots mêlés.

Extrais la grille et la liste des mots à trouver au format JSON suivant :
{
  "title": "<titre s'il y en a un, sinon vide>",
  "rows": <nombre de lignes>,
  "cols": <nombre de colonnes>,
  "cells": ["<ligne 1 : toutes les lettres collées, sans espace>", ...],
  "words": ["<mot 1>", "<mot 2>", ...]
}

Règles :
- "cells" contient exactement "rows" chaînes de "cols" lettres chacune, en majuscules.
- Une lettre par case, lues de gauche à droite ; ignore les cases vides ou les symboles.
- "words" reprend la liste de mots imprimée à côté de la grille, un mot par entrée.
- Réponds UNIQUEMENT avec le JSON, sans commentaire ni markdown.`

var errEmptyResponse = errors.New("empty gemini response")

// ExtractPuzzle sends a photo of a word search to Gemini and returns the
// grid and word list it reads, validated like any uploaded puzzle.
func (g *GeminiClient) ExtractPuzzle(ctx context.Context, imageData []byte, mimeType string) (*Puzzle, error) {
	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName,
		[]*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				{Text: extractPrompt},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageData}},
			},
		}},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0.1)),
			TopP:             genai.Ptr(float32(1)),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	g.logger.Debug("gemini responded", "elapsed", time.Since(start), "bytes", len(imageData))

	return puzzleFromResponse(resp.Text())
}

// puzzleFromResponse validates the model's JSON reply.
func puzzleFromResponse(text string) (*Puzzle, error) {
	if text == "" {
		return nil, errEmptyResponse
	}
	p, err := ParsePuzzleJSON([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("invalid extracted puzzle: %w\nraw response: %s", err, text)
	}
	return p, nil
}
