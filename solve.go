package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Status is the outcome of searching for one word.
type Status string

const (
	StatusFound      Status = "found"
	StatusNotFound   Status = "not_found"
	StatusImpossible Status = "impossible"
)

// Result is the answer for a single word. Word keeps the caller's casing.
type Result struct {
	Word      string     `json:"word"`
	Status    Status     `json:"status"`
	Placement *Placement `json:"placement,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// String renders the result as one output line:
//
//	HELLO 0:0 0:4
//	BYE doesn't exist in the grid
func (r Result) String() string {
	switch r.Status {
	case StatusFound:
		return r.Word + " " + r.Placement.String()
	case StatusImpossible:
		return r.Word + " can't fit in the grid"
	}
	return r.Word + " doesn't exist in the grid"
}

// solveWord returns a StatusImpossible result together with the error when
// the word is too long, so callers can either record it or stop.
func solveWord(g *Grid, word string) (Result, error) {
	p, ok, err := FindWord(g, word)
	switch {
	case errors.Is(err, ErrImpossibleLength):
		return Result{Word: word, Status: StatusImpossible, Reason: err.Error()}, err
	case err != nil:
		return Result{}, err
	case !ok:
		return Result{Word: word, Status: StatusNotFound}, nil
	}
	return Result{Word: word, Status: StatusFound, Placement: &p}, nil
}

// Solve searches every word in order. A word that cannot fit in the grid is
// reported as StatusImpossible and does not stop the remaining words.
func Solve(g *Grid, words []string) []Result {
	out := make([]Result, 0, len(words))
	for _, w := range words {
		r, err := solveWord(g, w)
		if err != nil && r.Status == "" {
			r = Result{Word: w, Status: StatusNotFound, Reason: err.Error()}
		}
		out = append(out, r)
	}
	return out
}

// SolveStrict is Solve, except it stops at the first word that cannot fit
// and returns the results gathered so far with the error.
func SolveStrict(g *Grid, words []string) ([]Result, error) {
	out := make([]Result, 0, len(words))
	for _, w := range words {
		r, err := solveWord(g, w)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

// SolveParallel is Solve with up to workers words searched at once.
// Results come back in word order.
func SolveParallel(ctx context.Context, g *Grid, words []string, workers int) ([]Result, error) {
	if workers < 1 {
		return nil, fmt.Errorf("workers must be positive, got %d", workers)
	}
	out := make([]Result, len(words))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, w := range words {
		if gctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := solveWord(g, w)
			if err != nil && r.Status == "" {
				r = Result{Word: w, Status: StatusNotFound, Reason: err.Error()}
			}
			out[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
