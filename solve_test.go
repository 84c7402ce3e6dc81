package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_String(t *testing.T) {
	p := &Placement{Start: Position{4, 4}, End: Position{1, 4}, Direction: Up}

	assert.Equal(t, "GOOD 4:4 1:4", Result{Word: "GOOD", Status: StatusFound, Placement: p}.String())
	assert.Equal(t, "BYE doesn't exist in the grid", Result{Word: "BYE", Status: StatusNotFound}.String())
	assert.Equal(t, "BURGER can't fit in the grid", Result{Word: "BURGER", Status: StatusImpossible}.String())
}

func TestSolve_ContinuesPastImpossibleWords(t *testing.T) {
	g := mustGrid(t, "HELLO", "QORBD", "EEYLO", "XERZO", "YEOJG")

	res := Solve(g, []string{"HELLO", "GOODBYE", "BYE"})
	require.Len(t, res, 3)

	assert.Equal(t, StatusFound, res[0].Status)
	assert.Equal(t, StatusImpossible, res[1].Status)
	assert.Contains(t, res[1].Reason, "GOODBYE")
	assert.Nil(t, res[1].Placement)
	assert.Equal(t, "BYE 1:3 3:1", res[2].String())
}

func TestSolveStrict(t *testing.T) {
	g := mustGrid(t, "HELLO", "QORBD", "EEYLO", "XERZO", "YEOJG")

	res, err := SolveStrict(g, []string{"HELLO", "GOODBYE", "BYE"})
	require.ErrorIs(t, err, ErrImpossibleLength)
	require.Len(t, res, 1)
	assert.Equal(t, "HELLO 0:0 0:4", res[0].String())

	res, err = SolveStrict(g, []string{"HELLO", "BYE"})
	require.NoError(t, err)
	assert.Len(t, res, 2)
}

func TestSolveParallel_MatchesSolve(t *testing.T) {
	g := mustGrid(t,
		"YADWBGXKTZ",
		"WHCVFNOIPJ",
		"ERTIASGHTQ",
		"RLGRETHGIF",
		"THXNOLMWIC",
		"TUYTRWQGOI",
		"UKMKTLZZPB",
		"IGCVRTHZXS",
		"OIKYEAZOUM",
		"PCDRQPBWGB",
	)
	words := []string{"PICK", "BUZZWORTHY", "BUZZ", "FIGHT", "FIGHTER", "MISSING", "ELEVENLETTERS"}

	for _, workers := range []int{1, 3, 16} {
		got, err := SolveParallel(context.Background(), g, words, workers)
		require.NoError(t, err)
		if diff := cmp.Diff(Solve(g, words), got); diff != "" {
			t.Errorf("workers=%d: parallel results differ (-want +got):\n%s", workers, diff)
		}
	}
}

func TestSolveParallel_Errors(t *testing.T) {
	g := mustGrid(t, "AB")

	_, err := SolveParallel(context.Background(), g, []string{"A"}, 0)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = SolveParallel(ctx, g, []string{"A", "B"}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResult_JSON(t *testing.T) {
	g := mustGrid(t, "HELLO", "QORBD", "EEYLO", "XERZO", "YEOJG")
	data, err := json.Marshal(Solve(g, []string{"BYE", "NOPE"}))
	require.NoError(t, err)

	assert.JSONEq(t, `[
		{"word":"BYE","status":"found","placement":{"start":{"row":1,"col":3},"end":{"row":3,"col":1},"direction":"down-left"}},
		{"word":"NOPE","status":"not_found"}
	]`, string(data))
}
