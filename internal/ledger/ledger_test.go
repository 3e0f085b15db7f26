package ledger_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/iterbot/internal/ledger"
)

const (
	testDeveloperAliceConstant = "alice"
	testDeveloperBobConstant   = "bob"
	testConcurrentWorkers      = 32
	testConcurrentIterations   = 250
)

func TestLedgerEnsureIsIdempotent(testInstance *testing.T) {
	workloadLedger := ledger.New()

	_, existsBefore := workloadLedger.Snapshot(testDeveloperAliceConstant)
	require.False(testInstance, existsBefore)

	workloadLedger.Ensure(testDeveloperAliceConstant)
	workloadLedger.Add(testDeveloperAliceConstant, 5, true)
	workloadLedger.Ensure(testDeveloperAliceConstant)

	points, exists := workloadLedger.Snapshot(testDeveloperAliceConstant)
	require.True(testInstance, exists)
	require.Equal(testInstance, ledger.Points{ExcludingReviewed: 5, Total: 5}, points)
}

func TestLedgerAddAndSubtract(testInstance *testing.T) {
	testCases := []struct {
		name     string
		apply    func(workloadLedger *ledger.Ledger)
		expected ledger.Points
	}{
		{
			name: "add_counts_both_accumulators",
			apply: func(workloadLedger *ledger.Ledger) {
				workloadLedger.Add(testDeveloperAliceConstant, 16, true)
			},
			expected: ledger.Points{ExcludingReviewed: 16, Total: 16},
		},
		{
			name: "add_reviewed_counts_total_only",
			apply: func(workloadLedger *ledger.Ledger) {
				workloadLedger.Add(testDeveloperAliceConstant, 10, true)
				workloadLedger.Add(testDeveloperAliceConstant, 7, false)
			},
			expected: ledger.Points{ExcludingReviewed: 10, Total: 17},
		},
		{
			name: "subtract_total_only",
			apply: func(workloadLedger *ledger.Ledger) {
				workloadLedger.Add(testDeveloperAliceConstant, 30, true)
				workloadLedger.Subtract(testDeveloperAliceConstant, 20, false)
			},
			expected: ledger.Points{ExcludingReviewed: 30, Total: 10},
		},
		{
			name: "subtract_clamps_to_zero",
			apply: func(workloadLedger *ledger.Ledger) {
				workloadLedger.Add(testDeveloperAliceConstant, 4, true)
				workloadLedger.Add(testDeveloperAliceConstant, 3, false)
				workloadLedger.Subtract(testDeveloperAliceConstant, 100, true)
			},
			expected: ledger.Points{ExcludingReviewed: 0, Total: 0},
		},
		{
			name: "add_saturates_at_maximum",
			apply: func(workloadLedger *ledger.Ledger) {
				workloadLedger.Add(testDeveloperAliceConstant, math.MaxUint32-1, true)
				workloadLedger.Add(testDeveloperAliceConstant, 10, true)
			},
			expected: ledger.Points{ExcludingReviewed: math.MaxUint32, Total: math.MaxUint32},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			workloadLedger := ledger.New()
			workloadLedger.Ensure(testDeveloperAliceConstant)
			testCase.apply(workloadLedger)

			points, exists := workloadLedger.Snapshot(testDeveloperAliceConstant)
			require.True(testInstance, exists)
			require.Equal(testInstance, testCase.expected, points)
		})
	}
}

func TestLedgerSubtractUnknownDeveloperCreatesNothing(testInstance *testing.T) {
	workloadLedger := ledger.New()
	workloadLedger.Subtract(testDeveloperBobConstant, 3, true)

	_, exists := workloadLedger.Snapshot(testDeveloperBobConstant)
	require.False(testInstance, exists)
	require.Empty(testInstance, workloadLedger.Entries())
}

func TestLedgerEntriesSortedByDeveloper(testInstance *testing.T) {
	workloadLedger := ledger.New()
	workloadLedger.Add(testDeveloperBobConstant, 2, false)
	workloadLedger.Add(testDeveloperAliceConstant, 1, true)

	entries := workloadLedger.Entries()
	require.Equal(testInstance, []ledger.Entry{
		{Developer: testDeveloperAliceConstant, Points: ledger.Points{ExcludingReviewed: 1, Total: 1}},
		{Developer: testDeveloperBobConstant, Points: ledger.Points{ExcludingReviewed: 0, Total: 2}},
	}, entries)
}

func TestLedgerConcurrentUpdatesDoNotLoseWrites(testInstance *testing.T) {
	workloadLedger := ledger.New()

	var workerGroup errgroup.Group
	for workerIndex := 0; workerIndex < testConcurrentWorkers; workerIndex++ {
		ownDeveloper := fmt.Sprintf("developer-%d", workerIndex)
		workerGroup.Go(func() error {
			for iteration := 0; iteration < testConcurrentIterations; iteration++ {
				workloadLedger.Ensure(testDeveloperAliceConstant)
				workloadLedger.Add(testDeveloperAliceConstant, 2, true)
				workloadLedger.Subtract(testDeveloperAliceConstant, 1, true)
				workloadLedger.Add(ownDeveloper, 1, false)
			}
			return nil
		})
	}
	require.NoError(testInstance, workerGroup.Wait())

	sharedPoints, exists := workloadLedger.Snapshot(testDeveloperAliceConstant)
	require.True(testInstance, exists)
	expectedShared := uint32(testConcurrentWorkers * testConcurrentIterations)
	require.Equal(testInstance, ledger.Points{ExcludingReviewed: expectedShared, Total: expectedShared}, sharedPoints)

	for workerIndex := 0; workerIndex < testConcurrentWorkers; workerIndex++ {
		ownPoints, ownExists := workloadLedger.Snapshot(fmt.Sprintf("developer-%d", workerIndex))
		require.True(testInstance, ownExists)
		require.Equal(testInstance, ledger.Points{ExcludingReviewed: 0, Total: testConcurrentIterations}, ownPoints)
	}
}
