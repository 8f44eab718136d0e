package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/marketsync/internal/conflict"
	"github.com/allisson/marketsync/internal/marketplace"
	producersDomain "github.com/allisson/marketsync/internal/producers/domain"
)

func TestParseType(t *testing.T) {
	tp, err := ParseType(" Allegro-To-DB ")
	require.NoError(t, err)
	assert.Equal(t, TypeMarketplaceToDB, tp)
	assert.Equal(t, "sync:allegro-to-db", tp.LeaseName())

	_, err = ParseType("sideways")
	assert.ErrorIs(t, err, ErrUnknownSyncType)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"unreachable", &marketplace.APIError{StatusCode: 503}, ErrorKindRemoteUnreachable},
		{"throttled", &marketplace.APIError{StatusCode: 429}, ErrorKindRemoteUnreachable},
		{"deadline", context.DeadlineExceeded, ErrorKindRemoteUnreachable},
		{"rejected", &marketplace.APIError{StatusCode: 400}, ErrorKindRemoteRejected},
		{"remote not found", &marketplace.APIError{StatusCode: 404}, ErrorKindRemoteRejected},
		{"manual review", conflict.ErrManualReviewRequired, ErrorKindLocalConflict},
		{"missing producer", producersDomain.ErrDependencyNotFound, ErrorKindDependencyUnresolved},
		{"account mismatch", producersDomain.ErrAccountMismatch, ErrorKindDependencyUnresolved},
		{
			"wrapped dependency",
			fmt.Errorf("%w: %w", ErrDependencyUnresolved, marketplace.ErrRemoteUnreachable),
			ErrorKindDependencyUnresolved,
		},
		{"database", errors.New("connection reset"), ErrorKindLocalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestRunResult(t *testing.T) {
	pull := &RunResult{}
	pull.Succeed()
	pull.Fail("A1", marketplace.ErrRemoteRejected)

	push := &RunResult{}
	push.Succeed()
	push.Succeed()

	result := NewBidirectionalResult(pull, push)
	assert.Equal(t, 4, result.Total.Processed)
	assert.Equal(t, 3, result.Total.Successful)
	assert.Equal(t, 1, result.Total.Failed)
	assert.Equal(t, result.Total.Processed, result.Total.Successful+result.Total.Failed)
	require.Len(t, result.Total.Errors, 1)
	assert.Equal(t, RecordError{
		RecordID: "A1",
		Kind:     ErrorKindRemoteRejected,
		Message:  marketplace.ErrRemoteRejected.Error(),
	}, result.Total.Errors[0])
}
