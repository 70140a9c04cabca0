package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-claims-checker/internal/checker"
	"github.com/feral-file/ff-claims-checker/internal/config"
	"github.com/feral-file/ff-claims-checker/internal/domain"
	"github.com/feral-file/ff-claims-checker/internal/mocks"
)

func TestPersistFailuresOnly(t *testing.T) {
	persistErr := domain.NewStageError("0xabc", domain.StagePersist, domain.ErrPersistence)

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "single persist failure", err: persistErr, want: true},
		{name: "joined persist failures", err: errors.Join(persistErr, domain.NewStageError("0xdef", domain.StagePersist, domain.ErrPersistence)), want: true},
		{name: "wrapped persist failure", err: fmt.Errorf("run: %w", persistErr), want: true},
		{name: "load failure", err: domain.NewStageError("", domain.StageLoad, domain.ErrDataset), want: false},
		{name: "mixed failures", err: errors.Join(persistErr, domain.NewStageError("", domain.StageEvaluate, domain.ErrInvalidCondition)), want: false},
		{name: "plain error", err: assert.AnError, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, persistFailuresOnly(tt.err))
		})
	}
}

func TestRetryFailedWrites(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	records := []domain.ClaimableAddress{{Address: "0x111", Claimable: true, ClaimIndex: 1, Quantity: 1}}
	mockStore := mocks.NewMockClaimsStore(ctrl)
	gomock.InOrder(
		mockStore.EXPECT().WriteAll(gomock.Any(), "0xabc", records).Return(domain.ErrPersistence),
		mockStore.EXPECT().WriteAll(gomock.Any(), "0xabc", records).Return(nil),
	)

	rt := &runtime{
		cfg: &config.ClaimsCheckerConfig{Retry: config.RetryConfig{
			Enabled:         true,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			MaxElapsedTime:  time.Second,
			Multiplier:      2.0,
		}},
		store: mockStore,
	}
	results := []checker.RunResult{
		{Contract: "0xdef", Written: true},
		{Contract: "0xabc", Claims: records, Err: domain.ErrPersistence},
	}

	require.NoError(t, retryFailedWrites(context.Background(), rt, results))
	assert.True(t, results[1].Written)
	assert.NoError(t, results[1].Err)
}
