package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-claims-checker/internal/checker"
	"github.com/feral-file/ff-claims-checker/internal/domain"
	"github.com/feral-file/ff-claims-checker/internal/mocks"
	"github.com/feral-file/ff-claims-checker/internal/scheduler"
)

func TestNewClaimsScheduler_Schedule(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{name: "default", schedule: ""},
		{name: "five fields", schedule: "*/5 * * * *"},
		{name: "six fields", schedule: "30 */5 * * * *"},
		{name: "descriptor", schedule: "@hourly"},
		{name: "every", schedule: "@every 10m"},
		{name: "invalid", schedule: "not a schedule", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &scheduler.ClaimsSchedulerConfig{Schedule: tt.schedule}
			s, err := scheduler.NewClaimsScheduler(cfg, mocks.NewMockChecker(ctrl))
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "claims-scheduler", s.Name())
		})
	}
}

func TestClaimsScheduler_RunOnStartAndStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ran := make(chan struct{})
	mockChecker := mocks.NewMockChecker(ctrl)
	mockChecker.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) ([]checker.RunResult, error) {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			close(ran)
			return []checker.RunResult{{Contract: "0xabc", Written: true}}, nil
		})

	s, err := scheduler.NewClaimsScheduler(&scheduler.ClaimsSchedulerConfig{RunOnStart: true, RunTimeout: time.Minute}, mockChecker)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("run on start did not happen")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	require.NoError(t, <-done)

	// second stop is a no-op
	assert.NoError(t, s.Stop(stopCtx))
}

func TestClaimsScheduler_StartAfterStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, err := scheduler.NewClaimsScheduler(&scheduler.ClaimsSchedulerConfig{Schedule: "@yearly"}, mocks.NewMockChecker(ctrl))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop on cancellation")
	}

	assert.NotPanics(t, func() {
		err = s.Start(context.Background())
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestClaimsScheduler_StartTwice(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ran := make(chan struct{})
	mockChecker := mocks.NewMockChecker(ctrl)
	mockChecker.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(context.Context) ([]checker.RunResult, error) {
			close(ran)
			return nil, nil
		})

	s, err := scheduler.NewClaimsScheduler(&scheduler.ClaimsSchedulerConfig{RunOnStart: true}, mockChecker)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	<-ran

	assert.Error(t, s.Start(ctx))

	cancel()
	assert.NoError(t, <-done)
}

func TestClaimsScheduler_TriggerSkipsOverlappingRuns(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	started := make(chan struct{})
	release := make(chan struct{})
	mockChecker := mocks.NewMockChecker(ctrl)
	mockChecker.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(context.Context) ([]checker.RunResult, error) {
			close(started)
			<-release
			return nil, nil
		}).
		Times(1)

	s, err := scheduler.NewClaimsScheduler(&scheduler.ClaimsSchedulerConfig{}, mockChecker)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Trigger()
	}()
	<-started

	// returns immediately while the first run holds the slot
	s.Trigger()

	close(release)
	wg.Wait()
}

func TestClaimsScheduler_RunErrorIsContained(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockChecker := mocks.NewMockChecker(ctrl)
	mockChecker.EXPECT().
		Run(gomock.Any()).
		Return(nil, domain.NewStageError("", domain.StageLoad, domain.ErrDataset))

	s, err := scheduler.NewClaimsScheduler(&scheduler.ClaimsSchedulerConfig{}, mockChecker)
	require.NoError(t, err)
	assert.NotPanics(t, s.Trigger)
}
