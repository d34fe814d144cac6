package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/ikkim/gamecatalog-backend/internal/app/model"
	"github.com/ikkim/gamecatalog-backend/internal/app/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPopulateService struct {
	service.PopulateService
	calls    int
	params   map[string]string
	deadline bool
	err      error
}

func (s *stubPopulateService) Populate(ctx context.Context, params map[string]string) (*service.Report, error) {
	s.calls++
	s.params = params
	_, s.deadline = ctx.Deadline()
	if s.err != nil {
		return nil, s.err
	}
	return &service.Report{RunID: "run", Status: model.IngestionCompleted}, nil
}

func TestPopulateScheduler_Run(t *testing.T) {
	stub := &stubPopulateService{}
	params := map[string]string{"limit": "48"}
	s := NewPopulateScheduler(stub, "@hourly", params, time.Minute)

	s.run()

	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, params, stub.params)
	assert.True(t, stub.deadline)
}

func TestPopulateScheduler_BatchInProgressIsNotFatal(t *testing.T) {
	stub := &stubPopulateService{err: service.ErrBatchInProgress}
	s := NewPopulateScheduler(stub, "@hourly", nil, 0)

	assert.NotPanics(t, s.run)
	assert.Equal(t, 1, stub.calls)
}

func TestPopulateScheduler_StartStop(t *testing.T) {
	s := NewPopulateScheduler(&stubPopulateService{}, "*/5 * * * *", nil, 0)
	require.NoError(t, s.Start())
	s.Stop()
}

func TestPopulateScheduler_InvalidSpec(t *testing.T) {
	s := NewPopulateScheduler(&stubPopulateService{}, "not a schedule", nil, 0)
	assert.Error(t, s.Start())
}
