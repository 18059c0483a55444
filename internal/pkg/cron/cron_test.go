package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndList(t *testing.T) {
	s := New()
	s.Register(Job{
		Name:        "sweep",
		Description: "sweep something",
		Interval:    time.Hour,
		Fn:          func(context.Context) error { return nil },
	})

	items := s.List()
	require.Len(t, items, 1)
	assert.Equal(t, "sweep", items[0].Name)
	assert.Equal(t, StatusIdle, items[0].Status)
	assert.Nil(t, items[0].LastRunAt)
	require.NotNil(t, items[0].NextDate)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *items[0].NextDate, time.Minute)
}

func TestExecuteRecordsOutcome(t *testing.T) {
	s := New()
	s.Register(Job{
		Name:     "ok",
		Interval: time.Hour,
		Fn:       func(context.Context) error { return nil },
	})
	s.Register(Job{
		Name:     "boom",
		Interval: time.Hour,
		Fn:       func(context.Context) error { return errors.New("db gone") },
	})

	ctx := context.Background()
	for _, js := range s.jobs {
		s.execute(ctx, js)
	}

	byName := map[string]ListItem{}
	for _, item := range s.List() {
		byName[item.Name] = item
	}
	assert.Equal(t, StatusFulfill, byName["ok"].Status)
	assert.Equal(t, StatusReject, byName["boom"].Status)
	assert.NotNil(t, byName["ok"].LastRunAt)
}
