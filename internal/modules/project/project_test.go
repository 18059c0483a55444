package project

import (
	"testing"

	"github.com/gradflow/core/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to models.ProjectStatus }{
		{models.ProjectProposed, models.ProjectApproved},
		{models.ProjectApproved, models.ProjectInProgress},
		{models.ProjectInProgress, models.ProjectSubmitted},
		{models.ProjectSubmitted, models.ProjectDefended},
	}
	for _, tc := range allowed {
		assert.True(t, canTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to models.ProjectStatus }{
		{models.ProjectProposed, models.ProjectDefended},
		{models.ProjectApproved, models.ProjectProposed},
		{models.ProjectDefended, models.ProjectProposed},
		{models.ProjectProposed, models.ProjectProposed},
		{models.ProjectSubmitted, models.ProjectInProgress},
	}
	for _, tc := range denied {
		assert.False(t, canTransition(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}
