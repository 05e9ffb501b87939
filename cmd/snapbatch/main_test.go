package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EpicMandM/vsphere-snapbatch/internal/config"
	"github.com/EpicMandM/vsphere-snapbatch/internal/models"
)

func TestTagPrefersFlagOverride(t *testing.T) {
	env := &runtimeEnv{batch: &config.BatchConfig{}}
	env.batch.Batch.Tag = "from-config"

	tagOverride = "from-flag"
	defer func() { tagOverride = "" }()

	tag, err := env.tag()
	require.NoError(t, err)
	assert.Equal(t, "from-flag", tag)
}

func TestTagFallsBackToConfig(t *testing.T) {
	env := &runtimeEnv{batch: &config.BatchConfig{}}
	env.batch.Batch.Tag = "from-config"

	tag, err := env.tag()
	require.NoError(t, err)
	assert.Equal(t, "from-config", tag)
}

func TestTagMissingIsAnError(t *testing.T) {
	env := &runtimeEnv{batch: &config.BatchConfig{}}
	_, err := env.tag()
	require.Error(t, err)
}

func TestSummarizeAllSuccess(t *testing.T) {
	result := models.BatchResult{
		"vm-a": {Status: models.OutcomeSuccess},
		"vm-b": {Status: models.OutcomeSuccess},
	}
	assert.NoError(t, summarize(result))
}

func TestSummarizeReportsFailures(t *testing.T) {
	result := models.BatchResult{
		"vm-a": {Status: models.OutcomeSuccess},
		"vm-b": {Status: models.OutcomeFailed, Diagnostic: "snapshot missing"},
	}
	err := summarize(result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
}
