package datadog

import (
	"testing"

	"sparkify/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingClient struct {
	counts map[string]int64
	hists  map[string][]float64
	tags   [][]string
	closed bool
}

func newRecordingClient() *recordingClient {
	return &recordingClient{counts: map[string]int64{}, hists: map[string][]float64{}}
}

func (c *recordingClient) Count(name string, value int64, tags []string, _ float64) error {
	c.counts[name] += value
	c.tags = append(c.tags, tags)
	return nil
}

func (c *recordingClient) Histogram(name string, value float64, tags []string, _ float64) error {
	c.hists[name] = append(c.hists[name], value)
	c.tags = append(c.tags, tags)
	return nil
}

func (c *recordingClient) Close() error {
	c.closed = true
	return nil
}

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	b, err := NewBackend(Config{})
	require.Error(t, err)
	assert.Nil(t, b)
}

func TestBackend_ForwardsWithSortedTags(t *testing.T) {
	t.Parallel()

	rc := newRecordingClient()
	b := &Backend{client: rc}

	b.IncCounter(metrics.TableRows, 7, metrics.Labels{"table": "songs", "job": "sparkify"})
	b.ObserveHistogram(metrics.StepDuration, 0.25, metrics.Labels{"step": "write_songs"})
	require.NoError(t, b.Flush())

	assert.Equal(t, int64(7), rc.counts[metrics.TableRows])
	assert.Equal(t, []float64{0.25}, rc.hists[metrics.StepDuration])
	assert.Equal(t, []string{"job:sparkify", "table:songs"}, rc.tags[0])
	assert.True(t, rc.closed)
}

func TestBackend_NilClientIsNoop(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter(metrics.StepTotal, 1, nil)
	b.ObserveHistogram(metrics.StepDuration, 1, nil)
	assert.NoError(t, b.Flush())
}

func TestLabelsToTags_Empty(t *testing.T) {
	t.Parallel()

	assert.Nil(t, labelsToTags(nil))
}
