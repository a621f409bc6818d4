package operations

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignclean/internal/dataprocessing"
	"campaignclean/internal/infrastructure"
	"campaignclean/pkg/contracts/domain"
)

const bom = "\ufeff"

type memoryArtifacts struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func newMemoryArtifacts() *memoryArtifacts {
	return &memoryArtifacts{files: make(map[string][]byte)}
}

func (m *memoryArtifacts) Put(ctx context.Context, name string, r io.Reader) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
	return int64(len(data)), nil
}

func (m *memoryArtifacts) get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	return data, ok
}

type countingRecorder struct {
	started  atomic.Int64
	finished atomic.Int64
	batches  atomic.Int64
}

func (r *countingRecorder) JobStarted(context.Context) { r.started.Add(1) }
func (r *countingRecorder) JobFinished(context.Context, domain.JobResult, time.Duration) {
	r.finished.Add(1)
}
func (r *countingRecorder) BatchFinished(context.Context, *domain.BatchSummary, time.Duration) {
	r.batches.Add(1)
}

// processorFunc adapts a function to JobProcessor.
type processorFunc func(ctx context.Context, src io.Reader, jobName string) (*dataprocessing.Result, error)

func (f processorFunc) Process(ctx context.Context, src io.Reader, jobName string) (*dataprocessing.Result, error) {
	return f(ctx, src, jobName)
}

func stringJob(name, content string) Job {
	return Job{
		Name: name,
		Open: func(context.Context) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func newTestDispatcher(p JobProcessor, w ArtifactWriter, opts ...DispatcherOption) *Dispatcher {
	opts = append([]DispatcherOption{WithLogger(infrastructure.DiscardLogger())}, opts...)
	return NewDispatcher(p, w, opts...)
}

func TestDispatcherMixedBatch(t *testing.T) {
	artifacts := newMemoryArtifacts()
	processor := dataprocessing.NewProcessor(nil, infrastructure.DiscardLogger())
	d := newTestDispatcher(processor, artifacts)

	jobs := []Job{
		stringJob("a.csv", "id,キャンペーン名\n1,123/summer\n2,/winter\n"),
		stringJob("b.csv", "id,name\n1,x\n"),
		stringJob("c.csv", "id,キャンペーン\n1,\"unterminated\n"),
		stringJob("d.csv", "キャンペーン\n12/34/sale\n"),
	}

	summary := d.Run(context.Background(), jobs)

	require.Len(t, summary.Results, 4)
	assert.Equal(t, []string{"cleaned_a.csv", "cleaned_d.csv"}, summary.Succeeded)
	assert.Equal(t, []domain.JobFailure{
		{Name: "b.csv", Kind: domain.FailureColumnNotFound, Reason: summary.Results[1].Reason},
		{Name: "c.csv", Kind: domain.FailureParseError, Reason: summary.Results[2].Reason},
	}, summary.Failed)
	assert.True(t, summary.HasFailures())

	for i, job := range jobs {
		assert.Equal(t, job.Name, summary.Results[i].Name)
	}

	data, ok := artifacts.get("cleaned_a.csv")
	require.True(t, ok)
	assert.Equal(t, bom+"id,キャンペーン名\n1,summer\n2,winter\n", string(data))
	assert.Equal(t, dataprocessing.Checksum(data), summary.Results[0].Checksum)
	assert.Equal(t, 2, summary.Results[0].Rows)
	assert.Equal(t, "キャンペーン名", summary.Results[0].Column)

	_, ok = artifacts.get("cleaned_b.csv")
	assert.False(t, ok, "failed jobs must not produce output")
}

func TestDispatcherEmptyBatch(t *testing.T) {
	d := newTestDispatcher(dataprocessing.NewProcessor(nil, nil), newMemoryArtifacts())

	summary := d.Run(context.Background(), nil)

	assert.Empty(t, summary.Results)
	assert.Empty(t, summary.Succeeded)
	assert.Empty(t, summary.Failed)
	assert.False(t, summary.HasFailures())
}

func TestDispatcherKeepsSubmissionOrder(t *testing.T) {
	const n = 8
	processor := processorFunc(func(ctx context.Context, src io.Reader, name string) (*dataprocessing.Result, error) {
		var idx int
		fmt.Sscanf(name, "job-%d", &idx)
		// Earlier jobs finish last.
		time.Sleep(time.Duration(n-idx) * 5 * time.Millisecond)
		return &dataprocessing.Result{JobName: name, OutputName: "cleaned_" + name, Data: []byte(name)}, nil
	})
	d := newTestDispatcher(processor, newMemoryArtifacts(), WithWorkers(n))

	jobs := make([]Job, n)
	for i := range jobs {
		jobs[i] = stringJob(fmt.Sprintf("job-%d", i), "")
	}

	summary := d.Run(context.Background(), jobs)

	require.Len(t, summary.Results, n)
	for i := range jobs {
		assert.Equal(t, fmt.Sprintf("job-%d", i), summary.Results[i].Name)
		assert.Equal(t, fmt.Sprintf("cleaned_job-%d", i), summary.Succeeded[i])
	}
}

func TestDispatcherRespectsWorkerLimit(t *testing.T) {
	var running, peak atomic.Int64
	processor := processorFunc(func(ctx context.Context, src io.Reader, name string) (*dataprocessing.Result, error) {
		cur := running.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return &dataprocessing.Result{OutputName: "cleaned_" + name}, nil
	})
	d := newTestDispatcher(processor, newMemoryArtifacts(), WithWorkers(2))
	assert.Equal(t, 2, d.Workers())

	jobs := make([]Job, 10)
	for i := range jobs {
		jobs[i] = stringJob(fmt.Sprintf("f%d.csv", i), "")
	}

	summary := d.Run(context.Background(), jobs)

	assert.Len(t, summary.Succeeded, 10)
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestDispatcherRecoversPanics(t *testing.T) {
	processor := processorFunc(func(ctx context.Context, src io.Reader, name string) (*dataprocessing.Result, error) {
		if name == "boom.csv" {
			panic("kaboom")
		}
		return &dataprocessing.Result{OutputName: "cleaned_" + name}, nil
	})
	rec := &countingRecorder{}
	d := newTestDispatcher(processor, newMemoryArtifacts(), WithRecorder(rec))

	summary := d.Run(context.Background(), []Job{
		stringJob("ok.csv", ""),
		stringJob("boom.csv", ""),
		stringJob("also-ok.csv", ""),
	})

	assert.Equal(t, []string{"cleaned_ok.csv", "cleaned_also-ok.csv"}, summary.Succeeded)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, "boom.csv", summary.Failed[0].Name)
	assert.Equal(t, domain.FailureUnexpectedError, summary.Failed[0].Kind)
	assert.NotContains(t, summary.Failed[0].Reason, "kaboom")

	assert.Equal(t, int64(3), rec.started.Load())
	assert.Equal(t, int64(3), rec.finished.Load())
	assert.Equal(t, int64(1), rec.batches.Load())
}

func TestDispatcherSourceAndWriteFailures(t *testing.T) {
	processor := dataprocessing.NewProcessor(nil, nil)

	t.Run("open failure", func(t *testing.T) {
		d := newTestDispatcher(processor, newMemoryArtifacts())
		summary := d.Run(context.Background(), []Job{{
			Name: "gone.csv",
			Open: func(context.Context) (io.ReadCloser, error) {
				return nil, errors.New("disk gone")
			},
		}})

		require.Len(t, summary.Failed, 1)
		assert.Equal(t, domain.FailureUnexpectedError, summary.Failed[0].Kind)
	})

	t.Run("write failure", func(t *testing.T) {
		artifacts := newMemoryArtifacts()
		artifacts.err = errors.New("bucket full")
		d := newTestDispatcher(processor, artifacts)

		summary := d.Run(context.Background(), []Job{stringJob("a.csv", "キャンペーン\nx\n")})

		require.Len(t, summary.Failed, 1)
		assert.Equal(t, domain.FailureUnexpectedError, summary.Failed[0].Kind)
		assert.Empty(t, summary.Succeeded)
	})
}

func TestDispatcherDefaults(t *testing.T) {
	artifacts := newMemoryArtifacts()
	d := NewDispatcher(dataprocessing.NewProcessor(nil, nil), artifacts, WithWorkers(0), WithRecorder(nil), WithLogger(nil))
	assert.Equal(t, DefaultWorkers, d.Workers())

	summary := d.Run(context.Background(), []Job{stringJob("a.csv", "キャンペーン\n1/x\n")})
	assert.Equal(t, []string{"cleaned_a.csv"}, summary.Succeeded)
	assert.GreaterOrEqual(t, summary.Duration, 0.0)

	data, ok := artifacts.get("cleaned_a.csv")
	require.True(t, ok)
	assert.Equal(t, bom+"キャンペーン\nx\n", string(data))
}

func TestDispatcherReadsSourceOnce(t *testing.T) {
	var opened atomic.Int64
	artifacts := newMemoryArtifacts()
	d := newTestDispatcher(dataprocessing.NewProcessor(nil, nil), artifacts)

	job := Job{
		Name: "a.csv",
		Open: func(context.Context) (io.ReadCloser, error) {
			opened.Add(1)
			return io.NopCloser(bytes.NewReader([]byte("キャンペーン\n 99/x \n"))), nil
		},
	}

	summary := d.Run(context.Background(), []Job{job})

	assert.Equal(t, int64(1), opened.Load())
	require.Len(t, summary.Succeeded, 1)
	data, ok := artifacts.get("cleaned_a.csv")
	require.True(t, ok)
	assert.Equal(t, bom+"キャンペーン\nx\n", string(data))
}
