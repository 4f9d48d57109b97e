package jump

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirbo/swishsensei/internal/models"
)

func TestDetectorFullJump(t *testing.T) {
	d := New()

	assert.False(t, d.Glove(models.GloveSample{Timestamp: 900, FSR1: 999}), "glove ignored while idle")
	assert.Nil(t, d.Foot(models.FootSample{Timestamp: 950, AZ: 16384}))

	ev := d.Foot(models.FootSample{Timestamp: 1000, AZ: 25000})
	require.NotNil(t, ev)
	assert.Equal(t, models.JumpStarted, ev.Phase)
	assert.True(t, d.Active())

	assert.True(t, d.Glove(models.GloveSample{Timestamp: 1100, FSR1: 300, FSR2: 100}))
	assert.Nil(t, d.Foot(models.FootSample{Timestamp: 1200, AZ: 30000}))
	assert.True(t, d.Glove(models.GloveSample{Timestamp: 1300, FSR1: 200, FSR2: 400}))
	assert.Nil(t, d.Foot(models.FootSample{Timestamp: 1400, AZ: 17000}))

	ev = d.Foot(models.FootSample{Timestamp: 1750, AZ: 16000})
	require.NotNil(t, ev)
	assert.Equal(t, models.JumpEnded, ev.Phase)
	require.NotNil(t, ev.Summary)

	want := models.JumpSummary{
		StartTS:     1000,
		EndTS:       1750,
		PeakAZ:      30000,
		DurationSec: 0.75,
		HeightM:     1.39,
		MaxFSR:      [2]int{300, 400},
		Glove: []models.GloveSample{
			{Timestamp: 1100, FSR1: 300, FSR2: 100},
			{Timestamp: 1300, FSR1: 200, FSR2: 400},
		},
	}
	if diff := cmp.Diff(want, *ev.Summary); diff != "" {
		t.Fatalf("unexpected summary (-want +got):\n%s", diff)
	}

	assert.False(t, d.Active())
	assert.False(t, d.Glove(models.GloveSample{Timestamp: 1800, FSR1: 1}))
}

func TestDetectorThresholdsAreStrictAndInclusive(t *testing.T) {
	d := New()
	assert.Nil(t, d.Foot(models.FootSample{Timestamp: 1, AZ: StartThreshold}), "start requires az > 20000")

	require.NotNil(t, d.Foot(models.FootSample{Timestamp: 2, AZ: StartThreshold + 1}))
	assert.Nil(t, d.Foot(models.FootSample{Timestamp: 3, AZ: LandingThreshold + 1}))

	ev := d.Foot(models.FootSample{Timestamp: 4, AZ: LandingThreshold})
	require.NotNil(t, ev, "landing at exactly 1 g")
	assert.Equal(t, models.JumpEnded, ev.Phase)
}

func TestDetectorLandingWithoutStartIgnored(t *testing.T) {
	d := New()
	assert.Nil(t, d.Foot(models.FootSample{Timestamp: 10, AZ: 0}))
	assert.False(t, d.Active())
}

func TestDetectorResetsBetweenJumps(t *testing.T) {
	d := New()
	d.Foot(models.FootSample{Timestamp: 0, AZ: 40000})
	d.Glove(models.GloveSample{Timestamp: 10, FSR1: 900, FSR2: 900})
	d.Foot(models.FootSample{Timestamp: 500, AZ: 0})

	d.Foot(models.FootSample{Timestamp: 1000, AZ: 21000})
	ev := d.Foot(models.FootSample{Timestamp: 1500, AZ: 0})
	require.NotNil(t, ev)
	assert.Equal(t, 21000, ev.Summary.PeakAZ)
	assert.Equal(t, [2]int{}, ev.Summary.MaxFSR)
	assert.Empty(t, ev.Summary.Glove)
}

func TestSummarizeClampsNegativeDuration(t *testing.T) {
	s := Summarize(2000, 1000, 20001, [2]int{}, nil)
	assert.Equal(t, 0.0, s.DurationSec)
	assert.Equal(t, 0.37, s.HeightM)
}

func TestDetectorConcurrentGlove(t *testing.T) {
	d := New()
	d.Foot(models.FootSample{Timestamp: 0, AZ: 30000})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d.Glove(models.GloveSample{Timestamp: int64(i), FSR1: i, FSR2: 2 * i})
		}(i)
	}
	wg.Wait()

	ev := d.Foot(models.FootSample{Timestamp: 1000, AZ: 0})
	require.NotNil(t, ev)
	assert.Len(t, ev.Summary.Glove, 50)
	assert.Equal(t, [2]int{49, 98}, ev.Summary.MaxFSR)
}
