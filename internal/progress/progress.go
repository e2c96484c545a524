// Package progress estimates when a running NAMD simulation will finish by
// sampling the step counter it writes to its log.
package progress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/10amc-2/disorder/internal/utils"
	"k8s.io/utils/clock"
)

// Defaults matching a 10 ns production run.
const (
	DefaultSamples     = 6
	DefaultInterval    = 10 * time.Second
	DefaultTargetSteps = 1e7
)

const coordinatesMarker = "WRITING COORDINATES"

// tailSize is how much of the log end is read to find the last line.
const tailSize = 4096

// Sample is one observation of the step counter.
type Sample struct {
	Step int64
	Time time.Time
}

// Estimate is the simulation speed and the time needed for the target step count.
type Estimate struct {
	Samples     []Sample
	Speed       float64 // steps per second, mean over sample intervals
	SpeedStd    float64
	ETA         time.Duration // for TargetSteps at the mean of per-interval estimates
	ETAStd      time.Duration
	TargetSteps float64
}

// ETADays returns the ETA and its spread in days.
func (e *Estimate) ETADays() (float64, float64) {
	const day = float64(24 * time.Hour)
	return float64(e.ETA) / day, float64(e.ETAStd) / day
}

// Estimator polls a simulation log.
type Estimator struct {
	Samples     int
	Interval    time.Duration
	TargetSteps float64

	clock clock.Clock
	step  func(path string) (int64, error)
}

// NewEstimator returns an Estimator with the default sampling plan.
func NewEstimator(clk clock.Clock) *Estimator {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Estimator{
		Samples:     DefaultSamples,
		Interval:    DefaultInterval,
		TargetSteps: DefaultTargetSteps,
		clock:       clk,
		step:        LastStep,
	}
}

// Estimate samples path until it has Samples distinct step counts, waiting
// Interval between reads. It blocks until then or until ctx is done.
func (e *Estimator) Estimate(ctx context.Context, path string) (*Estimate, error) {
	if e.Samples < 2 {
		return nil, fmt.Errorf("at least 2 samples are needed (got %d)", e.Samples)
	}
	if !utils.FileExists(path) {
		return nil, fmt.Errorf("file %s not found", path)
	}

	samples := make([]Sample, 0, e.Samples)
	for {
		step, err := e.step(path)
		if err != nil {
			return nil, err
		}
		if step > 0 && (len(samples) == 0 || step != samples[len(samples)-1].Step) {
			samples = append(samples, Sample{Step: step, Time: e.clock.Now()})
			utils.PrintDebug("Sample %d/%d: step %d", len(samples), e.Samples, step)
			if len(samples) == e.Samples {
				break
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-e.clock.After(e.Interval):
		}
	}
	return Summarize(samples, e.TargetSteps)
}

// Summarize computes speed and ETA statistics from consecutive samples.
func Summarize(samples []Sample, targetSteps float64) (*Estimate, error) {
	if len(samples) < 2 {
		return nil, errors.New("at least 2 samples are needed")
	}
	speeds := make([]float64, 0, len(samples)-1)
	etas := make([]float64, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		dt := samples[i].Time.Sub(samples[i-1].Time).Seconds()
		dn := float64(samples[i].Step - samples[i-1].Step)
		if dt <= 0 || dn <= 0 {
			return nil, fmt.Errorf("samples %d and %d are not increasing", i-1, i)
		}
		speed := dn / dt
		speeds = append(speeds, speed)
		etas = append(etas, targetSteps/speed)
	}

	speed, speedStd := meanStd(speeds)
	eta, etaStd := meanStd(etas)
	return &Estimate{
		Samples:     samples,
		Speed:       speed,
		SpeedStd:    speedStd,
		ETA:         time.Duration(eta * float64(time.Second)),
		ETAStd:      time.Duration(etaStd * float64(time.Second)),
		TargetSteps: targetSteps,
	}, nil
}

// meanStd returns the mean and population standard deviation of xs.
func meanStd(xs []float64) (float64, float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}

// LastStep returns the step count of the log's last line, or -1 when the last
// line is not a coordinate write.
func LastStep(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	offset := max(info.Size()-tailSize, 0)
	buf := make([]byte, info.Size()-offset)
	if _, err := f.ReadAt(buf, offset); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseStep(lastLine(buf)), nil
}

// ParseStep extracts the step from a "WRITING COORDINATES ... <step>" line.
func ParseStep(line string) int64 {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, coordinatesMarker) {
		return -1
	}
	fields := strings.Fields(line)
	step, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
	if err != nil {
		return -1
	}
	return step
}

func lastLine(buf []byte) string {
	buf = bytes.TrimRight(buf, "\r\n")
	if i := bytes.LastIndexByte(buf, '\n'); i >= 0 {
		buf = buf[i+1:]
	}
	return string(buf)
}
