package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/10amc-2/disorder/internal/command"
	"github.com/10amc-2/disorder/internal/utils"
	"k8s.io/utils/clock"
)

// ResourceMode records how a job's resources were decided.
type ResourceMode string

const (
	ModeLegacy      ResourceMode = "legacy"      // fixed resources of the original job template
	ModeExplicit    ResourceMode = "explicit"    // values given on the command line
	ModeReservation ResourceMode = "reservation" // derived from an advance reservation
)

// DefaultSafetyMargin is kept free at the end of a reservation so the job can exit cleanly.
const DefaultSafetyMargin = 600 * time.Second

// ExplicitResources are caller-supplied values. Zero fields are unset.
type ExplicitResources struct {
	Walltime     time.Duration
	Cores        int
	MemPerThread string
	Hostname     string
}

// IsZero reports whether no field is set.
func (e *ExplicitResources) IsZero() bool {
	return e == nil || (e.Walltime == 0 && e.Cores == 0 && e.MemPerThread == "" && e.Hostname == "")
}

// ReservedResources is the resolved resource footprint of one job.
type ReservedResources struct {
	MemPerThread  string        // Grid Engine virtual_free per slot, verbatim (e.g. "2.0G")
	Walltime      time.Duration // h_rt, whole seconds
	Cores         int
	Hostname      string // Pinned host; empty when not pinned
	NodeClass     string // Boolean resource requested when no host is pinned (e.g. "ironfs")
	ReservationID string
	Mode          ResourceMode
}

// HostRequest returns the -l value selecting the execution host, or "".
func (r *ReservedResources) HostRequest() string {
	if r.Hostname != "" {
		return "hostname=" + r.Hostname
	}
	return r.NodeClass
}

// PERequest returns the -pe value for multi-core jobs, or "" for single-core jobs.
func (r *ReservedResources) PERequest(parallelEnv string) string {
	if r.Cores <= 1 || parallelEnv == "" {
		return ""
	}
	return fmt.Sprintf("%s %d", parallelEnv, r.Cores)
}

// Tier returns the queue tier for the resolved wall time.
func (r *ReservedResources) Tier() QueueTier {
	return ClassifyDuration(r.Walltime)
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	QrstatBin    string
	SafetyMargin time.Duration
	Location     *time.Location // Zone of reservation timestamps; nil means time.Local

	// Legacy defaults, also used for fields missing from explicit requests.
	DefaultMemory   string
	DefaultWalltime time.Duration
	DefaultCores    int
	NodeClass       string
}

// DefaultResolverOptions returns the resources of the original job template.
func DefaultResolverOptions() ResolverOptions {
	return ResolverOptions{
		QrstatBin:       "qrstat",
		SafetyMargin:    DefaultSafetyMargin,
		DefaultMemory:   "2.0G",
		DefaultWalltime: 72 * time.Hour,
		DefaultCores:    1,
		NodeClass:       "ironfs",
	}
}

// Resolver determines the resources of a job.
type Resolver struct {
	runner command.Runner
	clock  clock.PassiveClock
	opts   ResolverOptions
}

// NewResolver creates a Resolver. runner is only used for reservation queries.
func NewResolver(runner command.Runner, clk clock.PassiveClock, opts ResolverOptions) *Resolver {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Resolver{runner: runner, clock: clk, opts: opts}
}

// Resolve picks the resource mode from which arguments are set:
// a reservation id wins, then explicit values, then the legacy defaults.
func (r *Resolver) Resolve(ctx context.Context, explicit *ExplicitResources, reservationID string) (*ReservedResources, error) {
	var (
		res *ReservedResources
		err error
	)
	switch {
	case reservationID != "":
		res, err = r.fromReservation(ctx, explicit, reservationID)
	case !explicit.IsZero():
		res = r.fromExplicit(explicit)
	default:
		res = r.legacy()
	}
	if err != nil {
		return nil, err
	}

	res.Walltime = res.Walltime.Truncate(time.Second)
	if res.Walltime <= 0 {
		return nil, &ResourceExhaustedError{ReservationID: reservationID, Remaining: res.Walltime}
	}
	utils.PrintDebug("Resolved resources (%s): vf=%s h_rt=%s cores=%d host=%q",
		res.Mode, res.MemPerThread, FormatWalltime(res.Walltime), res.Cores, res.HostRequest())
	return res, nil
}

func (r *Resolver) fromReservation(ctx context.Context, explicit *ExplicitResources, id string) (*ReservedResources, error) {
	if r.runner == nil {
		return nil, fmt.Errorf("no command runner configured to query reservation %s", id)
	}
	ar, err := QueryReservation(ctx, r.runner, r.opts.QrstatBin, id, r.opts.Location)
	if err != nil {
		return nil, err
	}

	window := ar.End.Sub(r.clock.Now()) - r.opts.SafetyMargin
	walltime := min(ar.Walltime, window)
	if walltime <= 0 {
		return nil, &ResourceExhaustedError{ReservationID: id, End: ar.End, Remaining: walltime}
	}
	if explicit != nil && explicit.Walltime > 0 && explicit.Walltime < walltime {
		walltime = explicit.Walltime
	}
	if explicit != nil && (explicit.Cores > 0 || explicit.MemPerThread != "" || explicit.Hostname != "") {
		utils.PrintWarning("Reservation %s decides cores, memory, and host; explicit values are ignored", utils.StyleName(id))
	}

	return &ReservedResources{
		MemPerThread:  ar.VirtualFree,
		Walltime:      walltime,
		Cores:         ar.Cores,
		Hostname:      ar.Hostname,
		ReservationID: id,
		Mode:          ModeReservation,
	}, nil
}

func (r *Resolver) fromExplicit(e *ExplicitResources) *ReservedResources {
	res := r.legacy()
	res.Mode = ModeExplicit
	if e.Walltime > 0 {
		res.Walltime = e.Walltime
	}
	if e.Cores > 0 {
		res.Cores = e.Cores
	}
	if e.MemPerThread != "" {
		res.MemPerThread = e.MemPerThread
	}
	if e.Hostname != "" {
		res.Hostname = e.Hostname
		res.NodeClass = ""
	}
	return res
}

func (r *Resolver) legacy() *ReservedResources {
	cores := r.opts.DefaultCores
	if cores <= 0 {
		cores = 1
	}
	return &ReservedResources{
		MemPerThread: r.opts.DefaultMemory,
		Walltime:     r.opts.DefaultWalltime,
		Cores:        cores,
		NodeClass:    r.opts.NodeClass,
		Mode:         ModeLegacy,
	}
}
