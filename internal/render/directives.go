package render

import _ "embed"

// Config directive names.
const (
	OutDir      = "outdir"
	RandomSeed  = "randomseed"
	PsfFile     = "psffile"
	PdbFile     = "pdbfile"
	CellVectors = "cellvectors"
)

// ConfigDirectives rewrites a NAMD fep.tcl template for one run.
var ConfigDirectives = []Directive{
	{Name: OutDir, Prefix: "set outdir", Format: Printf("set outdir %s;")},
	{Name: RandomSeed, Prefix: "set randomseed", Format: Printf("set randomseed %s;")},
	{Name: PsfFile, Prefix: "set psffile", Format: Printf("set psffile %s.psf;")},
	{Name: PdbFile, Prefix: "set pdbfile", Format: Printf("set pdbfile %s.pdb;")},
	{Name: CellVectors, Prefix: "###CELLVECTORS", Format: Verbatim},
}

// Job-script directive names.
const (
	JobName     = "name"
	Memory      = "memory"
	Cores       = "cores"
	Host        = "host"
	Walltime    = "walltime"
	Queue       = "queue"
	Reservation = "reservation"
	Delay       = "delay"
	Run         = "run"
	Link        = "link"
)

// ScriptDirectives renders the Grid Engine job-script skeleton.
var ScriptDirectives = []Directive{
	{Name: JobName, Prefix: "#@NAME", Format: Printf("#$ -N %s")},
	{Name: Memory, Prefix: "#@MEMORY", Format: Printf("#$ -l vf=%s")},
	{Name: Cores, Prefix: "#@CORES", Format: Printf("#$ -pe %s"), Optional: true},
	{Name: Host, Prefix: "#@HOST", Format: Printf("#$ -l %s"), Optional: true},
	{Name: Walltime, Prefix: "#@WALLTIME", Format: Printf("#$ -l h_rt=%s")},
	{Name: Queue, Prefix: "#@QUEUE", Format: Printf("#$ -q %s"), Optional: true},
	{Name: Reservation, Prefix: "#@RESERVATION", Format: Printf("#$ -ar %s"), Optional: true},
	{Name: Delay, Prefix: "#@DELAY", Format: Printf("sleep %s")},
	{Name: Run, Prefix: "#@RUN", Format: Verbatim},
	{Name: Link, Prefix: "#@LINK", Format: Verbatim},
}

// ScriptSkeleton is the default job-script template.
//
//go:embed skeleton.sh
var ScriptSkeleton string

// NewConfigRenderer returns a Renderer for simulation config templates.
func NewConfigRenderer() *Renderer { return New(ConfigDirectives...) }

// NewScriptRenderer returns a Renderer for job-script skeletons.
func NewScriptRenderer() *Renderer { return New(ScriptDirectives...) }
