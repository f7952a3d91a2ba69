package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Dbig is the sentinel for "no limit" time-step bounds. It is kept small
// enough that Dbig seconds still fits in the integer tick representation.
const Dbig = 1e9

// Modes the solver can run in.
const (
	ModeInit = "init"
	ModeRun  = "run"
	ModePost = "post"
)

// Error reports an illegal or missing configuration parameter. All
// configuration errors are fatal before any stepping begins.
type Error struct {
	Param  string
	Reason string
}

func (e Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Param, e.Reason)
}

type Config struct {
	Time     TimeConfig     `yaml:"time"`
	Boundary BoundaryConfig `yaml:"boundary"`
	Grid     GridConfig     `yaml:"grid"`
	Master   MasterConfig   `yaml:"master"`
}

// TimeConfig covers the "time" namespace. Required keys are pointers so a
// missing key can be told apart from an explicit zero.
type TimeConfig struct {
	StartTime    *float64 `yaml:"starttime"`
	EndTime      *float64 `yaml:"endtime"`
	SaveTime     *float64 `yaml:"savetime"`
	PostProcTime *float64 `yaml:"postproctime"`
	AdaptiveStep *bool    `yaml:"adaptivestep"`
	DtMax        *float64 `yaml:"dtmax"`
	Dt           *float64 `yaml:"dt"`
	RKOrder      int      `yaml:"rkorder"`
	OutputIter   int      `yaml:"outputiter"`
	IOTimePrec   int      `yaml:"iotimeprec"`
}

type BoundaryConfig struct {
	Type        string  `yaml:"type"` // none, sine, gaussian, block, user
	Amplitude   float64 `yaml:"amplitude"`
	ZOffset     float64 `yaml:"z_offset"`
	XYDims      int     `yaml:"xy_dims"` // 1 = x only, 2 = x and y
	WavelengthX float64 `yaml:"wavelength_x"`
	WavelengthY float64 `yaml:"wavelength_y"`
	X0          float64 `yaml:"x0_hill"`
	Y0          float64 `yaml:"y0_hill"`
	SigmaX      float64 `yaml:"sigma_x_hill"`
	SigmaY      float64 `yaml:"sigma_y_hill"`
	Blocks      []Block `yaml:"blocks"`

	// Dirichlet value enforced for the scalar at the boundary; the
	// velocity components are always forced to zero (no slip).
	ScalarBC float64 `yaml:"sbot"`

	// Stencil construction knobs. The neighbour count must be large
	// enough that the support spans more than one grid level in every
	// direction, or the quadratic basis degenerates for flat boundaries.
	Neighbours int     `yaml:"neighbours"`
	CondMax    float64 `yaml:"cond_max"`
}

// Block is one rectangular footprint of the block boundary variant.
type Block struct {
	X0 float64 `yaml:"x0"`
	X1 float64 `yaml:"x1"`
	Y0 float64 `yaml:"y0"`
	Y1 float64 `yaml:"y1"`
}

type GridConfig struct {
	Itot  int     `yaml:"itot"`
	Jtot  int     `yaml:"jtot"`
	Ktot  int     `yaml:"ktot"`
	XSize float64 `yaml:"xsize"`
	YSize float64 `yaml:"ysize"`
	ZSize float64 `yaml:"zsize"`
}

type MasterConfig struct {
	WallClockLimit float64 `yaml:"wallclocklimit"` // hours, 0 = unlimited
}

func Default() *Config {
	return &Config{
		Time: TimeConfig{
			RKOrder:    3,
			OutputIter: 20,
			IOTimePrec: 0,
		},
		Boundary: BoundaryConfig{
			Type:       "none",
			XYDims:     1,
			Neighbours: 12,
			CondMax:    1e8,
		},
		Grid: GridConfig{
			Itot:  32,
			Jtot:  32,
			Ktot:  32,
			XSize: 1.0,
			YSize: 1.0,
			ZSize: 1.0,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate fills mode-dependent defaults and rejects illegal combinations.
// It must be called once before any component reads the config.
func (c *Config) Validate(mode string) error {
	if err := c.Time.validate(mode); err != nil {
		return err
	}
	if err := c.Boundary.validate(); err != nil {
		return err
	}
	return c.Grid.validate()
}

func (t *TimeConfig) validate(mode string) error {
	if mode == ModeInit {
		zero := 0.0
		t.StartTime = &zero
	}
	if t.StartTime == nil {
		return Error{"time.starttime", "required parameter is missing"}
	}
	if t.EndTime == nil {
		return Error{"time.endtime", "required parameter is missing"}
	}
	if t.SaveTime == nil {
		return Error{"time.savetime", "required parameter is missing"}
	}
	if *t.SaveTime <= 0 {
		return Error{"time.savetime", "must be positive"}
	}
	if mode == ModePost && t.PostProcTime == nil {
		return Error{"time.postproctime", "required parameter is missing"}
	}
	if t.AdaptiveStep == nil {
		adaptive := true
		t.AdaptiveStep = &adaptive
	}
	if t.DtMax == nil {
		dtmax := Dbig
		t.DtMax = &dtmax
	}
	if t.Dt == nil {
		t.Dt = t.DtMax
	}
	if t.RKOrder != 3 && t.RKOrder != 4 {
		return Error{"time.rkorder", fmt.Sprintf("%d is an illegal value, must be 3 or 4", t.RKOrder)}
	}
	if t.OutputIter <= 0 {
		return Error{"time.outputiter", "must be positive"}
	}
	return nil
}

func (b *BoundaryConfig) validate() error {
	switch b.Type {
	case "none", "user":
	case "sine":
		if b.WavelengthX <= 0 {
			return Error{"boundary.wavelength_x", "must be positive for the sine boundary"}
		}
		if b.XYDims == 2 && b.WavelengthY <= 0 {
			return Error{"boundary.wavelength_y", "must be positive for the 2D sine boundary"}
		}
	case "gaussian":
		if b.SigmaX <= 0 {
			return Error{"boundary.sigma_x_hill", "must be positive for the gaussian boundary"}
		}
		if b.XYDims == 2 && b.SigmaY <= 0 {
			return Error{"boundary.sigma_y_hill", "must be positive for the 2D gaussian boundary"}
		}
	case "block":
		if len(b.Blocks) == 0 {
			return Error{"boundary.blocks", "at least one footprint is required for the block boundary"}
		}
	default:
		return Error{"boundary.type", fmt.Sprintf("%q is not a supported boundary type", b.Type)}
	}
	if b.XYDims != 1 && b.XYDims != 2 {
		return Error{"boundary.xy_dims", fmt.Sprintf("%d is an illegal value, must be 1 or 2", b.XYDims)}
	}
	// The quadratic basis has 7 unknowns; the stencil needs at least that
	// many neighbour samples on top of the boundary point.
	if b.Neighbours < 7 {
		return Error{"boundary.neighbours", "at least 7 interpolation neighbours are required"}
	}
	if b.CondMax <= 0 {
		return Error{"boundary.cond_max", "must be positive"}
	}
	return nil
}

func (g *GridConfig) validate() error {
	if g.Itot < 1 || g.Jtot < 1 || g.Ktot < 1 {
		return Error{"grid", "cell counts must be positive"}
	}
	if g.XSize <= 0 || g.YSize <= 0 || g.ZSize <= 0 {
		return Error{"grid", "domain sizes must be positive"}
	}
	return nil
}
