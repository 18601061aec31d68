package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagAxis        = flag.String("axis", "", "Capsule alignment axis (X, Y or Z)")
	flagLongitudes  = flag.Int("longitudes", 0, "Capsule longitude segments")
	flagLatitudes   = flag.Int("latitudes", 0, "Capsule latitude segments")
	flagRings       = flag.Int("rings", 0, "Capsule mid-section rings")
	flagUV          = flag.String("uv", "", "UV profile (FIXED, ASPECT or UNIFORM)")
	flagOffset      = flag.Float64("offset", 0, "Radius offset applied after fitting")
	flagSpace       = flag.String("space", "", "Mesh placement (world or local)")
	flagWorkers     = flag.Int("workers", 0, "Concurrent fits (0 = one per CPU)")
	flagTriangulate = flag.Bool("triangulate", false, "Split quads into triangles on export")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag command-line arguments.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// visitFlags walks the flags given on the command line.
var visitFlags = flag.Visit

// applyFlags applies CLI flag overrides to the config. Only flags given on
// the command line override, so an explicit zero still wins over the file.
func applyFlags(cfg *Config) {
	set := make(map[string]bool)
	visitFlags(func(f *flag.Flag) { set[f.Name] = true })

	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if set["axis"] {
		cfg.Fit.Axis = *flagAxis
	}
	if set["longitudes"] {
		cfg.Capsule.Longitudes = *flagLongitudes
	}
	if set["latitudes"] {
		cfg.Capsule.Latitudes = *flagLatitudes
	}
	if set["rings"] {
		cfg.Capsule.Rings = *flagRings
	}
	if set["uv"] {
		cfg.Capsule.UVProfile = *flagUV
	}
	if set["offset"] {
		cfg.Fit.Offset = *flagOffset
	}
	if set["space"] {
		cfg.Fit.Space = *flagSpace
	}
	if set["workers"] {
		cfg.Fit.Workers = *flagWorkers
	}
	if set["triangulate"] {
		cfg.Output.Triangulate = *flagTriangulate
	}
}
