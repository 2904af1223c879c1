package config

type PersistenceCfg struct {
	// Dir specifies the directory where state-table snapshots are stored.
	// It is created on first save.
	Dir string `yaml:"dump_dir"`

	// Name defines the base name of the snapshot file.
	// The final file name gets ".gz" appended when Gzip is enabled.
	Name string `yaml:"dump_name"`

	// Gzip enables gzip compression for snapshot files.
	Gzip bool `yaml:"gzip"`
}

func (cfg *PersistenceCfg) Enabled() bool {
	return cfg != nil
}

// FileName returns the snapshot file name without the directory.
func (cfg *PersistenceCfg) FileName() string {
	name := cfg.Name
	if name == "" {
		name = "states"
	}
	name += ".dump"
	if cfg.Gzip {
		name += ".gz"
	}
	return name
}
