// Tuning table persistence. Tables are YAML so operators can read and
// hand-edit them; a table from a different format version is ignored
// rather than trusted.
package tilegrid

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const tuneFileVersion = 1

type tuneFile struct {
	Version int         `yaml:"version"`
	Entries []tuneEntry `yaml:"entries"`
}

type tuneEntry struct {
	M      int        `yaml:"m"`
	N      int        `yaml:"n"`
	K      int        `yaml:"k"`
	DType  string     `yaml:"dtype"`
	Config TuneConfig `yaml:"config"`
}

// Save writes the tuner's cached selections to path.
func (at *Autotuner) Save(path string) error {
	at.mu.Lock()
	file := tuneFile{Version: tuneFileVersion}
	for _, rec := range at.cache {
		file.Entries = append(file.Entries, tuneEntry{
			M:      rec.problem.M,
			N:      rec.problem.N,
			K:      rec.problem.K,
			DType:  rec.problem.DType,
			Config: rec.config,
		})
	}
	at.mu.Unlock()

	data, err := yaml.Marshal(&file)
	if err != nil {
		return NewExecutionError("Autotuner.Save", "marshal tuning table", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return NewExecutionError("Autotuner.Save", "write tuning table", err)
	}
	return nil
}

// Load seeds the cache from a saved tuning table. A missing file is not
// an error; corrupt, version-mismatched, or out-of-range entries are
// skipped so a stale table can never poison the cache.
func (at *Autotuner) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return NewExecutionError("Autotuner.Load", "read tuning table", err)
	}

	var file tuneFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		log().Warn("ignoring corrupt tuning table", zap.String("path", path), zap.Error(err))
		return nil
	}
	if file.Version != tuneFileVersion {
		log().Warn("ignoring tuning table with unknown version",
			zap.String("path", path), zap.Int("version", file.Version))
		return nil
	}

	loaded := 0
	for _, e := range file.Entries {
		if e.M <= 0 || e.N <= 0 || e.K <= 0 || !e.Config.valid() {
			log().Warn("skipping invalid tuning entry",
				zap.String("path", path), zap.String("config", e.Config.String()))
			continue
		}
		at.Insert(Problem{M: e.M, N: e.N, K: e.K, DType: e.DType}, e.Config)
		loaded++
	}

	log().Info("loaded tuning table", zap.String("path", path), zap.Int("entries", loaded))
	return nil
}
