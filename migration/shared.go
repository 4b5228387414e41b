package migration

import (
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/tmigrate/tmig/buildinfo"
	"github.com/tmigrate/tmig/config"
	"github.com/tmigrate/tmig/platform"
	"github.com/tmigrate/tmig/report"
	"github.com/tmigrate/tmig/result"
)

// Working-directory layout. Every path is relative to Config.WorkDir.
const (
	dataDir        = "data"
	metadataDir    = "metadata"
	transformedDir = "transformed"
	destructiveDir = "destructive"
	sharingDir     = "sharing"
)

// metadataManifest names the legacy territory metadata components the
// extraction retrieves from the source org.
const metadataManifest = "Territory,SharingRules,Role"

// SharedContext is the typed state threaded through one migration command.
// Pipeline steps read collaborators from it and exchange data through the
// stage contexts it owns, never through an untyped bag.
type SharedContext struct {
	Config config.Config
	Client platform.Client
	Logger *slog.Logger
}

// NewSharedContext wires a shared context over its collaborators. A nil
// logger is replaced with slog's default.
func NewSharedContext(cfg config.Config, client platform.Client, logger *slog.Logger) *SharedContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &SharedContext{
		Config: cfg,
		Client: client,
		Logger: logger,
	}
}

// path joins the working directory with path elements.
func (s *SharedContext) path(elem ...string) string {
	return filepath.Join(append([]string{s.Config.WorkDir}, elem...)...)
}

// reportPath returns the absolute path of a phase report file.
func (s *SharedContext) reportPath(file string) string {
	return report.Path(s.Config.WorkDir, file)
}

// dataFile returns the extraction artifact path for a legacy entity.
func (s *SharedContext) dataFile(entity string) string {
	return s.path(dataDir, entity+".csv")
}

// transformedDataFile returns the transformed artifact path for a target
// entity.
func (s *SharedContext) transformedDataFile(target string) string {
	return s.path(transformedDir, dataDir, target+".csv")
}

// header assembles the report fields every phase shares.
func (s *SharedContext) header(phase string, org platform.OrgInfo, run *result.Node) report.Header {
	info := buildinfo.Get()
	return report.Header{
		Tool:        "tmig",
		Version:     info.Version,
		Phase:       phase,
		GeneratedAt: time.Now().UTC(),
		OrgInfo:     org,
		Run:         result.Summarize(run),
	}
}

// sortedKeys returns a map's keys in lexical order for deterministic output.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
