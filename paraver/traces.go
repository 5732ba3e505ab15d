package paraver

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
)

// traceSet is the directory the tracing library merges per-process traces into
const traceSet = "set-0"

// CollectTraces reads every trace file of the first trace set under dir,
// keyed by file name, so they can be shipped to whoever merges the final trace
func CollectTraces(dir string) (map[string][]byte, error) {
	root := filepath.Join(dir, traceSet)
	traces := map[string][]byte{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("error reading trace file %q: %v", path, err)
		}

		traces[d.Name()] = data

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error collecting traces from %q: %w", root, err)
	}

	log.Printf("Collected %d trace files from %s", len(traces), root)

	return traces, nil
}
