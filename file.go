package gtfssql

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/transitfeeds/gtfssql/domain/model"
)

// resolveSourceFile finds the source file of table inside feedDir.
// "<table>.txt" is preferred; otherwise the first existing compressed variant
// (".gz", ".bz2", ".xz", ".zst") is used. It returns ErrFileNotFound when no
// candidate exists.
func resolveSourceFile(feedDir, table string) (model.SourceFile, error) {
	for _, path := range model.CandidatePaths(feedDir, table) {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return model.SourceFile{}, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		return model.NewSourceFile(path, table, info.Size()), nil
	}
	return model.SourceFile{}, fmt.Errorf("%w: %s", ErrFileNotFound, table+model.ExtTXT)
}
