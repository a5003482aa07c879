package symtab

import (
	"log"
	"os"
	"path/filepath"
)

func defaultExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func baseName(path string) string {
	return filepath.Base(path)
}

func dirName(path string) string {
	return filepath.Dir(path)
}

func logf(format string, args ...interface{}) {
	log.Printf(format, args...)
}
